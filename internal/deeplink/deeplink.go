// Package deeplink maps externally supplied triggers (custom-scheme URLs,
// system search activities) to typed navigation destinations. Parsing is
// pure: no side effects, safe from any goroutine.
package deeplink

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

type Kind string

const (
	KindAssignments     Kind = "assignments"
	KindGrades          Kind = "grades"
	KindSchedule        Kind = "schedule"
	KindTools           Kind = "tools"
	KindWellness        Kind = "wellness"
	KindSharePlay       Kind = "shareplay"
	KindRecommendations Kind = "recommendations"
	KindCourse          Kind = "course"
	KindAssignment      Kind = "assignment"
	KindQuiz            Kind = "quiz"
)

// Destination is a navigation target. ID is set only for the
// identifier-bearing kinds (course, assignment, quiz).
type Destination struct {
	Kind Kind
	ID   uuid.UUID
}

// CarriesID reports whether the kind requires an entity identifier.
func (k Kind) CarriesID() bool {
	switch k {
	case KindCourse, KindAssignment, KindQuiz:
		return true
	default:
		return false
	}
}

const DefaultScheme = "app"

type Parser struct {
	scheme string
}

func NewParser(scheme string) Parser {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return Parser{scheme: scheme}
}

// ParseURL maps a raw URL to a Destination. The scheme must equal the
// reserved application scheme and the host selects the destination family.
// Identifier-bearing families require the first path segment to be a valid
// UUID; anything else is no match, never a fallback destination.
func (p Parser) ParseURL(raw string) (Destination, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return Destination{}, false
	}
	if parsed.Scheme != p.scheme {
		return Destination{}, false
	}
	family := Kind(parsed.Host)
	switch family {
	case KindAssignments, KindGrades, KindSchedule, KindTools, KindWellness, KindSharePlay, KindRecommendations:
		// Trailing path segments are ignored for these families.
		return Destination{Kind: family}, true
	case KindCourse, KindAssignment, KindQuiz:
		segment := firstPathSegment(parsed.Path)
		id, err := uuid.Parse(segment)
		if err != nil {
			return Destination{}, false
		}
		return Destination{Kind: family, ID: id}, true
	default:
		return Destination{}, false
	}
}

// ParseActivity maps a search-index activity identifier of the form
// "<kind>:<uuid>" to a Destination. Only the identifier-bearing kinds are
// reachable through search.
func (p Parser) ParseActivity(identifier string) (Destination, bool) {
	parts := strings.SplitN(identifier, ":", 2)
	if len(parts) != 2 {
		return Destination{}, false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return Destination{}, false
	}
	switch kind := Kind(parts[0]); kind {
	case KindCourse, KindAssignment, KindQuiz:
		return Destination{Kind: kind, ID: id}, true
	default:
		return Destination{}, false
	}
}

func firstPathSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return ""
	}
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}
