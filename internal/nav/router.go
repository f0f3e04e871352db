// Package nav applies resolved deep-link destinations to observable
// navigation state and holds at most one deferred deep link for replay
// after authentication.
package nav

import (
	"github.com/google/uuid"

	"campus/companion/internal/deeplink"
	"campus/companion/internal/dispatch"
)

// State is the navigation state observers react to. Observers fire on value
// changes, not value presence, so the list-style destinations carry a nonce
// regenerated on every application; navigating twice to the same screen
// still produces two observable changes.
type State struct {
	AssignmentsNonce     uuid.UUID `json:"assignmentsNonce"`
	GradesNonce          uuid.UUID `json:"gradesNonce"`
	ScheduleNonce        uuid.UUID `json:"scheduleNonce"`
	ToolsNonce           uuid.UUID `json:"toolsNonce"`
	WellnessNonce        uuid.UUID `json:"wellnessNonce"`
	SharePlayNonce       uuid.UUID `json:"sharePlayNonce"`
	RecommendationsNonce uuid.UUID `json:"recommendationsNonce"`
	CourseID             uuid.UUID `json:"courseId"`
	AssignmentID         uuid.UUID `json:"assignmentId"`
	QuizID               uuid.UUID `json:"quizId"`
}

// Event is emitted once per applied destination. The nonce is opaque and
// never reused.
type Event struct {
	Destination deeplink.Destination
	Nonce       uuid.UUID
}

// Router owns the navigation state and the single-slot pending deep link.
// All mutation runs on the dispatch loop; the slot has no expiry and a
// second deep link arriving before replay overwrites the first.
type Router struct {
	parser deeplink.Parser
	loop   *dispatch.Loop

	// Owned by the loop.
	state      State
	pending    string
	hasPending bool
	subs       []chan Event
}

func NewRouter(parser deeplink.Parser, loop *dispatch.Loop) *Router {
	return &Router{parser: parser, loop: loop}
}

// Handle resolves a raw deep-link URL. An unparseable URL is reported
// unhandled so the caller can try other handlers. While unauthenticated the
// URL is stored for later replay and still reported handled.
func (r *Router) Handle(raw string, authenticated bool) bool {
	dest, ok := r.parser.ParseURL(raw)
	if !ok {
		return false
	}
	r.loop.Do(func() {
		if !authenticated {
			r.pending = raw
			r.hasPending = true
			return
		}
		r.apply(dest)
	})
	return true
}

// HandleActivity resolves a search-activity identifier. Activities have no
// URL to replay later, so an unauthenticated activity is dropped rather
// than deferred.
func (r *Router) HandleActivity(identifier string, authenticated bool) bool {
	dest, ok := r.parser.ParseActivity(identifier)
	if !ok || !authenticated {
		return false
	}
	r.loop.Do(func() {
		r.apply(dest)
	})
	return true
}

// ProcessPending consumes and applies the pending deep link, if any. Called
// after authentication succeeds; a second call is a no-op.
func (r *Router) ProcessPending() {
	r.loop.Do(func() {
		if !r.hasPending {
			return
		}
		raw := r.pending
		r.pending = ""
		r.hasPending = false
		if dest, ok := r.parser.ParseURL(raw); ok {
			r.apply(dest)
		}
	})
}

// HasPending reports whether a deferred deep link is waiting for replay.
func (r *Router) HasPending() bool {
	var pending bool
	r.loop.Do(func() {
		pending = r.hasPending
	})
	return pending
}

// State returns a snapshot of the current navigation state.
func (r *Router) State() State {
	var snapshot State
	r.loop.Do(func() {
		snapshot = r.state
	})
	return snapshot
}

// Subscribe registers an event channel. Delivery is best effort: events a
// slow subscriber cannot buffer are dropped.
func (r *Router) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	r.loop.Do(func() {
		r.subs = append(r.subs, ch)
	})
	return ch
}

func (r *Router) apply(dest deeplink.Destination) {
	nonce := uuid.New()
	switch dest.Kind {
	case deeplink.KindAssignments:
		r.state.AssignmentsNonce = nonce
	case deeplink.KindGrades:
		r.state.GradesNonce = nonce
	case deeplink.KindSchedule:
		r.state.ScheduleNonce = nonce
	case deeplink.KindTools:
		r.state.ToolsNonce = nonce
	case deeplink.KindWellness:
		r.state.WellnessNonce = nonce
	case deeplink.KindSharePlay:
		r.state.SharePlayNonce = nonce
	case deeplink.KindRecommendations:
		r.state.RecommendationsNonce = nonce
	case deeplink.KindCourse:
		r.state.CourseID = dest.ID
	case deeplink.KindAssignment:
		r.state.AssignmentID = dest.ID
	case deeplink.KindQuiz:
		r.state.QuizID = dest.ID
	}
	event := Event{Destination: dest, Nonce: nonce}
	for _, sub := range r.subs {
		select {
		case sub <- event:
		default:
		}
	}
}
