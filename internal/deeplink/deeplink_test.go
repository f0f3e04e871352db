package deeplink

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseURLSimpleFamilies(t *testing.T) {
	parser := NewParser("app")
	families := []Kind{KindAssignments, KindGrades, KindSchedule, KindTools, KindWellness, KindSharePlay, KindRecommendations}
	for _, family := range families {
		dest, ok := parser.ParseURL("app://" + string(family))
		if !ok {
			t.Fatalf("expected app://%s to parse", family)
		}
		if dest.Kind != family {
			t.Fatalf("expected kind %s, got %s", family, dest.Kind)
		}
		if dest.ID != uuid.Nil {
			t.Fatalf("expected no identifier for %s", family)
		}
	}
}

func TestParseURLIgnoresTrailingSegments(t *testing.T) {
	parser := NewParser("app")
	dest, ok := parser.ParseURL("app://assignments/extra/segments")
	if !ok || dest.Kind != KindAssignments {
		t.Fatalf("expected assignments with trailing segments to parse, got %+v ok=%v", dest, ok)
	}
}

func TestParseURLIdentifierFamilies(t *testing.T) {
	parser := NewParser("app")
	id := uuid.New()
	for _, family := range []Kind{KindCourse, KindAssignment, KindQuiz} {
		dest, ok := parser.ParseURL("app://" + string(family) + "/" + id.String())
		if !ok {
			t.Fatalf("expected app://%s/%s to parse", family, id)
		}
		if dest.Kind != family || dest.ID != id {
			t.Fatalf("expected %s %s, got %+v", family, id, dest)
		}
	}
}

func TestParseURLNoMatch(t *testing.T) {
	parser := NewParser("app")
	cases := []string{
		"https://assignments",
		"app://unknown",
		"app://course",
		"app://course/",
		"app://course/not-a-uuid",
		"app://quiz/1234",
		"",
		"::not a url::",
	}
	for _, raw := range cases {
		if _, ok := parser.ParseURL(raw); ok {
			t.Fatalf("expected %q to yield no match", raw)
		}
	}
}

func TestParseURLCustomScheme(t *testing.T) {
	parser := NewParser("campus")
	if _, ok := parser.ParseURL("app://assignments"); ok {
		t.Fatalf("expected reserved-scheme mismatch to yield no match")
	}
	if _, ok := parser.ParseURL("campus://assignments"); !ok {
		t.Fatalf("expected campus://assignments to parse")
	}
}

func TestParseActivity(t *testing.T) {
	parser := NewParser("app")
	id := uuid.New()
	for _, kind := range []Kind{KindCourse, KindAssignment, KindQuiz} {
		dest, ok := parser.ParseActivity(string(kind) + ":" + id.String())
		if !ok {
			t.Fatalf("expected %s activity to parse", kind)
		}
		if dest.Kind != kind || dest.ID != id {
			t.Fatalf("expected %s %s, got %+v", kind, id, dest)
		}
	}
}

func TestParseActivityNoMatch(t *testing.T) {
	parser := NewParser("app")
	id := uuid.New()
	cases := []string{
		"",
		"course",
		"course:",
		"course:not-a-uuid",
		"grades:" + id.String(),
		"unknown:" + id.String(),
	}
	for _, identifier := range cases {
		if _, ok := parser.ParseActivity(identifier); ok {
			t.Fatalf("expected %q to yield no match", identifier)
		}
	}
}

func TestKindCarriesID(t *testing.T) {
	for _, kind := range []Kind{KindCourse, KindAssignment, KindQuiz} {
		if !kind.CarriesID() {
			t.Fatalf("expected %s to carry an identifier", kind)
		}
	}
	for _, kind := range []Kind{KindAssignments, KindGrades, KindSchedule, KindTools, KindWellness, KindSharePlay, KindRecommendations} {
		if kind.CarriesID() {
			t.Fatalf("expected %s not to carry an identifier", kind)
		}
	}
}
