package snapshot

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"campus/companion/internal/companion"
	"campus/companion/internal/db"
)

type fakeQuerier struct {
	assignments  []db.AssignmentRow
	schedule     []db.ScheduleRow
	grades       []db.GradeRow
	scheduleArgs db.ListScheduleByStudentParams
}

func (f *fakeQuerier) ListAssignmentsByStudent(_ context.Context, _ pgtype.UUID) ([]db.AssignmentRow, error) {
	return f.assignments, nil
}

func (f *fakeQuerier) ListScheduleByStudent(_ context.Context, arg db.ListScheduleByStudentParams) ([]db.ScheduleRow, error) {
	f.scheduleArgs = arg
	return f.schedule, nil
}

func (f *fakeQuerier) ListGradesByStudent(_ context.Context, _ pgtype.UUID) ([]db.GradeRow, error) {
	return f.grades, nil
}

func TestBuildMapsRows(t *testing.T) {
	studentID := uuid.New()
	assignmentID := uuid.New()
	due := time.Date(2026, 9, 2, 15, 0, 0, 0, time.UTC)
	querier := &fakeQuerier{
		assignments: []db.AssignmentRow{{
			ID:         pgtype.UUID{Bytes: assignmentID, Valid: true},
			StudentID:  pgtype.UUID{Bytes: studentID, Valid: true},
			Title:      "Chapter 4 problems",
			CourseName: "Math",
			DueAt:      pgtype.Timestamptz{Time: due, Valid: true},
			Points:     25,
			Submitted:  true,
		}},
		schedule: []db.ScheduleRow{{
			CourseName: "Math",
			StartsAt:   pgtype.Timestamptz{Time: due.Add(-6 * time.Hour), Valid: true},
			EndsAt:     pgtype.Timestamptz{Time: due.Add(-5 * time.Hour), Valid: true},
			Room:       pgtype.Text{String: "118", Valid: true},
		}},
		grades: []db.GradeRow{{
			CourseName: "Math",
			Letter:     "A",
			Percentage: 95.5,
			Icon:       pgtype.Text{String: "function", Valid: true},
			Color:      pgtype.Text{String: "purple", Valid: true},
		}},
	}

	builder := NewBuilder(querier)
	now := time.Date(2026, 9, 2, 10, 30, 0, 0, time.UTC)
	payload, err := builder.Build(context.Background(), studentID, now)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}

	var assignments []companion.Assignment
	if err := json.Unmarshal(payload[companion.KeyAssignments], &assignments); err != nil {
		t.Fatalf("decode assignments: %v", err)
	}
	if len(assignments) != 1 || assignments[0].ID != assignmentID.String() || assignments[0].Title != "Chapter 4 problems" || !assignments[0].Submitted {
		t.Fatalf("assignment mapping wrong: %+v", assignments)
	}

	var schedule []companion.ScheduleEntry
	if err := json.Unmarshal(payload[companion.KeySchedule], &schedule); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	if len(schedule) != 1 || schedule[0].Room != "118" || schedule[0].CourseName != "Math" {
		t.Fatalf("schedule mapping wrong: %+v", schedule)
	}

	var grades []companion.Grade
	if err := json.Unmarshal(payload[companion.KeyGrades], &grades); err != nil {
		t.Fatalf("decode grades: %v", err)
	}
	if len(grades) != 1 || grades[0].Letter != "A" || grades[0].Percentage != 95.5 || grades[0].Color != "purple" {
		t.Fatalf("grade mapping wrong: %+v", grades)
	}

	dayStart := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	if !querier.scheduleArgs.From.Time.Equal(dayStart) {
		t.Fatalf("expected schedule window to start at %s, got %s", dayStart, querier.scheduleArgs.From.Time)
	}
	if !querier.scheduleArgs.To.Time.Equal(dayStart.Add(24 * time.Hour)) {
		t.Fatalf("expected schedule window to end a day later, got %s", querier.scheduleArgs.To.Time)
	}
}

func TestBuildEmptyCollectionsStayDecodable(t *testing.T) {
	builder := NewBuilder(&fakeQuerier{})
	payload, err := builder.Build(context.Background(), uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	for _, key := range []string{companion.KeyAssignments, companion.KeySchedule, companion.KeyGrades} {
		raw, ok := payload[key]
		if !ok {
			t.Fatalf("expected key %s to be present", key)
		}
		var decoded []json.RawMessage
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("expected %s to decode as an array: %v", key, err)
		}
	}
}
