// Package snapshot builds companion context payloads from the backing
// tables: the phone-side projection of one student's assignments, today's
// schedule and current grades.
package snapshot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"campus/companion/internal/companion"
	"campus/companion/internal/db"
)

type Querier interface {
	ListAssignmentsByStudent(ctx context.Context, studentID pgtype.UUID) ([]db.AssignmentRow, error)
	ListScheduleByStudent(ctx context.Context, arg db.ListScheduleByStudentParams) ([]db.ScheduleRow, error)
	ListGradesByStudent(ctx context.Context, studentID pgtype.UUID) ([]db.GradeRow, error)
}

type Builder struct {
	queries Querier
}

func NewBuilder(queries Querier) *Builder {
	return &Builder{queries: queries}
}

// Build assembles the three collections for a student. The schedule covers
// the UTC day containing now.
func (b *Builder) Build(ctx context.Context, studentID uuid.UUID, now time.Time) (companion.ContextPayload, error) {
	student := pgUUID(studentID)

	assignmentRows, err := b.queries.ListAssignmentsByStudent(ctx, student)
	if err != nil {
		return nil, err
	}
	dayStart := now.UTC().Truncate(24 * time.Hour)
	scheduleRows, err := b.queries.ListScheduleByStudent(ctx, db.ListScheduleByStudentParams{
		StudentID: student,
		From:      pgTime(dayStart),
		To:        pgTime(dayStart.Add(24 * time.Hour)),
	})
	if err != nil {
		return nil, err
	}
	gradeRows, err := b.queries.ListGradesByStudent(ctx, student)
	if err != nil {
		return nil, err
	}

	assignments := make([]companion.Assignment, 0, len(assignmentRows))
	for _, row := range assignmentRows {
		assignments = append(assignments, mapAssignment(row))
	}
	schedule := make([]companion.ScheduleEntry, 0, len(scheduleRows))
	for _, row := range scheduleRows {
		schedule = append(schedule, mapScheduleEntry(row))
	}
	grades := make([]companion.Grade, 0, len(gradeRows))
	for _, row := range gradeRows {
		grades = append(grades, mapGrade(row))
	}

	return companion.EncodePayload(assignments, schedule, grades)
}

func mapAssignment(row db.AssignmentRow) companion.Assignment {
	return companion.Assignment{
		ID:         uuidString(row.ID),
		Title:      row.Title,
		CourseName: row.CourseName,
		DueDate:    row.DueAt.Time.UTC(),
		Points:     row.Points,
		Submitted:  row.Submitted,
	}
}

func mapScheduleEntry(row db.ScheduleRow) companion.ScheduleEntry {
	entry := companion.ScheduleEntry{
		CourseName: row.CourseName,
		StartTime:  row.StartsAt.Time.UTC(),
		EndTime:    row.EndsAt.Time.UTC(),
	}
	if row.Room.Valid {
		entry.Room = row.Room.String
	}
	return entry
}

func mapGrade(row db.GradeRow) companion.Grade {
	grade := companion.Grade{
		CourseName: row.CourseName,
		Letter:     row.Letter,
		Percentage: row.Percentage,
	}
	if row.Icon.Valid {
		grade.Icon = row.Icon.String
	}
	if row.Color.Valid {
		grade.Color = row.Color.String
	}
	return grade
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
