package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type AssignmentRow struct {
	ID         pgtype.UUID
	StudentID  pgtype.UUID
	Title      string
	CourseName string
	DueAt      pgtype.Timestamptz
	Points     float64
	Submitted  bool
}

type ScheduleRow struct {
	ID         pgtype.UUID
	StudentID  pgtype.UUID
	CourseName string
	StartsAt   pgtype.Timestamptz
	EndsAt     pgtype.Timestamptz
	Room       pgtype.Text
}

type GradeRow struct {
	StudentID  pgtype.UUID
	CourseName string
	Letter     string
	Percentage float64
	Icon       pgtype.Text
	Color      pgtype.Text
}

const listAssignmentsByStudent = `
SELECT id, student_id, title, course_name, due_at, points, submitted
FROM assignments
WHERE student_id = $1 AND deleted_at IS NULL
ORDER BY due_at ASC
`

func (q *Queries) ListAssignmentsByStudent(ctx context.Context, studentID pgtype.UUID) ([]AssignmentRow, error) {
	rows, err := q.db.Query(ctx, listAssignmentsByStudent, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AssignmentRow
	for rows.Next() {
		var item AssignmentRow
		if err := rows.Scan(&item.ID, &item.StudentID, &item.Title, &item.CourseName, &item.DueAt, &item.Points, &item.Submitted); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type ListScheduleByStudentParams struct {
	StudentID pgtype.UUID
	From      pgtype.Timestamptz
	To        pgtype.Timestamptz
}

const listScheduleByStudent = `
SELECT id, student_id, course_name, starts_at, ends_at, room
FROM schedule_entries
WHERE student_id = $1 AND starts_at >= $2 AND starts_at < $3
ORDER BY starts_at ASC
`

func (q *Queries) ListScheduleByStudent(ctx context.Context, arg ListScheduleByStudentParams) ([]ScheduleRow, error) {
	rows, err := q.db.Query(ctx, listScheduleByStudent, arg.StudentID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScheduleRow
	for rows.Next() {
		var item ScheduleRow
		if err := rows.Scan(&item.ID, &item.StudentID, &item.CourseName, &item.StartsAt, &item.EndsAt, &item.Room); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const listGradesByStudent = `
SELECT student_id, course_name, letter, percentage, icon, color
FROM grades
WHERE student_id = $1
ORDER BY course_name ASC
`

func (q *Queries) ListGradesByStudent(ctx context.Context, studentID pgtype.UUID) ([]GradeRow, error) {
	rows, err := q.db.Query(ctx, listGradesByStudent, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GradeRow
	for rows.Next() {
		var item GradeRow
		if err := rows.Scan(&item.StudentID, &item.CourseName, &item.Letter, &item.Percentage, &item.Icon, &item.Color); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const listActiveStudents = `
SELECT DISTINCT student_id
FROM schedule_entries
WHERE ends_at >= $1
`

func (q *Queries) ListActiveStudents(ctx context.Context, since pgtype.Timestamptz) ([]pgtype.UUID, error) {
	rows, err := q.db.Query(ctx, listActiveStudents, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []pgtype.UUID
	for rows.Next() {
		var id pgtype.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	return items, rows.Err()
}
