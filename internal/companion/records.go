// Package companion keeps a wearable's read-only projection of a student's
// assignments, schedule and grades eventually consistent with the primary
// device. The transport delivers whole collections, latest value only;
// there is no incremental merge.
package companion

import (
	"encoding/json"
	"time"
)

// Payload keys. Each value is an independently serialized collection, so a
// corrupted key never poisons the others.
const (
	KeyAssignments = "assignments"
	KeySchedule    = "schedule"
	KeyGrades      = "grades"
)

// Assignment is the watch-side projection of an assignment. A copy, not a
// reference: the wearable owns its records independently.
type Assignment struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CourseName string    `json:"courseName"`
	DueDate    time.Time `json:"dueDate"`
	Points     float64   `json:"points"`
	Submitted  bool      `json:"submitted"`
}

// ScheduleEntry is the watch-side projection of one timetable slot; the
// start and end times bound its activity window.
type ScheduleEntry struct {
	CourseName string    `json:"courseName"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Room       string    `json:"room"`
}

// Grade is the watch-side projection of a course grade.
type Grade struct {
	CourseName string  `json:"courseName"`
	Letter     string  `json:"letter"`
	Percentage float64 `json:"percentage"`
	Icon       string  `json:"icon"`
	Color      string  `json:"color"`
}

// ContextPayload is the transport blob: three string keys, each mapping to
// a serialized array of the corresponding record type.
type ContextPayload map[string]json.RawMessage

// EncodePayload serializes the three collections into a context payload.
func EncodePayload(assignments []Assignment, schedule []ScheduleEntry, grades []Grade) (ContextPayload, error) {
	assignmentData, err := json.Marshal(assignments)
	if err != nil {
		return nil, err
	}
	scheduleData, err := json.Marshal(schedule)
	if err != nil {
		return nil, err
	}
	gradeData, err := json.Marshal(grades)
	if err != nil {
		return nil, err
	}
	return ContextPayload{
		KeyAssignments: assignmentData,
		KeySchedule:    scheduleData,
		KeyGrades:      gradeData,
	}, nil
}

// Snapshot is the full companion state: the three collections plus the last
// successful synchronization time.
type Snapshot struct {
	Assignments []Assignment
	Schedule    []ScheduleEntry
	Grades      []Grade
	SyncedAt    time.Time
}
