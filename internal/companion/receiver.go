package companion

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"campus/companion/internal/dispatch"
)

// Store persists the companion snapshot so the wearable has data
// immediately on cold start, before any transport activity.
type Store interface {
	Save(ctx context.Context, userID string, snapshot Snapshot) error
	Load(ctx context.Context, userID string) (Snapshot, bool, error)
}

// Receiver applies incoming context payloads to one user's companion state.
// State is owned by the dispatch loop; payloads racing across the hop are
// not ordered, the last write to complete wins per collection.
type Receiver struct {
	userID string
	store  Store
	loop   *dispatch.Loop

	// Owned by the loop.
	state     Snapshot
	lastError string
}

func NewReceiver(userID string, store Store, loop *dispatch.Loop) *Receiver {
	return &Receiver{userID: userID, store: store, loop: loop}
}

// Bootstrap loads the persisted snapshot. A load failure keeps whatever
// state is already present and records the error; stale data beats a blank
// screen.
func (r *Receiver) Bootstrap(ctx context.Context) {
	snapshot, found, err := r.store.Load(ctx, r.userID)
	r.loop.Do(func() {
		if err != nil {
			r.lastError = "companion storage unavailable: " + err.Error()
			return
		}
		if found {
			r.state = snapshot
		}
	})
}

// Apply decodes the payload key by key, replaces each successfully decoded
// collection in full, and re-persists the whole snapshot. A payload with
// zero decodable keys changes nothing, persists nothing and surfaces no
// error. Returns whether at least one key was applied.
func (r *Receiver) Apply(ctx context.Context, payload ContextPayload) bool {
	var applied bool
	r.loop.Do(func() {
		decoded := 0
		if raw, ok := payload[KeyAssignments]; ok {
			var assignments []Assignment
			if err := json.Unmarshal(raw, &assignments); err == nil {
				r.state.Assignments = assignments
				decoded++
			}
		}
		if raw, ok := payload[KeySchedule]; ok {
			var schedule []ScheduleEntry
			if err := json.Unmarshal(raw, &schedule); err == nil {
				r.state.Schedule = schedule
				decoded++
			}
		}
		if raw, ok := payload[KeyGrades]; ok {
			var grades []Grade
			if err := json.Unmarshal(raw, &grades); err == nil {
				r.state.Grades = grades
				decoded++
			}
		}
		if decoded == 0 {
			return
		}
		r.state.SyncedAt = time.Now().UTC()
		r.lastError = ""
		if err := r.store.Save(ctx, r.userID, r.state); err != nil {
			log.Printf("companion persist failed for %s: %v", r.userID, err)
		}
		applied = true
	})
	return applied
}

// SetTransportError records a transport activation failure. Previously
// loaded or persisted data is never cleared.
func (r *Receiver) SetTransportError(message string) {
	r.loop.Do(func() {
		r.lastError = message
	})
}

// State returns the current snapshot and the advisory error string, empty
// when the last synchronization succeeded.
func (r *Receiver) State() (Snapshot, string) {
	var snapshot Snapshot
	var lastError string
	r.loop.Do(func() {
		snapshot = r.state
		lastError = r.lastError
	})
	return snapshot, lastError
}
