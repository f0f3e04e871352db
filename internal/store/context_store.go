// Package store persists companion snapshots in redis and forwards the
// latest context payload to connected wearables. Redis keeps exactly four
// entries per student: the three collections plus the synchronization
// timestamp in epoch seconds.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"campus/companion/internal/companion"
)

type ContextStore struct {
	client *redis.Client
}

func NewContextStore(client *redis.Client) *ContextStore {
	return &ContextStore{client: client}
}

// Save writes the full snapshot, not a delta. Values have no TTL; the store
// is the wearable's only durability mechanism.
func (s *ContextStore) Save(ctx context.Context, userID string, snapshot companion.Snapshot) error {
	assignments, err := json.Marshal(snapshot.Assignments)
	if err != nil {
		return err
	}
	schedule, err := json.Marshal(snapshot.Schedule)
	if err != nil {
		return err
	}
	grades, err := json.Marshal(snapshot.Grades)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, assignmentsKey(userID), assignments, 0)
	pipe.Set(ctx, scheduleKey(userID), schedule, 0)
	pipe.Set(ctx, gradesKey(userID), grades, 0)
	pipe.Set(ctx, syncedAtKey(userID), strconv.FormatInt(snapshot.SyncedAt.Unix(), 10), 0)
	_, err = pipe.Exec(ctx)
	return err
}

// Load reads the persisted snapshot. found is false when nothing has ever
// been persisted for the student.
func (s *ContextStore) Load(ctx context.Context, userID string) (companion.Snapshot, bool, error) {
	var snapshot companion.Snapshot
	found := false

	assignments, ok, err := s.getRaw(ctx, assignmentsKey(userID))
	if err != nil {
		return companion.Snapshot{}, false, err
	}
	if ok {
		if err := json.Unmarshal(assignments, &snapshot.Assignments); err != nil {
			return companion.Snapshot{}, false, err
		}
		found = true
	}

	schedule, ok, err := s.getRaw(ctx, scheduleKey(userID))
	if err != nil {
		return companion.Snapshot{}, false, err
	}
	if ok {
		if err := json.Unmarshal(schedule, &snapshot.Schedule); err != nil {
			return companion.Snapshot{}, false, err
		}
		found = true
	}

	grades, ok, err := s.getRaw(ctx, gradesKey(userID))
	if err != nil {
		return companion.Snapshot{}, false, err
	}
	if ok {
		if err := json.Unmarshal(grades, &snapshot.Grades); err != nil {
			return companion.Snapshot{}, false, err
		}
		found = true
	}

	raw, ok, err := s.getRaw(ctx, syncedAtKey(userID))
	if err != nil {
		return companion.Snapshot{}, false, err
	}
	if ok {
		seconds, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return companion.Snapshot{}, false, err
		}
		snapshot.SyncedAt = time.Unix(seconds, 0).UTC()
		found = true
	}

	return snapshot, found, nil
}

// Publish stores the payload as the latest context value and notifies
// subscribers. Intermediate values may be coalesced by consumers that only
// read the key; only the latest delivery is guaranteed visible.
func (s *ContextStore) Publish(ctx context.Context, userID string, payload companion.ContextPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, contextKey(userID), data, 0)
	pipe.Publish(ctx, contextChannel(userID), data)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *ContextStore) getRaw(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func assignmentsKey(userID string) string {
	return fmt.Sprintf("companion:%s:assignments", userID)
}

func scheduleKey(userID string) string {
	return fmt.Sprintf("companion:%s:schedule", userID)
}

func gradesKey(userID string) string {
	return fmt.Sprintf("companion:%s:grades", userID)
}

func syncedAtKey(userID string) string {
	return fmt.Sprintf("companion:%s:synced_at", userID)
}

func contextKey(userID string) string {
	return fmt.Sprintf("companion:%s:context", userID)
}

func contextChannel(userID string) string {
	return fmt.Sprintf("companion:context:%s", userID)
}
