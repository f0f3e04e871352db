package jobs

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"campus/companion/internal/companion"
	"campus/companion/internal/config"
	"campus/companion/internal/db"
	"campus/companion/internal/snapshot"
)

// PushFunc applies a freshly built payload for one student and reports
// whether it was accepted.
type PushFunc func(ctx context.Context, userID string, payload companion.ContextPayload) bool

// StartContextRefreshJob periodically rebuilds companion payloads for
// students with schedule activity inside the configured window and pushes
// them through the regular receive path. Per-student failures are logged
// and skipped.
func StartContextRefreshJob(ctx context.Context, cfg config.Config, queries *db.Queries, builder *snapshot.Builder, push PushFunc) {
	if !cfg.ContextRefreshJobEnabled {
		return
	}
	interval := cfg.ContextRefreshJobInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	timeout := cfg.ContextRefreshJobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	window := cfg.ActiveStudentWindow
	if window <= 0 {
		window = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now().UTC()
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				pushed := refreshOnce(tickCtx, queries, builder, push, now, window)
				cancel()
				if pushed > 0 {
					log.Printf("context refresh job pushed %d payloads", pushed)
				}
			}
		}
	}()
}

func refreshOnce(ctx context.Context, queries *db.Queries, builder *snapshot.Builder, push PushFunc, now time.Time, window time.Duration) int {
	since := pgtype.Timestamptz{Time: now.Add(-window), Valid: true}
	students, err := queries.ListActiveStudents(ctx, since)
	if err != nil {
		log.Printf("context refresh job error: %v", err)
		return 0
	}
	pushed := 0
	for _, student := range students {
		if !student.Valid {
			continue
		}
		studentID := uuid.UUID(student.Bytes)
		payload, err := builder.Build(ctx, studentID, now)
		if err != nil {
			log.Printf("context refresh build error for %s: %v", studentID, err)
			continue
		}
		if push(ctx, studentID.String(), payload) {
			pushed++
		}
	}
	return pushed
}
