package queue

import (
	"context"
	"fmt"
	"time"
)

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusFailed:
			health.Failed += count
		case StatusCompleted:
			health.Completed += count
		default:
			if IsProcessingStatus(status) {
				health.Processing += count
			}
		}
	}
	return health, nil
}

// Heartbeat stamps an in-flight item with the current time so stuck
// detection can distinguish live work from abandoned work.
func (s *Store) Heartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.execWithoutResultRetry(ctx,
		`UPDATE queue_items SET last_heartbeat = ? WHERE id = ?`, now, id)
}

// ResetStuckProcessing rolls items stuck in an in-flight status back to the
// stage boundary they entered from. An item counts as stuck when its last
// heartbeat (or, lacking one, its updated_at) is older than the timeout.
// Returns the number of items reset.
func (s *Store) ResetStuckProcessing(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-timeout).Format(time.RFC3339Nano)

	var total int64
	for _, transition := range stageRollbackTransitions {
		res, err := s.execWithRetry(ctx,
			`UPDATE queue_items
             SET status = ?, last_heartbeat = NULL, updated_at = ?
             WHERE status = ? AND COALESCE(last_heartbeat, updated_at) < ?`,
			transition.to,
			time.Now().UTC().Format(time.RFC3339Nano),
			transition.from,
			cutoff,
		)
		if err != nil {
			return total, fmt.Errorf("reset stuck %s: %w", transition.from, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// ResetProcessing unconditionally rolls every in-flight item back to its
// stage boundary. Used on daemon startup after an unclean shutdown.
func (s *Store) ResetProcessing(ctx context.Context) (int64, error) {
	var total int64
	for _, transition := range stageRollbackTransitions {
		res, err := s.execWithRetry(ctx,
			`UPDATE queue_items SET status = ?, last_heartbeat = NULL, updated_at = ? WHERE status = ?`,
			transition.to,
			time.Now().UTC().Format(time.RFC3339Nano),
			transition.from,
		)
		if err != nil {
			return total, fmt.Errorf("reset processing %s: %w", transition.from, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// RetryFailed returns failed items to pending and clears their error state.
// Returns the number of items requeued.
func (s *Store) RetryFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE queue_items
         SET status = ?, error_message = NULL, progress_stage = NULL,
             progress_percent = 0, progress_message = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed: %w", err)
	}
	return res.RowsAffected()
}
