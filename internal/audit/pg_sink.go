package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type pgSink struct {
	pool *pgxpool.Pool
}

// NewPgSink returns a Sink that appends to the publish_audit table.
func NewPgSink(pool *pgxpool.Pool) Sink {
	return &pgSink{pool: pool}
}

func (s *pgSink) Record(ctx context.Context, entry *Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO publish_audit
			(id, ran_at, batch_size, processed, successful, failed,
			 remaining, stopped_early, halt_reason, outcomes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10)`,
		entry.ID, entry.RanAt, entry.BatchSize, entry.Processed,
		entry.Successful, entry.Failed, entry.Remaining, entry.StoppedEarly,
		string(entry.HaltReason), entry.Outcomes,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *pgSink) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, ran_at, batch_size, processed, successful, failed,
		       remaining, stopped_early, COALESCE(halt_reason, ''), outcomes
		FROM publish_audit
		ORDER BY ran_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.RanAt, &e.BatchSize, &e.Processed, &e.Successful,
			&e.Failed, &e.Remaining, &e.StoppedEarly, &e.HaltReason, &e.Outcomes,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
