package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/podreach/publisher/internal/domain"
)

const itemColumns = `id, target_id, episode_id, payload_text, status, priority,
	       added_at, processed_at, retry_count, metadata`

type pgQueueStore struct {
	pool *pgxpool.Pool
}

// NewPgQueueStore returns a QueueStore backed by PostgreSQL.
func NewPgQueueStore(pool *pgxpool.Pool) QueueStore {
	return &pgQueueStore{pool: pool}
}

func (s *pgQueueStore) Enqueue(ctx context.Context, item *domain.QueueItem) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO publish_queue
			(id, target_id, episode_id, payload_text, status, priority,
			 added_at, retry_count, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		item.ID, item.TargetID, item.EpisodeID, item.PayloadText, item.Status,
		item.Priority, item.AddedAt, item.RetryCount, item.Metadata,
	)
	if err != nil {
		if strings.Contains(err.Error(), "idx_publish_queue_live_target") {
			return domain.ErrDuplicateTarget
		}
		return fmt.Errorf("insert queue item: %w", err)
	}
	return nil
}

func (s *pgQueueStore) GetByID(ctx context.Context, id string) (*domain.QueueItem, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM publish_queue WHERE id = $1`, id)

	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return item, err
}

func (s *pgQueueStore) List(ctx context.Context, f domain.ListFilter) ([]*domain.QueueItem, int, error) {
	var where string
	var args []any
	if f.Status != nil {
		where = " WHERE status = $1"
		args = append(args, *f.Status)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM publish_queue"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count queue items: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	args = append(args, f.Limit, offset)
	query := fmt.Sprintf(`
		SELECT `+itemColumns+`
		FROM publish_queue%s
		ORDER BY added_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	return items, total, err
}

func (s *pgQueueStore) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM publish_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ClaimNext selects up to limit pending rows and flips them to processing in
// one statement. FOR UPDATE SKIP LOCKED makes concurrent claims disjoint:
// rows locked by another transaction are skipped, never double-claimed.
func (s *pgQueueStore) ClaimNext(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	rows, err := s.pool.Query(ctx, `
		WITH candidates AS (
			SELECT id
			FROM publish_queue
			WHERE status = 'pending'
			ORDER BY priority DESC, added_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE publish_queue q
		SET status = 'processing'
		FROM candidates c
		WHERE q.id = c.id
		RETURNING q.id, q.target_id, q.episode_id, q.payload_text, q.status,
		          q.priority, q.added_at, q.processed_at, q.retry_count, q.metadata`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	// UPDATE ... FROM does not guarantee RETURNING order; restore claim order.
	sortByClaimOrder(items)
	return items, nil
}

func (s *pgQueueStore) Complete(ctx context.Context, id string, meta domain.Metadata, processedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE publish_queue
		SET status = 'completed', processed_at = $1, metadata = $2
		WHERE id = $3`, processedAt, meta, id)
	return err
}

func (s *pgQueueStore) Fail(ctx context.Context, id string, meta domain.Metadata, retryCount int, processedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE publish_queue
		SET status = 'failed', processed_at = $1, metadata = $2, retry_count = $3
		WHERE id = $4`, processedAt, meta, retryCount, id)
	return err
}

func (s *pgQueueStore) Release(ctx context.Context, id string, meta domain.Metadata, retryCount int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE publish_queue
		SET status = 'pending', metadata = $1, retry_count = $2
		WHERE id = $3`, meta, retryCount, id)
	return err
}

func (s *pgQueueStore) Requeue(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE publish_queue
		SET status = 'pending'
		WHERE id = $1 AND status = 'processing'`, id)
	return err
}

// ---- helpers ----

// scanItem reads a single queue item row from any pgx row type.
// The metadata jsonb column unmarshals straight into domain.Metadata.
func scanItem(row pgx.Row) (*domain.QueueItem, error) {
	var item domain.QueueItem
	err := row.Scan(
		&item.ID, &item.TargetID, &item.EpisodeID, &item.PayloadText,
		&item.Status, &item.Priority, &item.AddedAt, &item.ProcessedAt,
		&item.RetryCount, &item.Metadata,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanItems(rows pgx.Rows) ([]*domain.QueueItem, error) {
	var result []*domain.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
