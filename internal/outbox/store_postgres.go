package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	txcontext "landledger/pkg/platform/tx"
)

// PostgresStore keeps entries in the outbox table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Enqueue joins the caller's transaction when ctx carries one.
func (s *PostgresStore) Enqueue(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		e.ID, e.AggregateType, e.AggregateID, e.EventType, e.Payload, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ClaimBatch locks rows with SKIP LOCKED so several workers can drain the
// table without publishing the same entry twice.
func (s *PostgresStore) ClaimBatch(ctx context.Context, limit int, publish func(ctx context.Context, e *Entry) error) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox claim: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return 0, fmt.Errorf("select outbox entries: %w", err)
	}
	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, &e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox entries: %w", err)
	}

	published := make([]string, 0, len(entries))
	var publishErr error
	for _, e := range entries {
		if err := publish(ctx, e); err != nil {
			publishErr = err
			break
		}
		published = append(published, e.ID.String())
	}

	if len(published) > 0 {
		_, err := tx.ExecContext(ctx,
			`UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`,
			time.Now(), pq.Array(published))
		if err != nil {
			return 0, fmt.Errorf("mark outbox entries published: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox claim: %w", err)
	}
	return len(published), publishErr
}
