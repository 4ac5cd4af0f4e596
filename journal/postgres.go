package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// PostgresSchema is applied by the operator; the service only checks for it.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS autopilot_decisions (
    id BIGSERIAL PRIMARY KEY,
    table_id TEXT NOT NULL,
    hand_id UUID NOT NULL,
    path TEXT NOT NULL,
    edge TEXT NOT NULL,
    command TEXT NOT NULL,
    amount BIGINT NOT NULL DEFAULT 0,
    min_bet BIGINT NOT NULL DEFAULT 0,
    depth INTEGER NOT NULL,
    big_blind BIGINT NOT NULL,
    round TEXT NOT NULL,
    rolled_back BOOLEAN NOT NULL DEFAULT FALSE,
    fingerprint TEXT NOT NULL,
    payload BYTEA,
    decided_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (hand_id, path, fingerprint)
);
CREATE INDEX IF NOT EXISTS idx_autopilot_decisions_table_time ON autopilot_decisions (table_id, decided_at DESC);
CREATE INDEX IF NOT EXISTS idx_autopilot_decisions_hand ON autopilot_decisions (hand_id);
`

const pgUndefinedTable = "42P01"

type PostgresService struct {
	db          *sql.DB
	retainLimit int
}

func NewPostgresService(dsn string) (*PostgresService, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	var schemaReady bool
	if err := db.QueryRowContext(ctx, `
SELECT EXISTS (
    SELECT 1
    FROM information_schema.tables
    WHERE table_schema = 'public'
      AND table_name = 'autopilot_decisions'
)`).Scan(&schemaReady); err != nil {
		_ = db.Close()
		return nil, err
	}
	if !schemaReady {
		_ = db.Close()
		return nil, fmt.Errorf("journal schema not initialized: missing table autopilot_decisions")
	}

	return &PostgresService{
		db:          db,
		retainLimit: envIntOrDefault("AUTOPILOT_JOURNAL_RETAIN", defaultRetainLimit),
	}, nil
}

func (s *PostgresService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresService) Append(ctx context.Context, r Record) error {
	if err := r.validate(); err != nil {
		return err
	}
	if r.DecidedAt.IsZero() {
		r.DecidedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO autopilot_decisions (
    table_id, hand_id, path, edge, command, amount, min_bet, depth, big_blind,
    round, rolled_back, fingerprint, payload, decided_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (hand_id, path, fingerprint) DO UPDATE
SET
    edge = EXCLUDED.edge,
    command = EXCLUDED.command,
    amount = EXCLUDED.amount,
    min_bet = EXCLUDED.min_bet,
    rolled_back = EXCLUDED.rolled_back,
    payload = EXCLUDED.payload,
    decided_at = EXCLUDED.decided_at
`, r.Table, r.HandID, r.Path, r.Edge, r.Command, r.Amount, r.MinBet, r.Depth, r.BigBlind,
		r.Round, r.Rollback, r.Fingerprint, nullableBytes(r.Payload), r.DecidedAt)
	if err != nil {
		return wrapPQ(err)
	}

	if s.retainLimit > 0 {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM autopilot_decisions
WHERE table_id = $1
  AND id IN (
      SELECT id
      FROM autopilot_decisions
      WHERE table_id = $1
      ORDER BY decided_at DESC, id DESC
      OFFSET $2
  )
`, r.Table, s.retainLimit); err != nil {
			return wrapPQ(err)
		}
	}
	return tx.Commit()
}

func (s *PostgresService) ListRecent(ctx context.Context, table string, limit int) ([]Record, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, `
SELECT id, table_id, hand_id::text, path, edge, command, amount, min_bet, depth, big_blind,
       round, rolled_back, fingerprint, payload, decided_at
FROM autopilot_decisions
WHERE ($1 = '' OR table_id = $1)
ORDER BY decided_at DESC, id DESC
LIMIT $2
`, table, limit)
	if err != nil {
		return nil, wrapPQ(err)
	}
	defer rows.Close()
	return scanPostgresRecords(rows, limit)
}

func (s *PostgresService) GetHand(ctx context.Context, handID string) ([]Record, error) {
	if strings.TrimSpace(handID) == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, table_id, hand_id::text, path, edge, command, amount, min_bet, depth, big_blind,
       round, rolled_back, fingerprint, payload, decided_at
FROM autopilot_decisions
WHERE hand_id = $1
ORDER BY decided_at ASC, id ASC
`, handID)
	if err != nil {
		return nil, wrapPQ(err)
	}
	defer rows.Close()
	items, err := scanPostgresRecords(rows, 16)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items, nil
}

func scanPostgresRecords(rows *sql.Rows, capHint int) ([]Record, error) {
	items := make([]Record, 0, capHint)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Table, &r.HandID, &r.Path, &r.Edge, &r.Command, &r.Amount, &r.MinBet,
			&r.Depth, &r.BigBlind, &r.Round, &r.Rollback, &r.Fingerprint, &r.Payload, &r.DecidedAt); err != nil {
			return nil, err
		}
		r.DecidedAt = r.DecidedAt.UTC()
		items = append(items, r)
	}
	return items, rows.Err()
}

func wrapPQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUndefinedTable {
		return fmt.Errorf("journal schema missing (%s): %w", pqErr.Message, err)
	}
	return err
}

func nullableBytes(v []byte) any {
	if len(v) == 0 {
		return nil
	}
	return v
}
