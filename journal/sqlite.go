package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteService struct {
	db          *sql.DB
	retainLimit int
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer; a :memory: database also lives only as long as its connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{
		db:          db,
		retainLimit: envIntOrDefault("AUTOPILOT_JOURNAL_RETAIN", defaultRetainLimit),
	}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) Append(ctx context.Context, r Record) error {
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

	// a retry after rollback repeats hand, path and reading; it replaces
	// the attempt that never landed
	_, err = tx.ExecContext(ctx, `
INSERT INTO autopilot_decisions (
    table_id, hand_id, path, edge, command, amount, min_bet, depth, big_blind,
    round, rolled_back, fingerprint, payload, decided_at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (hand_id, path, fingerprint) DO UPDATE
SET
    edge = excluded.edge,
    command = excluded.command,
    amount = excluded.amount,
    min_bet = excluded.min_bet,
    rolled_back = excluded.rolled_back,
    payload = excluded.payload,
    decided_at_ms = excluded.decided_at_ms
`, r.Table, r.HandID, r.Path, r.Edge, r.Command, r.Amount, r.MinBet, r.Depth, r.BigBlind,
		r.Round, boolToInt(r.Rollback), r.Fingerprint, r.Payload, r.DecidedAt.UTC().UnixMilli())
	if err != nil {
		return err
	}

	if s.retainLimit > 0 {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM autopilot_decisions
WHERE table_id = ?
  AND id IN (
      SELECT id
      FROM autopilot_decisions
      WHERE table_id = ?
      ORDER BY decided_at_ms DESC, id DESC
      LIMIT -1 OFFSET ?
  )
`, r.Table, r.Table, s.retainLimit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteService) ListRecent(ctx context.Context, table string, limit int) ([]Record, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, `
SELECT id, table_id, hand_id, path, edge, command, amount, min_bet, depth, big_blind,
       round, rolled_back, fingerprint, payload, decided_at_ms
FROM autopilot_decisions
WHERE (? = '' OR table_id = ?)
ORDER BY decided_at_ms DESC, id DESC
LIMIT ?
`, table, table, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteRecords(rows, limit)
}

func (s *SQLiteService) GetHand(ctx context.Context, handID string) ([]Record, error) {
	if strings.TrimSpace(handID) == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, table_id, hand_id, path, edge, command, amount, min_bet, depth, big_blind,
       round, rolled_back, fingerprint, payload, decided_at_ms
FROM autopilot_decisions
WHERE hand_id = ?
ORDER BY decided_at_ms ASC, id ASC
`, handID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items, err := scanSQLiteRecords(rows, 16)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items, nil
}

func scanSQLiteRecords(rows *sql.Rows, capHint int) ([]Record, error) {
	items := make([]Record, 0, capHint)
	for rows.Next() {
		var r Record
		var rollback int
		var decidedAtMs int64
		if err := rows.Scan(&r.ID, &r.Table, &r.HandID, &r.Path, &r.Edge, &r.Command, &r.Amount, &r.MinBet,
			&r.Depth, &r.BigBlind, &r.Round, &rollback, &r.Fingerprint, &r.Payload, &decidedAtMs); err != nil {
			return nil, err
		}
		r.Rollback = rollback != 0
		r.DecidedAt = time.UnixMilli(decidedAtMs).UTC()
		items = append(items, r)
	}
	return items, rows.Err()
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS autopilot_decisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    table_id TEXT NOT NULL,
    hand_id TEXT NOT NULL,
    path TEXT NOT NULL,
    edge TEXT NOT NULL,
    command TEXT NOT NULL,
    amount INTEGER NOT NULL DEFAULT 0,
    min_bet INTEGER NOT NULL DEFAULT 0,
    depth INTEGER NOT NULL,
    big_blind INTEGER NOT NULL,
    round TEXT NOT NULL,
    rolled_back INTEGER NOT NULL DEFAULT 0,
    fingerprint TEXT NOT NULL,
    payload BLOB,
    decided_at_ms INTEGER NOT NULL,
    UNIQUE (hand_id, path, fingerprint)
)`,
		`CREATE INDEX IF NOT EXISTS idx_autopilot_decisions_table_time ON autopilot_decisions (table_id, decided_at_ms DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_autopilot_decisions_hand ON autopilot_decisions (hand_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
