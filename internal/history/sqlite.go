package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"balatro-bridge/bridge"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "bridge_history.db"

type SQLiteService struct {
	db          *sql.DB
	recentLimit int
}

func NewSQLiteServiceFromEnv() (*SQLiteService, error) {
	dbPath, err := historyLocalDatabasePathFromEnv()
	if err != nil {
		return nil, err
	}
	return NewSQLiteService(dbPath)
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
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteHistorySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{
		db:          db,
		recentLimit: envIntOrDefault("HISTORY_RECENT_LIMIT", defaultRecentLimit),
	}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) RecordExchange(ev bridge.Event) {
	rec := recordFromEvent(ev)
	if rec.Fingerprint == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("[History] begin record tx failed: err=%v", err)
		return
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO exchange_history (
    at_ms, phase, fingerprint, outcome, action_type, error, latency_ms, request_json, response_json
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.At.UnixMilli(), rec.Phase, rec.Fingerprint, rec.Outcome, rec.ActionType, rec.Error, rec.LatencyMs, rec.Request, rec.Response)
	if err != nil {
		log.Printf("[History] record exchange failed: outcome=%s err=%v", rec.Outcome, err)
		return
	}

	if s.recentLimit > 0 {
		_, err = tx.ExecContext(ctx, `
DELETE FROM exchange_history
WHERE id IN (
    SELECT id
    FROM exchange_history
    ORDER BY at_ms DESC, id DESC
    LIMIT -1 OFFSET ?
)
`, s.recentLimit)
		if err != nil {
			log.Printf("[History] trim exchange history failed: err=%v", err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[History] commit exchange record failed: err=%v", err)
	}
}

func (s *SQLiteService) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	limit = clampLimit(limit)
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, at_ms, phase, fingerprint, outcome, action_type, error, latency_ms, request_json, response_json
FROM exchange_history
ORDER BY at_ms DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		var atMs int64
		if err := rows.Scan(&rec.ID, &atMs, &rec.Phase, &rec.Fingerprint, &rec.Outcome, &rec.ActionType, &rec.Error, &rec.LatencyMs, &rec.Request, &rec.Response); err != nil {
			return nil, err
		}
		rec.At = time.UnixMilli(atMs).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteService) CountByOutcome(ctx context.Context) (map[string]int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT outcome, COUNT(1)
FROM exchange_history
GROUP BY outcome
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

func ensureSQLiteHistorySchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS exchange_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    at_ms INTEGER NOT NULL,
    phase TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    outcome TEXT NOT NULL,
    action_type TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT '',
    latency_ms INTEGER NOT NULL DEFAULT 0,
    request_json TEXT NOT NULL DEFAULT '',
    response_json TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_history_at ON exchange_history(at_ms DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_history_outcome ON exchange_history(outcome)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func historyLocalDatabasePathFromEnv() (string, error) {
	if v := strings.TrimSpace(os.Getenv("HISTORY_LOCAL_DATABASE_PATH")); v != "" {
		return filepath.Clean(v), nil
	}
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "BalatroBridge", defaultLocalDBName), nil
}
