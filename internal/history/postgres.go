package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"balatro-bridge/bridge"

	_ "github.com/lib/pq"
)

type PostgresService struct {
	db          *sql.DB
	recentLimit int
}

// NewPostgresServiceFromEnv connects to a pre-initialized database. The
// schema is provisioned out of band; a missing table is a deployment
// mistake worth failing loudly on.
func NewPostgresServiceFromEnv() (*PostgresService, error) {
	db, err := sql.Open("postgres", historyDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
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
      AND table_name = 'exchange_history'
)`).Scan(&schemaReady); err != nil {
		_ = db.Close()
		return nil, err
	}
	if !schemaReady {
		_ = db.Close()
		return nil, fmt.Errorf("history schema not initialized: missing table exchange_history")
	}

	return &PostgresService{
		db:          db,
		recentLimit: envIntOrDefault("HISTORY_RECENT_LIMIT", defaultRecentLimit),
	}, nil
}

func (s *PostgresService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresService) RecordExchange(ev bridge.Event) {
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
    at, phase, fingerprint, outcome, action_type, error, latency_ms, request_json, response_json
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, rec.At, rec.Phase, rec.Fingerprint, rec.Outcome, rec.ActionType, rec.Error, rec.LatencyMs, rec.Request, rec.Response)
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
    ORDER BY at DESC, id DESC
    OFFSET $1
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

func (s *PostgresService) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	limit = clampLimit(limit)
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, at, phase, fingerprint, outcome, action_type, error, latency_ms, request_json, response_json
FROM exchange_history
ORDER BY at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.At, &rec.Phase, &rec.Fingerprint, &rec.Outcome, &rec.ActionType, &rec.Error, &rec.LatencyMs, &rec.Request, &rec.Response); err != nil {
			return nil, err
		}
		rec.At = rec.At.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresService) CountByOutcome(ctx context.Context) (map[string]int, error) {
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

func historyDSNFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("HISTORY_DATABASE_DSN")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	return defaultDatabaseDSN
}
