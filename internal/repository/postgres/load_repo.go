package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/clickpulse/internal/audit"
)

// Количество колонок в таблице analytics_loads
const loadColumns = 12

const schema = `
CREATE TABLE IF NOT EXISTS analytics_loads (
	id          UUID PRIMARY KEY,
	domain      TEXT        NOT NULL,
	entity_id   TEXT        NOT NULL DEFAULT '',
	endpoint    TEXT        NOT NULL,
	trigger     TEXT        NOT NULL,
	visible     BOOLEAN     NOT NULL,
	seq         BIGINT      NOT NULL,
	outcome     TEXT        NOT NULL,
	error       TEXT        NOT NULL DEFAULT '',
	duration_ms BIGINT      NOT NULL,
	timestamp   TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS analytics_loads_domain_ts ON analytics_loads (domain, timestamp DESC);
`

type LoadRepo struct {
	db *sql.DB
}

// NewLoadRepo открывает пул через pgx stdlib. Доступность базы проверяется отдельно через Ping.
func NewLoadRepo(connString string, maxConns int) (*LoadRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &LoadRepo{db: db}, nil
}

func NewLoadRepoFromDB(db *sql.DB) *LoadRepo {
	return &LoadRepo{db: db}
}

// Ping проверяет доступность базы при старте
func (r *LoadRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *LoadRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func (r *LoadRepo) Close() error { return r.db.Close() }

// WriteBatch реализует audit.StorageInterface: одна INSERT на пачку.
func (r *LoadRepo) WriteBatch(ctx context.Context, events []audit.LoadEvent) error {
	if len(events) == 0 {
		return nil
	}

	var sb strings.Builder
	vals := make([]interface{}, 0, len(events)*loadColumns)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for c := 1; c <= loadColumns; c++ {
			if c > 1 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", i*loadColumns+c)
		}
		sb.WriteByte(')')

		vals = append(vals,
			e.ID, e.Domain, e.EntityID, e.Endpoint, e.Trigger, e.Visible,
			int64(e.Seq), e.Outcome, e.Error, e.DurationMs, e.Timestamp, time.Now(),
		)
	}

	query := "INSERT INTO analytics_loads (id, domain, entity_id, endpoint, trigger, visible, seq, outcome, error, duration_ms, timestamp, created_at) VALUES " +
		sb.String() + " ON CONFLICT (id) DO NOTHING"

	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: write %d load events: %w", len(events), err)
	}
	return nil
}

// FetchHistory последние попытки, новые сверху.
func (r *LoadRepo) FetchHistory(ctx context.Context, f audit.HistoryFilter) ([]audit.LoadEvent, error) {
	f = f.Normalized()
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, domain, entity_id, endpoint, trigger, visible, seq, outcome, error, duration_ms, timestamp
		FROM analytics_loads
		WHERE ($1 = '' OR domain = $1) AND ($2 = '' OR entity_id = $2)
		ORDER BY timestamp DESC
		LIMIT $3`, f.Domain, f.EntityID, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch history: %w", err)
	}
	defer rows.Close()

	out := make([]audit.LoadEvent, 0, f.Limit)
	for rows.Next() {
		var (
			e   audit.LoadEvent
			seq int64
		)
		if err := rows.Scan(&e.ID, &e.Domain, &e.EntityID, &e.Endpoint, &e.Trigger, &e.Visible,
			&seq, &e.Outcome, &e.Error, &e.DurationMs, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan history: %w", err)
		}
		e.Seq = uint64(seq)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summary агрегаты по доменам за окно. P95 считается честно через PERCENTILE_CONT.
func (r *LoadRepo) Summary(ctx context.Context, window time.Duration) ([]audit.LoadSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			domain,
			COUNT(*),
			COUNT(*) FILTER (WHERE outcome = 'FAILED'),
			COUNT(*) FILTER (WHERE outcome = 'STALE'),
			COALESCE(PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY duration_ms), 0)
		FROM analytics_loads
		WHERE timestamp > $1
		GROUP BY domain
		ORDER BY domain`, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("postgres: summary: %w", err)
	}
	defer rows.Close()

	var out []audit.LoadSummary
	for rows.Next() {
		s := audit.LoadSummary{Window: window.String()}
		if err := rows.Scan(&s.Domain, &s.Total, &s.Failed, &s.Stale, &s.P95Ms); err != nil {
			return nil, fmt.Errorf("postgres: scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
