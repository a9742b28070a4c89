package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fleetsim/fleetsim/sim"
)

const schema = `
CREATE TABLE IF NOT EXISTS simulation_histories (
	id            UUID PRIMARY KEY,
	outcome       TEXT NOT NULL,
	steps         INTEGER NOT NULL,
	closed_orders INTEGER NOT NULL,
	total_orders  INTEGER NOT NULL,
	history       JSONB NOT NULL,
	saved_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS simulation_histories_saved_at ON simulation_histories (saved_at DESC);
`

// Postgres stores histories as JSONB through the pgx database/sql driver.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verify postgres connection: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Migrate creates the history table when it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) SaveHistory(ctx context.Context, h *sim.History) error {
	data, err := encode(h)
	if err != nil {
		return fmt.Errorf("encoding history %s: %w", h.SimulationID, err)
	}
	rs := summarize(h, time.Now())
	_, err = p.db.ExecContext(ctx, `
INSERT INTO simulation_histories (id, outcome, steps, closed_orders, total_orders, history, saved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	outcome = EXCLUDED.outcome, steps = EXCLUDED.steps, closed_orders = EXCLUDED.closed_orders,
	total_orders = EXCLUDED.total_orders, history = EXCLUDED.history, saved_at = EXCLUDED.saved_at`,
		rs.ID, string(rs.Outcome), rs.Steps, rs.ClosedOrders, rs.TotalOrders, data, rs.SavedAt)
	if err != nil {
		return fmt.Errorf("saving history %s: %w", h.SimulationID, err)
	}
	return nil
}

func (p *Postgres) GetHistory(ctx context.Context, id uuid.UUID) (*sim.History, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx, `SELECT history FROM simulation_histories WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading history %s: %w", id, err)
	}
	return decode(data)
}

func (p *Postgres) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
SELECT id, outcome, steps, closed_orders, total_orders, saved_at
FROM simulation_histories ORDER BY saved_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var (
			rs      RunSummary
			outcome string
		)
		if err := rows.Scan(&rs.ID, &outcome, &rs.Steps, &rs.ClosedOrders, &rs.TotalOrders, &rs.SavedAt); err != nil {
			return nil, err
		}
		rs.Outcome = sim.Outcome(outcome)
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error { return p.db.Close() }
