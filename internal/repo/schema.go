package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — таблицы реестра. Идемпотентна, выполняется при старте.
const schema = `
CREATE TABLE IF NOT EXISTS schedulers (
	id              TEXT PRIMARY KEY,
	hostname        TEXT NOT NULL,
	instance_id     TEXT NOT NULL,
	score           DOUBLE PRECISION NOT NULL,
	is_primary      BOOLEAN NOT NULL DEFAULT false,
	started_at      TIMESTAMPTZ NOT NULL,
	last_checked_in TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS schedulers_primary_idx ON schedulers (is_primary) WHERE is_primary;

CREATE TABLE IF NOT EXISTS jobs (
	name             TEXT PRIMARY KEY,
	cron             TEXT,
	trigger_unit     TEXT,
	trigger_value    INTEGER,
	dependencies     JSONB NOT NULL DEFAULT '{}',
	last_report_date TIMESTAMPTZ,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema создаёт таблицы, если их нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
