package existence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier — часть pgxpool.Pool, нужная для проверки.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres — реляционный backend.
type Postgres struct {
	db Querier
}

// NewPostgres создаёт backend поверх пула.
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

// Exists выполняет SELECT EXISTS с экранированными идентификаторами;
// значение передаётся параметром.
func (p *Postgres) Exists(ctx context.Context, schema, table, column string, value any) (bool, error) {
	var exists bool
	if err := p.db.QueryRow(ctx, existsQuery(schema, table, column), value).Scan(&exists); err != nil {
		return false, fmt.Errorf("query: %w", err)
	}
	return exists, nil
}

func existsQuery(schema, table, column string) string {
	return fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 LIMIT 1)",
		pgx.Identifier{schema, table}.Sanitize(),
		pgx.Identifier{column}.Sanitize(),
	)
}
