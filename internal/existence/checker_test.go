package existence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/exosphere/internal/domain"
)

type fakeBackend struct {
	name   string
	result bool
	err    error
	calls  []string
}

func (f *fakeBackend) Exists(ctx context.Context, schema, table, column string, value any) (bool, error) {
	if _, ok := ctx.Deadline(); !ok {
		return false, errors.New("no deadline")
	}
	f.calls = append(f.calls, schema+"."+table+"."+column)
	return f.result, f.err
}

func dep(kind string) domain.DatabaseDependency {
	return domain.DatabaseDependency{DBKind: kind, Schema: "public", Table: "sales", Column: "day"}
}

func TestChecker_RoutesByKind(t *testing.T) {
	relational := &fakeBackend{result: true}
	document := &fakeBackend{result: true}
	c := New(Config{Relational: relational, Document: document})
	ctx := context.Background()

	for _, kind := range []string{"postgresql", "PostgreSQL", "mysql", "sql"} {
		ok, err := c.Exists(ctx, dep(kind), "2025-03-09")
		require.NoError(t, err, kind)
		assert.True(t, ok, kind)
	}
	assert.Len(t, relational.calls, 4)
	assert.Empty(t, document.calls)

	ok, err := c.Exists(ctx, dep("MONGO"), time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"public.sales.day"}, document.calls)
}

func TestChecker_UnsupportedKind(t *testing.T) {
	c := New(Config{Relational: &fakeBackend{}, Document: &fakeBackend{}})

	for _, kind := range []string{"", "cassandra", "mongodb"} {
		ok, err := c.Exists(context.Background(), dep(kind), "x")
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrUnsupportedKind, kind)
	}
}

func TestChecker_MissingFields(t *testing.T) {
	backend := &fakeBackend{result: true}
	c := New(Config{Relational: backend})

	d := dep("postgresql")
	d.Column = ""
	d.Table = ""
	ok, err := c.Exists(context.Background(), d, "x")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "table, column")
	assert.Empty(t, backend.calls)
}

func TestChecker_BackendNotConfigured(t *testing.T) {
	c := New(Config{Relational: &fakeBackend{}})

	ok, err := c.Exists(context.Background(), dep("mongo"), "x")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrBackendNotConfigured)
}

func TestChecker_BackendError(t *testing.T) {
	boom := errors.New("connection reset")
	c := New(Config{Relational: &fakeBackend{err: boom}})

	ok, err := c.Exists(context.Background(), dep("postgresql"), "x")
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

// --- Postgres ---

type fakeRow struct {
	exists bool
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*bool) = r.exists
	return nil
}

type fakeQuerier struct {
	row  fakeRow
	sql  string
	args []any
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.sql = sql
	q.args = args
	return q.row
}

func TestPostgres_Exists(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{exists: true}}
	p := NewPostgres(q)

	ok, err := p.Exists(context.Background(), "public", "sales", "day", "2025-03-09")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `SELECT EXISTS (SELECT 1 FROM "public"."sales" WHERE "day" = $1 LIMIT 1)`, q.sql)
	assert.Equal(t, []any{"2025-03-09"}, q.args)
}

func TestPostgres_SanitizesIdentifiers(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{}}
	p := NewPostgres(q)

	_, err := p.Exists(context.Background(), "public", `sales"; DROP TABLE jobs; --`, "day", "x")
	require.NoError(t, err)
	assert.Contains(t, q.sql, `"sales""; DROP TABLE jobs; --"`)
}

func TestPostgres_QueryError(t *testing.T) {
	p := NewPostgres(&fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}})

	ok, err := p.Exists(context.Background(), "public", "sales", "day", "x")
	assert.False(t, ok)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
