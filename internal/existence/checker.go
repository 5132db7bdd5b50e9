package existence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shaiso/exosphere/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Ошибки проверки наличия данных.
var (
	// ErrUnsupportedKind — неизвестный тип хранилища.
	ErrUnsupportedKind = errors.New("unsupported database kind")

	// ErrMissingField — не заполнено schema, table или column.
	ErrMissingField = errors.New("dependency is missing a required field")

	// ErrBackendNotConfigured — backend для этого типа не подключён.
	ErrBackendNotConfigured = errors.New("existence backend not configured")
)

// Backend проверяет наличие значения в конкретном хранилище.
type Backend interface {
	Exists(ctx context.Context, schema, table, column string, value any) (bool, error)
}

// Checker направляет проверку в нужный backend.
type Checker struct {
	relational Backend
	document   Backend
	timeout    time.Duration
	logger     *slog.Logger
}

// Config — конфигурация Checker. Любой backend может быть nil.
type Config struct {
	Relational Backend
	Document   Backend
	Timeout    time.Duration // таймаут одной проверки (default: 10s)
	Logger     *slog.Logger
}

// New создаёт Checker.
func New(cfg Config) *Checker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Checker{
		relational: cfg.Relational,
		document:   cfg.Document,
		timeout:    timeout,
		logger:     logger,
	}
}

// Exists проверяет, есть ли в dep.Schema.dep.Table строка с dep.Column = value.
func (c *Checker) Exists(ctx context.Context, dep domain.DatabaseDependency, value any) (bool, error) {
	if err := validate(dep); err != nil {
		return false, err
	}

	backend, err := c.route(dep.DBKind)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("checking value exists",
		"db_kind", dep.DBKind,
		"schema", dep.Schema,
		"table", dep.Table,
		"column", dep.Column,
		"value", value,
	)

	ok, err := backend.Exists(ctx, dep.Schema, dep.Table, dep.Column, value)
	if err != nil {
		return false, fmt.Errorf("%s exists check: %w", dep.DBKind, err)
	}
	return ok, nil
}

func (c *Checker) route(kind string) (Backend, error) {
	kind = strings.ToLower(kind)

	var backend Backend
	switch {
	case strings.HasSuffix(kind, "sql"):
		backend = c.relational
	case kind == "mongo":
		backend = c.document
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}

	if backend == nil {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotConfigured, kind)
	}
	return backend, nil
}

func validate(dep domain.DatabaseDependency) error {
	var missing []string
	if dep.Schema == "" {
		missing = append(missing, "schema")
	}
	if dep.Table == "" {
		missing = append(missing, "table")
	}
	if dep.Column == "" {
		missing = append(missing, "column")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}
