package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/telemetry"
)

// Default configuration values.
const (
	defaultTimeout       = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = 200 * time.Millisecond
)

// Client — обёртка над Store для планировщика.
//
// Каждый вызов ограничен таймаутом. Временные ошибки повторяются
// с экспоненциальной задержкой; ErrNotFound и ErrAlreadyExists
// не повторяются.
type Client struct {
	store         Store
	timeout       time.Duration
	maxRetries    uint64
	retryInterval time.Duration
	logger        *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	Store         Store
	Timeout       time.Duration // таймаут одного вызова (default: 5s)
	MaxRetries    int           // повторы после первой попытки (default: 3, <0 — без повторов)
	RetryInterval time.Duration // начальная задержка retry (default: 200ms)
	Logger        *slog.Logger
}

// NewClient создаёт новый Client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxRetries := uint64(defaultMaxRetries)
	switch {
	case cfg.MaxRetries < 0:
		maxRetries = 0
	case cfg.MaxRetries > 0:
		maxRetries = uint64(cfg.MaxRetries)
	}

	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		store:         cfg.Store,
		timeout:       timeout,
		maxRetries:    maxRetries,
		retryInterval: retryInterval,
		logger:        logger,
	}
}

// Store возвращает обёрнутое хранилище.
func (c *Client) Store() Store {
	return c.store
}

// CreateInstance создаёт запись планировщика.
//
// Если первая попытка дошла до хранилища, но ответ потерялся,
// повтор получит ErrAlreadyExists — это считается успехом.
func (c *Client) CreateInstance(ctx context.Context, inst *domain.SchedulerInstance) error {
	attempts := 0
	err := c.do(ctx, "create_instance", func(ctx context.Context) error {
		attempts++
		return c.store.CreateInstance(ctx, inst)
	})
	if errors.Is(err, ErrAlreadyExists) && attempts > 1 {
		return nil
	}
	return err
}

// FindInstances возвращает записи по фильтру.
func (c *Client) FindInstances(ctx context.Context, filter InstanceFilter) ([]domain.SchedulerInstance, error) {
	var result []domain.SchedulerInstance
	err := c.do(ctx, "find_instances", func(ctx context.Context) error {
		var err error
		result, err = c.store.FindInstances(ctx, filter)
		return err
	})
	return result, err
}

// Primaries возвращает все записи с primary=true.
func (c *Client) Primaries(ctx context.Context) ([]domain.SchedulerInstance, error) {
	return c.FindInstances(ctx, PrimaryOnly())
}

// Instance возвращает одну запись по ключу.
func (c *Client) Instance(ctx context.Context, id string) (*domain.SchedulerInstance, error) {
	found, err := c.FindInstances(ctx, ByID(id))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return &found[0], nil
}

// SetPrimary выставляет флаг primary.
func (c *Client) SetPrimary(ctx context.Context, id string, primary bool) error {
	return c.do(ctx, "set_primary", func(ctx context.Context) error {
		return c.store.SetPrimary(ctx, id, primary)
	})
}

// ClearPrimaries снимает флаг primary со всех записей.
func (c *Client) ClearPrimaries(ctx context.Context) error {
	return c.do(ctx, "clear_primaries", c.store.ClearPrimaries)
}

// UpdateHeartbeat обновляет LastCheckedIn.
func (c *Client) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	return c.do(ctx, "update_heartbeat", func(ctx context.Context) error {
		return c.store.UpdateHeartbeat(ctx, id, at)
	})
}

// FindJobByName возвращает job по имени.
func (c *Client) FindJobByName(ctx context.Context, name string) (*domain.JobDefinition, error) {
	var job *domain.JobDefinition
	err := c.do(ctx, "find_job", func(ctx context.Context) error {
		var err error
		job, err = c.store.FindJobByName(ctx, name)
		return err
	})
	return job, err
}

// ListJobs возвращает каталог jobs.
func (c *Client) ListJobs(ctx context.Context) ([]domain.JobDefinition, error) {
	var jobs []domain.JobDefinition
	err := c.do(ctx, "list_jobs", func(ctx context.Context) error {
		var err error
		jobs, err = c.store.ListJobs(ctx)
		return err
	})
	return jobs, err
}

// UpsertJob создаёт или заменяет job.
func (c *Client) UpsertJob(ctx context.Context, job *domain.JobDefinition) error {
	return c.do(ctx, "upsert_job", func(ctx context.Context) error {
		return c.store.UpsertJob(ctx, job)
	})
}

// do выполняет операцию с таймаутом и retry.
func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	eb.MaxInterval = 10 * c.retryInterval
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)

	err := backoff.RetryNotify(func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		err := fn(callCtx)
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, delay time.Duration) {
		c.logger.Warn("registry operation failed, retrying",
			"op", op,
			"delay", delay,
			"error", err,
		)
	})
	if err == nil {
		return nil
	}

	if !errors.Is(err, ErrNotFound) {
		telemetry.RegistryErrors.WithLabelValues(op).Inc()
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) {
		return err
	}
	return fmt.Errorf("registry %s: %w", op, err)
}
