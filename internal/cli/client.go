package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/exosphere/internal/config"
	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/readiness"
	"github.com/shaiso/exosphere/internal/registry"
	"github.com/shaiso/exosphere/internal/storage"
)

// Client — доступ CLI к реестру и каталогу jobs.
type Client struct {
	registry  *registry.Client
	evaluator *readiness.Evaluator
	close     func()
}

// Dial открывает хранилище по конфигурации.
func Dial(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Client, error) {
	st, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	c := NewClient(st.Store, st.Existence, cfg.RegistryTimeout, logger)
	c.close = st.Close
	return c, nil
}

// NewClient создаёт Client поверх готового хранилища.
func NewClient(store registry.Store, existence readiness.Existence, timeout time.Duration, logger *slog.Logger) *Client {
	reg := registry.NewClient(registry.Config{
		Store:   store,
		Timeout: timeout,
		Logger:  logger,
	})

	return &Client{
		registry: reg,
		evaluator: readiness.New(readiness.Config{
			Catalog:   reg,
			Existence: existence,
			Logger:    logger,
		}),
		close: func() {},
	}
}

// Close закрывает соединения.
func (c *Client) Close() {
	c.close()
}

// --- Instances ---

// ListInstances возвращает записи планировщиков.
func (c *Client) ListInstances(ctx context.Context, primaryOnly bool) ([]domain.SchedulerInstance, error) {
	filter := registry.InstanceFilter{}
	if primaryOnly {
		filter = registry.PrimaryOnly()
	}
	return c.registry.FindInstances(ctx, filter)
}

// --- Jobs ---

// ListJobs возвращает каталог jobs.
func (c *Client) ListJobs(ctx context.Context) ([]domain.JobDefinition, error) {
	return c.registry.ListJobs(ctx)
}

// GetJob возвращает job по имени.
func (c *Client) GetJob(ctx context.Context, name string) (*domain.JobDefinition, error) {
	return c.registry.FindJobByName(ctx, name)
}

// LoadJobs сохраняет jobs в каталог.
//
// LastReportDate из файла записывается только при создании job:
// у существующего job дату ведёт система исполнения.
func (c *Client) LoadJobs(ctx context.Context, jobs []domain.JobDefinition) error {
	for i := range jobs {
		if err := c.registry.UpsertJob(ctx, &jobs[i]); err != nil {
			return fmt.Errorf("load job %q: %w", jobs[i].Name, err)
		}
	}
	return nil
}

// CheckResult — результат пробной проверки готовности.
type CheckResult struct {
	Job            string     `json:"job"`
	Stale          bool       `json:"stale"`
	CronReady      bool       `json:"cron_ready"`
	TriggerReady   bool       `json:"trigger_ready"`
	CronDueAt      *time.Time `json:"cron_due_at,omitempty"`
	NextReportDate *time.Time `json:"next_report_date,omitempty"`
	LastReportDate *time.Time `json:"last_report_date,omitempty"`
	StaleError     string     `json:"stale_error,omitempty"`
}

// Check проверяет готовность job без публикации.
func (c *Client) Check(ctx context.Context, name string) (*CheckResult, error) {
	job, err := c.registry.FindJobByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find job %q: %w", name, err)
	}

	d := c.evaluator.Evaluate(ctx, job)
	res := &CheckResult{
		Job:            job.Name,
		CronReady:      d.CronReady,
		TriggerReady:   d.TriggerReady,
		NextReportDate: d.NextReportDate,
		LastReportDate: job.LastReportDate,
	}
	if !d.CronDueAt.IsZero() {
		due := d.CronDueAt
		res.CronDueAt = &due
	}

	stale, err := c.evaluator.Stale(job)
	if err != nil {
		res.StaleError = err.Error()
	}
	res.Stale = stale
	return res, nil
}
