package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/telemetry"
)

// DefaultLeadWindow — за сколько до срабатывания cron-job публикуется.
// Совпадает с задержкой публикации cron-jobs.
const DefaultLeadWindow = 5 * time.Minute

// Catalog — чтение каталога jobs.
type Catalog interface {
	FindJobByName(ctx context.Context, name string) (*domain.JobDefinition, error)
}

// Existence — внешний предикат "строка с таким значением существует".
type Existence interface {
	Exists(ctx context.Context, dep domain.DatabaseDependency, value any) (bool, error)
}

// Decision — результат проверки одного job.
type Decision struct {
	Job          string
	CronReady    bool
	TriggerReady bool

	// CronDueAt — следующее срабатывание cron, к которому относится публикация.
	CronDueAt time.Time

	// TriggerDueAt — дата отчёта, которую закрывает trigger-публикация.
	// Нулевое значение — job ещё ни разу не запускался.
	TriggerDueAt time.Time

	// NextReportDate — только для trigger-jobs.
	NextReportDate *time.Time
}

// Ready возвращает true, если сработал хотя бы один путь.
func (d Decision) Ready() bool {
	return d.CronReady || d.TriggerReady
}

// Evaluator проверяет готовность jobs.
// Состояния не хранит, безопасен для параллельного использования.
type Evaluator struct {
	catalog    Catalog
	existence  Existence
	leadWindow time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// Config — конфигурация Evaluator.
type Config struct {
	Catalog    Catalog
	Existence  Existence
	LeadWindow time.Duration // default: 5m
	Clock      func() time.Time
	Logger     *slog.Logger
}

// New создаёт Evaluator.
func New(cfg Config) *Evaluator {
	leadWindow := cfg.LeadWindow
	if leadWindow <= 0 {
		leadWindow = DefaultLeadWindow
	}

	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Evaluator{
		catalog:    cfg.Catalog,
		existence:  cfg.Existence,
		leadWindow: leadWindow,
		now:        clock,
		logger:     logger,
	}
}

// Evaluate проверяет cron- и trigger-путь независимо.
// Ошибки логируются, соответствующий путь считается неготовым.
func (e *Evaluator) Evaluate(ctx context.Context, job *domain.JobDefinition) Decision {
	logger := telemetry.WithJob(e.logger, job.Name)
	d := Decision{Job: job.Name}

	if job.IsCron() {
		ready, err := e.CronJobIsReady(ctx, job)
		if err != nil {
			logger.Error("cron check failed", "cron", job.Cron, "error", err)
		}
		if ready {
			d.CronReady = true
			// Ошибки здесь уже невозможны: выражение только что распарсилось
			d.CronDueAt, _ = NextFireTime(job.Cron, e.now())
		}
	}

	if job.IsTrigger() {
		if next, err := NextReportDate(job); err == nil {
			d.NextReportDate = &next
		}
		if e.TriggerJobIsReady(ctx, job) {
			d.TriggerReady = true
			if d.NextReportDate != nil {
				d.TriggerDueAt = *d.NextReportDate
			}
		}
	}

	switch {
	case d.Ready():
		telemetry.JobEvaluations.WithLabelValues("ready").Inc()
		logger.Debug("job is ready", "cron_ready", d.CronReady, "trigger_ready", d.TriggerReady)
	case !job.IsCron() && !job.IsTrigger():
		telemetry.JobEvaluations.WithLabelValues("error").Inc()
		logger.Warn("job has no schedule", "error", ErrNoSchedule)
	default:
		telemetry.JobEvaluations.WithLabelValues("not_ready").Inc()
	}

	return d
}

// CronJobIsReady проверяет cron-путь.
//
// Пусть F — следующее срабатывание после now. Job готов, если он
// stale и последний отчёт был раньше окна публикации F (F - 5m).
// Так job публикуется заранее, за 5 минут до слота, и только один
// раз на слот: после отчёта в слоте P следующий слот уже не ждёт.
func (e *Evaluator) CronJobIsReady(ctx context.Context, job *domain.JobDefinition) (bool, error) {
	now := e.now()

	next, err := NextFireTime(job.Cron, now)
	if err != nil {
		return false, err
	}

	stale, err := e.Stale(job)
	if err != nil {
		return false, err
	}
	if !stale {
		return false, nil
	}

	if job.LastReportDate == nil {
		return true, nil
	}
	return job.LastReportDate.Before(next.Add(-e.leadWindow)), nil
}

// TriggerJobIsReady проверяет trigger-путь: job stale
// и все зависимости удовлетворены.
func (e *Evaluator) TriggerJobIsReady(ctx context.Context, job *domain.JobDefinition) bool {
	logger := telemetry.WithJob(e.logger, job.Name)

	if !job.IsTrigger() {
		return false
	}

	stale, err := e.triggerStale(job)
	if err != nil {
		logger.Error("trigger check failed", "error", err)
		return false
	}
	if !stale {
		return false
	}

	return e.DependenciesSatisfied(ctx, job)
}

// IsStale загружает job по имени и проверяет, просрочен ли он.
func (e *Evaluator) IsStale(ctx context.Context, name string) (bool, error) {
	job, err := e.catalog.FindJobByName(ctx, name)
	if err != nil {
		return false, fmt.Errorf("find job %q: %w", name, err)
	}
	return e.Stale(job)
}

// Stale проверяет, просрочен ли job относительно последнего отчёта.
//
// Cron-job stale, если cron.Next(lastReportDate) <= now.
// Trigger-job stale, если now >= lastReportDate + интервал.
// Если заданы оба, решает cron. Job без отчётов всегда stale.
func (e *Evaluator) Stale(job *domain.JobDefinition) (bool, error) {
	switch {
	case job.IsCron():
		return e.cronStale(job)
	case job.IsTrigger():
		return e.triggerStale(job)
	default:
		return false, ErrNoSchedule
	}
}

func (e *Evaluator) cronStale(job *domain.JobDefinition) (bool, error) {
	schedule, err := ParseCron(job.Cron)
	if err != nil {
		return false, err
	}
	if job.LastReportDate == nil {
		return true, nil
	}

	due := schedule.Next(*job.LastReportDate)
	if due.IsZero() {
		return false, fmt.Errorf("%w: %q", ErrNoFireTime, job.Cron)
	}
	return !due.After(e.now()), nil
}

func (e *Evaluator) triggerStale(job *domain.JobDefinition) (bool, error) {
	if job.LastReportDate == nil {
		// Интервал всё равно проверяем: неизвестная единица — ошибка
		if _, err := AddInterval(e.now(), *job.Trigger); err != nil {
			return false, err
		}
		return true, nil
	}

	due, err := AddInterval(*job.LastReportDate, *job.Trigger)
	if err != nil {
		return false, err
	}
	return !e.now().Before(due), nil
}

// DependenciesSatisfied проверяет зависимости job.
//
// Зависимый job не должен быть stale: он уже отработал свой слот.
// Для каждой зависимости от БД нужная строка должна существовать
// на следующую дату отчёта этого job.
func (e *Evaluator) DependenciesSatisfied(ctx context.Context, job *domain.JobDefinition) bool {
	logger := telemetry.WithJob(e.logger, job.Name)

	for _, dep := range job.Dependencies.Jobs {
		if dep.JobName == "" {
			logger.Error("job dependency check failed", "error", fmt.Errorf("%w: jobName", ErrMissingField))
			return false
		}

		stale, err := e.IsStale(ctx, dep.JobName)
		if err != nil {
			logger.Error("job dependency check failed", "dependency", dep.JobName, "error", err)
			return false
		}
		if stale {
			logger.Debug("job dependency is stale", "dependency", dep.JobName)
			return false
		}
	}

	if len(job.Dependencies.Database) == 0 {
		return true
	}

	next, err := NextReportDate(job)
	if err != nil {
		logger.Error("database dependency check failed", "error", err)
		return false
	}

	for _, dep := range job.Dependencies.Database {
		if err := validateDatabaseDependency(dep); err != nil {
			logger.Error("database dependency check failed", "error", err)
			return false
		}
		if e.existence == nil {
			logger.Error("database dependency check failed", "error", errors.New("no existence checker configured"))
			return false
		}

		var value any = next
		if dep.Layout != "" {
			value = next.Format(dep.Layout)
		}

		ok, err := e.existence.Exists(ctx, dep, value)
		if err != nil {
			logger.Error("database dependency check failed",
				"db_kind", dep.DBKind, "table", dep.Table, "error", err)
			return false
		}
		if !ok {
			logger.Debug("database dependency not satisfied",
				"db_kind", dep.DBKind, "schema", dep.Schema, "table", dep.Table, "column", dep.Column, "value", value)
			return false
		}
	}

	return true
}

// validateDatabaseDependency проверяет обязательные поля.
func validateDatabaseDependency(dep domain.DatabaseDependency) error {
	switch {
	case dep.DBKind == "":
		return fmt.Errorf("%w: dbName", ErrMissingField)
	case dep.Schema == "":
		return fmt.Errorf("%w: schema", ErrMissingField)
	case dep.Table == "":
		return fmt.Errorf("%w: table", ErrMissingField)
	case dep.Column == "":
		return fmt.Errorf("%w: column", ErrMissingField)
	}
	return nil
}
