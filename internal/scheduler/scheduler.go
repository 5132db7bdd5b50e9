package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/readiness"
	"github.com/shaiso/exosphere/internal/telemetry"
)

// Default configuration values.
const (
	defaultSweepInterval = 10 * time.Second
	defaultCronDelay     = 300 * time.Second
	defaultConcurrency   = 8

	// dedupeRetention — сколько помнить опубликованный слот.
	dedupeRetention = 24 * time.Hour
)

// Leadership — подтверждение роли primary.
// Реализуется election.Coordinator.
type Leadership interface {
	StillPrimary(ctx context.Context) bool
	Heartbeat(ctx context.Context)
}

// JobSource — каталог jobs.
type JobSource interface {
	ListJobs(ctx context.Context) ([]domain.JobDefinition, error)
}

// Evaluator — проверка готовности одного job.
type Evaluator interface {
	Evaluate(ctx context.Context, job *domain.JobDefinition) readiness.Decision
}

// Publisher передаёт job в очередь исполнения.
// Повторы при ошибках — забота реализации, Loop их не делает.
type Publisher interface {
	Publish(ctx context.Context, job ScheduledJob) error
}

// SweepStats — итоги одного прохода по каталогу.
type SweepStats struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Jobs       int           `json:"jobs"`
	Ready      int           `json:"ready"`
	Published  int           `json:"published"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
}

// Loop — цикл планирования. Реализует election.Leader.
type Loop struct {
	leadership    Leadership
	jobs          JobSource
	evaluator     Evaluator
	publisher     Publisher
	sweepInterval time.Duration
	cronDelay     time.Duration
	triggerDelay  time.Duration
	concurrency   int
	now           func() time.Time
	logger        *slog.Logger

	mu        sync.Mutex
	published map[string]time.Time // ключ идемпотентности → время публикации
	lastSweep *SweepStats
}

// Config — конфигурация Loop.
type Config struct {
	Leadership    Leadership
	Jobs          JobSource
	Evaluator     Evaluator
	Publisher     Publisher
	SweepInterval time.Duration // пауза между проходами (default: 10s)
	CronDelay     time.Duration // задержка для cron-jobs (default: 300s)
	TriggerDelay  time.Duration // задержка для trigger-jobs (default: 0)
	Concurrency   int           // параллельных проверок (default: 8)
	Clock         func() time.Time
	Logger        *slog.Logger
}

// New создаёт новый Loop.
func New(cfg Config) *Loop {
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	cronDelay := cfg.CronDelay
	if cronDelay <= 0 {
		cronDelay = defaultCronDelay
	}

	triggerDelay := cfg.TriggerDelay
	if triggerDelay < 0 {
		triggerDelay = 0
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		leadership:    cfg.Leadership,
		jobs:          cfg.Jobs,
		evaluator:     cfg.Evaluator,
		publisher:     cfg.Publisher,
		sweepInterval: sweepInterval,
		cronDelay:     cronDelay,
		triggerDelay:  triggerDelay,
		concurrency:   concurrency,
		now:           clock,
		logger:        logger,
		published:     make(map[string]time.Time),
	}
}

// Lead выполняет циклы планирования, пока экземпляр остаётся primary.
// Роль подтверждается перед первым проходом и после каждого прохода,
// до паузы. Возвращает nil при потере лидерства и ctx.Err() при отмене.
func (l *Loop) Lead(ctx context.Context) error {
	l.resetTerm()

	if !l.leadership.StillPrimary(ctx) {
		l.logger.Warn("leadership lost, stopping scheduling loop")
		return nil
	}

	l.logger.Info("scheduling loop started", "sweep_interval", l.sweepInterval)
	l.checkGraph(ctx)

	for {
		if _, err := l.Tick(ctx); err != nil {
			l.logger.Error("scheduler sweep failed", "error", err)
		}

		l.leadership.Heartbeat(ctx)

		if !l.leadership.StillPrimary(ctx) {
			l.logger.Warn("leadership lost, stopping scheduling loop")
			return nil
		}

		timer := time.NewTimer(l.sweepInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.logger.Info("scheduling loop stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tick выполняет один проход по каталогу.
//
// 1. Загружает все jobs
// 2. Проверяет готовность (параллельно, не больше concurrency)
// 3. Публикует готовые в порядке каталога
//
// Ошибка одного job не блокирует остальные. Ошибка возвращается,
// только если каталог не загрузился.
func (l *Loop) Tick(ctx context.Context) (SweepStats, error) {
	stats := SweepStats{StartedAt: l.now()}
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		telemetry.SweepDuration.Observe(stats.Duration.Seconds())
		l.mu.Lock()
		l.lastSweep = &stats
		l.mu.Unlock()
	}()

	jobs, err := l.jobs.ListJobs(ctx)
	if err != nil {
		return stats, fmt.Errorf("list jobs: %w", err)
	}
	stats.Jobs = len(jobs)

	l.prune(stats.StartedAt)
	decisions := l.evaluateAll(ctx, jobs)

	for _, d := range decisions {
		if !d.Ready() {
			continue
		}
		stats.Ready++

		if d.CronReady {
			l.publish(ctx, &stats, d.Job, PathCron, d.CronDueAt, l.cronDelay)
		}
		if d.TriggerReady {
			l.publish(ctx, &stats, d.Job, PathTrigger, d.TriggerDueAt, l.triggerDelay)
		}
	}

	l.logger.Debug("scheduler sweep completed",
		"jobs", stats.Jobs,
		"ready", stats.Ready,
		"published", stats.Published,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed,
	)

	return stats, nil
}

// LastSweep возвращает итоги последнего прохода (nil, если проходов не было).
func (l *Loop) LastSweep() *SweepStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastSweep == nil {
		return nil
	}
	stats := *l.lastSweep
	return &stats
}

// evaluateAll проверяет jobs параллельно.
// Решения возвращаются в порядке каталога.
func (l *Loop) evaluateAll(ctx context.Context, jobs []domain.JobDefinition) []readiness.Decision {
	decisions := make([]readiness.Decision, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i := range jobs {
		g.Go(func() error {
			decisions[i] = l.evaluator.Evaluate(gctx, &jobs[i])
			return nil
		})
	}
	_ = g.Wait()

	return decisions
}

// publish публикует один слот, если он ещё не публиковался в этом сроке лидерства.
func (l *Loop) publish(ctx context.Context, stats *SweepStats, name string, path Path, dueAt time.Time, delay time.Duration) {
	key := IdempotencyKey(name, path, dueAt)
	logger := telemetry.WithJob(l.logger, name)

	if l.seen(key) {
		stats.Duplicates++
		logger.Debug("job slot already published", "idempotency_key", key)
		return
	}

	job := ScheduledJob{
		Name:           name,
		Path:           path,
		Delay:          delay,
		DueAt:          dueAt,
		IdempotencyKey: key,
	}

	if err := l.publisher.Publish(ctx, job); err != nil {
		stats.Failed++
		telemetry.PublishFailures.Inc()
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Error("failed to publish job", "path", path, "idempotency_key", key, "error", err)
		return
	}

	l.remember(key, l.now())
	stats.Published++
	telemetry.JobsPublished.WithLabelValues(string(path)).Inc()
	logger.Info("job published", "path", path, "delay", delay, "due_at", dueAt)
}

// checkGraph логирует циклы и ссылки на неизвестные jobs.
// Такие jobs просто останутся неготовыми.
func (l *Loop) checkGraph(ctx context.Context) {
	jobs, err := l.jobs.ListJobs(ctx)
	if err != nil {
		return
	}
	if _, err := readiness.BuildGraph(jobs); err != nil {
		l.logger.Warn("job dependency graph has problems", "error", err)
	}
}

func (l *Loop) resetTerm() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.published = make(map[string]time.Time)
}

func (l *Loop) seen(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.published[key]
	return ok
}

func (l *Loop) remember(key string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.published[key] = at
}

// prune забывает слоты, опубликованные больше суток назад.
// Если исполнитель так и не обновил дату отчёта, job будет опубликован снова.
func (l *Loop) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := now.Add(-dedupeRetention)
	for key, at := range l.published {
		if at.Before(cutoff) {
			delete(l.published, key)
		}
	}
}
