package election

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval  = 180 * time.Second
	defaultResignTimeout = 5 * time.Second
)

// ErrNotInitialized — запись экземпляра ещё не создана.
var ErrNotInitialized = errors.New("scheduler instance not initialized")

// Registry — операции реестра, нужные выборам.
// Реализуется registry.Client.
type Registry interface {
	CreateInstance(ctx context.Context, inst *domain.SchedulerInstance) error
	Primaries(ctx context.Context) ([]domain.SchedulerInstance, error)
	Instance(ctx context.Context, id string) (*domain.SchedulerInstance, error)
	SetPrimary(ctx context.Context, id string, primary bool) error
	ClearPrimaries(ctx context.Context) error
	UpdateHeartbeat(ctx context.Context, id string, at time.Time) error
}

// Scorer вычисляет score экземпляра (меньше — лучше).
type Scorer interface {
	Score(ctx context.Context) float64
}

// Leader — работа, которую выполняет primary.
// Lead возвращается, когда роль потеряна или ctx отменён.
type Leader interface {
	Lead(ctx context.Context) error
}

// LeaderFunc позволяет использовать функцию как Leader.
type LeaderFunc func(ctx context.Context) error

// Lead вызывает f(ctx).
func (f LeaderFunc) Lead(ctx context.Context) error {
	return f(ctx)
}

// Coordinator ведёт выборы для одного экземпляра планировщика.
type Coordinator struct {
	registry     Registry
	scorer       Scorer
	hostname     string
	pollInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger

	mu    sync.RWMutex
	state State
	self  *domain.SchedulerInstance
}

// Config — конфигурация Coordinator.
type Config struct {
	Registry     Registry
	Scorer       Scorer
	Hostname     string
	PollInterval time.Duration // пауза между раундами (default: 180s)
	Clock        func() time.Time
	Logger       *slog.Logger
}

// New создаёт новый Coordinator в состоянии INITIALIZING.
func New(cfg Config) *Coordinator {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Coordinator{
		registry:     cfg.Registry,
		scorer:       cfg.Scorer,
		hostname:     cfg.Hostname,
		pollInterval: pollInterval,
		now:          clock,
		logger:       logger,
		state:        StateInitializing,
	}
	c.publishState(StateInitializing)
	return c
}

// State возвращает текущее состояние.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Self возвращает копию записи экземпляра (nil до Initialize).
func (c *Coordinator) Self() *domain.SchedulerInstance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.self == nil {
		return nil
	}
	self := *c.self
	return &self
}

// Initialize вычисляет score и создаёт запись экземпляра с primary=false.
func (c *Coordinator) Initialize(ctx context.Context) error {
	score := c.scorer.Score(ctx)
	inst := domain.NewSchedulerInstance(c.hostname, score, c.now())

	if err := c.registry.CreateInstance(ctx, inst); err != nil {
		return fmt.Errorf("create scheduler record: %w", err)
	}

	c.mu.Lock()
	c.self = inst
	c.logger = telemetry.WithInstanceID(c.logger, inst.ID)
	c.mu.Unlock()

	c.logger.Info("scheduler instance registered",
		"hostname", inst.Hostname,
		"score", inst.Score,
	)

	c.transition(StateDormant)
	return nil
}

// PrimaryExists проверяет, есть ли в реестре чужой primary.
// Ошибка чтения трактуется как "primary есть".
func (c *Coordinator) PrimaryExists(ctx context.Context) bool {
	primaries, err := c.registry.Primaries(ctx)
	if err != nil {
		c.logger.Error("failed to read primary schedulers, assuming one exists", "error", err)
		return true
	}
	return !ShouldContend(primaries, c.selfID())
}

// ShouldContend решает, может ли экземпляр selfID заявить себя primary.
//
// Если в реестре уже есть чужой primary, экземпляр не претендует,
// даже с лучшим score: первый заявивший побеждает, исправление —
// дело reconcile. Собственный флаг (например, после потерянного
// ответа на Claim) претендовать не мешает.
func ShouldContend(primaries []domain.SchedulerInstance, selfID string) bool {
	for i := range primaries {
		if primaries[i].ID != selfID {
			return false
		}
	}
	return true
}

// Claim выставляет собственной записи primary=true.
func (c *Coordinator) Claim(ctx context.Context) error {
	id := c.selfID()
	if id == "" {
		return ErrNotInitialized
	}
	if err := c.registry.SetPrimary(ctx, id, true); err != nil {
		return fmt.Errorf("claim primary: %w", err)
	}
	return nil
}

// Confirm перечитывает собственную запись.
// true только если запись всё ещё primary. Ошибка чтения — false.
func (c *Coordinator) Confirm(ctx context.Context) bool {
	id := c.selfID()
	if id == "" {
		return false
	}

	inst, err := c.registry.Instance(ctx, id)
	if err != nil {
		c.logger.Error("failed to read own scheduler record", "error", err)
		return false
	}
	return inst.Primary
}

// Step выполняет один раунд выборов и возвращает новое состояние.
//
// DORMANT → (primary нет) → CONTENDING → claim → reconcile →
// самопроверка → PRIMARY или обратно DORMANT.
func (c *Coordinator) Step(ctx context.Context) State {
	switch c.State() {
	case StateInitializing:
		return StateInitializing
	case StatePrimary:
		return StatePrimary
	case StateSteppedDown:
		c.transition(StateDormant)
	}

	c.Heartbeat(ctx)

	if c.PrimaryExists(ctx) {
		c.logger.Debug("primary scheduler exists, staying dormant")
		return c.State()
	}

	c.transition(StateContending)

	if err := c.Claim(ctx); err != nil {
		c.logger.Error("failed to claim primary", "error", err)
		c.transition(StateDormant)
		return StateDormant
	}

	if _, err := c.Reconcile(ctx); err != nil {
		c.logger.Error("failed to reconcile primaries", "error", err)
	}

	if !c.Confirm(ctx) {
		c.logger.Info("lost primary election")
		c.transition(StateDormant)
		return StateDormant
	}

	c.logger.Info("became primary scheduler")
	c.transition(StatePrimary)
	return StatePrimary
}

// StillPrimary повторно подтверждает роль primary.
//
// Вызывается циклом планирования каждый проход: запускает reconcile
// и перечитывает свою запись. При потере роли экземпляр переходит
// в STEPPED_DOWN и вернётся в PRIMARY только через новые выборы.
func (c *Coordinator) StillPrimary(ctx context.Context) bool {
	if c.State() != StatePrimary {
		return false
	}

	if _, err := c.Reconcile(ctx); err != nil {
		c.logger.Error("failed to reconcile primaries", "error", err)
	}

	if c.Confirm(ctx) {
		return true
	}

	c.StepDown()
	return false
}

// StepDown переводит PRIMARY в STEPPED_DOWN.
func (c *Coordinator) StepDown() {
	if c.State() != StatePrimary {
		return
	}
	c.logger.Warn("no longer primary scheduler, stepping down")
	c.transition(StateSteppedDown)
}

// Heartbeat обновляет LastCheckedIn собственной записи.
// Только для наблюдения, ошибки логируются.
func (c *Coordinator) Heartbeat(ctx context.Context) {
	id := c.selfID()
	if id == "" {
		return
	}

	now := c.now()
	if err := c.registry.UpdateHeartbeat(ctx, id, now); err != nil {
		c.logger.Warn("failed to update heartbeat", "error", err)
		return
	}

	c.mu.Lock()
	c.self.LastCheckedIn = now
	c.mu.Unlock()
}

// Resign снимает собственный флаг primary при остановке,
// чтобы другой экземпляр занял роль в следующем раунде.
func (c *Coordinator) Resign(ctx context.Context) error {
	id := c.selfID()
	if id == "" {
		return nil
	}
	if err := c.registry.SetPrimary(ctx, id, false); err != nil {
		return fmt.Errorf("resign primary: %w", err)
	}
	c.logger.Info("resigned primary role")
	return nil
}

// Run ведёт выборы до отмены ctx.
//
// Пока экземпляр primary, выполняется leader.Lead. Когда Lead
// возвращается, экземпляр уходит в DORMANT и ждёт следующего раунда.
// При остановке primary снимает свой флаг.
func (c *Coordinator) Run(ctx context.Context, leader Leader) error {
	c.logger.Info("starting leader election", "poll_interval", c.pollInterval)

	for {
		if c.selfID() == "" {
			if err := c.Initialize(ctx); err != nil {
				c.logger.Error("failed to initialize scheduler instance", "error", err)
				if !sleep(ctx, c.pollInterval) {
					return nil
				}
				continue
			}
		}

		if c.Step(ctx) == StatePrimary {
			if err := leader.Lead(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("scheduling loop failed", "error", err)
			}
			wasPrimary := c.State() == StatePrimary
			c.StepDown()

			if ctx.Err() != nil {
				if wasPrimary {
					c.resignOnShutdown()
				}
				return nil
			}
		}

		if !sleep(ctx, c.pollInterval) {
			return nil
		}
	}
}

// resignOnShutdown снимает флаг с отдельным таймаутом:
// основной ctx к этому моменту уже отменён.
func (c *Coordinator) resignOnShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultResignTimeout)
	defer cancel()
	if err := c.Resign(ctx); err != nil {
		c.logger.Error("failed to resign primary on shutdown", "error", err)
	}
}

func (c *Coordinator) selfID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.self == nil {
		return ""
	}
	return c.self.ID
}

// transition меняет состояние и обновляет метрики.
func (c *Coordinator) transition(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()

	if from == to {
		return
	}

	c.logger.Debug("election state changed", "from", from, "to", to)
	telemetry.ElectionTransitions.WithLabelValues(string(from), string(to)).Inc()
	c.publishState(to)
}

func (c *Coordinator) publishState(current State) {
	for _, s := range allStates {
		value := 0.0
		if s == current {
			value = 1
		}
		telemetry.ElectionState.WithLabelValues(string(s)).Set(value)
	}
}

// sleep ждёт d или отмены ctx. false — ctx отменён.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
