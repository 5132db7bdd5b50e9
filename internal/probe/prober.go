package probe

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/exosphere/internal/telemetry"
)

// Default configuration values.
const (
	defaultTimeout    = 5 * time.Second
	defaultSamples    = 3
	defaultMultiplier = 100
)

// Prober замеряет задержку до хоста реестра.
type Prober struct {
	pinger     Pinger
	addr       string
	timeout    time.Duration
	samples    int
	multiplier float64
	logger     *slog.Logger
}

// Config — конфигурация Prober.
type Config struct {
	Pinger     Pinger        // транспорт (default: TCPPinger)
	Addr       string        // адрес хоста реестра
	Timeout    time.Duration // таймаут одного замера (default: 5s)
	Samples    int           // количество замеров для score (default: 3)
	Multiplier float64       // множитель score (default: 100)
	Logger     *slog.Logger
}

// New создаёт новый Prober.
func New(cfg Config) *Prober {
	pinger := cfg.Pinger
	if pinger == nil {
		pinger = &TCPPinger{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	samples := cfg.Samples
	if samples <= 0 {
		samples = defaultSamples
	}

	multiplier := cfg.Multiplier
	if multiplier <= 0 {
		multiplier = defaultMultiplier
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Prober{
		pinger:     pinger,
		addr:       cfg.Addr,
		timeout:    timeout,
		samples:    samples,
		multiplier: multiplier,
		logger:     logger,
	}
}

// Measure выполняет один замер.
// При любой ошибке (сеть, таймаут) возвращает 0.
func (p *Prober) Measure(ctx context.Context) time.Duration {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	elapsed, err := p.pinger.Ping(ctx, p.addr)
	if err != nil {
		telemetry.ProbeFailures.Inc()
		p.logger.Warn("latency probe failed", "addr", p.addr, "error", err)
		return 0
	}
	if elapsed <= 0 {
		// Слишком быстрый ответ неотличим от ошибки — считаем минимальным.
		elapsed = time.Nanosecond
	}

	telemetry.ProbeLatency.Observe(elapsed.Seconds())
	return elapsed
}

// FailurePenalty — вклад неудачного замера в score.
// Заведомо хуже любого успешного замера, ограниченного таймаутом.
func (p *Prober) FailurePenalty() time.Duration {
	return 2 * p.timeout
}

// Score вычисляет оценку экземпляра: сумма замеров в секундах,
// умноженная на multiplier. Замеры выполняются параллельно.
// Меньше — лучше.
func (p *Prober) Score(ctx context.Context) float64 {
	samples := make([]time.Duration, p.samples)

	g, gctx := errgroup.WithContext(ctx)
	for i := range samples {
		g.Go(func() error {
			samples[i] = p.Measure(gctx)
			return nil
		})
	}
	_ = g.Wait()

	return p.scoreOf(samples)
}

// scoreOf суммирует замеры, заменяя неудачные штрафом.
func (p *Prober) scoreOf(samples []time.Duration) float64 {
	var total time.Duration
	failed := 0
	for _, s := range samples {
		if s <= 0 {
			failed++
			s = p.FailurePenalty()
		}
		total += s
	}

	score := total.Seconds() * p.multiplier
	p.logger.Info("scheduler score computed",
		"score", score,
		"samples", len(samples),
		"failed", failed,
	)
	return score
}
