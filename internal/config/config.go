// Package config загружает конфигурацию сервисов из переменных окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreBackend — хранилище реестра.
type StoreBackend string

const (
	BackendPostgres StoreBackend = "postgres"
	BackendMongo    StoreBackend = "mongo"
	BackendRedis    StoreBackend = "redis"
	BackendMemory   StoreBackend = "memory"
)

// ProbeMode — транспорт замера задержки.
type ProbeMode string

const (
	ProbeTCP  ProbeMode = "tcp"
	ProbeHTTP ProbeMode = "http"
)

// ErrInvalid — некорректное значение переменной окружения.
var ErrInvalid = errors.New("invalid configuration")

// Config — конфигурация планировщика и CLI.
type Config struct {
	StoreBackend  StoreBackend
	DBURL         string
	MongoURL      string
	MongoDatabase string
	RedisURL      string
	RabbitMQURL   string

	// ProbeAddr — адрес для замера задержки (host:port).
	// Пустой — берётся хост выбранного хранилища.
	ProbeAddr    string
	ProbeMode    ProbeMode
	ProbeTimeout time.Duration

	ElectionPollInterval time.Duration
	SweepInterval        time.Duration
	RegistryTimeout      time.Duration

	Port string
}

// Load читает конфигурацию из окружения.
//
// Длительности принимаются как Go duration ("180s", "3m")
// или целое число секунд ("180").
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		StoreBackend:  StoreBackend(strings.ToLower(env("STORE_BACKEND", string(BackendPostgres)))),
		DBURL:         env("DB_URL", ""),
		MongoURL:      env("MONGO_URL", ""),
		MongoDatabase: env("MONGO_DATABASE", "exosphere"),
		RedisURL:      env("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:   env("RABBITMQ_URL", ""),
		ProbeAddr:     env("PROBE_ADDR", ""),
		ProbeMode:     ProbeMode(strings.ToLower(env("PROBE_MODE", string(ProbeTCP)))),
		Port:          env("SCHED_PORT", "8081"),
	}

	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		d, err := parseDuration(env(key, ""), def)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
		}
		return d
	}

	cfg.ProbeTimeout = duration("PROBE_TIMEOUT", 5*time.Second)
	cfg.ElectionPollInterval = duration("ELECTION_POLL_INTERVAL", 180*time.Second)
	cfg.SweepInterval = duration("SWEEP_INTERVAL", 10*time.Second)
	cfg.RegistryTimeout = duration("REGISTRY_TIMEOUT", 5*time.Second)

	switch cfg.StoreBackend {
	case BackendPostgres, BackendMongo, BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("%w: STORE_BACKEND: unknown backend %q", ErrInvalid, cfg.StoreBackend))
	}

	switch cfg.ProbeMode {
	case ProbeTCP, ProbeHTTP:
	default:
		errs = append(errs, fmt.Errorf("%w: PROBE_MODE: unknown mode %q", ErrInvalid, cfg.ProbeMode))
	}

	return cfg, errors.Join(errs...)
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return def, fmt.Errorf("must be positive, got %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def, err
	}
	if d <= 0 {
		return def, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
