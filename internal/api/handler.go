package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/election"
	"github.com/shaiso/exosphere/internal/registry"
	"github.com/shaiso/exosphere/internal/scheduler"
)

// Election — состояние выборов текущего экземпляра.
// Реализуется election.Coordinator.
type Election interface {
	State() election.State
	Self() *domain.SchedulerInstance
}

// Sweeps — итоги проходов цикла планирования.
// Реализуется scheduler.Loop.
type Sweeps interface {
	LastSweep() *scheduler.SweepStats
}

// Registry — чтение реестра и каталога.
// Реализуется registry.Client.
type Registry interface {
	FindInstances(ctx context.Context, filter registry.InstanceFilter) ([]domain.SchedulerInstance, error)
	ListJobs(ctx context.Context) ([]domain.JobDefinition, error)
	FindJobByName(ctx context.Context, name string) (*domain.JobDefinition, error)
}

// Handler — обработчик HTTP-запросов сервиса.
type Handler struct {
	election  Election
	sweeps    Sweeps
	registry  Registry
	startedAt time.Time
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Election Election
	Sweeps   Sweeps
	Registry Registry
	Logger   *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		election:  cfg.Election,
		sweeps:    cfg.Sweeps,
		registry:  cfg.Registry,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// StatusResponse — ответ /status.
type StatusResponse struct {
	State     election.State            `json:"state"`
	Instance  *domain.SchedulerInstance `json:"instance,omitempty"`
	Uptime    string                    `json:"uptime"`
	LastSweep *scheduler.SweepStats     `json:"last_sweep,omitempty"`
}

// Healthz отвечает "ok", пока процесс жив.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Status возвращает состояние выборов и итоги последнего прохода.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	Success(w, StatusResponse{
		State:     h.election.State(),
		Instance:  h.election.Self(),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		LastSweep: h.sweeps.LastSweep(),
	})
}

// ListInstances возвращает реестр планировщиков.
// ?primary=true — только primary.
func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	filter := registry.InstanceFilter{}
	if r.URL.Query().Get("primary") == "true" {
		filter = registry.PrimaryOnly()
	}

	instances, err := h.registry.FindInstances(r.Context(), filter)
	if HandleRegistryError(w, h.logger, err, "instances not found") {
		return
	}
	List(w, instances, len(instances))
}

// ListJobs возвращает каталог jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.registry.ListJobs(r.Context())
	if HandleRegistryError(w, h.logger, err, "jobs not found") {
		return
	}
	List(w, jobs, len(jobs))
}

// GetJob возвращает job по имени.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	job, err := h.registry.FindJobByName(r.Context(), name)
	if HandleRegistryError(w, h.logger, err, "job not found: "+name) {
		return
	}
	Success(w, job)
}
