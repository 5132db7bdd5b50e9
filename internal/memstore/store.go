// Package memstore — реестр в памяти процесса.
//
// Используется в тестах и для локального запуска (STORE_BACKEND=memory).
// Между процессами не разделяется, поэтому выборы в таком режиме
// всегда выигрывает единственный экземпляр.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/registry"
)

var _ registry.Store = (*Store)(nil)

// Store — потокобезопасная реализация registry.Store в памяти.
type Store struct {
	mu        sync.RWMutex
	instances map[string]domain.SchedulerInstance
	jobs      map[string]domain.JobDefinition
}

// New создаёт пустой Store.
func New() *Store {
	return &Store{
		instances: make(map[string]domain.SchedulerInstance),
		jobs:      make(map[string]domain.JobDefinition),
	}
}

// CreateInstance создаёт запись планировщика.
func (s *Store) CreateInstance(_ context.Context, inst *domain.SchedulerInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instances[inst.ID]; exists {
		return registry.ErrAlreadyExists
	}
	s.instances[inst.ID] = *inst
	return nil
}

// FindInstances возвращает записи по фильтру, отсортированные по ID.
func (s *Store) FindInstances(_ context.Context, filter registry.InstanceFilter) ([]domain.SchedulerInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SchedulerInstance, 0, len(s.instances))
	for _, inst := range s.instances {
		if filter.Matches(&inst) {
			result = append(result, inst)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SetPrimary выставляет флаг primary.
func (s *Store) SetPrimary(_ context.Context, id string, primary bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return registry.ErrNotFound
	}
	inst.Primary = primary
	s.instances[id] = inst
	return nil
}

// ClearPrimaries снимает флаг primary со всех записей.
func (s *Store) ClearPrimaries(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, inst := range s.instances {
		inst.Primary = false
		s.instances[id] = inst
	}
	return nil
}

// UpdateHeartbeat обновляет LastCheckedIn.
func (s *Store) UpdateHeartbeat(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return registry.ErrNotFound
	}
	inst.LastCheckedIn = at
	s.instances[id] = inst
	return nil
}

// FindJobByName возвращает копию job.
func (s *Store) FindJobByName(_ context.Context, name string) (*domain.JobDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[name]
	if !ok {
		return nil, registry.ErrNotFound
	}
	clone := cloneJob(job)
	return &clone, nil
}

// ListJobs возвращает копии всех jobs, отсортированные по имени.
func (s *Store) ListJobs(_ context.Context) ([]domain.JobDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.JobDefinition, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, cloneJob(job))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// UpsertJob создаёт job или заменяет его определение.
// У существующего job LastReportDate не меняется.
func (s *Store) UpsertJob(_ context.Context, job *domain.JobDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneJob(*job)
	if existing, ok := s.jobs[job.Name]; ok {
		next.LastReportDate = existing.LastReportDate
	}
	s.jobs[job.Name] = next
	return nil
}

// SetLastReportDate записывает дату отчёта job так, как это делает
// система исполнения.
func (s *Store) SetLastReportDate(name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[name]
	if !ok {
		return registry.ErrNotFound
	}
	at = at.UTC()
	job.LastReportDate = &at
	s.jobs[name] = job
	return nil
}

// cloneJob копирует job вместе с указателями и слайсами.
func cloneJob(job domain.JobDefinition) domain.JobDefinition {
	if job.Trigger != nil {
		trigger := *job.Trigger
		job.Trigger = &trigger
	}
	if job.LastReportDate != nil {
		lrd := *job.LastReportDate
		job.LastReportDate = &lrd
	}
	job.Dependencies.Jobs = slices.Clone(job.Dependencies.Jobs)
	job.Dependencies.Database = slices.Clone(job.Dependencies.Database)
	return job
}
