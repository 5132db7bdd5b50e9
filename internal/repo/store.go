package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/registry"
)

var _ registry.Store = (*Store)(nil)

// Store — реестр в PostgreSQL. Объединяет InstanceRepo и JobRepo.
type Store struct {
	Instances *InstanceRepo
	Jobs      *JobRepo
}

// NewStore создаёт Store поверх пула.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Instances: NewInstanceRepo(pool),
		Jobs:      NewJobRepo(pool),
	}
}

func (s *Store) CreateInstance(ctx context.Context, inst *domain.SchedulerInstance) error {
	return s.Instances.Create(ctx, inst)
}

func (s *Store) FindInstances(ctx context.Context, filter registry.InstanceFilter) ([]domain.SchedulerInstance, error) {
	return s.Instances.Find(ctx, filter)
}

func (s *Store) SetPrimary(ctx context.Context, id string, primary bool) error {
	return s.Instances.SetPrimary(ctx, id, primary)
}

func (s *Store) ClearPrimaries(ctx context.Context) error {
	return s.Instances.ClearPrimaries(ctx)
}

func (s *Store) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	return s.Instances.UpdateHeartbeat(ctx, id, at)
}

func (s *Store) FindJobByName(ctx context.Context, name string) (*domain.JobDefinition, error) {
	return s.Jobs.GetByName(ctx, name)
}

func (s *Store) ListJobs(ctx context.Context) ([]domain.JobDefinition, error) {
	return s.Jobs.List(ctx)
}

func (s *Store) UpsertJob(ctx context.Context, job *domain.JobDefinition) error {
	return s.Jobs.Upsert(ctx, job)
}
