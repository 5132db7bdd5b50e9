package registry

import (
	"context"
	"errors"
	"time"

	"github.com/shaiso/exosphere/internal/domain"
)

// Ошибки реестра.
var (
	// ErrNotFound — запись не найдена. Отличается от ошибки хранилища.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись с таким ключом уже существует.
	ErrAlreadyExists = errors.New("already exists")
)

// InstanceFilter — условия выборки записей планировщиков.
// Пустой фильтр возвращает все записи.
type InstanceFilter struct {
	ID      string
	Primary *bool
}

// Matches проверяет запись на соответствие фильтру.
func (f InstanceFilter) Matches(inst *domain.SchedulerInstance) bool {
	if f.ID != "" && inst.ID != f.ID {
		return false
	}
	if f.Primary != nil && inst.Primary != *f.Primary {
		return false
	}
	return true
}

// PrimaryOnly возвращает фильтр по primary=true.
func PrimaryOnly() InstanceFilter {
	primary := true
	return InstanceFilter{Primary: &primary}
}

// ByID возвращает фильтр по ключу записи.
func ByID(id string) InstanceFilter {
	return InstanceFilter{ID: id}
}

// Store — хранилище реестра.
//
// Все методы должны возвращать ErrNotFound, если запись отсутствует,
// и любую другую ошибку при сбое хранилища.
type Store interface {
	// CreateInstance создаёт запись планировщика.
	CreateInstance(ctx context.Context, inst *domain.SchedulerInstance) error

	// FindInstances возвращает записи по фильтру, отсортированные по ID.
	FindInstances(ctx context.Context, filter InstanceFilter) ([]domain.SchedulerInstance, error)

	// SetPrimary выставляет флаг primary для одной записи.
	SetPrimary(ctx context.Context, id string, primary bool) error

	// ClearPrimaries снимает флаг primary со всех записей.
	ClearPrimaries(ctx context.Context) error

	// UpdateHeartbeat обновляет LastCheckedIn.
	UpdateHeartbeat(ctx context.Context, id string, at time.Time) error

	// FindJobByName возвращает job по имени.
	FindJobByName(ctx context.Context, name string) (*domain.JobDefinition, error)

	// ListJobs возвращает весь каталог jobs.
	ListJobs(ctx context.Context) ([]domain.JobDefinition, error)

	// UpsertJob создаёт job или заменяет его определение.
	// LastReportDate записывается только при создании: у существующего
	// job дату ведёт система исполнения.
	UpsertJob(ctx context.Context, job *domain.JobDefinition) error
}
