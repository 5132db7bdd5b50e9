package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/registry"
)

var _ registry.Store = (*Store)(nil)

// Store — реализация registry.Store поверх Redis.
type Store struct {
	client redis.Cmdable
}

// New создаёт Store. Владелец клиента — вызывающий.
func New(client redis.Cmdable) *Store {
	return &Store{client: client}
}

// Connect создаёт клиент по URL (redis://host:port/db) и проверяет соединение.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// CreateInstance создаёт запись планировщика.
func (s *Store) CreateInstance(ctx context.Context, inst *domain.SchedulerInstance) error {
	key := schedulerKey(inst.ID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redisstore: create instance exists: %w", err)
	}
	if exists > 0 {
		return registry.ErrAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, instanceToMap(inst))
	pipe.SAdd(ctx, schedulerIDsKey, inst.ID)
	if inst.Primary {
		pipe.SAdd(ctx, primaryIDsKey, inst.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: create instance: %w", err)
	}
	return nil
}

// FindInstances возвращает записи по фильтру, отсортированные по ID.
func (s *Store) FindInstances(ctx context.Context, filter registry.InstanceFilter) ([]domain.SchedulerInstance, error) {
	var ids []string
	switch {
	case filter.ID != "":
		ids = []string{filter.ID}
	case filter.Primary != nil && *filter.Primary:
		members, err := s.client.SMembers(ctx, primaryIDsKey).Result()
		if err != nil {
			return nil, fmt.Errorf("redisstore: find primaries: %w", err)
		}
		ids = members
	default:
		members, err := s.client.SMembers(ctx, schedulerIDsKey).Result()
		if err != nil {
			return nil, fmt.Errorf("redisstore: find instances: %w", err)
		}
		ids = members
	}

	instances := make([]domain.SchedulerInstance, 0, len(ids))
	for _, id := range ids {
		vals, err := s.client.HGetAll(ctx, schedulerKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redisstore: get instance %s: %w", id, err)
		}
		if len(vals) == 0 {
			continue
		}
		inst, err := mapToInstance(vals)
		if err != nil {
			return nil, fmt.Errorf("redisstore: decode instance %s: %w", id, err)
		}
		if filter.Matches(inst) {
			instances = append(instances, *inst)
		}
	}

	sort.Slice(instances, func(i, j int) bool { return instances[i].ID < instances[j].ID })
	return instances, nil
}

// SetPrimary выставляет флаг primary.
func (s *Store) SetPrimary(ctx context.Context, id string, primary bool) error {
	if err := s.requireInstance(ctx, id); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, schedulerKey(id), "primary", formatBool(primary))
	if primary {
		pipe.SAdd(ctx, primaryIDsKey, id)
	} else {
		pipe.SRem(ctx, primaryIDsKey, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: set primary: %w", err)
	}
	return nil
}

// clearPrimariesScript снимает флаги и очищает set primary одной
// атомарной операцией: SetPrimary другого экземпляра не может
// попасть между чтением set и его удалением.
//
// KEYS[1] — set primary, ARGV[1] — префикс ключа записи.
var clearPrimariesScript = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
for _, id in ipairs(ids) do
	redis.call('HSET', ARGV[1] .. id, 'primary', '0')
end
redis.call('DEL', KEYS[1])
return #ids
`)

// ClearPrimaries снимает флаг primary со всех записей.
func (s *Store) ClearPrimaries(ctx context.Context) error {
	err := clearPrimariesScript.Run(ctx, s.client, []string{primaryIDsKey}, schedulerKey("")).Err()
	if err != nil {
		return fmt.Errorf("redisstore: clear primaries: %w", err)
	}
	return nil
}

// UpdateHeartbeat обновляет last_checked_in.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	if err := s.requireInstance(ctx, id); err != nil {
		return err
	}

	err := s.client.HSet(ctx, schedulerKey(id), "last_checked_in", at.UTC().Format(time.RFC3339Nano)).Err()
	if err != nil {
		return fmt.Errorf("redisstore: update heartbeat: %w", err)
	}
	return nil
}

func (s *Store) requireInstance(ctx context.Context, id string) error {
	exists, err := s.client.Exists(ctx, schedulerKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redisstore: instance exists: %w", err)
	}
	if exists == 0 {
		return registry.ErrNotFound
	}
	return nil
}

// FindJobByName возвращает job по имени.
func (s *Store) FindJobByName(ctx context.Context, name string) (*domain.JobDefinition, error) {
	vals, err := s.client.HGetAll(ctx, jobKey(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, registry.ErrNotFound
	}

	job, err := mapToJob(vals)
	if err != nil {
		return nil, fmt.Errorf("redisstore: decode job %s: %w", name, err)
	}
	return job, nil
}

// ListJobs возвращает все jobs по имени.
func (s *Store) ListJobs(ctx context.Context) ([]domain.JobDefinition, error) {
	names, err := s.client.SMembers(ctx, jobNamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list jobs: %w", err)
	}
	sort.Strings(names)

	jobs := make([]domain.JobDefinition, 0, len(names))
	for _, name := range names {
		job, err := s.FindJobByName(ctx, name)
		if errors.Is(err, registry.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

// UpsertJob создаёт job или заменяет его определение.
//
// last_report_date пишется через HSETNX: у существующего job дату
// ведёт система исполнения, и загрузка каталога её не откатывает.
func (s *Store) UpsertJob(ctx context.Context, job *domain.JobDefinition) error {
	definition, err := encodeJobDefinition(job)
	if err != nil {
		return fmt.Errorf("redisstore: encode job: %w", err)
	}

	key := jobKey(job.Name)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, jobFieldDefinition, definition)
	if job.LastReportDate != nil {
		pipe.HSetNX(ctx, key, jobFieldLastReport, job.LastReportDate.UTC().Format(time.RFC3339Nano))
	}
	pipe.SAdd(ctx, jobNamesKey, job.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: upsert job: %w", err)
	}
	return nil
}
