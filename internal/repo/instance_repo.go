package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/registry"
)

// InstanceRepo — репозиторий записей планировщиков.
type InstanceRepo struct {
	pool *pgxpool.Pool
}

// NewInstanceRepo создаёт новый InstanceRepo.
func NewInstanceRepo(pool *pgxpool.Pool) *InstanceRepo {
	return &InstanceRepo{pool: pool}
}

// Create создаёт запись планировщика.
func (r *InstanceRepo) Create(ctx context.Context, inst *domain.SchedulerInstance) error {
	query := `
		INSERT INTO schedulers (id, hostname, instance_id, score, is_primary, started_at, last_checked_in)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		inst.ID,
		inst.Hostname,
		inst.InstanceID,
		inst.Score,
		inst.Primary,
		inst.StartedAt,
		inst.LastCheckedIn,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert scheduler: %w", err)
	}
	return nil
}

// Find возвращает записи по фильтру, отсортированные по ID.
func (r *InstanceRepo) Find(ctx context.Context, filter registry.InstanceFilter) ([]domain.SchedulerInstance, error) {
	query := `
		SELECT id, hostname, instance_id, score, is_primary, started_at, last_checked_in
		FROM schedulers
		WHERE ($1::text IS NULL OR id = $1)
		  AND ($2::boolean IS NULL OR is_primary = $2)
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, nullString(filter.ID), filter.Primary)
	if err != nil {
		return nil, fmt.Errorf("list schedulers: %w", err)
	}
	defer rows.Close()

	var instances []domain.SchedulerInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, *inst)
	}
	return instances, rows.Err()
}

// SetPrimary выставляет флаг primary.
func (r *InstanceRepo) SetPrimary(ctx context.Context, id string, primary bool) error {
	result, err := r.pool.Exec(ctx, `UPDATE schedulers SET is_primary = $2 WHERE id = $1`, id, primary)
	if err != nil {
		return fmt.Errorf("set primary: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearPrimaries снимает флаг primary со всех записей.
func (r *InstanceRepo) ClearPrimaries(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `UPDATE schedulers SET is_primary = false WHERE is_primary`); err != nil {
		return fmt.Errorf("clear primaries: %w", err)
	}
	return nil
}

// UpdateHeartbeat обновляет last_checked_in.
func (r *InstanceRepo) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	result, err := r.pool.Exec(ctx, `UPDATE schedulers SET last_checked_in = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanInstance(row pgx.Row) (*domain.SchedulerInstance, error) {
	var inst domain.SchedulerInstance
	err := row.Scan(
		&inst.ID,
		&inst.Hostname,
		&inst.InstanceID,
		&inst.Score,
		&inst.Primary,
		&inst.StartedAt,
		&inst.LastCheckedIn,
	)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan scheduler: %w", err)
	}
	inst.StartedAt = inst.StartedAt.UTC()
	inst.LastCheckedIn = inst.LastCheckedIn.UTC()
	return &inst, nil
}

// nullString возвращает nil для пустой строки.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
