package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/exosphere/internal/domain"
)

// JobRepo — репозиторий каталога jobs.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `name, cron, trigger_unit, trigger_value, dependencies, last_report_date`

// GetByName возвращает job по имени.
func (r *JobRepo) GetByName(ctx context.Context, name string) (*domain.JobDefinition, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE name = $1`
	return scanJob(r.pool.QueryRow(ctx, query, name))
}

// List возвращает все jobs по имени.
func (r *JobRepo) List(ctx context.Context) ([]domain.JobDefinition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.JobDefinition
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// upsertJobSQL не трогает last_report_date при конфликте: дату
// существующего job ведёт система исполнения.
const upsertJobSQL = `
	INSERT INTO jobs (name, cron, trigger_unit, trigger_value, dependencies, last_report_date, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	ON CONFLICT (name) DO UPDATE
	SET cron = EXCLUDED.cron,
	    trigger_unit = EXCLUDED.trigger_unit,
	    trigger_value = EXCLUDED.trigger_value,
	    dependencies = EXCLUDED.dependencies,
	    updated_at = NOW()
`

// Upsert создаёт job или заменяет его определение.
func (r *JobRepo) Upsert(ctx context.Context, job *domain.JobDefinition) error {
	depsJSON, err := json.Marshal(job.Dependencies)
	if err != nil {
		return fmt.Errorf("marshal dependencies: %w", err)
	}

	var unit *string
	var value *int
	if job.Trigger != nil {
		u := string(job.Trigger.Unit)
		unit = &u
		value = &job.Trigger.Value
	}

	_, err = r.pool.Exec(ctx, upsertJobSQL,
		job.Name,
		nullString(job.Cron),
		unit,
		value,
		depsJSON,
		job.LastReportDate,
	)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.JobDefinition, error) {
	var job domain.JobDefinition
	var cronExpr, unit *string
	var value *int
	var depsJSON []byte
	var lastReport *time.Time

	err := row.Scan(&job.Name, &cronExpr, &unit, &value, &depsJSON, &lastReport)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if cronExpr != nil {
		job.Cron = *cronExpr
	}
	if unit != nil {
		job.Trigger = &domain.Trigger{Unit: domain.TriggerUnit(*unit)}
		if value != nil {
			job.Trigger.Value = *value
		}
	}
	if depsJSON != nil {
		if err := json.Unmarshal(depsJSON, &job.Dependencies); err != nil {
			return nil, fmt.Errorf("unmarshal dependencies: %w", err)
		}
	}
	if lastReport != nil {
		t := lastReport.UTC()
		job.LastReportDate = &t
	}

	return &job, nil
}
