package cli

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/readiness"
)

// ErrInvalidCatalog — файл каталога не прошёл проверку.
var ErrInvalidCatalog = errors.New("invalid job catalog")

// Catalog — файл с описаниями jobs.
//
//	jobs:
//	  - name: daily_report
//	    cron: "0 9 * * *"
//	  - name: weekly_rollup
//	    trigger: {unit: weeks, value: 1}
//	    dependencies:
//	      jobs:
//	        - jobName: daily_report
type Catalog struct {
	Jobs []domain.JobDefinition `yaml:"jobs"`
}

// ParseCatalog разбирает YAML каталога и проверяет каждый job.
func ParseCatalog(data []byte) ([]domain.JobDefinition, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	var errs []error
	seen := make(map[string]bool, len(c.Jobs))
	for i := range c.Jobs {
		job := &c.Jobs[i]
		if seen[job.Name] {
			errs = append(errs, fmt.Errorf("job %q: duplicate name", job.Name))
			continue
		}
		seen[job.Name] = true

		if err := ValidateJob(job); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}
	return c.Jobs, nil
}

// LoadCatalog читает и разбирает файл каталога.
func LoadCatalog(path string) ([]domain.JobDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ValidateJob проверяет расписание и зависимости одного job.
func ValidateJob(job *domain.JobDefinition) error {
	if job.Name == "" {
		return errors.New("job without name")
	}
	if !job.IsCron() && !job.IsTrigger() {
		return fmt.Errorf("job %q: %w", job.Name, readiness.ErrNoSchedule)
	}

	if job.IsCron() {
		if err := readiness.ValidateCronExpr(job.Cron); err != nil {
			return fmt.Errorf("job %q: %w", job.Name, err)
		}
	}

	if job.IsTrigger() {
		if !job.Trigger.Unit.IsValid() {
			return fmt.Errorf("job %q: %w: %q", job.Name, readiness.ErrUnsupportedUnit, job.Trigger.Unit)
		}
		if job.Trigger.Value <= 0 {
			return fmt.Errorf("job %q: %w: %d", job.Name, readiness.ErrInvalidTrigger, job.Trigger.Value)
		}
	}

	for _, dep := range job.Dependencies.Jobs {
		if dep.JobName == "" {
			return fmt.Errorf("job %q: %w: jobName", job.Name, readiness.ErrMissingField)
		}
	}
	for _, dep := range job.Dependencies.Database {
		if dep.DBKind == "" || dep.Schema == "" || dep.Table == "" || dep.Column == "" {
			return fmt.Errorf("job %q: %w: database dependency needs dbName, schema, table and column",
				job.Name, readiness.ErrMissingField)
		}
	}
	return nil
}
