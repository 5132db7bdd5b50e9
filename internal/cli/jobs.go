package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/readiness"
)

// NewJobsCmd создаёт группу команд для управления каталогом jobs.
func NewJobsCmd(clientFn ClientFunc, outputFn OutputFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage the job catalog",
	}

	cmd.AddCommand(
		newJobsListCmd(clientFn, outputFn),
		newJobsShowCmd(clientFn, outputFn),
		newJobsLoadCmd(clientFn, outputFn),
		newJobsCheckCmd(clientFn, outputFn),
		newJobsValidateCmd(clientFn, outputFn),
	)

	return cmd
}

func newJobsListCmd(clientFn ClientFunc, outputFn OutputFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFn(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			out := outputFn(cmd)

			jobs, err := client.ListJobs(cmd.Context())
			if err != nil {
				return err
			}

			return out.Print(jobHeaders, jobRows(jobs), jobs)
		},
	}
}

func newJobsShowCmd(clientFn ClientFunc, outputFn OutputFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFn(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			out := outputFn(cmd)

			job, err := client.GetJob(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("job %q: %w", args[0], err)
			}

			return out.Print(jobHeaders, jobRows([]domain.JobDefinition{*job}), job)
		},
	}
}

func newJobsLoadCmd(clientFn ClientFunc, outputFn OutputFunc) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Load jobs from a YAML catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn(cmd)

			jobs, err := LoadCatalog(args[0])
			if err != nil {
				return err
			}
			if _, err := readiness.BuildGraph(jobs); err != nil {
				out.Warn(err.Error())
			}

			if dryRun {
				out.Success(fmt.Sprintf("Catalog is valid: %d jobs", len(jobs)))
				return out.Print(jobHeaders, jobRows(jobs), jobs)
			}

			client, err := clientFn(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.LoadJobs(cmd.Context(), jobs); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Loaded %d jobs", len(jobs)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without writing to the store")

	return cmd
}

func newJobsCheckCmd(clientFn ClientFunc, outputFn OutputFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "check NAME",
		Short: "Evaluate job readiness without publishing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFn(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			out := outputFn(cmd)

			res, err := client.Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if res.StaleError != "" {
				out.Warn(res.StaleError)
			}

			return out.Print(
				[]string{"JOB", "STALE", "CRON_READY", "TRIGGER_READY", "CRON_DUE_AT", "NEXT_REPORT", "LAST_REPORT"},
				[][]string{{
					res.Job,
					strconv.FormatBool(res.Stale),
					strconv.FormatBool(res.CronReady),
					strconv.FormatBool(res.TriggerReady),
					formatTime(res.CronDueAt),
					formatTime(res.NextReportDate),
					formatTime(res.LastReportDate),
				}},
				res,
			)
		},
	}
}

func newJobsValidateCmd(clientFn ClientFunc, outputFn OutputFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Check a catalog for missing and cyclic dependencies",
		Long: "Checks schedules and the dependency graph of a YAML catalog file.\n" +
			"Without FILE the catalog stored in the registry is checked.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn(cmd)

			var jobs []domain.JobDefinition
			if len(args) == 1 {
				parsed, err := LoadCatalog(args[0])
				if err != nil {
					return err
				}
				jobs = parsed
			} else {
				client, err := clientFn(cmd)
				if err != nil {
					return err
				}
				defer client.Close()

				stored, err := client.ListJobs(cmd.Context())
				if err != nil {
					return err
				}
				var errs []error
				for i := range stored {
					if err := ValidateJob(&stored[i]); err != nil {
						errs = append(errs, err)
					}
				}
				if len(errs) > 0 {
					return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
				}
				jobs = stored
			}

			report := NewGraphReport(jobs)
			if err := out.Print(
				[]string{"ORDER", "JOB", "DEPENDS_ON", "STATUS"},
				report.rows(),
				report,
			); err != nil {
				return err
			}

			if report.Err != nil {
				return report.Err
			}
			out.Success(fmt.Sprintf("Dependency graph is valid: %d jobs", len(jobs)))
			return nil
		},
	}
}

// GraphReport — результат проверки графа зависимостей.
type GraphReport struct {
	Order   []string            `json:"order"`
	Cyclic  []string            `json:"cyclic,omitempty"`
	Missing map[string][]string `json:"missing,omitempty"`
	Err     error               `json:"-"`

	deps map[string][]string
}

// NewGraphReport строит граф и собирает отчёт.
func NewGraphReport(jobs []domain.JobDefinition) *GraphReport {
	g, err := readiness.BuildGraph(jobs)

	r := &GraphReport{
		Cyclic:  g.Cyclic,
		Missing: g.Missing,
		Err:     err,
		deps:    make(map[string][]string, len(g.Nodes)),
	}
	for _, n := range g.Order {
		r.Order = append(r.Order, n.Name())
	}
	for name, n := range g.Nodes {
		for _, dep := range n.DependsOn {
			r.deps[name] = append(r.deps[name], dep.Name())
		}
		r.deps[name] = append(r.deps[name], g.Missing[name]...)
	}
	return r
}

func (r *GraphReport) rows() [][]string {
	rows := make([][]string, 0, len(r.Order)+len(r.Cyclic))
	for i, name := range r.Order {
		status := "ok"
		if len(r.Missing[name]) > 0 {
			status = "missing: " + strings.Join(r.Missing[name], ",")
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), name, strings.Join(r.deps[name], ","), status})
	}
	for _, name := range r.Cyclic {
		rows = append(rows, []string{"-", name, strings.Join(r.deps[name], ","), "cycle"})
	}
	return rows
}

var jobHeaders = []string{"NAME", "CRON", "TRIGGER", "DEPENDS_ON", "LAST_REPORT"}

func jobRows(jobs []domain.JobDefinition) [][]string {
	rows := make([][]string, len(jobs))
	for i, job := range jobs {
		trigger := "-"
		if job.Trigger != nil {
			trigger = fmt.Sprintf("%d %s", job.Trigger.Value, job.Trigger.Unit)
		}
		cronExpr := job.Cron
		if cronExpr == "" {
			cronExpr = "-"
		}

		deps := make([]string, 0, len(job.Dependencies.Jobs)+len(job.Dependencies.Database))
		for _, d := range job.Dependencies.Jobs {
			deps = append(deps, d.JobName)
		}
		for _, d := range job.Dependencies.Database {
			deps = append(deps, d.DBKind+":"+d.Schema+"."+d.Table+"."+d.Column)
		}

		rows[i] = []string{job.Name, cronExpr, trigger, strings.Join(deps, ","), formatTime(job.LastReportDate)}
	}
	return rows
}
