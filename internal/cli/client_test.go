package cli

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/memstore"
	"github.com/shaiso/exosphere/internal/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T) (*Client, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return NewClient(store, nil, time.Second, discardLogger()), store
}

func TestClient_LoadJobsKeepsStoredLastReport(t *testing.T) {
	ctx := context.Background()
	client, store := newTestClient(t)

	reported := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertJob(ctx, &domain.JobDefinition{
		Name: "daily", Cron: "@daily", LastReportDate: &reported,
	}))

	fileDate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	err := client.LoadJobs(ctx, []domain.JobDefinition{
		{Name: "daily", Cron: "0 9 * * *", LastReportDate: &fileDate},
		{Name: "fresh", Trigger: &domain.Trigger{Unit: domain.TriggerUnitDays, Value: 1}, LastReportDate: &fileDate},
	})
	require.NoError(t, err)

	daily, err := client.GetJob(ctx, "daily")
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * *", daily.Cron)
	require.NotNil(t, daily.LastReportDate)
	assert.True(t, daily.LastReportDate.Equal(reported))

	fresh, err := client.GetJob(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, fresh.LastReportDate)
	assert.True(t, fresh.LastReportDate.Equal(fileDate))

	jobs, err := client.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

// reportingStore продвигает дату отчёта существующего job прямо
// перед записью, как если бы система исполнения отчиталась
// во время загрузки каталога.
type reportingStore struct {
	*memstore.Store
	reportedAt time.Time
}

func (s *reportingStore) UpsertJob(ctx context.Context, job *domain.JobDefinition) error {
	if _, err := s.Store.FindJobByName(ctx, job.Name); err == nil {
		if err := s.Store.SetLastReportDate(job.Name, s.reportedAt); err != nil {
			return err
		}
	}
	return s.Store.UpsertJob(ctx, job)
}

func TestClient_LoadJobsKeepsConcurrentReport(t *testing.T) {
	ctx := context.Background()
	initial := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store := &reportingStore{Store: memstore.New(), reportedAt: initial.Add(24 * time.Hour)}
	require.NoError(t, store.Store.UpsertJob(ctx, &domain.JobDefinition{
		Name: "daily", Cron: "@daily", LastReportDate: &initial,
	}))
	client := NewClient(store, nil, time.Second, discardLogger())

	fileDate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, client.LoadJobs(ctx, []domain.JobDefinition{
		{Name: "daily", Cron: "0 9 * * *", LastReportDate: &fileDate},
	}))

	daily, err := client.GetJob(ctx, "daily")
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * *", daily.Cron)
	require.NotNil(t, daily.LastReportDate)
	assert.True(t, daily.LastReportDate.Equal(store.reportedAt))
}

func TestClient_ListInstances(t *testing.T) {
	ctx := context.Background()
	client, store := newTestClient(t)

	now := time.Now().UTC()
	a := domain.NewSchedulerInstance("host-a", 0.01, now)
	b := domain.NewSchedulerInstance("host-b", 0.02, now)
	require.NoError(t, store.CreateInstance(ctx, a))
	require.NoError(t, store.CreateInstance(ctx, b))
	require.NoError(t, store.SetPrimary(ctx, b.ID, true))

	all, err := client.ListInstances(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	primaries, err := client.ListInstances(ctx, true)
	require.NoError(t, err)
	require.Len(t, primaries, 1)
	assert.Equal(t, b.ID, primaries[0].ID)
}

func TestClient_Check(t *testing.T) {
	ctx := context.Background()
	client, store := newTestClient(t)

	twoDaysAgo := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, store.UpsertJob(ctx, &domain.JobDefinition{
		Name:           "daily_trigger",
		Trigger:        &domain.Trigger{Unit: domain.TriggerUnitDays, Value: 1},
		LastReportDate: &twoDaysAgo,
	}))
	require.NoError(t, store.UpsertJob(ctx, &domain.JobDefinition{
		Name: "never_ran",
		Cron: "@hourly",
	}))

	res, err := client.Check(ctx, "daily_trigger")
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.True(t, res.TriggerReady)
	assert.False(t, res.CronReady)
	assert.Nil(t, res.CronDueAt)
	require.NotNil(t, res.NextReportDate)
	assert.True(t, res.NextReportDate.Equal(twoDaysAgo.Add(24*time.Hour)))

	res, err = client.Check(ctx, "never_ran")
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.True(t, res.CronReady)
	require.NotNil(t, res.CronDueAt)
	assert.True(t, res.CronDueAt.After(time.Now()))

	_, err = client.Check(ctx, "unknown")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}
