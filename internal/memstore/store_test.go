package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/registry"
)

func TestInstanceRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	inst := domain.NewSchedulerInstance("host-a", 12.5, now)
	inst.Primary = true
	require.NoError(t, s.CreateInstance(ctx, inst))

	found, err := s.FindInstances(ctx, registry.ByID(inst.ID))
	require.NoError(t, err)
	require.Len(t, found, 1)

	got := found[0]
	assert.Equal(t, inst.ID, got.ID)
	assert.Equal(t, inst.Hostname, got.Hostname)
	assert.Equal(t, inst.InstanceID, got.InstanceID)
	assert.Equal(t, 12.5, got.Score)
	assert.True(t, got.Primary)
}

func TestCreateInstanceDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	inst := domain.NewSchedulerInstance("host-a", 1, time.Now())

	require.NoError(t, s.CreateInstance(ctx, inst))
	assert.ErrorIs(t, s.CreateInstance(ctx, inst), registry.ErrAlreadyExists)
}

func TestPrimaryFlags(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := domain.NewSchedulerInstance("host-a", 1, time.Now())
	b := domain.NewSchedulerInstance("host-b", 2, time.Now())
	require.NoError(t, s.CreateInstance(ctx, a))
	require.NoError(t, s.CreateInstance(ctx, b))

	require.NoError(t, s.SetPrimary(ctx, a.ID, true))
	require.NoError(t, s.SetPrimary(ctx, b.ID, true))

	primaries, err := s.FindInstances(ctx, registry.PrimaryOnly())
	require.NoError(t, err)
	assert.Len(t, primaries, 2)

	require.NoError(t, s.ClearPrimaries(ctx))
	primaries, err = s.FindInstances(ctx, registry.PrimaryOnly())
	require.NoError(t, err)
	assert.Empty(t, primaries)

	assert.ErrorIs(t, s.SetPrimary(ctx, "missing", true), registry.ErrNotFound)
	assert.ErrorIs(t, s.UpdateHeartbeat(ctx, "missing", time.Now()), registry.ErrNotFound)
}

func TestJobsAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()
	last := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	job := &domain.JobDefinition{
		Name:           "daily-report",
		Trigger:        &domain.Trigger{Unit: domain.TriggerUnitDays, Value: 1},
		LastReportDate: &last,
		Dependencies: domain.Dependencies{
			Jobs: []domain.JobDependency{{JobName: "ingest"}},
		},
	}
	require.NoError(t, s.UpsertJob(ctx, job))

	job.Trigger.Value = 7
	job.Dependencies.Jobs[0].JobName = "changed"

	got, err := s.FindJobByName(ctx, "daily-report")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Trigger.Value)
	assert.Equal(t, "ingest", got.Dependencies.Jobs[0].JobName)
	assert.True(t, got.LastReportDate.Equal(last))

	_, err = s.FindJobByName(ctx, "missing")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestUpsertJobKeepsLastReportDate(t *testing.T) {
	s := New()
	ctx := context.Background()
	fromFile := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertJob(ctx, &domain.JobDefinition{Name: "daily", Cron: "@daily", LastReportDate: &fromFile}))

	reported := fromFile.Add(48 * time.Hour)
	require.NoError(t, s.SetLastReportDate("daily", reported))

	require.NoError(t, s.UpsertJob(ctx, &domain.JobDefinition{Name: "daily", Cron: "0 6 * * *", LastReportDate: &fromFile}))

	got, err := s.FindJobByName(ctx, "daily")
	require.NoError(t, err)
	assert.Equal(t, "0 6 * * *", got.Cron)
	require.NotNil(t, got.LastReportDate)
	assert.True(t, got.LastReportDate.Equal(reported))

	assert.ErrorIs(t, s.SetLastReportDate("missing", reported), registry.ErrNotFound)
}
