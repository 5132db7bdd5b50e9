package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/memstore"
	"github.com/shaiso/exosphere/internal/registry"
)

var errUnavailable = errors.New("store unavailable")

// flakyStore отказывает первые failures вызовов SetPrimary/CreateInstance.
type flakyStore struct {
	*memstore.Store
	failures int
	calls    int
	block    bool
}

func (f *flakyStore) SetPrimary(ctx context.Context, id string, primary bool) error {
	f.calls++
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.calls <= f.failures {
		return errUnavailable
	}
	return f.Store.SetPrimary(ctx, id, primary)
}

func (f *flakyStore) CreateInstance(ctx context.Context, inst *domain.SchedulerInstance) error {
	f.calls++
	err := f.Store.CreateInstance(ctx, inst)
	if f.calls <= f.failures {
		// запись создана, но ответ "потерялся"
		return errUnavailable
	}
	return err
}

func newClient(store registry.Store, retries int) *registry.Client {
	return registry.NewClient(registry.Config{
		Store:         store,
		Timeout:       50 * time.Millisecond,
		MaxRetries:    retries,
		RetryInterval: time.Millisecond,
	})
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memstore.New(), failures: 2}
	inst := domain.NewSchedulerInstance("host-a", 1, time.Now())
	require.NoError(t, store.Store.CreateInstance(ctx, inst))

	client := newClient(store, 3)
	require.NoError(t, client.SetPrimary(ctx, inst.ID, true))
	assert.Equal(t, 3, store.calls)

	got, err := client.Instance(ctx, inst.ID)
	require.NoError(t, err)
	assert.True(t, got.Primary)
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memstore.New(), failures: 10}

	client := newClient(store, 2)
	err := client.SetPrimary(ctx, "any", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, 3, store.calls)
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memstore.New()}

	client := newClient(store, 3)
	err := client.SetPrimary(ctx, "missing", true)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.Equal(t, 1, store.calls)

	_, err = client.Instance(ctx, "missing")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestClient_TimeoutIsFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memstore.New(), block: true}

	client := newClient(store, -1)
	start := time.Now()
	err := client.SetPrimary(ctx, "any", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_CreateInstanceLostReplyIsSuccess(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memstore.New(), failures: 1}
	inst := domain.NewSchedulerInstance("host-a", 1, time.Now())

	client := newClient(store, 3)
	require.NoError(t, client.CreateInstance(ctx, inst))

	found, err := client.FindInstances(ctx, registry.InstanceFilter{})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
