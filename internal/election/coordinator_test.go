package election

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/memstore"
	"github.com/shaiso/exosphere/internal/registry"
)

type fixedScore float64

func (s fixedScore) Score(context.Context) float64 { return float64(s) }

func newRegistry(store registry.Store) *registry.Client {
	return registry.NewClient(registry.Config{
		Store:         store,
		Timeout:       time.Second,
		MaxRetries:    -1,
		RetryInterval: time.Millisecond,
	})
}

func newCoordinator(t *testing.T, reg Registry, host string, score float64) *Coordinator {
	t.Helper()
	c := New(Config{
		Registry:     reg,
		Scorer:       fixedScore(score),
		Hostname:     host,
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, c.Initialize(context.Background()))
	require.Equal(t, StateDormant, c.State())
	return c
}

func primaries(t *testing.T, store registry.Store) []domain.SchedulerInstance {
	t.Helper()
	found, err := store.FindInstances(context.Background(), registry.PrimaryOnly())
	require.NoError(t, err)
	return found
}

// --- Initialize ---

func TestInitialize_CreatesNonPrimaryRecord(t *testing.T) {
	store := memstore.New()
	c := newCoordinator(t, newRegistry(store), "host-a", 42)

	self := c.Self()
	require.NotNil(t, self)
	assert.Equal(t, "host-a:"+self.InstanceID, self.ID)

	found, err := store.FindInstances(context.Background(), registry.ByID(self.ID))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.False(t, found[0].Primary)
	assert.Equal(t, 42.0, found[0].Score)
}

func TestInitialize_TwoInstancesSameHost(t *testing.T) {
	store := memstore.New()
	reg := newRegistry(store)
	a := newCoordinator(t, reg, "host-a", 1)
	b := newCoordinator(t, reg, "host-a", 1)

	assert.NotEqual(t, a.Self().ID, b.Self().ID)
}

// --- Step ---

func TestStep_SingleInstanceBecomesPrimary(t *testing.T) {
	store := memstore.New()
	c := newCoordinator(t, newRegistry(store), "host-a", 5)

	assert.Equal(t, StatePrimary, c.Step(context.Background()))
	assert.Len(t, primaries(t, store), 1)
}

func TestStep_FirstClaimedWins(t *testing.T) {
	store := memstore.New()
	reg := newRegistry(store)
	worse := newCoordinator(t, reg, "host-b", 50)
	better := newCoordinator(t, reg, "host-a", 1)

	require.Equal(t, StatePrimary, worse.Step(context.Background()))

	// Лучший score не свергает уже существующего primary.
	assert.Equal(t, StateDormant, better.Step(context.Background()))

	found := primaries(t, store)
	require.Len(t, found, 1)
	assert.Equal(t, worse.Self().ID, found[0].ID)
}

func TestStep_ConcurrentClaimsResolveToLowestScore(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	reg := newRegistry(store)
	a := newCoordinator(t, reg, "host-a", 10)
	b := newCoordinator(t, reg, "host-b", 3)

	// Оба увидели пустой реестр и заявили себя одновременно.
	require.NoError(t, a.Claim(ctx))
	require.NoError(t, b.Claim(ctx))
	a.transition(StatePrimary)
	b.transition(StatePrimary)

	assert.False(t, a.StillPrimary(ctx))
	assert.True(t, b.StillPrimary(ctx))
	assert.Equal(t, StateSteppedDown, a.State())

	found := primaries(t, store)
	require.Len(t, found, 1)
	assert.Equal(t, b.Self().ID, found[0].ID)

	// После отставки — только через DORMANT.
	assert.Equal(t, StateDormant, a.Step(ctx))
}

// lostClaimRegistry теряет запись primary=true для одного экземпляра.
type lostClaimRegistry struct {
	*registry.Client
	victim string
}

func (r *lostClaimRegistry) SetPrimary(ctx context.Context, id string, primary bool) error {
	if id == r.victim && primary {
		return nil
	}
	return r.Client.SetPrimary(ctx, id, primary)
}

func TestStep_RequiresSelfReadConfirmation(t *testing.T) {
	store := memstore.New()
	reg := &lostClaimRegistry{Client: newRegistry(store)}
	c := newCoordinator(t, reg, "host-a", 1)
	reg.victim = c.Self().ID

	// Запись "успешна", но самопроверка её не видит.
	assert.Equal(t, StateDormant, c.Step(context.Background()))
	assert.Empty(t, primaries(t, store))
}

// failingReadRegistry отказывает при чтении списка primary.
type failingReadRegistry struct {
	*registry.Client
	claims atomic.Int32
}

func (r *failingReadRegistry) Primaries(context.Context) ([]domain.SchedulerInstance, error) {
	return nil, errors.New("registry unreachable")
}

func (r *failingReadRegistry) SetPrimary(ctx context.Context, id string, primary bool) error {
	r.claims.Add(1)
	return r.Client.SetPrimary(ctx, id, primary)
}

func TestStep_ReadFailureStaysDormant(t *testing.T) {
	reg := &failingReadRegistry{Client: newRegistry(memstore.New())}
	c := newCoordinator(t, reg, "host-a", 1)

	assert.True(t, c.PrimaryExists(context.Background()))
	assert.Equal(t, StateDormant, c.Step(context.Background()))
	assert.Zero(t, reg.claims.Load())
}

func TestStep_OwnStaleFlagDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	c := newCoordinator(t, newRegistry(store), "host-a", 1)

	// Флаг выставлен, но ответ на Claim потерялся — экземпляр остался DORMANT.
	require.NoError(t, store.SetPrimary(ctx, c.Self().ID, true))
	assert.Equal(t, StatePrimary, c.Step(ctx))
}

// --- Reconcile ---

func TestReconcile_LeavesSinglePrimaryWithMinScore(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		ctx := context.Background()
		store := memstore.New()
		reg := newRegistry(store)

		n := 2 + rng.Intn(6)
		var best *domain.SchedulerInstance
		var coords []*Coordinator
		for i := 0; i < n; i++ {
			c := newCoordinator(t, reg, fmt.Sprintf("host-%d", i), float64(rng.Intn(5)))
			coords = append(coords, c)

			// Часть экземпляров не заявляла себя primary.
			if i > 0 && rng.Intn(3) == 0 {
				continue
			}
			require.NoError(t, c.Claim(ctx))
			self := c.Self()
			if best == nil || self.BetterThan(best) {
				best = self
			}
		}

		_, err := coords[0].Reconcile(ctx)
		require.NoError(t, err)

		found := primaries(t, store)
		require.Len(t, found, 1, "round %d", round)
		assert.Equal(t, best.ID, found[0].ID, "round %d", round)
	}
}

func TestReconcile_TieBreakByID(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	inst := []*domain.SchedulerInstance{
		{ID: "host-c:1", Score: 1, Primary: true},
		{ID: "host-a:1", Score: 1, Primary: true},
		{ID: "host-b:1", Score: 1, Primary: true},
		{ID: "host-0:1", Score: 9, Primary: false},
	}
	for _, i := range inst {
		require.NoError(t, store.CreateInstance(ctx, i))
	}

	c := New(Config{Registry: newRegistry(store), Scorer: fixedScore(1)})
	resolved, err := c.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, resolved)

	found := primaries(t, store)
	require.Len(t, found, 1)
	assert.Equal(t, "host-a:1", found[0].ID)
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	reg := newRegistry(store)
	a := newCoordinator(t, reg, "host-a", 4)
	b := newCoordinator(t, reg, "host-b", 2)
	require.NoError(t, a.Claim(ctx))
	require.NoError(t, b.Claim(ctx))

	resolved, err := a.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, resolved)
	first := primaries(t, store)

	resolved, err = a.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, resolved)
	second := primaries(t, store)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, b.Self().ID, second[0].ID)
}

// --- Heartbeat / Run ---

func TestHeartbeat_UpdatesLastCheckedIn(t *testing.T) {
	store := memstore.New()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := New(Config{
		Registry: newRegistry(store),
		Scorer:   fixedScore(1),
		Hostname: "host-a",
		Clock:    func() time.Time { return now },
	})
	require.NoError(t, c.Initialize(context.Background()))

	now = now.Add(time.Minute)
	c.Heartbeat(context.Background())

	found, err := store.FindInstances(context.Background(), registry.ByID(c.Self().ID))
	require.NoError(t, err)
	assert.True(t, found[0].LastCheckedIn.Equal(now))
}

func TestRun_LeadsAndResignsOnShutdown(t *testing.T) {
	store := memstore.New()
	c := New(Config{
		Registry:     newRegistry(store),
		Scorer:       fixedScore(1),
		Hostname:     "host-a",
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var led atomic.Int32
	leader := LeaderFunc(func(ctx context.Context) error {
		led.Add(1)
		assert.True(t, c.StillPrimary(ctx))
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})

	require.NoError(t, c.Run(ctx, leader))
	assert.Equal(t, int32(1), led.Load())
	assert.Equal(t, StateSteppedDown, c.State())
	assert.Empty(t, primaries(t, store))
}

func TestRun_ReturnsToDormantAfterDemotion(t *testing.T) {
	store := memstore.New()
	reg := newRegistry(store)
	c := New(Config{
		Registry:     reg,
		Scorer:       fixedScore(1),
		Hostname:     "host-a",
		PollInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var terms atomic.Int32
	leader := LeaderFunc(func(ctx context.Context) error {
		if terms.Add(1) == 1 {
			// Кто-то снял наш флаг: на следующей проверке уходим.
			require.NoError(t, store.ClearPrimaries(ctx))
			assert.False(t, c.StillPrimary(ctx))
			return nil
		}
		cancel()
		return nil
	})

	require.NoError(t, c.Run(ctx, leader))
	assert.Equal(t, int32(2), terms.Load())
}

func TestShouldContend(t *testing.T) {
	self := domain.SchedulerInstance{ID: "host-a:1", Primary: true}
	other := domain.SchedulerInstance{ID: "host-b:2", Primary: true}

	tests := []struct {
		name      string
		primaries []domain.SchedulerInstance
		want      bool
	}{
		{"no primaries", nil, true},
		{"only self", []domain.SchedulerInstance{self}, true},
		{"other primary", []domain.SchedulerInstance{other}, false},
		{"self and other", []domain.SchedulerInstance{self, other}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldContend(tt.primaries, self.ID))
		})
	}
}
