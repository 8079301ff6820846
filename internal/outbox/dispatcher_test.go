// internal/outbox/dispatcher_test.go
package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/matching"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store/memstore"
)

var (
	errBusy      = errors.New("database busy")
	errNoAddress = errors.New("no location")
)

type fakeRecomputer struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
	fail  map[uuid.UUID]error
}

func newFakeRecomputer() *fakeRecomputer {
	return &fakeRecomputer{calls: map[uuid.UUID]int{}, fail: map[uuid.UUID]error{}}
}

func (r *fakeRecomputer) ComputeMatches(_ context.Context, userID uuid.UUID) ([]matching.MatchView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[userID]++
	return nil, r.fail[userID]
}

func (r *fakeRecomputer) callsFor(userID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[userID]
}

var testOutbox = config.OutboxConfig{
	PollInterval: 10 * time.Millisecond,
	BatchSize:    50,
	Workers:      2,
	MaxAttempts:  2,
	Lease:        time.Minute,
}

func newTestDispatcher(st *memstore.Store, r Recomputer) *Dispatcher {
	d := NewDispatcher(st, r, testOutbox, func(err error) bool { return errors.Is(err, errNoAddress) })
	d.retryWindow = time.Millisecond
	return d
}

func enqueue(t *testing.T, st *memstore.Store, userID uuid.UUID, reason string) {
	t.Helper()
	require.NoError(t, st.EnqueueInventoryEvent(context.Background(), &models.InventoryEvent{
		UserID:       userID,
		Reason:       reason,
		ProcessAfter: time.Now().Add(-time.Second),
	}))
}

func statuses(st *memstore.Store, userID uuid.UUID) []models.EventStatus {
	var out []models.EventStatus
	for _, ev := range st.Events() {
		if ev.UserID == userID {
			out = append(out, ev.Status)
		}
	}
	return out
}

func TestProcessBatch_CollapsesEventsPerUser(t *testing.T) {
	st := memstore.New()
	r := newFakeRecomputer()
	d := newTestDispatcher(st, r)
	alice, bob := uuid.New(), uuid.New()

	enqueue(t, st, alice, "collection_changed")
	enqueue(t, st, alice, "wishlist_changed")
	enqueue(t, st, alice, "location_changed")
	enqueue(t, st, bob, "collection_changed")

	n, err := d.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, n)
	assert.Equal(t, 1, r.callsFor(alice))
	assert.Equal(t, 1, r.callsFor(bob))
	assert.Equal(t, []models.EventStatus{models.EventStatusDone, models.EventStatusDone, models.EventStatusDone}, statuses(st, alice))
	assert.Empty(t, st.PendingEvents())

	n, err = d.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessBatch_SettledErrorsFinishEvents(t *testing.T) {
	st := memstore.New()
	r := newFakeRecomputer()
	d := newTestDispatcher(st, r)
	userID := uuid.New()
	r.fail[userID] = errNoAddress

	enqueue(t, st, userID, "collection_changed")

	_, err := d.ProcessBatch(context.Background())
	require.NoError(t, err)

	events := st.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventStatusDone, events[0].Status)
	assert.Equal(t, errNoAddress.Error(), events[0].LastError)
	assert.NotNil(t, events[0].ProcessedAt)
	assert.Equal(t, 1, r.callsFor(userID))
}

func TestProcessBatch_RetriesThenFails(t *testing.T) {
	st := memstore.New()
	r := newFakeRecomputer()
	d := newTestDispatcher(st, r)
	clock := time.Now()
	d.now = func() time.Time { return clock }
	userID := uuid.New()
	r.fail[userID] = errBusy

	enqueue(t, st, userID, "collection_changed")

	_, err := d.ProcessBatch(context.Background())
	assert.ErrorIs(t, err, errBusy)

	events := st.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventStatusPending, events[0].Status)
	assert.Equal(t, 1, events[0].Attempts)
	assert.Equal(t, errBusy.Error(), events[0].LastError)
	assert.True(t, events[0].ProcessAfter.After(clock))

	// not due yet
	n, err := d.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	clock = clock.Add(time.Second)
	_, err = d.ProcessBatch(context.Background())
	assert.ErrorIs(t, err, errBusy)

	events = st.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventStatusFailed, events[0].Status)
	assert.Equal(t, 2, events[0].Attempts)
}

func TestProcessBatch_FailureDoesNotBlockOtherUsers(t *testing.T) {
	st := memstore.New()
	r := newFakeRecomputer()
	d := newTestDispatcher(st, r)
	broken, healthy := uuid.New(), uuid.New()
	r.fail[broken] = errBusy

	enqueue(t, st, broken, "collection_changed")
	enqueue(t, st, healthy, "collection_changed")

	_, err := d.ProcessBatch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []models.EventStatus{models.EventStatusDone}, statuses(st, healthy))
	assert.Equal(t, []models.EventStatus{models.EventStatusPending}, statuses(st, broken))
}

func TestRun_StopsOnRequest(t *testing.T) {
	st := memstore.New()
	r := newFakeRecomputer()
	d := newTestDispatcher(st, r)
	userID := uuid.New()
	enqueue(t, st, userID, "collection_changed")

	go d.Run(context.Background())

	require.Eventually(t, func() bool { return r.callsFor(userID) == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	assert.NoError(t, d.Stop(ctx))
}
