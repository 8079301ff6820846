// internal/outbox/dispatcher.go
package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/matching"
	"github.com/cardswap/cardswap-backend/internal/metrics"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store"
)

// Recomputer rebuilds one user's matches.
type Recomputer interface {
	ComputeMatches(ctx context.Context, userID uuid.UUID) ([]matching.MatchView, error)
}

// Dispatcher drains the inventory_events outbox. Events for the same user in
// one batch collapse into a single recompute.
type Dispatcher struct {
	store      store.Store
	recomputer Recomputer
	config     config.OutboxConfig
	// settled reports errors that retrying cannot fix, such as a user
	// without a location. Their events are marked done.
	settled func(error) bool
	now     func() time.Time
	// retryWindow bounds the in-process retries of one recompute.
	retryWindow time.Duration

	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

func NewDispatcher(st store.Store, recomputer Recomputer, cfg config.OutboxConfig, settled func(error) bool) *Dispatcher {
	if settled == nil {
		settled = func(error) bool { return false }
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Dispatcher{
		store:       st,
		recomputer:  recomputer,
		config:      cfg,
		settled:     settled,
		now:         time.Now,
		retryWindow: 10 * time.Second,
		stopChan:    make(chan struct{}),
		stoppedCh:   make(chan struct{}),
	}
}

// Run polls until ctx is cancelled or Stop is called.
func (d *Dispatcher) Run(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	defer close(d.stoppedCh)

	logrus.WithFields(logrus.Fields{
		"workers":       d.config.Workers,
		"batch_size":    d.config.BatchSize,
		"poll_interval": d.config.PollInterval,
	}).Info("Starting inventory event dispatcher")

	for {
		n, err := d.ProcessBatch(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).Error("Inventory event batch failed")
		}
		// A full batch means more work is likely waiting.
		if n >= d.config.BatchSize {
			continue
		}
		if !d.sleep(ctx, d.config.PollInterval) {
			logrus.Info("Inventory event dispatcher stopped")
			return
		}
	}
}

// Stop asks Run to return and waits for the current batch to finish.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if !d.running.CompareAndSwap(true, false) {
		return nil
	}
	close(d.stopChan)
	select {
	case <-d.stoppedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) sleep(ctx context.Context, wait time.Duration) bool {
	if wait <= 0 {
		wait = time.Second
	}
	select {
	case <-time.After(wait):
		return true
	case <-ctx.Done():
		return false
	case <-d.stopChan:
		return false
	}
}

// ProcessBatch claims due events, recomputes each affected user once and
// records the outcome on every claimed event. It returns the number claimed.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (int, error) {
	events, err := d.store.ClaimInventoryEvents(ctx, d.now(), d.config.Lease, d.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim inventory events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	byUser := make(map[uuid.UUID][]*models.InventoryEvent)
	var order []uuid.UUID
	for _, ev := range events {
		if _, ok := byUser[ev.UserID]; !ok {
			order = append(order, ev.UserID)
		}
		byUser[ev.UserID] = append(byUser[ev.UserID], ev)
	}

	pool := pond.NewPool(d.config.Workers, pond.WithContext(ctx))
	var mu sync.Mutex
	var firstErr error
	for _, userID := range order {
		userID, group := userID, byUser[userID]
		pool.Submit(func() {
			if err := d.handle(ctx, userID, group); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
	}
	pool.StopAndWait()

	return len(events), firstErr
}

func (d *Dispatcher) handle(ctx context.Context, userID uuid.UUID, group []*models.InventoryEvent) error {
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "events": len(group)})

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = d.retryWindow

	operation := func() error {
		_, err := d.recomputer.ComputeMatches(ctx, userID)
		if err != nil && d.settled(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		log.WithError(err).WithField("next_retry_in", next).Warn("Recompute failed, retrying")
	}
	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)

	now := d.now()
	outcome := "done"
	for _, ev := range group {
		ev.Attempts++
		switch {
		case err == nil || d.settled(err):
			ev.Status = models.EventStatusDone
			ev.ProcessedAt = &now
			ev.LastError = ""
			if err != nil {
				ev.LastError = err.Error()
				outcome = "skipped"
			}
		case ev.Attempts >= d.config.MaxAttempts:
			ev.Status = models.EventStatusFailed
			ev.LastError = err.Error()
			outcome = "failed"
		default:
			ev.Status = models.EventStatusPending
			ev.LastError = err.Error()
			ev.ProcessAfter = now.Add(time.Duration(ev.Attempts) * d.config.PollInterval)
			outcome = "retry"
		}
		if saveErr := d.store.SaveInventoryEvent(ctx, ev); saveErr != nil {
			log.WithError(saveErr).WithField("event_id", ev.ID).Error("Failed to save inventory event")
		}
	}
	metrics.OutboxEventsTotal.WithLabelValues(outcome).Add(float64(len(group)))

	if err != nil && !d.settled(err) {
		return fmt.Errorf("recompute for user %s: %w", userID, err)
	}
	log.WithField("outcome", outcome).Debug("Inventory events processed")
	return nil
}
