// internal/services/notification_service_test.go
package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store/memstore"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

func newNotificationService(t *testing.T, cfg config.NotificationConfig) (*NotificationService, *memstore.Store) {
	t.Helper()
	require.NoError(t, i18n.Initialize("en"))
	st := memstore.New()
	require.NoError(t, st.SaveUser(testContext(t), &models.User{
		BaseModel:   models.BaseModel{ID: alice},
		Username:    "alice",
		DisplayName: "Alice",
		PushEnabled: true,
	}))
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	svc := NewNotificationService(st, cfg)
	t.Cleanup(svc.Close)
	return svc, st
}

func TestNotificationDeliver_Inbox(t *testing.T) {
	svc, st := newNotificationService(t, config.NotificationConfig{})
	matchID := uuid.New()

	err := svc.Deliver(testContext(t), NotificationEvent{
		Recipient: bob,
		Actor:     alice,
		Type:      models.NotificationTradeRequested,
		MatchID:   matchID,
	})
	require.NoError(t, err)

	stored := st.Notifications(bob)
	require.Len(t, stored, 1)
	n := stored[0]
	assert.Equal(t, models.NotificationTradeRequested, n.Type)
	assert.Equal(t, "New trade request", n.Title)
	assert.Equal(t, "Alice wants to trade with you", n.Message)
	require.NotNil(t, n.MatchID)
	assert.Equal(t, matchID, *n.MatchID)
	require.NotNil(t, n.ActorID)
	assert.Equal(t, alice, *n.ActorID)
}

func TestNotificationDeliver_CustomCardNamesCard(t *testing.T) {
	svc, st := newNotificationService(t, config.NotificationConfig{})

	require.NoError(t, svc.Deliver(testContext(t), NotificationEvent{
		Recipient: bob,
		Actor:     carol,
		Type:      models.NotificationCustomCardAdded,
		MatchID:   uuid.New(),
		Data:      models.JSONB{"card_name": "Lightning Bolt"},
	}))

	stored := st.Notifications(bob)
	require.Len(t, stored, 1)
	assert.Equal(t, "A trader added Lightning Bolt to your trade", stored[0].Message)
}

type webhookCall struct {
	signature string
	timestamp string
	body      []byte
}

func TestNotificationDeliver_SignedWebhook(t *testing.T) {
	const secret = "s3cret"
	calls := make(chan webhookCall, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls <- webhookCall{
			signature: r.Header.Get("X-Webhook-Signature"),
			timestamp: r.Header.Get("X-Webhook-Timestamp"),
			body:      body,
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	svc, _ := newNotificationService(t, config.NotificationConfig{
		WebhookURL:    srv.URL,
		WebhookSecret: secret,
		Timeout:       time.Second,
	})

	require.NoError(t, svc.Deliver(testContext(t), NotificationEvent{
		Recipient: bob,
		Actor:     alice,
		Type:      models.NotificationTradeConfirmed,
		MatchID:   uuid.New(),
	}))
	require.Len(t, calls, 1)
	call := <-calls

	var payload struct {
		EventID uuid.UUID `json:"event_id"`
		UserID  uuid.UUID `json:"user_id"`
		Type    string    `json:"type"`
	}
	require.NoError(t, json.Unmarshal(call.body, &payload))
	assert.Equal(t, bob, payload.UserID)
	assert.Equal(t, string(models.NotificationTradeConfirmed), payload.Type)

	ts, err := strconv.ParseInt(call.timestamp, 10, 64)
	require.NoError(t, err)
	assert.True(t, utils.VerifyWebhookSignature(secret, ts, payload.EventID.String(), call.body, call.signature))
	assert.False(t, utils.VerifyWebhookSignature("other", ts, payload.EventID.String(), call.body, call.signature))
}

func TestNotificationDeliver_WebhookRejection(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	svc, st := newNotificationService(t, config.NotificationConfig{WebhookURL: srv.URL, Timeout: time.Second})

	err := svc.Deliver(testContext(t), NotificationEvent{Recipient: bob, Actor: alice, Type: models.NotificationTradeCancelled})
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
	// the inbox copy is kept even when the push fails
	assert.Len(t, st.Notifications(bob), 1)
}

func TestNotificationDeliver_PushDisabled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	svc, st := newNotificationService(t, config.NotificationConfig{WebhookURL: srv.URL})
	require.NoError(t, st.SaveUser(testContext(t), &models.User{
		BaseModel:   models.BaseModel{ID: bob},
		Username:    "bob",
		PushEnabled: false,
	}))

	require.NoError(t, svc.Deliver(testContext(t), NotificationEvent{Recipient: bob, Actor: alice, Type: models.NotificationTradeRequested}))
	assert.Zero(t, calls.Load())
	assert.Len(t, st.Notifications(bob), 1)
}

func TestNotify_DeliversInBackground(t *testing.T) {
	require.NoError(t, i18n.Initialize("en"))
	st := memstore.New()
	svc := NewNotificationService(st, config.NotificationConfig{Workers: 1})

	svc.Notify(testContext(t), NotificationEvent{Recipient: bob, Actor: alice, Type: models.NotificationTradeRequested})
	svc.Close()

	assert.Len(t, st.Notifications(bob), 1)
}

func TestNotificationInbox(t *testing.T) {
	svc, _ := newNotificationService(t, config.NotificationConfig{})
	for _, typ := range []models.NotificationType{
		models.NotificationTradeRequested,
		models.NotificationTradeConfirmed,
		models.NotificationTradeCompleted,
	} {
		require.NoError(t, svc.Deliver(testContext(t), NotificationEvent{Recipient: bob, Actor: alice, Type: typ}))
	}

	page, err := svc.List(testContext(t), bob, false, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Notifications, 2)
	newest := page.Notifications[0]
	assert.Equal(t, models.NotificationTradeCompleted, newest.Type)

	require.NoError(t, svc.MarkRead(testContext(t), bob, newest.ID))
	assert.ErrorIs(t, svc.MarkRead(testContext(t), alice, newest.ID), ErrNotFound)

	unread, err := svc.List(testContext(t), bob, true, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread.Total)

	empty, err := svc.List(testContext(t), alice, false, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty.Notifications)
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, 20, empty.Limit)
}
