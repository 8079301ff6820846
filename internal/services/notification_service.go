// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/metrics"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

// NotificationEvent is one user-facing trade notification.
type NotificationEvent struct {
	Recipient uuid.UUID
	Actor     uuid.UUID
	Type      models.NotificationType
	MatchID   uuid.UUID
	Data      models.JSONB
}

// Notifier accepts notifications without blocking the caller. Delivery
// failures are logged and never surface to the lifecycle transition.
type Notifier interface {
	Notify(ctx context.Context, ev NotificationEvent)
}

type notificationText struct {
	title, message string
}

var notificationTexts = map[models.NotificationType]notificationText{
	models.NotificationTradeRequested:     {i18n.KeyNotifyTradeRequestedTitle, i18n.KeyNotifyTradeRequestedMessage},
	models.NotificationRequestWithdrawn:   {i18n.KeyNotifyRequestWithdrawnTitle, i18n.KeyNotifyRequestWithdrawnMessage},
	models.NotificationRequestRejected:    {i18n.KeyNotifyRequestRejectedTitle, i18n.KeyNotifyRequestRejectedMessage},
	models.NotificationRequestInvalidated: {i18n.KeyNotifyInvalidatedTitle, i18n.KeyNotifyInvalidatedMessage},
	models.NotificationTradeConfirmed:     {i18n.KeyNotifyConfirmedTitle, i18n.KeyNotifyConfirmedMessage},
	models.NotificationCompletionReported: {i18n.KeyNotifyCompletionTitle, i18n.KeyNotifyCompletionMessage},
	models.NotificationTradeCompleted:     {i18n.KeyNotifyCompletedTitle, i18n.KeyNotifyCompletedMessage},
	models.NotificationTradeCancelled:     {i18n.KeyNotifyCancelledTitle, i18n.KeyNotifyCancelledMessage},
	models.NotificationCustomCardAdded:    {i18n.KeyNotifyCustomCardTitle, i18n.KeyNotifyCustomCardMessage},
}

type NotificationService struct {
	store  store.Store
	pool   pond.Pool
	client *http.Client
	config config.NotificationConfig
}

func NewNotificationService(st store.Store, cfg config.NotificationConfig) *NotificationService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &NotificationService{
		store:  st,
		pool:   pond.NewPool(workers, pond.WithQueueSize(cfg.QueueSize)),
		client: &http.Client{Timeout: 10 * time.Second},
		config: cfg,
	}
}

// Notify queues ev on the worker pool.
func (s *NotificationService) Notify(ctx context.Context, ev NotificationEvent) {
	ctx = context.WithoutCancel(ctx)
	s.pool.Submit(func() {
		if err := s.Deliver(ctx, ev); err != nil {
			logrus.WithFields(logrus.Fields{
				"type":      ev.Type,
				"recipient": ev.Recipient,
				"match_id":  ev.MatchID,
			}).WithError(err).Warn("Notification delivery failed")
		}
	})
}

// Close waits for queued notifications to finish.
func (s *NotificationService) Close() {
	s.pool.StopAndWait()
}

// Deliver stores the notification and pushes it to the webhook when configured.
func (s *NotificationService) Deliver(ctx context.Context, ev NotificationEvent) error {
	n := s.build(ctx, ev)
	if err := s.store.CreateNotification(ctx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues("inbox", "error").Inc()
		return fmt.Errorf("failed to store notification: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues("inbox", "ok").Inc()

	if s.config.WebhookURL == "" {
		return nil
	}
	if recipient, err := s.store.GetUser(ctx, ev.Recipient); err == nil && !recipient.PushEnabled {
		return nil
	}

	if err := s.push(ctx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues("push", "error").Inc()
		return fmt.Errorf("failed to push notification: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues("push", "ok").Inc()
	return nil
}

func (s *NotificationService) build(ctx context.Context, ev NotificationEvent) *models.Notification {
	actorName := "A trader"
	if actor, err := s.store.GetUser(ctx, ev.Actor); err == nil {
		actorName = actor.Name()
	}

	lang := i18n.DefaultLanguage()
	text := notificationTexts[ev.Type]
	args := []interface{}{actorName}
	if ev.Type == models.NotificationCustomCardAdded {
		args = append(args, ev.Data["card_name"])
	}

	actor, matchID := ev.Actor, ev.MatchID
	return &models.Notification{
		UserID:  ev.Recipient,
		ActorID: &actor,
		Type:    ev.Type,
		Title:   i18n.T(lang, text.title),
		Message: i18n.T(lang, text.message, args...),
		MatchID: &matchID,
		Data:    ev.Data,
	}
}

type pushPayload struct {
	EventID   uuid.UUID               `json:"event_id"`
	Type      models.NotificationType `json:"type"`
	UserID    uuid.UUID               `json:"user_id"`
	MatchID   *uuid.UUID              `json:"match_id,omitempty"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	CreatedAt time.Time               `json:"created_at"`
}

func (s *NotificationService) push(ctx context.Context, n *models.Notification) error {
	body, err := json.Marshal(pushPayload{
		EventID:   n.ID,
		Type:      n.Type,
		UserID:    n.UserID,
		MatchID:   n.MatchID,
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return backoff.Permanent(err)
	}

	operation := func() error {
		ts := time.Now().Unix()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(ts, 10))
		req.Header.Set("X-Webhook-Signature", utils.SignWebhookPayload(s.config.WebhookSecret, ts, n.ID.String(), body))

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("webhook returned %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("webhook rejected notification with %d", resp.StatusCode))
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = s.config.Timeout
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = 30 * time.Second
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

type NotificationPage struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int64                  `json:"total"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
}

// List returns the user's inbox, newest first.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) (*NotificationPage, error) {
	paging := utils.PaginationParams{Page: page, Limit: limit}.Normalize()
	items, total, err := s.store.ListNotifications(ctx, userID, unreadOnly, paging.Limit, paging.Offset())
	if err != nil {
		return nil, upstream("list notifications", err)
	}
	if items == nil {
		items = []*models.Notification{}
	}
	return &NotificationPage{Notifications: items, Total: total, Page: paging.Page, Limit: paging.Limit}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.MarkNotificationRead(ctx, userID, id, time.Now()); err != nil {
		return upstream("mark notification read", err)
	}
	return nil
}
