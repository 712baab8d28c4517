package service

import (
	"context"

	"github.com/gobihapalanivel/VendorPulse/internal/models"
	"github.com/gobihapalanivel/VendorPulse/internal/redisclient"
	"github.com/gobihapalanivel/VendorPulse/internal/upstream"
	"github.com/gobihapalanivel/VendorPulse/internal/util"

	"go.uber.org/zap"
)

// NotificationService lists backend notifications and handles local
// dismissal. Dismissing only hides a notification for the user; the
// backend record is intentionally left in place.
type NotificationService struct {
	upstream *upstream.Client
	redis    *redisclient.Client
	logger   *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(upstreamClient *upstream.Client, redis *redisclient.Client) *NotificationService {
	return &NotificationService{
		upstream: upstreamClient,
		redis:    redis,
		logger:   util.GetLogger(),
	}
}

// List returns the user's notifications minus any locally dismissed ones.
func (n *NotificationService) List(ctx context.Context, session *upstream.Session, userID int64) ([]models.Notification, error) {
	ctx, span := util.StartSpan(ctx, "NotificationService.List")
	defer span.End()

	notifications, err := n.upstream.ListNotifications(ctx, session)
	if err != nil {
		return nil, err
	}

	dismissed, err := n.redis.DismissedNotifications(ctx, userID)
	if err != nil {
		// Hide-state loss is tolerable; show everything rather than fail.
		n.logger.Warn("Failed to load dismissed notifications", zap.Error(err))
		return notifications, nil
	}

	visible := make([]models.Notification, 0, len(notifications))
	for _, notif := range notifications {
		if !dismissed[notif.ID] {
			visible = append(visible, notif)
		}
	}
	return visible, nil
}

// Dismiss hides a notification for this user without deleting it upstream.
func (n *NotificationService) Dismiss(ctx context.Context, userID, notificationID int64) error {
	if err := n.redis.DismissNotification(ctx, userID, notificationID); err != nil {
		return err
	}
	util.NotificationsDismissedTotal.Inc()
	return nil
}
