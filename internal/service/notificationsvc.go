package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"villageserver/internal/domain"
	"villageserver/internal/notifications"
)

type DevicesStore interface {
	UpsertDevice(ctx context.Context, userID, token, platform string, when time.Time) (domain.Device, error)
	DeleteDevice(ctx context.Context, userID, token string) error
	ListDevices(ctx context.Context, userID string) ([]domain.Device, error)
}

type PushSender interface {
	Send(ctx context.Context, token string, msg notifications.Message) error
}

// NotificationsService keeps device registrations and delivers nudges.
// Delivery is best effort: send failures are logged, invalid tokens are
// pruned, and the caller always gets a success once the gate checks pass.
type NotificationsService struct {
	Devices     DevicesStore
	Profiles    ProfilesReader
	Friendships FriendshipsStore
	Sender      PushSender
	Logger      *slog.Logger
	Now         func() time.Time
}

func (s *NotificationsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *NotificationsService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *NotificationsService) RegisterDevice(ctx context.Context, userID, token, platform string) (domain.Device, error) {
	token = strings.TrimSpace(token)
	platform = strings.TrimSpace(strings.ToLower(platform))

	fields := map[string]string{}
	if token == "" {
		fields["token"] = "required"
	}
	switch platform {
	case "android", "ios":
	default:
		fields["platform"] = "must be ios or android"
	}
	if len(fields) > 0 {
		return domain.Device{}, domain.NewValidationError(fields)
	}

	return s.Devices.UpsertDevice(ctx, userID, token, platform, s.now())
}

func (s *NotificationsService) RemoveDevice(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError(map[string]string{"token": "required"})
	}
	return s.Devices.DeleteDevice(ctx, userID, token)
}

func (s *NotificationsService) ListDevices(ctx context.Context, userID string) ([]domain.Device, error) {
	return s.Devices.ListDevices(ctx, userID)
}

// Nudge pings an accepted friend on every device they registered, provided
// their notification settings allow it.
func (s *NotificationsService) Nudge(ctx context.Context, callerID, targetID string) error {
	if callerID == targetID {
		return domain.NewValidationError(map[string]string{"user_id": "cannot nudge yourself"})
	}

	ok, err := areFriends(ctx, s.Friendships, callerID, targetID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}

	target, err := s.Profiles.GetProfile(ctx, targetID)
	if err != nil {
		return err
	}
	if !target.Notification.NudgesEnabled {
		return nil
	}

	if s.Sender == nil {
		return nil
	}

	caller, err := s.Profiles.GetProfile(ctx, callerID)
	if err != nil {
		return err
	}

	devices, err := s.Devices.ListDevices(ctx, targetID)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	display := strings.TrimSpace(caller.Name)
	if display == "" {
		display = caller.Username
	}
	payload := map[string]string{
		"type":     "nudge",
		"from":     callerID,
		"name":     display,
		"username": caller.Username,
	}

	dataOnly := notifications.Message{Data: payload}
	alert := notifications.Message{
		Data: payload,
		Notification: &notifications.Notification{
			Title: "Nudge",
			Body:  display + " is thinking of you.",
		},
	}

	logger := s.logger()
	for _, d := range devices {
		msg := dataOnly
		if d.Platform == "ios" {
			msg = alert
		}
		if err := s.Sender.Send(ctx, d.Token, msg); err != nil {
			if errors.Is(err, notifications.ErrInvalidToken) {
				if delErr := s.Devices.DeleteDevice(ctx, targetID, d.Token); delErr != nil {
					logger.Error("nudge: delete invalid token failed", "err", delErr, "user_id", targetID)
				}
				continue
			}
			logger.Error("nudge: send failed", "err", err, "user_id", targetID)
		}
	}
	return nil
}
