package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"villageserver/internal/domain"
	"villageserver/internal/notifications"
)

func TestRegisterDeviceValidation(t *testing.T) {
	svc := &NotificationsService{Devices: &stubDevicesStore{t: t}}

	if _, err := svc.RegisterDevice(context.Background(), "u1", "", "ios"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty token err = %v", err)
	}
	if _, err := svc.RegisterDevice(context.Background(), "u1", "tok", "blackberry"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad platform err = %v", err)
	}
}

func TestRegisterDeviceNormalizesPlatform(t *testing.T) {
	var gotPlatform string
	svc := &NotificationsService{
		Devices: &stubDevicesStore{
			t: t,
			upsertFunc: func(_ context.Context, _, token, platform string, _ time.Time) (domain.Device, error) {
				gotPlatform = platform
				return domain.Device{Token: token, Platform: platform}, nil
			},
		},
	}

	if _, err := svc.RegisterDevice(context.Background(), "u1", " tok ", " iOS "); err != nil {
		t.Fatalf("RegisterDevice returned error: %v", err)
	}
	if gotPlatform != "ios" {
		t.Errorf("platform = %q", gotPlatform)
	}
}

func nudgeFixture(t *testing.T, friends bool, nudgesEnabled bool) *NotificationsService {
	return &NotificationsService{
		Profiles: &stubProfilesStore{
			t: t,
			getProfileFunc: func(_ context.Context, id string) (domain.Profile, error) {
				return domain.Profile{
					UserID:       id,
					Username:     "u-" + id,
					Name:         "N " + id,
					Notification: domain.NotificationSettings{NudgesEnabled: nudgesEnabled},
				}, nil
			},
		},
		Friendships: &stubFriendshipsStore{
			t: t,
			getByPairKeyFunc: func(context.Context, string) (domain.Friendship, error) {
				if !friends {
					return domain.Friendship{}, domain.ErrNotFound
				}
				return domain.Friendship{Status: domain.FriendshipAccepted}, nil
			},
		},
		Devices: &stubDevicesStore{t: t},
	}
}

func TestNudgeRequiresFriendship(t *testing.T) {
	svc := nudgeFixture(t, false, true)
	if err := svc.Nudge(context.Background(), "alice", "bob"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestNudgeRespectsSettings(t *testing.T) {
	svc := nudgeFixture(t, true, false)
	svc.Sender = &stubPushSender{
		sendFunc: func(context.Context, string, notifications.Message) error {
			t.Fatal("send must not run with nudges disabled")
			return nil
		},
	}
	if err := svc.Nudge(context.Background(), "alice", "bob"); err != nil {
		t.Fatalf("Nudge returned error: %v", err)
	}
}

func TestNudgeSendsToAllDevicesAndPrunesInvalid(t *testing.T) {
	svc := nudgeFixture(t, true, true)

	var deleted []string
	svc.Devices = &stubDevicesStore{
		t: t,
		listFunc: func(context.Context, string) ([]domain.Device, error) {
			return []domain.Device{
				{Token: "android-ok", Platform: "android"},
				{Token: "ios-stale", Platform: "ios"},
			}, nil
		},
		deleteFunc: func(_ context.Context, _, token string) error {
			deleted = append(deleted, token)
			return nil
		},
	}

	var sent []notifications.Message
	svc.Sender = &stubPushSender{
		sendFunc: func(_ context.Context, token string, msg notifications.Message) error {
			sent = append(sent, msg)
			if token == "ios-stale" {
				return notifications.ErrInvalidToken
			}
			return nil
		},
	}

	if err := svc.Nudge(context.Background(), "alice", "bob"); err != nil {
		t.Fatalf("Nudge returned error: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sent))
	}
	if sent[0].Notification != nil {
		t.Error("android message must be data-only")
	}
	if sent[1].Notification == nil {
		t.Error("ios message must carry an alert")
	}
	if sent[0].Data["type"] != "nudge" || sent[0].Data["from"] != "alice" {
		t.Errorf("payload = %v", sent[0].Data)
	}
	if len(deleted) != 1 || deleted[0] != "ios-stale" {
		t.Errorf("deleted = %v, want the stale ios token pruned", deleted)
	}
}

func TestNudgeSelf(t *testing.T) {
	svc := &NotificationsService{}
	if err := svc.Nudge(context.Background(), "alice", "alice"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}
