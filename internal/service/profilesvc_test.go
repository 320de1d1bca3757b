package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"villageserver/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestProfileCreateValidation(t *testing.T) {
	svc := &ProfilesService{Profiles: &stubProfilesStore{t: t}}

	cases := []struct {
		name    string
		profile domain.Profile
		field   string
	}{
		{"missing username", domain.Profile{Name: "Alice"}, "username"},
		{"bad username", domain.Profile{Username: "No Spaces!", Name: "Alice"}, "username"},
		{"short username", domain.Profile{Username: "ab", Name: "Alice"}, "username"},
		{"missing name", domain.Profile{Username: "alice"}, "name"},
		{"bad birthday", domain.Profile{Username: "alice", Name: "Alice", Birthday: "31-12-1990"}, "birthday"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "u1", tc.profile)
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("err = %v, want validation error", err)
			}
			if _, ok := vErr.Fields[tc.field]; !ok {
				t.Errorf("fields = %v, want %q flagged", vErr.Fields, tc.field)
			}
		})
	}
}

func TestProfileCreateNormalizesAndStampsOwner(t *testing.T) {
	var created domain.Profile
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	svc := &ProfilesService{
		Profiles: &stubProfilesStore{
			t: t,
			createProfileFunc: func(_ context.Context, p domain.Profile) (domain.Profile, error) {
				created = p
				return p, nil
			},
		},
		Now: func() time.Time { return now },
	}

	_, err := svc.Create(context.Background(), "u1", domain.Profile{
		UserID:   "someone-else",
		Username: "  Alice_99 ",
		Name:     " Alice ",
		Summary:  "injected",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.UserID != "u1" {
		t.Errorf("user id = %q, want u1", created.UserID)
	}
	if created.Username != "alice_99" {
		t.Errorf("username = %q, want alice_99", created.Username)
	}
	if created.Name != "Alice" {
		t.Errorf("name = %q", created.Name)
	}
	if created.Summary != "" {
		t.Error("AI fields must start empty")
	}
	if !created.CreatedAt.Equal(now) {
		t.Errorf("created at = %v", created.CreatedAt)
	}
}

func TestProfileUpdateFansOutOnlyIdentityChanges(t *testing.T) {
	stored := domain.Profile{
		UserID:   "u1",
		Username: "alice",
		Name:     "Alice",
		Avatar:   "a.png",
		Location: "Berlin",
	}
	var savedChange domain.IdentityChange
	var saved domain.Profile
	svc := &ProfilesService{
		Profiles: &stubProfilesStore{
			t: t,
			getProfileFunc: func(context.Context, string) (domain.Profile, error) { return stored, nil },
		},
		Tx: &stubProfilesTx{
			t: t,
			saveFunc: func(_ context.Context, p domain.Profile, change domain.IdentityChange, _ time.Time) error {
				saved = p
				savedChange = change
				return nil
			},
		},
	}

	// Location-only patch: no identity change.
	_, err := svc.Update(context.Background(), "u1", domain.ProfilePatch{Location: strPtr("Paris")})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !savedChange.Empty() {
		t.Errorf("identity change for location patch: %+v", savedChange)
	}
	if saved.Location != "Paris" {
		t.Errorf("location = %q", saved.Location)
	}

	// Name change must show up in the propagated diff.
	_, err = svc.Update(context.Background(), "u1", domain.ProfilePatch{
		Name:     strPtr("Alicia"),
		Username: strPtr("alice"), // unchanged, must not appear in the diff
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if savedChange.Name == nil || *savedChange.Name != "Alicia" {
		t.Errorf("change.Name = %v", savedChange.Name)
	}
	if savedChange.Username != nil {
		t.Error("unchanged username leaked into the identity diff")
	}
}

func TestProfileUpdateValidation(t *testing.T) {
	svc := &ProfilesService{
		Profiles: &stubProfilesStore{
			t: t,
			getProfileFunc: func(context.Context, string) (domain.Profile, error) {
				return domain.Profile{UserID: "u1", Username: "alice", Name: "Alice"}, nil
			},
		},
	}

	_, err := svc.Update(context.Background(), "u1", domain.ProfilePatch{Username: strPtr("No!")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	_, err = svc.Update(context.Background(), "u1", domain.ProfilePatch{Name: strPtr("  ")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestProfileGetPublicRequiresFriendship(t *testing.T) {
	profiles := &stubProfilesStore{
		t: t,
		getProfileFunc: func(_ context.Context, id string) (domain.Profile, error) {
			return domain.Profile{
				UserID:   id,
				Username: "u-" + id,
				Name:     "N " + id,
				Location: "Berlin",
				Summary:  "private AI text",
			}, nil
		},
	}

	svc := &ProfilesService{
		Profiles: profiles,
		Friendships: &stubFriendshipsStore{
			t: t,
			getByPairKeyFunc: func(context.Context, string) (domain.Friendship, error) {
				return domain.Friendship{}, domain.ErrNotFound
			},
		},
	}
	if _, err := svc.GetPublic(context.Background(), "alice", "bob"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}

	svc.Friendships = &stubFriendshipsStore{
		t: t,
		getByPairKeyFunc: func(context.Context, string) (domain.Friendship, error) {
			return domain.Friendship{Status: domain.FriendshipAccepted}, nil
		},
	}
	pub, err := svc.GetPublic(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("GetPublic returned error: %v", err)
	}
	if pub.Username != "u-bob" || pub.Location != "Berlin" {
		t.Errorf("public profile = %+v", pub)
	}

	if _, err := svc.GetPublic(context.Background(), "alice", "alice"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("self lookup err = %v, want validation", err)
	}
}
