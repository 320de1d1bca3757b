package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villageserver/internal/domain"
)

// testPool connects to the database named by APP_TEST_DB_DSN. Tests that
// need a live postgres with db/schema.sql applied are skipped without it.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("APP_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("APP_TEST_DB_DSN not set")
	}
	pool, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestGroupsPropagateSnapshotRewritesByUserID(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)
	store := NewGroupsStore(pool)

	alice := uuid.NewString()
	bob := uuid.NewString()
	carol := uuid.NewString()

	// alice is deliberately not first in the list: the rewrite must match
	// on user_id, not position.
	shared, err := store.CreateGroup(ctx, domain.Group{
		ID:      uuid.NewString(),
		Name:    "book club",
		Members: []string{bob, alice},
		MemberProfiles: []domain.ProfileSnapshot{
			{UserID: bob, Username: "bob", Name: "Bob"},
			{UserID: alice, Username: "alice", Name: "Alice"},
		},
		CreatedBy: bob,
	})
	require.NoError(t, err)

	other, err := store.CreateGroup(ctx, domain.Group{
		ID:      uuid.NewString(),
		Name:    "hiking",
		Members: []string{bob, carol},
		MemberProfiles: []domain.ProfileSnapshot{
			{UserID: bob, Username: "bob", Name: "Bob"},
			{UserID: carol, Username: "carol", Name: "Carol"},
		},
		CreatedBy: carol,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM groups WHERE id = ANY($1)`, []string{shared.ID, other.ID})
	})

	newName := "Alice Q."
	newAvatar := "https://cdn.example.com/alice.png"
	require.NoError(t, store.PropagateSnapshot(ctx, alice, domain.IdentityChange{
		Name:   &newName,
		Avatar: &newAvatar,
	}))

	got, err := store.GetGroup(ctx, shared.ID)
	require.NoError(t, err)
	require.Len(t, got.MemberProfiles, 2)
	byID := make(map[string]domain.ProfileSnapshot, 2)
	for _, mp := range got.MemberProfiles {
		byID[mp.UserID] = mp
	}
	assert.Equal(t, "Alice Q.", byID[alice].Name)
	assert.Equal(t, newAvatar, byID[alice].Avatar)
	assert.Equal(t, "alice", byID[alice].Username, "unpatched field survives")
	assert.Equal(t, domain.ProfileSnapshot{UserID: bob, Username: "bob", Name: "Bob"}, byID[bob])

	untouched, err := store.GetGroup(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.MemberProfiles, untouched.MemberProfiles, "groups without the user stay as they were")

	// An empty change writes nothing.
	require.NoError(t, store.PropagateSnapshot(ctx, alice, domain.IdentityChange{}))
	again, err := store.GetGroup(ctx, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, got.MemberProfiles, again.MemberProfiles)
}
