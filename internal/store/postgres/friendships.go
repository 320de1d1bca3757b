package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"villageserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type FriendshipsStore struct {
	db DBTX
}

func NewFriendshipsStore(db DBTX) *FriendshipsStore {
	return &FriendshipsStore{db: db}
}

func (s *FriendshipsStore) WithTx(tx pgx.Tx) *FriendshipsStore {
	return &FriendshipsStore{db: tx}
}

const friendshipColumns = `
	pair_key, sender_id, sender, receiver_id, receiver, status, members, created_at, updated_at
`

func (s *FriendshipsStore) GetByPairKey(ctx context.Context, pairKey string) (domain.Friendship, error) {
	const q = `SELECT ` + friendshipColumns + ` FROM friendships WHERE pair_key = $1`

	f, err := scanFriendship(s.db.QueryRow(ctx, q, pairKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Friendship{}, domain.ErrNotFound
		}
		return domain.Friendship{}, fmt.Errorf("get friendship: %w", err)
	}
	return f, nil
}

func (s *FriendshipsStore) CreatePending(ctx context.Context, f domain.Friendship) (domain.Friendship, error) {
	const q = `
		INSERT INTO friendships (pair_key, sender_id, sender, receiver_id, receiver, status, members)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		RETURNING ` + friendshipColumns

	created, err := scanFriendship(s.db.QueryRow(ctx, q,
		f.PairKey, f.SenderID, f.Sender, f.ReceiverID, f.Receiver, f.Members,
	))
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23505" {
			// Lost a race with a concurrent request for the same pair.
			return domain.Friendship{}, domain.ErrRequestAlreadySent
		}
		return domain.Friendship{}, fmt.Errorf("create friendship: %w", err)
	}
	return created, nil
}

// UpsertAccepted writes an accepted friendship directly, the entry path used
// by join-request acceptance. Re-running it against an existing row only
// bumps status/updated_at, so re-processing a request is safe.
func (s *FriendshipsStore) UpsertAccepted(ctx context.Context, f domain.Friendship, when time.Time) error {
	const q = `
		INSERT INTO friendships (pair_key, sender_id, sender, receiver_id, receiver, status, members, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'accepted', $6, $7)
		ON CONFLICT (pair_key) DO UPDATE SET
			status = 'accepted',
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.Exec(ctx, q, f.PairKey, f.SenderID, f.Sender, f.ReceiverID, f.Receiver, f.Members, when)
	if err != nil {
		return fmt.Errorf("upsert accepted friendship: %w", err)
	}
	return nil
}

func (s *FriendshipsStore) Accept(ctx context.Context, pairKey string, when time.Time) error {
	const q = `
		UPDATE friendships
		SET status = 'accepted', updated_at = $2
		WHERE pair_key = $1 AND status = 'pending'
	`

	ct, err := s.db.Exec(ctx, q, pairKey, when)
	if err != nil {
		return fmt.Errorf("accept friendship: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNoPendingRequest
	}
	return nil
}

func (s *FriendshipsStore) ListForUser(ctx context.Context, userID string) ([]domain.Friendship, error) {
	const q = `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE members @> ARRAY[$1]
		ORDER BY created_at DESC
	`
	return s.queryFriendships(ctx, q, userID)
}

// ListAcceptedAmong returns every accepted friendship touching at least one
// of the probed ids. The probe slice is capped by the clique validator's
// batch size; a friendship is found as long as either endpoint appears in
// some probe batch.
func (s *FriendshipsStore) ListAcceptedAmong(ctx context.Context, probe []string) ([]domain.Friendship, error) {
	const q = `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE status = 'accepted' AND members && $1
	`
	return s.queryFriendships(ctx, q, probe)
}

// PropagateSnapshot rewrites the denormalized profile fields on every
// friendship where the user appears, each side independently. Runs inside
// the profile update transaction.
func (s *FriendshipsStore) PropagateSnapshot(ctx context.Context, userID string, change domain.IdentityChange) error {
	patch := snapshotPatch(change)
	if patch == nil {
		return nil
	}

	const qSender = `
		UPDATE friendships SET sender = sender || $2, updated_at = now()
		WHERE sender_id = $1
	`
	if _, err := s.db.Exec(ctx, qSender, userID, patch); err != nil {
		return fmt.Errorf("propagate friendship sender snapshot: %w", err)
	}

	const qReceiver = `
		UPDATE friendships SET receiver = receiver || $2, updated_at = now()
		WHERE receiver_id = $1
	`
	if _, err := s.db.Exec(ctx, qReceiver, userID, patch); err != nil {
		return fmt.Errorf("propagate friendship receiver snapshot: %w", err)
	}
	return nil
}

func (s *FriendshipsStore) queryFriendships(ctx context.Context, q string, args ...any) ([]domain.Friendship, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}
	defer rows.Close()

	var out []domain.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friendship: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}
	return out, nil
}

func scanFriendship(row pgx.Row) (domain.Friendship, error) {
	var (
		f        domain.Friendship
		sender   pgtype.UUID
		receiver pgtype.UUID
		members  pgtype.FlatArray[string]
	)
	err := row.Scan(
		&f.PairKey,
		&sender,
		&f.Sender,
		&receiver,
		&f.Receiver,
		&f.Status,
		&members,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return domain.Friendship{}, err
	}

	f.SenderID = uuidOrEmpty(sender)
	f.ReceiverID = uuidOrEmpty(receiver)
	f.Members = textArrayOrEmpty(members)
	return f, nil
}

// snapshotPatch turns an identity change into the jsonb merge patch applied
// to denormalized ProfileSnapshot columns.
func snapshotPatch(change domain.IdentityChange) map[string]any {
	if change.Empty() {
		return nil
	}
	patch := map[string]any{}
	if change.Username != nil {
		patch["username"] = *change.Username
	}
	if change.Name != nil {
		patch["name"] = *change.Name
	}
	if change.Avatar != nil {
		patch["avatar"] = *change.Avatar
	}
	return patch
}
