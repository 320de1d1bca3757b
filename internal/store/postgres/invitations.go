package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"villageserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type InvitationsStore struct {
	db DBTX
}

func NewInvitationsStore(db DBTX) *InvitationsStore {
	return &InvitationsStore{db: db}
}

func (s *InvitationsStore) WithTx(tx pgx.Tx) *InvitationsStore {
	return &InvitationsStore{db: tx}
}

const invitationColumns = `
	id, sender_id, sender, status, created_at, expires_at
`

// UpsertInvitation creates the sender's invitation, or refreshes the
// existing one in place (same id, new timestamps, status back to pending).
func (s *InvitationsStore) UpsertInvitation(ctx context.Context, inv domain.Invitation) (domain.Invitation, error) {
	const q = `
		INSERT INTO invitations (id, sender_id, sender, status, created_at, expires_at)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		ON CONFLICT (sender_id) DO UPDATE SET
			sender = EXCLUDED.sender,
			status = 'pending',
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		RETURNING ` + invitationColumns

	row := s.db.QueryRow(ctx, q, inv.ID, inv.SenderID, inv.Sender, inv.CreatedAt, inv.ExpiresAt)
	created, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("upsert invitation: %w", err)
	}
	return created, nil
}

func (s *InvitationsStore) GetInvitation(ctx context.Context, id string) (domain.Invitation, error) {
	const q = `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`

	inv, err := scanInvitation(s.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Invitation{}, domain.ErrNotFound
		}
		return domain.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

func (s *InvitationsStore) ListBySender(ctx context.Context, senderID string) ([]domain.Invitation, error) {
	const q = `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE sender_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, q, senderID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return out, nil
}

// MarkExpired is the lazy-expiry correction: pending invitations past their
// TTL are flipped to expired the first time a read notices.
func (s *InvitationsStore) MarkExpired(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	const q = `
		UPDATE invitations
		SET status = 'expired'
		WHERE id = ANY($1) AND status = 'pending'
	`
	if _, err := s.db.Exec(ctx, q, ids); err != nil {
		return fmt.Errorf("mark invitations expired: %w", err)
	}
	return nil
}

func (s *InvitationsStore) Refresh(ctx context.Context, id string, createdAt, expiresAt time.Time) error {
	const q = `
		UPDATE invitations
		SET status = 'pending', created_at = $2, expires_at = $3
		WHERE id = $1
	`

	ct, err := s.db.Exec(ctx, q, id, createdAt, expiresAt)
	if err != nil {
		return fmt.Errorf("refresh invitation: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *InvitationsStore) DeleteInvitation(ctx context.Context, id string) error {
	const q = `DELETE FROM invitations WHERE id = $1`
	if _, err := s.db.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return nil
}

func (s *InvitationsStore) PropagateSnapshot(ctx context.Context, userID string, change domain.IdentityChange) error {
	patch := snapshotPatch(change)
	if patch == nil {
		return nil
	}

	const q = `
		UPDATE invitations SET sender = sender || $2
		WHERE sender_id = $1
	`
	if _, err := s.db.Exec(ctx, q, userID, patch); err != nil {
		return fmt.Errorf("propagate invitation snapshot: %w", err)
	}
	return nil
}

func scanInvitation(row pgx.Row) (domain.Invitation, error) {
	var (
		inv    domain.Invitation
		idUUID pgtype.UUID
		sender pgtype.UUID
	)
	err := row.Scan(
		&idUUID,
		&sender,
		&inv.Sender,
		&inv.Status,
		&inv.CreatedAt,
		&inv.ExpiresAt,
	)
	if err != nil {
		return domain.Invitation{}, err
	}

	inv.ID = uuidOrEmpty(idUUID)
	inv.SenderID = uuidOrEmpty(sender)
	return inv, nil
}
