package postgres

import (
	"context"
	"errors"
	"fmt"

	"villageserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type JoinRequestsStore struct {
	db DBTX
}

func NewJoinRequestsStore(db DBTX) *JoinRequestsStore {
	return &JoinRequestsStore{db: db}
}

func (s *JoinRequestsStore) WithTx(tx pgx.Tx) *JoinRequestsStore {
	return &JoinRequestsStore{db: tx}
}

const joinRequestColumns = `
	id, invitation_id, requester_id, requester, receiver_id, receiver, status, created_at
`

func (s *JoinRequestsStore) CreateJoinRequest(ctx context.Context, jr domain.JoinRequest) (domain.JoinRequest, error) {
	const q = `
		INSERT INTO join_requests (id, invitation_id, requester_id, requester, receiver_id, receiver, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING ` + joinRequestColumns

	created, err := scanJoinRequest(s.db.QueryRow(ctx, q,
		jr.ID, jr.InvitationID, jr.RequesterID, jr.Requester, jr.ReceiverID, jr.Receiver,
	))
	if err != nil {
		return domain.JoinRequest{}, fmt.Errorf("create join request: %w", err)
	}
	return created, nil
}

func (s *JoinRequestsStore) GetJoinRequest(ctx context.Context, id string) (domain.JoinRequest, error) {
	const q = `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE id = $1`

	jr, err := scanJoinRequest(s.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.JoinRequest{}, domain.ErrNotFound
		}
		return domain.JoinRequest{}, fmt.Errorf("get join request: %w", err)
	}
	return jr, nil
}

func (s *JoinRequestsStore) ListForReceiver(ctx context.Context, receiverID string) ([]domain.JoinRequest, error) {
	const q = `
		SELECT ` + joinRequestColumns + `
		FROM join_requests
		WHERE receiver_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, q, receiverID)
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	defer rows.Close()

	var out []domain.JoinRequest
	for rows.Next() {
		jr, err := scanJoinRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan join request: %w", err)
		}
		out = append(out, jr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	return out, nil
}

func (s *JoinRequestsStore) SetStatus(ctx context.Context, id string, status domain.JoinRequestStatus) error {
	const q = `UPDATE join_requests SET status = $2 WHERE id = $1`

	ct, err := s.db.Exec(ctx, q, id, status)
	if err != nil {
		return fmt.Errorf("set join request status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeletePendingByInvitation removes outstanding requests against an
// invitation being reset. Accepted and rejected requests are history and
// stay put.
func (s *JoinRequestsStore) DeletePendingByInvitation(ctx context.Context, invitationID string) error {
	const q = `DELETE FROM join_requests WHERE invitation_id = $1 AND status = 'pending'`
	if _, err := s.db.Exec(ctx, q, invitationID); err != nil {
		return fmt.Errorf("delete pending join requests: %w", err)
	}
	return nil
}

func (s *JoinRequestsStore) PropagateSnapshot(ctx context.Context, userID string, change domain.IdentityChange) error {
	patch := snapshotPatch(change)
	if patch == nil {
		return nil
	}

	const qRequester = `
		UPDATE join_requests SET requester = requester || $2
		WHERE requester_id = $1
	`
	if _, err := s.db.Exec(ctx, qRequester, userID, patch); err != nil {
		return fmt.Errorf("propagate join request requester snapshot: %w", err)
	}

	const qReceiver = `
		UPDATE join_requests SET receiver = receiver || $2
		WHERE receiver_id = $1
	`
	if _, err := s.db.Exec(ctx, qReceiver, userID, patch); err != nil {
		return fmt.Errorf("propagate join request receiver snapshot: %w", err)
	}
	return nil
}

func scanJoinRequest(row pgx.Row) (domain.JoinRequest, error) {
	var (
		jr        domain.JoinRequest
		idUUID    pgtype.UUID
		invUUID   pgtype.UUID
		requester pgtype.UUID
		receiver  pgtype.UUID
	)
	err := row.Scan(
		&idUUID,
		&invUUID,
		&requester,
		&jr.Requester,
		&receiver,
		&jr.Receiver,
		&jr.Status,
		&jr.CreatedAt,
	)
	if err != nil {
		return domain.JoinRequest{}, err
	}

	jr.ID = uuidOrEmpty(idUUID)
	jr.InvitationID = uuidOrEmpty(invUUID)
	jr.RequesterID = uuidOrEmpty(requester)
	jr.ReceiverID = uuidOrEmpty(receiver)
	return jr, nil
}
