package postgres

import (
	"context"
	"errors"
	"fmt"

	"villageserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type GroupsStore struct {
	db DBTX
}

func NewGroupsStore(db DBTX) *GroupsStore {
	return &GroupsStore{db: db}
}

func (s *GroupsStore) WithTx(tx pgx.Tx) *GroupsStore {
	return &GroupsStore{db: tx}
}

const groupColumns = `
	id, name, icon, members, member_profiles, created_by, created_at
`

func (s *GroupsStore) CreateGroup(ctx context.Context, g domain.Group) (domain.Group, error) {
	const q = `
		INSERT INTO groups (id, name, icon, members, member_profiles, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + groupColumns

	created, err := scanGroup(s.db.QueryRow(ctx, q,
		g.ID, g.Name, nullIfEmpty(g.Icon), g.Members, g.MemberProfiles, g.CreatedBy,
	))
	if err != nil {
		return domain.Group{}, fmt.Errorf("create group: %w", err)
	}
	return created, nil
}

func (s *GroupsStore) GetGroup(ctx context.Context, id string) (domain.Group, error) {
	const q = `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`

	g, err := scanGroup(s.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Group{}, domain.ErrNotFound
		}
		return domain.Group{}, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (s *GroupsStore) ListForUser(ctx context.Context, userID string) ([]domain.Group, error) {
	const q = `
		SELECT ` + groupColumns + `
		FROM groups
		WHERE members @> ARRAY[$1]
		ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return out, nil
}

func (s *GroupsStore) AddMembers(ctx context.Context, groupID string, memberIDs []string, profiles []domain.ProfileSnapshot) error {
	const q = `
		UPDATE groups
		SET members = members || $2, member_profiles = member_profiles || $3
		WHERE id = $1
	`

	ct, err := s.db.Exec(ctx, q, groupID, memberIDs, profiles)
	if err != nil {
		return fmt.Errorf("add group members: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PropagateSnapshot rewrites the member_profiles entry belonging to the
// user in every group that contains them. The entry is matched by user_id
// inside the jsonb list; list position is never trusted.
func (s *GroupsStore) PropagateSnapshot(ctx context.Context, userID string, change domain.IdentityChange) error {
	patch := snapshotPatch(change)
	if patch == nil {
		return nil
	}

	const q = `
		UPDATE groups
		SET member_profiles = (
			SELECT COALESCE(jsonb_agg(
				CASE WHEN mp->>'user_id' = $1 THEN mp || $2 ELSE mp END
			), '[]'::jsonb)
			FROM jsonb_array_elements(member_profiles) AS mp
		)
		WHERE members @> ARRAY[$1]
	`
	if _, err := s.db.Exec(ctx, q, userID, patch); err != nil {
		return fmt.Errorf("propagate group member snapshot: %w", err)
	}
	return nil
}

func scanGroup(row pgx.Row) (domain.Group, error) {
	var (
		g         domain.Group
		idUUID    pgtype.UUID
		icon      pgtype.Text
		members   pgtype.FlatArray[string]
		createdBy pgtype.UUID
	)
	err := row.Scan(
		&idUUID,
		&g.Name,
		&icon,
		&members,
		&g.MemberProfiles,
		&createdBy,
		&g.CreatedAt,
	)
	if err != nil {
		return domain.Group{}, err
	}

	g.ID = uuidOrEmpty(idUUID)
	g.Icon = textOrEmpty(icon)
	g.Members = textArrayOrEmpty(members)
	g.CreatedBy = uuidOrEmpty(createdBy)
	return g, nil
}
