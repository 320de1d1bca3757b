package postgres

import (
	"context"
	"errors"
	"fmt"

	"villageserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type UpdatesStore struct {
	db DBTX
}

func NewUpdatesStore(db DBTX) *UpdatesStore {
	return &UpdatesStore{db: db}
}

const updateColumns = `
	id, created_by, content, sentiment, friend_ids, group_ids, visible_to, created_at
`

func (s *UpdatesStore) CreateUpdate(ctx context.Context, u domain.Update) (domain.Update, error) {
	const q = `
		INSERT INTO updates (id, created_by, content, sentiment, friend_ids, group_ids, visible_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + updateColumns

	created, err := scanUpdate(s.db.QueryRow(ctx, q,
		u.ID, u.CreatedBy, u.Content, nullIfEmpty(u.Sentiment), u.FriendIDs, u.GroupIDs, u.VisibleTo,
	))
	if err != nil {
		return domain.Update{}, fmt.Errorf("create update: %w", err)
	}
	return created, nil
}

func (s *UpdatesStore) GetUpdate(ctx context.Context, id string) (domain.Update, error) {
	const q = `SELECT ` + updateColumns + ` FROM updates WHERE id = $1`

	u, err := scanUpdate(s.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Update{}, domain.ErrNotFound
		}
		return domain.Update{}, fmt.Errorf("get update: %w", err)
	}
	return u, nil
}

func (s *UpdatesStore) ListByCreator(ctx context.Context, creatorID string, page domain.Page) ([]domain.Update, error) {
	const q = `
		SELECT ` + updateColumns + `
		FROM updates
		WHERE created_by = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	return s.queryUpdates(ctx, q, creatorID, page.After, page.Limit)
}

// ListVisibleTo serves the group feed: every update carrying the exact
// visibility token.
func (s *UpdatesStore) ListVisibleTo(ctx context.Context, token string, page domain.Page) ([]domain.Update, error) {
	const q = `
		SELECT ` + updateColumns + `
		FROM updates
		WHERE visible_to @> ARRAY[$1] AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	return s.queryUpdates(ctx, q, token, page.After, page.Limit)
}

// ListVisibleToAny serves the aggregate feed: updates whose visibility index
// intersects any of the caller's tokens.
func (s *UpdatesStore) ListVisibleToAny(ctx context.Context, tokens []string, page domain.Page) ([]domain.Update, error) {
	const q = `
		SELECT ` + updateColumns + `
		FROM updates
		WHERE visible_to && $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	return s.queryUpdates(ctx, q, tokens, page.After, page.Limit)
}

// ListByCreatorVisibleTo serves a friend reading another user's updates:
// only the target's updates that were shared with the caller.
func (s *UpdatesStore) ListByCreatorVisibleTo(ctx context.Context, creatorID, token string, page domain.Page) ([]domain.Update, error) {
	const q = `
		SELECT ` + updateColumns + `
		FROM updates
		WHERE created_by = $1 AND visible_to @> ARRAY[$2]
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC
		LIMIT $4
	`
	return s.queryUpdates(ctx, q, creatorID, token, page.After, page.Limit)
}

func (s *UpdatesStore) queryUpdates(ctx context.Context, q string, args ...any) ([]domain.Update, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	defer rows.Close()

	var out []domain.Update
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	return out, nil
}

func scanUpdate(row pgx.Row) (domain.Update, error) {
	var (
		u         domain.Update
		idUUID    pgtype.UUID
		createdBy pgtype.UUID
		sentiment pgtype.Text
		friends   pgtype.FlatArray[string]
		groups    pgtype.FlatArray[string]
		visible   pgtype.FlatArray[string]
	)
	err := row.Scan(
		&idUUID,
		&createdBy,
		&u.Content,
		&sentiment,
		&friends,
		&groups,
		&visible,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.Update{}, err
	}

	u.ID = uuidOrEmpty(idUUID)
	u.CreatedBy = uuidOrEmpty(createdBy)
	u.Sentiment = textOrEmpty(sentiment)
	u.FriendIDs = textArrayOrEmpty(friends)
	u.GroupIDs = textArrayOrEmpty(groups)
	u.VisibleTo = textArrayOrEmpty(visible)
	return u, nil
}
