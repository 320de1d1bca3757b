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

type ProfilesStore struct {
	db DBTX
}

func NewProfilesStore(db DBTX) *ProfilesStore {
	return &ProfilesStore{db: db}
}

func (s *ProfilesStore) WithTx(tx pgx.Tx) *ProfilesStore {
	return &ProfilesStore{db: tx}
}

const profileColumns = `
	user_id, username, name, avatar, location, birthday,
	notification_settings, group_ids, summary, suggestions, insights,
	created_at, updated_at
`

func (s *ProfilesStore) CreateProfile(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	const q = `
		INSERT INTO profiles (user_id, username, name, avatar, location, birthday, notification_settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + profileColumns

	created, err := scanProfile(s.db.QueryRow(ctx, q,
		p.UserID,
		p.Username,
		p.Name,
		nullIfEmpty(p.Avatar),
		nullIfEmpty(p.Location),
		nullIfEmpty(p.Birthday),
		p.Notification,
	))
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23505" {
			switch pgerr.ConstraintName {
			case "profiles_pkey":
				return domain.Profile{}, domain.ErrProfileExists
			case "profiles_username_uq":
				return domain.Profile{}, domain.ErrUsernameTaken
			}
		}
		return domain.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return created, nil
}

func (s *ProfilesStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	p, err := scanProfile(s.db.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, domain.ErrNotFound
		}
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfilesStore) GetProfiles(ctx context.Context, userIDs []string) ([]domain.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = ANY($1)`

	rows, err := s.db.Query(ctx, q, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	return out, nil
}

// SaveProfile writes the mutable non-AI columns. The service computes the
// final field values from its diff; fan-out to denormalized snapshots is the
// caller's responsibility and must share this store's transaction.
func (s *ProfilesStore) SaveProfile(ctx context.Context, p domain.Profile, when time.Time) error {
	const q = `
		UPDATE profiles
		SET username = $2, name = $3, avatar = $4, location = $5, birthday = $6,
		    notification_settings = $7, updated_at = $8
		WHERE user_id = $1
	`

	ct, err := s.db.Exec(ctx, q,
		p.UserID,
		p.Username,
		p.Name,
		nullIfEmpty(p.Avatar),
		nullIfEmpty(p.Location),
		nullIfEmpty(p.Birthday),
		p.Notification,
		when,
	)
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23505" && pgerr.ConstraintName == "profiles_username_uq" {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("save profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendGroup records group membership on the profile document. Appending an
// already-present id is a no-op.
func (s *ProfilesStore) AppendGroup(ctx context.Context, userID, groupID string) error {
	const q = `
		UPDATE profiles
		SET group_ids = array_append(group_ids, $2), updated_at = now()
		WHERE user_id = $1 AND NOT (group_ids @> ARRAY[$2])
	`
	if _, err := s.db.Exec(ctx, q, userID, groupID); err != nil {
		return fmt.Errorf("append group to profile: %w", err)
	}
	return nil
}

// SetAIFields stores the regenerated rolling summary, suggestions and
// insights sub-document for the creator of an update.
func (s *ProfilesStore) SetAIFields(ctx context.Context, userID, summary, suggestions string, insights domain.Insights, when time.Time) error {
	const q = `
		UPDATE profiles
		SET summary = $2, suggestions = $3, insights = $4, updated_at = $5
		WHERE user_id = $1
	`

	ct, err := s.db.Exec(ctx, q, userID, summary, suggestions, insights, when)
	if err != nil {
		return fmt.Errorf("set profile ai fields: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var (
		p        domain.Profile
		userUUID pgtype.UUID
		avatar   pgtype.Text
		location pgtype.Text
		birthday pgtype.Text
		summary  pgtype.Text
		suggest  pgtype.Text
		groups   pgtype.FlatArray[string]
	)
	err := row.Scan(
		&userUUID,
		&p.Username,
		&p.Name,
		&avatar,
		&location,
		&birthday,
		&p.Notification,
		&groups,
		&summary,
		&suggest,
		&p.Insights,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Profile{}, err
	}

	p.UserID = uuidOrEmpty(userUUID)
	p.Avatar = textOrEmpty(avatar)
	p.Location = textOrEmpty(location)
	p.Birthday = textOrEmpty(birthday)
	p.Summary = textOrEmpty(summary)
	p.Suggestions = textOrEmpty(suggest)
	p.GroupIDs = textArrayOrEmpty(groups)
	return p, nil
}
