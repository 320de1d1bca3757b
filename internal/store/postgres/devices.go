package postgres

import (
	"context"
	"fmt"
	"time"

	"villageserver/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
)

type DevicesStore struct {
	db DBTX
}

func NewDevicesStore(db DBTX) *DevicesStore {
	return &DevicesStore{db: db}
}

func (s *DevicesStore) UpsertDevice(ctx context.Context, userID, token, platform string, when time.Time) (domain.Device, error) {
	const q = `
		INSERT INTO devices (user_id, token, platform, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (token)
		DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, token, platform, created_at, updated_at
	`

	var (
		d        domain.Device
		idUUID   pgtype.UUID
		userUUID pgtype.UUID
	)
	err := s.db.QueryRow(ctx, q, userID, token, platform, when).Scan(
		&idUUID,
		&userUUID,
		&d.Token,
		&d.Platform,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return domain.Device{}, fmt.Errorf("upsert device: %w", err)
	}

	d.ID = uuidOrEmpty(idUUID)
	d.UserID = uuidOrEmpty(userUUID)
	return d, nil
}

func (s *DevicesStore) DeleteDevice(ctx context.Context, userID, token string) error {
	const q = `
		DELETE FROM devices
		WHERE user_id = $1 AND token = $2
	`
	if _, err := s.db.Exec(ctx, q, userID, token); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}

func (s *DevicesStore) ListDevices(ctx context.Context, userID string) ([]domain.Device, error) {
	const q = `
		SELECT id, user_id, token, platform, created_at, updated_at
		FROM devices
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var out []domain.Device
	for rows.Next() {
		var (
			d        domain.Device
			idUUID   pgtype.UUID
			userUUID pgtype.UUID
		)
		if err := rows.Scan(&idUUID, &userUUID, &d.Token, &d.Platform, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		d.ID = uuidOrEmpty(idUUID)
		d.UserID = uuidOrEmpty(userUUID)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return out, nil
}
