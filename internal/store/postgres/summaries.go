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

type SummariesStore struct {
	db DBTX
}

func NewSummariesStore(db DBTX) *SummariesStore {
	return &SummariesStore{db: db}
}

func (s *SummariesStore) WithTx(tx pgx.Tx) *SummariesStore {
	return &SummariesStore{db: tx}
}

const pairSummaryColumns = `
	pair_key, creator_id, target_id, summary, suggestions, last_update_id, update_count, created_at, updated_at
`

func (s *SummariesStore) GetPairSummary(ctx context.Context, pairKey string) (domain.PairSummary, error) {
	const q = `SELECT ` + pairSummaryColumns + ` FROM pair_summaries WHERE pair_key = $1`

	ps, err := scanPairSummary(s.db.QueryRow(ctx, q, pairKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PairSummary{}, domain.ErrNotFound
		}
		return domain.PairSummary{}, fmt.Errorf("get pair summary: %w", err)
	}
	return ps, nil
}

// UpsertPairSummary merges the regenerated rolling text for one pair. The
// update-id guard keeps re-delivered fan-out tasks from double-counting: a
// row already stamped with this update is left untouched.
func (s *SummariesStore) UpsertPairSummary(ctx context.Context, ps domain.PairSummary, when time.Time) error {
	const q = `
		INSERT INTO pair_summaries (pair_key, creator_id, target_id, summary, suggestions, last_update_id, update_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
		ON CONFLICT (pair_key) DO UPDATE SET
			creator_id = EXCLUDED.creator_id,
			target_id = EXCLUDED.target_id,
			summary = EXCLUDED.summary,
			suggestions = EXCLUDED.suggestions,
			last_update_id = EXCLUDED.last_update_id,
			update_count = pair_summaries.update_count + 1,
			updated_at = EXCLUDED.updated_at
		WHERE pair_summaries.last_update_id IS DISTINCT FROM EXCLUDED.last_update_id
	`

	_, err := s.db.Exec(ctx, q,
		ps.PairKey, ps.CreatorID, ps.TargetID, ps.Summary,
		nullIfEmpty(ps.Suggestions), ps.LastUpdateID, when,
	)
	if err != nil {
		return fmt.Errorf("upsert pair summary: %w", err)
	}
	return nil
}

func scanPairSummary(row pgx.Row) (domain.PairSummary, error) {
	var (
		ps      domain.PairSummary
		creator pgtype.UUID
		target  pgtype.UUID
		suggest pgtype.Text
		lastUpd pgtype.Text
	)
	err := row.Scan(
		&ps.PairKey,
		&creator,
		&target,
		&ps.Summary,
		&suggest,
		&lastUpd,
		&ps.UpdateCount,
		&ps.CreatedAt,
		&ps.UpdatedAt,
	)
	if err != nil {
		return domain.PairSummary{}, err
	}

	ps.CreatorID = uuidOrEmpty(creator)
	ps.TargetID = uuidOrEmpty(target)
	ps.Suggestions = textOrEmpty(suggest)
	ps.LastUpdateID = textOrEmpty(lastUpd)
	return ps, nil
}
