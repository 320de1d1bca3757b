package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"villageserver/internal/domain"
)

// Generator produces the AI text fields. Each method gets the previous
// rolling text of the same kind, the new update content, and the update's
// sentiment, and returns the replacement text.
type Generator interface {
	Summary(ctx context.Context, previous, update, sentiment string) (string, error)
	Suggestions(ctx context.Context, previous, update, sentiment string) (string, error)
	Insights(ctx context.Context, previous, update, sentiment string) (string, error)
}

type SummaryUpdatesStore interface {
	GetUpdate(ctx context.Context, id string) (domain.Update, error)
}

type PairSummariesStore interface {
	GetPairSummary(ctx context.Context, pairKey string) (domain.PairSummary, error)
}

// SummariesTx commits the creator's AI fields and all pair-summary rows as
// one transaction.
type SummariesTx interface {
	ApplyPairSummaries(ctx context.Context, summaries []domain.PairSummary, creatorID, summary, suggestions string, insights domain.Insights, when time.Time) error
}

// SummaryService is the worker side of the summary fan-out: it turns one
// update into refreshed AI text for the creator and for every friend the
// update was shared with.
type SummaryService struct {
	Profiles  ProfilesReader
	Updates   SummaryUpdatesStore
	Pairs     PairSummariesStore
	Tx        SummariesTx
	Generator Generator
	Logger    *slog.Logger
	Now       func() time.Time
}

func (s *SummaryService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SummaryService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Process handles one queued update. A missing update or creator profile is
// logged and dropped rather than retried. All generator calls run
// concurrently and any failure aborts the task before a single row is
// written; the whole write then commits in one transaction. Re-delivery is
// safe: pair rows already stamped with this update id are not applied
// again.
func (s *SummaryService) Process(ctx context.Context, updateID string) error {
	u, err := s.Updates.GetUpdate(ctx, updateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger().Warn("summaries: update gone, dropping task", "update_id", updateID)
			return nil
		}
		return err
	}

	profile, err := s.Profiles.GetProfile(ctx, u.CreatedBy)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger().Warn("summaries: creator profile gone, dropping task", "update_id", updateID, "user_id", u.CreatedBy)
			return nil
		}
		return err
	}

	// Previous pair rows are loaded up front; a pair already stamped with
	// this update id was handled by an earlier delivery and is skipped.
	type pairWork struct {
		targetID string
		previous domain.PairSummary
	}
	var work []pairWork
	for _, friendID := range u.FriendIDs {
		prev, err := s.Pairs.GetPairSummary(ctx, domain.PairKey(u.CreatedBy, friendID))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if prev.LastUpdateID == u.ID {
			continue
		}
		work = append(work, pairWork{targetID: friendID, previous: prev})
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	run := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	var summary, suggestions, insightsText string
	run(func() (err error) {
		summary, err = s.Generator.Summary(ctx, profile.Summary, u.Content, u.Sentiment)
		return err
	})
	run(func() (err error) {
		suggestions, err = s.Generator.Suggestions(ctx, profile.Suggestions, u.Content, u.Sentiment)
		return err
	})
	run(func() (err error) {
		insightsText, err = s.Generator.Insights(ctx, profile.Insights.Text, u.Content, u.Sentiment)
		return err
	})

	pairs := make([]domain.PairSummary, len(work))
	for i, w := range work {
		run(func() error {
			pairSummary, err := s.Generator.Summary(ctx, w.previous.Summary, u.Content, u.Sentiment)
			if err != nil {
				return err
			}
			pairSuggestions, err := s.Generator.Suggestions(ctx, w.previous.Suggestions, u.Content, u.Sentiment)
			if err != nil {
				return err
			}
			pairs[i] = domain.PairSummary{
				PairKey:      domain.PairKey(u.CreatedBy, w.targetID),
				CreatorID:    u.CreatedBy,
				TargetID:     w.targetID,
				Summary:      pairSummary,
				Suggestions:  pairSuggestions,
				LastUpdateID: u.ID,
			}
			return nil
		})
	}

	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	now := s.now()
	insights := domain.Insights{
		Text:         insightsText,
		LastUpdateID: u.ID,
		UpdatedAt:    now,
	}
	return s.Tx.ApplyPairSummaries(ctx, pairs, u.CreatedBy, summary, suggestions, insights, now)
}
