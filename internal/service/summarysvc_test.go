package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"villageserver/internal/domain"
)

func summaryFixture(t *testing.T) (*SummaryService, *stubSummariesTx) {
	tx := &stubSummariesTx{t: t}
	svc := &SummaryService{
		Profiles: &stubProfilesStore{
			t: t,
			getProfileFunc: func(_ context.Context, id string) (domain.Profile, error) {
				return domain.Profile{
					UserID:      id,
					Summary:     "old rolling summary",
					Suggestions: "old rolling suggestions",
				}, nil
			},
		},
		Updates: &stubUpdatesStore{
			t: t,
			getFunc: func(context.Context, string) (domain.Update, error) {
				return domain.Update{
					ID:        "up1",
					CreatedBy: "alice",
					Content:   "ran a marathon",
					Sentiment: "proud",
					FriendIDs: []string{"bob", "carol"},
				}, nil
			},
		},
		Pairs: &stubPairsStore{
			t: t,
			getFunc: func(context.Context, string) (domain.PairSummary, error) {
				return domain.PairSummary{}, domain.ErrNotFound
			},
		},
		Tx:        tx,
		Generator: &stubGenerator{},
		Now:       func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) },
	}
	return svc, tx
}

func TestSummaryProcessFansOutToPairs(t *testing.T) {
	svc, tx := summaryFixture(t)

	var gotPairs []domain.PairSummary
	var gotSummary, gotCreator string
	var gotInsights domain.Insights
	tx.applyFunc = func(_ context.Context, pairs []domain.PairSummary, creatorID, summary, _ string, insights domain.Insights, _ time.Time) error {
		gotPairs = pairs
		gotCreator = creatorID
		gotSummary = summary
		gotInsights = insights
		return nil
	}

	if err := svc.Process(context.Background(), "up1"); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if gotCreator != "alice" {
		t.Errorf("creator = %q", gotCreator)
	}
	if gotSummary != "summary of ran a marathon" {
		t.Errorf("summary = %q", gotSummary)
	}
	if gotInsights.LastUpdateID != "up1" {
		t.Errorf("insights last update id = %q", gotInsights.LastUpdateID)
	}

	if len(gotPairs) != 2 {
		t.Fatalf("pairs = %d, want 2", len(gotPairs))
	}
	sort.Slice(gotPairs, func(i, j int) bool { return gotPairs[i].TargetID < gotPairs[j].TargetID })
	if gotPairs[0].PairKey != "alice_bob" || gotPairs[1].PairKey != "alice_carol" {
		t.Errorf("pair keys = %q, %q", gotPairs[0].PairKey, gotPairs[1].PairKey)
	}
	for _, p := range gotPairs {
		if p.CreatorID != "alice" || p.LastUpdateID != "up1" {
			t.Errorf("pair = %+v", p)
		}
		if p.Summary == "" || p.Suggestions == "" {
			t.Errorf("pair text missing: %+v", p)
		}
	}
}

func TestSummaryProcessFeedsGeneratorPriorTextAndSentiment(t *testing.T) {
	svc, tx := summaryFixture(t)
	svc.Pairs = &stubPairsStore{
		t: t,
		getFunc: func(_ context.Context, pairKey string) (domain.PairSummary, error) {
			if pairKey == domain.PairKey("alice", "bob") {
				return domain.PairSummary{
					PairKey:      pairKey,
					Summary:      "bob pair summary",
					Suggestions:  "bob pair suggestions",
					LastUpdateID: "up0",
				}, nil
			}
			return domain.PairSummary{}, domain.ErrNotFound
		},
	}

	// Generator calls run concurrently, so record them under a lock.
	var mu sync.Mutex
	type call struct{ previous, update, sentiment string }
	var summaryCalls, suggestionCalls []call
	svc.Generator = &stubGenerator{
		summaryFunc: func(_ context.Context, previous, update, sentiment string) (string, error) {
			mu.Lock()
			summaryCalls = append(summaryCalls, call{previous, update, sentiment})
			mu.Unlock()
			return "new summary", nil
		},
		suggestionsFunc: func(_ context.Context, previous, update, sentiment string) (string, error) {
			mu.Lock()
			suggestionCalls = append(suggestionCalls, call{previous, update, sentiment})
			mu.Unlock()
			return "new suggestions", nil
		},
		insightsFunc: func(_ context.Context, _, _, sentiment string) (string, error) {
			if sentiment != "proud" {
				t.Errorf("insights sentiment = %q", sentiment)
			}
			return "new insights", nil
		},
	}
	tx.applyFunc = func(context.Context, []domain.PairSummary, string, string, string, domain.Insights, time.Time) error {
		return nil
	}

	if err := svc.Process(context.Background(), "up1"); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	// Creator text plus one call per shared friend, all carrying the
	// update's sentiment.
	if len(summaryCalls) != 3 || len(suggestionCalls) != 3 {
		t.Fatalf("calls = %d summaries, %d suggestions, want 3 each", len(summaryCalls), len(suggestionCalls))
	}
	for _, c := range append(summaryCalls, suggestionCalls...) {
		if c.update != "ran a marathon" || c.sentiment != "proud" {
			t.Errorf("generator input = %+v", c)
		}
	}

	wantSummaryPrev := map[string]bool{"old rolling summary": true, "bob pair summary": true, "": true}
	for _, c := range summaryCalls {
		if !wantSummaryPrev[c.previous] {
			t.Errorf("summary previous = %q", c.previous)
		}
	}
	// Suggestions must carry the prior suggestions text, never the
	// prior summary text.
	wantSuggestionsPrev := map[string]bool{"old rolling suggestions": true, "bob pair suggestions": true, "": true}
	for _, c := range suggestionCalls {
		if !wantSuggestionsPrev[c.previous] {
			t.Errorf("suggestions previous = %q", c.previous)
		}
	}
}

func TestSummaryProcessSkipsAlreadyStampedPairs(t *testing.T) {
	svc, tx := summaryFixture(t)
	svc.Pairs = &stubPairsStore{
		t: t,
		getFunc: func(_ context.Context, pairKey string) (domain.PairSummary, error) {
			if pairKey == domain.PairKey("alice", "bob") {
				return domain.PairSummary{PairKey: pairKey, LastUpdateID: "up1"}, nil
			}
			return domain.PairSummary{}, domain.ErrNotFound
		},
	}

	var gotPairs []domain.PairSummary
	tx.applyFunc = func(_ context.Context, pairs []domain.PairSummary, _, _, _ string, _ domain.Insights, _ time.Time) error {
		gotPairs = pairs
		return nil
	}

	if err := svc.Process(context.Background(), "up1"); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(gotPairs) != 1 || gotPairs[0].TargetID != "carol" {
		t.Errorf("re-delivery reprocessed stamped pair: %+v", gotPairs)
	}
}

func TestSummaryProcessGeneratorFailureWritesNothing(t *testing.T) {
	svc, tx := summaryFixture(t)
	svc.Generator = &stubGenerator{
		suggestionsFunc: func(context.Context, string, string, string) (string, error) {
			return "", errors.New("model overloaded")
		},
	}
	tx.applyFunc = func(context.Context, []domain.PairSummary, string, string, string, domain.Insights, time.Time) error {
		t.Fatal("tx must not run when a generator call fails")
		return nil
	}

	if err := svc.Process(context.Background(), "up1"); err == nil {
		t.Fatal("expected error so the task is retried")
	}
}

func TestSummaryProcessDropsMissingUpdate(t *testing.T) {
	svc, _ := summaryFixture(t)
	svc.Updates = &stubUpdatesStore{
		t: t,
		getFunc: func(context.Context, string) (domain.Update, error) {
			return domain.Update{}, domain.ErrNotFound
		},
	}

	if err := svc.Process(context.Background(), "gone"); err != nil {
		t.Fatalf("missing update must be dropped, not retried: %v", err)
	}
}

func TestSummaryProcessDropsMissingCreator(t *testing.T) {
	svc, _ := summaryFixture(t)
	svc.Profiles = &stubProfilesStore{
		t: t,
		getProfileFunc: func(context.Context, string) (domain.Profile, error) {
			return domain.Profile{}, domain.ErrNotFound
		},
	}

	if err := svc.Process(context.Background(), "up1"); err != nil {
		t.Fatalf("missing creator must be dropped, not retried: %v", err)
	}
}
