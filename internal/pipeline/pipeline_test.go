package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rewired-gh/oddsaudit/internal/models"
	"github.com/rewired-gh/oddsaudit/internal/review"
	"github.com/rewired-gh/oddsaudit/internal/storage"
)

type fakeFetcher struct {
	matches []models.Match
	err     error
	calls   int
}

func (f *fakeFetcher) FetchMatches(ctx context.Context, leagueIDs []string) ([]models.Match, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

type fakeNotifier struct {
	sendErr    error
	sent       [][]models.ArchivedReview
	errors     []error
	recoveries []int
}

func (n *fakeNotifier) SendReviews(items []models.ArchivedReview) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, items)
	return nil
}

func (n *fakeNotifier) SendError(cycleErr error) error {
	n.errors = append(n.errors, cycleErr)
	return nil
}

func (n *fakeNotifier) SendRecovery(failureCount int) error {
	n.recoveries = append(n.recoveries, failureCount)
	return nil
}

func testMatches() []models.Match {
	return []models.Match{
		{
			ID: "value", LeagueID: "premier-league", HomeTeam: "Arsenal", AwayTeam: "Chelsea",
			Stats: models.MatchStats{HomeWinProb: 50},
			Odds:  models.Odds{Home: 2.50},
		},
		{
			ID: "fair", LeagueID: "premier-league", HomeTeam: "Leeds", AwayTeam: "Burnley",
			Stats: models.MatchStats{HomeWinProb: 62.5},
			Odds:  models.Odds{Home: 1.60},
		},
		{
			ID: "no-odds", LeagueID: "premier-league", HomeTeam: "Fulham", AwayTeam: "Wolves",
			Stats: models.MatchStats{HomeWinProb: 40},
		},
	}
}

type testEnv struct {
	pipeline *Pipeline
	fetcher  *fakeFetcher
	notifier *fakeNotifier
	store    *storage.Storage
	clock    time.Time
}

func newTestEnv(t *testing.T, config Config) *testEnv {
	t.Helper()
	store, err := storage.New(100, ":memory:")
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	env := &testEnv{
		fetcher:  &fakeFetcher{matches: testMatches()},
		notifier: &fakeNotifier{},
		store:    store,
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if config.Cooldown == 0 {
		config.Cooldown = time.Hour
	}
	env.pipeline = New(env.fetcher, review.NewEngine(review.Config{Workers: 2}), store, env.notifier, config)
	env.pipeline.now = func() time.Time { return env.clock }
	return env
}

func TestRunCycle(t *testing.T) {
	env := newTestEnv(t, Config{LeagueIDs: []string{"premier-league"}})

	result, err := env.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Fetched != 3 || result.Reviewed != 3 || result.Featured != 1 || result.Notified != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	if len(env.notifier.sent) != 1 || len(env.notifier.sent[0]) != 1 {
		t.Fatalf("expected one message with one review, got %+v", env.notifier.sent)
	}
	sent := env.notifier.sent[0][0]
	if sent.Review.MatchID != "value" || sent.HomeTeam != "Arsenal" || sent.Review.Tip != review.LabelHome {
		t.Errorf("unexpected notification: %+v", sent)
	}

	archived, err := env.store.LatestReview("no-odds")
	if err != nil {
		t.Fatalf("LatestReview: %v", err)
	}
	if archived.Review.Usable {
		t.Error("review without odds should be archived as unusable")
	}
	if !archived.ReviewedAt.Equal(env.clock) {
		t.Errorf("ReviewedAt = %v, want %v", archived.ReviewedAt, env.clock)
	}

	last, err := env.store.LastNotified("value")
	if err != nil || last == nil {
		t.Fatalf("LastNotified = %v, %v", last, err)
	}
	if last.Tip != review.LabelHome {
		t.Errorf("recorded tip = %q", last.Tip)
	}
}

func TestRunCycle_Cooldown(t *testing.T) {
	env := newTestEnv(t, Config{Cooldown: time.Hour})
	ctx := context.Background()

	if _, err := env.pipeline.RunCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	env.clock = env.clock.Add(30 * time.Minute)
	result, err := env.pipeline.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if result.Featured != 1 || result.Notified != 0 {
		t.Errorf("same tip within cooldown should be suppressed: %+v", result)
	}

	env.clock = env.clock.Add(31 * time.Minute)
	result, err = env.pipeline.RunCycle(ctx)
	if err != nil {
		t.Fatalf("third cycle: %v", err)
	}
	if result.Notified != 1 {
		t.Errorf("tip should be resent after cooldown: %+v", result)
	}
}

func TestRunCycle_ChangedTipBypassesCooldown(t *testing.T) {
	env := newTestEnv(t, Config{Cooldown: time.Hour})
	ctx := context.Background()

	if _, err := env.pipeline.RunCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	env.fetcher.matches[0].Stats.AwayWinProb = 40
	env.fetcher.matches[0].Odds.Away = 3.50
	env.clock = env.clock.Add(time.Minute)

	result, err := env.pipeline.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if result.Notified != 1 {
		t.Fatalf("changed tip should be sent: %+v", result)
	}
	if tip := env.notifier.sent[1][0].Review.Tip; tip != review.LabelAway {
		t.Errorf("tip = %q, want %q", tip, review.LabelAway)
	}
}

func TestRunCycle_DuplicateIDsKeepTheirOwnMatch(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.fetcher.matches = []models.Match{
		{ID: "dup", LeagueID: "premier-league", HomeTeam: "Arsenal", AwayTeam: "Chelsea",
			Stats: models.MatchStats{HomeWinProb: 50}, Odds: models.Odds{Home: 2.50}},
		{ID: "dup", LeagueID: "la-liga", HomeTeam: "Betis", AwayTeam: "Sevilla",
			Stats: models.MatchStats{DrawProb: 40}, Odds: models.Odds{Draw: 3.50}},
	}

	result, err := env.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Notified != 2 {
		t.Fatalf("Notified = %d, want 2", result.Notified)
	}

	want := map[string]string{
		review.LabelHome: "premier-league/Arsenal",
		review.LabelDraw: "la-liga/Betis",
	}
	for _, rec := range env.notifier.sent[0] {
		if got := rec.LeagueID + "/" + rec.HomeTeam; got != want[rec.Review.Tip] {
			t.Errorf("tip %q archived as %s, want %s", rec.Review.Tip, got, want[rec.Review.Tip])
		}
	}
}

func TestRunCycle_MaxNotify(t *testing.T) {
	env := newTestEnv(t, Config{MaxNotify: 1})
	env.fetcher.matches = append(env.fetcher.matches, models.Match{
		ID:    "better",
		Stats: models.MatchStats{DrawProb: 40},
		Odds:  models.Odds{Draw: 3.50},
	})

	result, err := env.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Featured != 2 || result.Notified != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if id := env.notifier.sent[0][0].Review.MatchID; id != "better" {
		t.Errorf("highest edge should be sent first, got %s", id)
	}
}

func TestRunCycle_NotifierFailureIsNotRecorded(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.notifier.sendErr = errors.New("telegram down")

	result, err := env.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("notification failure should not fail the cycle: %v", err)
	}
	if result.Notified != 0 {
		t.Errorf("Notified = %d, want 0", result.Notified)
	}
	if last, _ := env.store.LastNotified("value"); last != nil {
		t.Error("failed send should not be recorded")
	}
}

func TestRunCycle_NotificationsDisabled(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.pipeline.notifier = nil

	result, err := env.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Featured != 1 || result.Notified != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestRunCycle_FetchError(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.fetcher.err = errors.New("upstream down")

	if _, err := env.pipeline.RunCycle(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	all, _ := env.store.ListLatest(storage.ListFilter{})
	if len(all) != 0 {
		t.Errorf("nothing should be archived, got %d", len(all))
	}
}

func TestRunCycle_Cancelled(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := env.pipeline.RunCycle(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTick_FailureStreak(t *testing.T) {
	env := newTestEnv(t, Config{CycleTimeout: time.Minute})
	ctx := context.Background()

	env.fetcher.err = errors.New("upstream down")
	env.pipeline.Tick(ctx)
	env.pipeline.Tick(ctx)

	if got := env.pipeline.ConsecutiveFailures(); got != 2 {
		t.Errorf("ConsecutiveFailures = %d, want 2", got)
	}
	if len(env.notifier.errors) != 1 {
		t.Errorf("error notices = %d, want 1 per streak", len(env.notifier.errors))
	}

	env.fetcher.err = nil
	env.pipeline.Tick(ctx)

	if got := env.pipeline.ConsecutiveFailures(); got != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", got)
	}
	if len(env.notifier.recoveries) != 1 || env.notifier.recoveries[0] != 2 {
		t.Errorf("recoveries = %v, want [2]", env.notifier.recoveries)
	}

	env.pipeline.Tick(ctx)
	if len(env.notifier.recoveries) != 1 {
		t.Errorf("healthy cycle should not send another recovery: %v", env.notifier.recoveries)
	}
}
