// Package pipeline runs one review cycle: fetch, review, archive and notify.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rewired-gh/oddsaudit/internal/logger"
	"github.com/rewired-gh/oddsaudit/internal/models"
	"github.com/rewired-gh/oddsaudit/internal/storage"
)

// Fetcher supplies typed matches for a set of leagues.
type Fetcher interface {
	FetchMatches(ctx context.Context, leagueIDs []string) ([]models.Match, error)
}

// Reviewer reviews a batch of matches.
type Reviewer interface {
	ReviewAll(ctx context.Context, matches []models.Match) []models.MatchReview
}

// Archive persists reviews and remembers what was sent.
type Archive interface {
	SaveReviews(records []models.ArchivedReview) error
	LastNotified(matchID string) (*storage.Notification, error)
	RecordNotified(matchID, tip string, sentAt time.Time) error
	RotateReviews() error
}

// Notifier delivers featured reviews and cycle health notices.
type Notifier interface {
	SendReviews(items []models.ArchivedReview) error
	SendError(cycleErr error) error
	SendRecovery(failureCount int) error
}

// Config holds cycle parameters.
type Config struct {
	LeagueIDs    []string
	CycleTimeout time.Duration
	Cooldown     time.Duration
	// MaxNotify caps featured reviews per message; 0 means no cap.
	MaxNotify int
}

// CycleResult summarizes one cycle.
type CycleResult struct {
	Fetched  int
	Reviewed int
	Featured int
	Notified int
	Duration time.Duration
}

// Pipeline wires the collaborators of a review cycle together.
type Pipeline struct {
	fetcher  Fetcher
	reviewer Reviewer
	archive  Archive
	notifier Notifier
	config   Config
	now      func() time.Time

	mu                  sync.Mutex
	consecutiveFailures int
}

// New creates a pipeline. notifier may be nil when notifications are disabled.
func New(fetcher Fetcher, reviewer Reviewer, archive Archive, notifier Notifier, config Config) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		reviewer: reviewer,
		archive:  archive,
		notifier: notifier,
		config:   config,
		now:      time.Now,
	}
}

// RunCycle performs one fetch-review-archive-notify pass.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleResult, error) {
	var result CycleResult
	startTime := p.now()
	logger.Info("Starting review cycle")

	matches, err := p.fetcher.FetchMatches(ctx, p.config.LeagueIDs)
	if err != nil {
		return result, fmt.Errorf("failed to fetch matches: %w", err)
	}
	result.Fetched = len(matches)
	logger.Info("Fetched %d matches from %d leagues", len(matches), len(p.config.LeagueIDs))

	reviews := p.reviewer.ReviewAll(ctx, matches)
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("review interrupted: %w", err)
	}
	if len(reviews) != len(matches) {
		return result, fmt.Errorf("reviewed %d of %d matches", len(reviews), len(matches))
	}
	result.Reviewed = len(reviews)

	// reviews are in input order; upstream IDs may repeat across leagues
	reviewedAt := p.now()
	records := make([]models.ArchivedReview, 0, len(reviews))
	for i, r := range reviews {
		m := matches[i]
		records = append(records, models.ArchivedReview{
			LeagueID:   m.LeagueID,
			HomeTeam:   m.HomeTeam,
			AwayTeam:   m.AwayTeam,
			Review:     r,
			ReviewedAt: reviewedAt,
		})
	}
	if err := p.archive.SaveReviews(records); err != nil {
		return result, fmt.Errorf("failed to archive reviews: %w", err)
	}
	logger.Debug("Archived %d reviews", len(records))

	featured := selectFeatured(records)
	result.Featured = len(featured)

	pending, err := p.filterRecentlySent(featured, reviewedAt)
	if err != nil {
		return result, err
	}
	if p.config.MaxNotify > 0 && len(pending) > p.config.MaxNotify {
		pending = pending[:p.config.MaxNotify]
	}

	switch {
	case len(pending) == 0:
		logger.Info("No new featured reviews this cycle")
	case p.notifier == nil:
		logger.Debug("%d featured reviews but notifications are disabled", len(pending))
	default:
		if err := p.notifier.SendReviews(pending); err != nil {
			logger.Error("Failed to send featured reviews: %v", err)
			break
		}
		result.Notified = len(pending)
		logger.Info("Sent %d featured reviews", len(pending))
		for _, rec := range pending {
			if err := p.archive.RecordNotified(rec.Review.MatchID, rec.Review.Tip, reviewedAt); err != nil {
				logger.Warn("Failed to record notification for %s: %v", rec.Review.MatchID, err)
			}
		}
	}

	result.Duration = p.now().Sub(startTime)
	logger.Info("Review cycle completed in %v (%d reviewed, %d featured, %d notified)",
		result.Duration, result.Reviewed, result.Featured, result.Notified)
	return result, nil
}

// selectFeatured keeps featured reviews with a usable market, best edge first.
func selectFeatured(records []models.ArchivedReview) []models.ArchivedReview {
	var featured []models.ArchivedReview
	for _, rec := range records {
		if rec.Review.Featured && rec.Review.Usable {
			featured = append(featured, rec)
		}
	}
	sort.SliceStable(featured, func(i, j int) bool {
		return featured[i].Review.Edge > featured[j].Review.Edge
	})
	return featured
}

// filterRecentlySent drops reviews whose tip was already sent for the match within the cooldown.
// A changed tip is always sent again.
func (p *Pipeline) filterRecentlySent(items []models.ArchivedReview, now time.Time) ([]models.ArchivedReview, error) {
	var result []models.ArchivedReview
	for _, rec := range items {
		last, err := p.archive.LastNotified(rec.Review.MatchID)
		if err != nil {
			return nil, fmt.Errorf("failed to check notification history: %w", err)
		}
		if last != nil && last.Tip == rec.Review.Tip && now.Sub(last.SentAt) < p.config.Cooldown {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

// Tick runs a scheduled cycle under the configured timeout, reports failure streaks and rotates
// the archive. Overlapping ticks are serialized.
func (p *Pipeline) Tick(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cycleCtx := ctx
	if p.config.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, p.config.CycleTimeout)
		defer cancel()
	}

	_, err := p.RunCycle(cycleCtx)
	p.handleCycleResult(err)

	if err := p.archive.RotateReviews(); err != nil {
		logger.Warn("Failed to rotate reviews: %v", err)
	}
}

// handleCycleResult sends one error notice per failure streak and one recovery notice when it ends.
func (p *Pipeline) handleCycleResult(err error) {
	if err != nil {
		p.consecutiveFailures++
		logger.Error("Review cycle failed: %v", err)
		if p.consecutiveFailures == 1 && p.notifier != nil {
			if sendErr := p.notifier.SendError(err); sendErr != nil {
				logger.Warn("Failed to send error notification: %v", sendErr)
			}
		}
		return
	}
	if p.consecutiveFailures > 0 && p.notifier != nil {
		if sendErr := p.notifier.SendRecovery(p.consecutiveFailures); sendErr != nil {
			logger.Warn("Failed to send recovery notification: %v", sendErr)
		}
	}
	p.consecutiveFailures = 0
}

// ConsecutiveFailures reports the length of the current failure streak.
func (p *Pipeline) ConsecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consecutiveFailures
}
