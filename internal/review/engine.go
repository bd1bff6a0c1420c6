package review

import (
	"context"
	"runtime"
	"sync"

	"github.com/rewired-gh/oddsaudit/internal/logger"
	"github.com/rewired-gh/oddsaudit/internal/models"
)

// Config sizes the engine's worker pool.
type Config struct {
	Workers int
}

// DefaultConfig runs one worker per CPU.
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}

// Engine reviews batches of matches on a fixed pool of workers.
type Engine struct {
	config Config
}

// NewEngine creates an engine; a non-positive worker count falls back to DefaultConfig.
func NewEngine(config Config) *Engine {
	if config.Workers < 1 {
		config = DefaultConfig()
	}
	return &Engine{config: config}
}

// ReviewAll returns one review per match, in input order.
// Once ctx is done no further matches are started and unreviewed matches are left out of the result.
func (e *Engine) ReviewAll(ctx context.Context, matches []models.Match) []models.MatchReview {
	reviews := make([]models.MatchReview, len(matches))
	done := make([]bool, len(matches))

	workers := e.config.Workers
	if workers > len(matches) {
		workers = len(matches)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				reviews[i] = safeReview(matches[i])
				done[i] = true
			}
		}()
	}

feed:
	for i := range matches {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	out := reviews[:0]
	for i, ok := range done {
		if ok {
			out = append(out, reviews[i])
		}
	}
	return out
}

// safeReview keeps a panicking match from taking down the process; it yields the no-market review instead.
func safeReview(m models.Match) (r models.MatchReview) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Review of match %s panicked: %v", m.ID, p)
			r = BuildReview(nil, models.MatchStats{}, models.HeadToHead{})
			r.MatchID = m.ID
		}
	}()
	return ReviewMatch(m)
}
