// Package api exposes the review engine and the review archive over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rewired-gh/oddsaudit/internal/display"
	"github.com/rewired-gh/oddsaudit/internal/feed"
	"github.com/rewired-gh/oddsaudit/internal/logger"
	"github.com/rewired-gh/oddsaudit/internal/models"
	"github.com/rewired-gh/oddsaudit/internal/storage"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Reviewer reviews a batch of matches.
type Reviewer interface {
	ReviewAll(ctx context.Context, matches []models.Match) []models.MatchReview
}

// ReviewStore reads archived reviews.
type ReviewStore interface {
	LatestReview(matchID string) (*models.ArchivedReview, error)
	ListLatest(filter storage.ListFilter) ([]models.ArchivedReview, error)
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	reviewer     Reviewer
	store        ReviewStore
	maxBodyBytes int64
}

// NewHandler creates a new handler with dependencies
func NewHandler(reviewer Reviewer, store ReviewStore, maxBodyBytes int64) *Handler {
	return &Handler{
		reviewer:     reviewer,
		store:        store,
		maxBodyBytes: maxBodyBytes,
	}
}

// ReviewError reports an input record that could not be reviewed.
type ReviewError struct {
	MatchID string `json:"matchId,omitempty"`
	Index   int    `json:"index"`
	Error   string `json:"error"`
}

type reviewBatchResponse struct {
	Reviews []models.MatchReview `json:"reviews"`
	Errors  []ReviewError        `json:"errors"`
}

// archivedView is an archived review with its badge attached for the front end.
type archivedView struct {
	models.ArchivedReview
	Badge display.Style `json:"badge"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "oddsaudit",
	})
}

// ReviewMatches reviews the posted match records.
// Body: {"matches": [...]} or a bare array. Records that cannot be adapted are reported in "errors";
// every other record gets one review, in input order.
func (h *Handler) ReviewMatches(w http.ResponseWriter, r *http.Request) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	raws, err := feed.DecodeMatches(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		respondError(w, http.StatusBadRequest, "invalid match payload", err)
		return
	}

	matches := make([]models.Match, 0, len(raws))
	reviewErrors := []ReviewError{}
	for i, raw := range raws {
		m, err := feed.ToMatch(raw)
		if err != nil {
			reviewErrors = append(reviewErrors, ReviewError{MatchID: string(raw.ID), Index: i, Error: err.Error()})
			continue
		}
		matches = append(matches, m)
	}

	reviews := h.reviewer.ReviewAll(r.Context(), matches)
	if err := r.Context().Err(); err != nil {
		respondError(w, http.StatusServiceUnavailable, "review interrupted", err)
		return
	}
	if reviews == nil {
		reviews = []models.MatchReview{}
	}

	respondJSON(w, http.StatusOK, reviewBatchResponse{Reviews: reviews, Errors: reviewErrors})
}

// ListReviews returns the latest archived review of each match.
// Query params: featured, usable, status, league, limit
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ListFilter{
		LeagueID: q.Get("league"),
		Limit:    parseIntParam(r, "limit", defaultListLimit),
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	var err error
	if filter.FeaturedOnly, err = parseBoolParam(r, "featured"); err != nil {
		respondError(w, http.StatusBadRequest, "featured must be a boolean", err)
		return
	}
	if filter.UsableOnly, err = parseBoolParam(r, "usable"); err != nil {
		respondError(w, http.StatusBadRequest, "usable must be a boolean", err)
		return
	}
	if s := q.Get("status"); s != "" {
		status, err := models.ParseVerdict(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "status must be CONFIRMED, ADJUSTED or REJECTED", err)
			return
		}
		filter.Status = &status
	}

	records, err := h.store.ListLatest(filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to retrieve reviews", err)
		return
	}

	views := make([]archivedView, 0, len(records))
	for _, rec := range records {
		views = append(views, toView(rec))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": views,
		"count":   len(views),
		"limit":   filter.Limit,
	})
}

// GetReview returns the latest archived review for one match.
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		respondError(w, http.StatusBadRequest, "match_id is required", nil)
		return
	}

	rec, err := h.store.LatestReview(matchID)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "review not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to retrieve review", err)
		return
	}

	respondJSON(w, http.StatusOK, toView(*rec))
}

// Verdicts returns the badge style of every verdict.
func (h *Handler) Verdicts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"verdicts": display.Table(),
	})
}

func toView(rec models.ArchivedReview) archivedView {
	return archivedView{ArchivedReview: rec, Badge: display.ForReview(rec.Review)}
}

func parseIntParam(r *http.Request, param string, defaultValue int) int {
	valueStr := r.URL.Query().Get(param)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func parseBoolParam(r *http.Request, param string) (bool, error) {
	valueStr := r.URL.Query().Get(param)
	if valueStr == "" {
		return false, nil
	}
	return strconv.ParseBool(valueStr)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		logger.Warn("%s: %v", message, err)
	}
	respondJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
