package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/oddsaudit/internal/models"
	"github.com/rewired-gh/oddsaudit/internal/review"
	"github.com/rewired-gh/oddsaudit/internal/storage"
)

func newTestServer(t *testing.T, maxBodyBytes int64) (http.Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.New(100, ":memory:")
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	h := NewHandler(review.NewEngine(review.Config{Workers: 2}), store, maxBodyBytes)
	return NewRouter(h, RouterOptions{AllowedOrigins: []string{"http://localhost:3000"}}), store
}

func do(t *testing.T, srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)
	w := do(t, srv, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v", body["status"])
	}
}

type batchBody struct {
	Reviews []models.MatchReview `json:"reviews"`
	Errors  []ReviewError        `json:"errors"`
}

func TestReviewMatches(t *testing.T) {
	payload := `{"matches": [
		{"id": "a", "homeTeam": "Arsenal", "awayTeam": "Chelsea",
		 "stats": {"homeWinProb": 50}, "odds": {"home": 2.5}},
		{"id": "b", "home": {"name": "Leeds"}, "away": "Burnley",
		 "stats": {"homeWinProb": "62.5"}, "odds": {"home": "1.60"}},
		{"homeTeam": "no id"},
		{"id": "c"}
	]}`

	srv, _ := newTestServer(t, 1<<20)
	w := do(t, srv, http.MethodPost, "/api/v1/reviews", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var body batchBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(body.Reviews) != 3 {
		t.Fatalf("got %d reviews, want 3", len(body.Reviews))
	}
	want := []struct {
		id, tip, odds, audit string
		status               models.Verdict
		featured, usable     bool
	}{
		{"a", review.LabelHome, "2.50", "2.00", models.Rejected, true, true},
		{"b", review.LabelHome, "1.60", "1.60", models.Confirmed, false, true},
		{"c", review.LabelHome, "-", "0.00", models.Confirmed, false, false},
	}
	for i, wr := range want {
		got := body.Reviews[i]
		if got.MatchID != wr.id || got.Tip != wr.tip || got.Odds != wr.odds || got.AuditOdds != wr.audit {
			t.Errorf("review %d = %+v", i, got)
		}
		if got.Status != wr.status || got.Featured != wr.featured || got.Usable != wr.usable {
			t.Errorf("review %d status/featured/usable = %v/%v/%v", i, got.Status, got.Featured, got.Usable)
		}
	}

	if len(body.Errors) != 1 || body.Errors[0].Index != 2 {
		t.Errorf("errors = %+v, want one error at index 2", body.Errors)
	}
}

func TestReviewMatches_BareArray(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)
	w := do(t, srv, http.MethodPost, "/api/v1/reviews",
		`[{"id": "x", "stats": {"drawProb": 0.4}, "odds": {"draw": 3.5}}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var body batchBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Reviews) != 1 || body.Reviews[0].Tip != review.LabelDraw || body.Reviews[0].AuditOdds != "2.50" {
		t.Errorf("unexpected reviews: %+v", body.Reviews)
	}
	if body.Errors == nil {
		t.Error("errors should be an empty array, not null")
	}
}

func TestReviewMatches_VanishingProbability(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)
	w := do(t, srv, http.MethodPost, "/api/v1/reviews",
		`{"matches": [{"id": "m1", "stats": {"homeWinProb": 1e-309}, "odds": {"home": 2}}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var body batchBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Reviews) != 1 {
		t.Fatalf("got %d reviews, want 1", len(body.Reviews))
	}
	if got := body.Reviews[0]; got.MatchID != "m1" || got.AuditOdds != "0.00" || got.Odds != "2.00" {
		t.Errorf("unexpected review: %+v", got)
	}
}

func TestReviewMatches_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		maxBytes int64
		want     int
	}{
		{"invalid json", `{"matches": [`, 1 << 20, http.StatusBadRequest},
		{"empty body", ``, 1 << 20, http.StatusBadRequest},
		{"wrong shape", `"just a string"`, 1 << 20, http.StatusBadRequest},
		{"too large", `[{"id": "` + strings.Repeat("x", 2048) + `"}]`, 1024, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.maxBytes)
			w := do(t, srv, http.MethodPost, "/api/v1/reviews", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func seedArchive(t *testing.T, store *storage.Storage) {
	t.Helper()
	now := time.Now()
	records := []models.ArchivedReview{
		{LeagueID: "premier-league", Review: models.MatchReview{MatchID: "m-1", Tip: review.LabelHome, Odds: "2.50", AuditOdds: "2.00",
			Status: models.Rejected, Featured: true, Usable: true, Edge: 0.25}, ReviewedAt: now},
		{LeagueID: "premier-league", Review: models.MatchReview{MatchID: "m-2", Tip: review.LabelDraw, Odds: "3.30", AuditOdds: "3.00",
			Status: models.Adjusted, Usable: true, Edge: 0.1}, ReviewedAt: now},
		{LeagueID: "la-liga", Review: models.MatchReview{MatchID: "m-3", Odds: "-", AuditOdds: "0.00",
			Status: models.Confirmed}, ReviewedAt: now},
	}
	if err := store.SaveReviews(records); err != nil {
		t.Fatalf("SaveReviews: %v", err)
	}
}

type listBody struct {
	Reviews []struct {
		models.ArchivedReview
		Badge struct {
			Label string `json:"label"`
			Color string `json:"color"`
		} `json:"badge"`
	} `json:"reviews"`
	Count int `json:"count"`
}

func TestListReviews(t *testing.T) {
	srv, store := newTestServer(t, 1<<20)
	seedArchive(t, store)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"m-1", "m-2", "m-3"}},
		{"?featured=true", []string{"m-1"}},
		{"?status=adjusted", []string{"m-2"}},
		{"?usable=true&limit=1", []string{"m-1"}},
		{"?league=la-liga", []string{"m-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, srv, http.MethodGet, "/api/v1/reviews"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			var body listBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Count != len(tt.want) {
				t.Fatalf("count = %d, want %d", body.Count, len(tt.want))
			}
			for i, id := range tt.want {
				if body.Reviews[i].Review.MatchID != id {
					t.Errorf("position %d = %s, want %s", i, body.Reviews[i].Review.MatchID, id)
				}
			}
		})
	}
}

func TestListReviews_Badges(t *testing.T) {
	srv, store := newTestServer(t, 1<<20)
	seedArchive(t, store)

	w := do(t, srv, http.MethodGet, "/api/v1/reviews", "")
	var body listBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantColors := map[string]string{"m-1": "red", "m-2": "orange", "m-3": "grey"}
	for _, rec := range body.Reviews {
		if want := wantColors[rec.Review.MatchID]; rec.Badge.Color != want {
			t.Errorf("%s badge = %q, want %q", rec.Review.MatchID, rec.Badge.Color, want)
		}
	}
}

func TestListReviews_InvalidParams(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)
	for _, query := range []string{"?status=maybe", "?featured=perhaps", "?usable=2"} {
		t.Run(query, func(t *testing.T) {
			w := do(t, srv, http.MethodGet, "/api/v1/reviews"+query, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetReview(t *testing.T) {
	srv, store := newTestServer(t, 1<<20)
	seedArchive(t, store)

	w := do(t, srv, http.MethodGet, "/api/v1/reviews/m-2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var rec models.ArchivedReview
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Review.MatchID != "m-2" || rec.Review.Status != models.Adjusted {
		t.Errorf("unexpected review: %+v", rec)
	}

	w = do(t, srv, http.MethodGet, "/api/v1/reviews/unknown", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown match status = %d, want 404", w.Code)
	}
}

func TestVerdicts(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)
	w := do(t, srv, http.MethodGet, "/api/v1/verdicts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Verdicts []struct {
			Label string `json:"label"`
		} `json:"verdicts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	labels := make([]string, 0, len(body.Verdicts))
	for _, v := range body.Verdicts {
		labels = append(labels, v.Label)
	}
	if got := strings.Join(labels, ","); got != "CONFIRMED,ADJUSTED,REJECTED,NO MARKET" {
		t.Errorf("labels = %s", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/reviews", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
