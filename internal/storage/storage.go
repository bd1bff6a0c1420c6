// Package storage provides SQLite-backed persistence for archived reviews and sent notifications.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/oddsaudit/internal/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no archived review exists for a match.
var ErrNotFound = errors.New("not found")

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db         *sql.DB
	maxReviews int
}

// ListFilter narrows ListLatest. Zero values mean "no filter".
type ListFilter struct {
	FeaturedOnly bool
	UsableOnly   bool
	Status       *models.Verdict
	LeagueID     string
	Limit        int
}

// Notification records the last tip sent for a match.
type Notification struct {
	MatchID string
	Tip     string
	SentAt  time.Time
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/oddsaudit/data.db.
func New(maxReviews int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "oddsaudit", "data.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxReviews: maxReviews}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reviews (
			id           TEXT PRIMARY KEY,
			match_id     TEXT NOT NULL,
			league_id    TEXT,
			home_team    TEXT,
			away_team    TEXT,
			tip          TEXT NOT NULL,
			odds         TEXT NOT NULL,
			audit_odds   TEXT NOT NULL,
			status       TEXT NOT NULL,
			explanation  TEXT NOT NULL,
			featured     INTEGER NOT NULL DEFAULT 0,
			usable       INTEGER NOT NULL DEFAULT 0,
			edge         REAL NOT NULL DEFAULT 0,
			divergence   REAL NOT NULL DEFAULT 0,
			reviewed_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			match_id     TEXT PRIMARY KEY,
			tip          TEXT NOT NULL,
			sent_at      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_match ON reviews(match_id, reviewed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_reviewed_at ON reviews(reviewed_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveReviews archives a batch of reviews in one transaction and enforces the row cap.
// Records without an ID get a fresh UUID; the assigned IDs are written back into the slice.
func (s *Storage) SaveReviews(records []models.ArchivedReview) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT INTO reviews
			(id, match_id, league_id, home_team, away_team, tip, odds, audit_odds, status,
			 explanation, featured, usable, edge, divergence, reviewed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		if rec.Review.MatchID == "" {
			return fmt.Errorf("invalid review %d: match ID must not be empty", i)
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		r := rec.Review
		if _, err := stmt.Exec(
			rec.ID, r.MatchID, rec.LeagueID, rec.HomeTeam, rec.AwayTeam,
			r.Tip, r.Odds, r.AuditOdds, r.Status.String(), r.Explanation,
			boolToInt(r.Featured), boolToInt(r.Usable), r.Edge, r.Divergence,
			rec.ReviewedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to insert review: %w", err)
		}
	}

	if _, err := tx.Exec(`
		DELETE FROM reviews WHERE id NOT IN (
			SELECT id FROM reviews ORDER BY reviewed_at DESC LIMIT ?
		)`, s.maxReviews); err != nil {
		return fmt.Errorf("failed to enforce review cap: %w", err)
	}

	return tx.Commit()
}

// LatestReview returns the most recent archived review for a match.
func (s *Storage) LatestReview(matchID string) (*models.ArchivedReview, error) {
	row := s.db.QueryRow(`SELECT `+reviewCols+` FROM reviews
		WHERE match_id = ? ORDER BY reviewed_at DESC, rowid DESC LIMIT 1`, matchID)
	rec, err := scanReview(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review for match %s: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return rec, nil
}

// ListLatest returns the newest review of every match that passes the filter, best edge first.
func (s *Storage) ListLatest(filter ListFilter) ([]models.ArchivedReview, error) {
	where := []string{`r.rowid = (
		SELECT rowid FROM reviews WHERE match_id = r.match_id
		ORDER BY reviewed_at DESC, rowid DESC LIMIT 1)`}
	var args []any

	if filter.FeaturedOnly {
		where = append(where, "r.featured = 1")
	}
	if filter.UsableOnly {
		where = append(where, "r.usable = 1")
	}
	if filter.Status != nil {
		where = append(where, "r.status = ?")
		args = append(args, filter.Status.String())
	}
	if filter.LeagueID != "" {
		where = append(where, "r.league_id = ?")
		args = append(args, filter.LeagueID)
	}

	query := `SELECT ` + reviewCols + ` FROM reviews r WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY r.edge DESC, r.match_id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	records := []models.ArchivedReview{}
	for rows.Next() {
		rec, err := scanReview(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// RecordNotified remembers that a tip was sent for a match.
func (s *Storage) RecordNotified(matchID, tip string, sentAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO notifications (match_id, tip, sent_at) VALUES (?,?,?)`,
		matchID, tip, sentAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

// LastNotified returns the last notification for a match, or nil if none was sent.
func (s *Storage) LastNotified(matchID string) (*Notification, error) {
	var n Notification
	var sentAtNano int64
	err := s.db.QueryRow(`SELECT match_id, tip, sent_at FROM notifications WHERE match_id = ?`, matchID).
		Scan(&n.MatchID, &n.Tip, &sentAtNano)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}
	n.SentAt = time.Unix(0, sentAtNano)
	return &n, nil
}

// RotateReviews keeps at most maxReviews newest reviews and drops notifications
// for matches that no longer have any review.
func (s *Storage) RotateReviews() error {
	if _, err := s.db.Exec(`
		DELETE FROM reviews WHERE id NOT IN (
			SELECT id FROM reviews ORDER BY reviewed_at DESC LIMIT ?
		)`, s.maxReviews); err != nil {
		return fmt.Errorf("failed to rotate reviews: %w", err)
	}
	if _, err := s.db.Exec(`
		DELETE FROM notifications WHERE match_id NOT IN (SELECT DISTINCT match_id FROM reviews)`); err != nil {
		return fmt.Errorf("failed to rotate notifications: %w", err)
	}
	return nil
}

const reviewCols = `id, match_id, league_id, home_team, away_team, tip, odds, audit_odds, status,
	explanation, featured, usable, edge, divergence, reviewed_at`

func scanReview(scan func(...any) error) (*models.ArchivedReview, error) {
	var rec models.ArchivedReview
	var status string
	var featured, usable int
	var reviewedAtNano int64
	err := scan(
		&rec.ID, &rec.Review.MatchID, &rec.LeagueID, &rec.HomeTeam, &rec.AwayTeam,
		&rec.Review.Tip, &rec.Review.Odds, &rec.Review.AuditOdds, &status,
		&rec.Review.Explanation, &featured, &usable, &rec.Review.Edge, &rec.Review.Divergence,
		&reviewedAtNano,
	)
	if err != nil {
		return nil, err
	}
	verdict, err := models.ParseVerdict(status)
	if err != nil {
		return nil, err
	}
	rec.Review.Status = verdict
	rec.Review.Featured = featured != 0
	rec.Review.Usable = usable != 0
	rec.ReviewedAt = time.Unix(0, reviewedAtNano)
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
