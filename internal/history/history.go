// Package history stores recent storefront searches for the home page's
// "recently searched" strip.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded search.
type Entry struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	ResultCount int       `json:"result_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service persists search history in SQLite.
type Service struct {
	db *sql.DB
}

// NewService creates a history service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record stores a search. Repeating the most recent query refreshes that
// row instead of inserting a duplicate.
func (s *Service) Record(ctx context.Context, query string, resultCount int) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var lastID, lastQuery string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query FROM search_history ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&lastID, &lastQuery)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("reading last search: %w", err)
	}

	if err == nil && strings.EqualFold(lastQuery, query) {
		_, err = s.db.ExecContext(ctx,
			`UPDATE search_history SET result_count = ?, created_at = datetime('now') WHERE id = ?`,
			resultCount, lastID)
		if err != nil {
			return fmt.Errorf("refreshing search history: %w", err)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_history (id, query, result_count) VALUES (?, ?, ?)`,
		uuid.NewString(), query, resultCount)
	if err != nil {
		return fmt.Errorf("recording search history: %w", err)
	}
	return nil
}

// Recent returns the most recent searches, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, result_count, created_at FROM search_history
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing search history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Query, &e.ResultCount, &created); err != nil {
			return nil, fmt.Errorf("scanning search history: %w", err)
		}
		if t, perr := time.Parse("2006-01-02 15:04:05", created); perr == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
