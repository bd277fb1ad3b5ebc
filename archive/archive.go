// Package archive keeps a SQLite record of every article that was actually
// delivered, so past notifications can be inspected after the ledger has
// reduced them to bare IDs.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mvelinov/newswatch"
)

// Store persists delivered articles.
type Store struct {
	db *sql.DB
}

var _ newswatch.Archive = (*Store)(nil)

// Delivery is one archived notification.
type Delivery struct {
	Article     newswatch.Article
	DeliveredAt time.Time
}

// Open opens the archive database at path, creating it and its schema if
// needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS delivered (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		date TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		delivered_at TIMESTAMP NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one delivered article. Re-recording an article with the same
// ID replaces the earlier row.
func (s *Store) Record(article newswatch.Article) error {
	query := `INSERT OR REPLACE INTO delivered (id, url, title, date, summary, delivered_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query,
		article.ID(), article.URL, article.Title, article.Date, article.Summary,
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record delivered article: %w", err)
	}
	return nil
}

// Recent returns up to limit deliveries, newest first.
func (s *Store) Recent(limit int) ([]Delivery, error) {
	query := `SELECT url, title, date, summary, delivered_at
	          FROM delivered ORDER BY delivered_at DESC, id LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.Article.URL, &d.Article.Title, &d.Article.Date,
			&d.Article.Summary, &d.DeliveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read deliveries: %w", err)
	}

	return deliveries, nil
}
