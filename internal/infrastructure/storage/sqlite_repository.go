// Package storage persists processed articles and pending announcements
// in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"fundingmonitor/internal/domain"
	"fundingmonitor/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    source TEXT NOT NULL,
    published_date TEXT NOT NULL,
    processed_date TEXT NOT NULL,
    is_funding_related INTEGER NOT NULL,
    relevance_score INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS funding_announcements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id INTEGER NOT NULL,
    company_name TEXT NOT NULL,
    funding_stage TEXT NOT NULL,
    funding_amount TEXT NOT NULL,
    location TEXT NOT NULL,
    industry TEXT NOT NULL,
    description TEXT NOT NULL,
    included_in_digest INTEGER NOT NULL DEFAULT 0,
    extracted_date TEXT NOT NULL,
    FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_articles_url ON articles(url);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_date);
CREATE INDEX IF NOT EXISTS idx_funding_digest ON funding_announcements(included_in_digest);
`

// SQLiteRepository stores articles for deduplication and announcements
// until they have been included in a digest. Dates are stored as RFC 3339
// strings so range comparisons work lexicographically.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.AnnouncementRepository = (*SQLiteRepository)(nil)

// Open connects to the SQLite database at path, creating the parent
// directory and schema when needed. WAL mode keeps the single-writer
// pipeline from blocking readers.
func Open(path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// Close releases the underlying connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// IsProcessed reports whether an article URL is already stored.
func (r *SQLiteRepository) IsProcessed(ctx context.Context, url string) (bool, error) {
	query, args, err := sq.Select("1").
		From("articles").
		Where(sq.Eq{"url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query article: %w", err)
	}
	return true, nil
}

// StoreArticle inserts an article row. A duplicate URL yields
// ports.ErrDuplicateArticle.
func (r *SQLiteRepository) StoreArticle(ctx context.Context, article domain.Article, relevant bool, score int) (int64, error) {
	query, args, err := sq.Insert("articles").
		Columns("url", "title", "source", "published_date", "processed_date", "is_funding_related", "relevance_score").
		Values(
			article.URL,
			article.Title,
			article.Source,
			article.PublishedAt.UTC().Format(time.RFC3339),
			r.now().UTC().Format(time.RFC3339),
			relevant,
			score,
		).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, ports.ErrDuplicateArticle
		}
		return 0, fmt.Errorf("insert article: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("article id: %w", err)
	}
	return id, nil
}

// StoreAnnouncement inserts the extracted details linked to an article.
func (r *SQLiteRepository) StoreAnnouncement(ctx context.Context, articleID int64, ann domain.Announcement) (int64, error) {
	query, args, err := sq.Insert("funding_announcements").
		Columns("article_id", "company_name", "funding_stage", "funding_amount", "location", "industry", "description", "extracted_date").
		Values(
			articleID,
			ann.Fields.CompanyName,
			ann.Fields.FundingStage,
			ann.Fields.FundingAmount,
			ann.Fields.Location,
			ann.Fields.Industry,
			ann.Summary,
			r.now().UTC().Format(time.RFC3339),
		).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert announcement: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("announcement id: %w", err)
	}
	return id, nil
}

// PendingAnnouncements returns announcements not yet included in a digest
// for articles published after since, newest first.
func (r *SQLiteRepository) PendingAnnouncements(ctx context.Context, since time.Time) ([]domain.DigestEntry, error) {
	query, args, err := sq.Select(
		"fa.id",
		"fa.company_name", "fa.funding_stage", "fa.funding_amount", "fa.location", "fa.industry", "fa.description",
		"a.url", "a.title", "a.source", "a.published_date", "a.relevance_score",
	).
		From("funding_announcements fa").
		Join("articles a ON fa.article_id = a.id").
		Where(sq.Eq{"fa.included_in_digest": false}).
		Where(sq.GtOrEq{"a.published_date": since.UTC().Format(time.RFC3339)}).
		OrderBy("a.published_date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var entries []domain.DigestEntry
	for rows.Next() {
		var (
			entry     domain.DigestEntry
			published string
		)
		err := rows.Scan(
			&entry.ID,
			&entry.Announcement.Fields.CompanyName,
			&entry.Announcement.Fields.FundingStage,
			&entry.Announcement.Fields.FundingAmount,
			&entry.Announcement.Fields.Location,
			&entry.Announcement.Fields.Industry,
			&entry.Announcement.Summary,
			&entry.Announcement.Article.URL,
			&entry.Announcement.Article.Title,
			&entry.Announcement.Article.Source,
			&published,
			&entry.Announcement.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339, published); perr == nil {
			entry.Announcement.Article.PublishedAt = t
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending rows: %w", err)
	}

	return entries, nil
}

// MarkDigested flags announcements as included in a digest so they are
// never re-sent.
func (r *SQLiteRepository) MarkDigested(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sq.Update("funding_announcements").
		Set("included_in_digest", true).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark digested: %w", err)
	}
	return nil
}

// Cleanup deletes articles processed before olderThan; announcements
// cascade with them. Returns the number of deleted articles.
func (r *SQLiteRepository) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	query, args, err := sq.Delete("articles").
		Where(sq.Lt{"processed_date": olderThan.UTC().Format(time.RFC3339)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

// Stats returns counters for the run summary.
func (r *SQLiteRepository) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats

	counts := []struct {
		dest  *int
		query sq.SelectBuilder
	}{
		{&stats.TotalArticles, sq.Select("COUNT(*)").From("articles")},
		{&stats.FundingArticles, sq.Select("COUNT(*)").From("articles").Where(sq.Eq{"is_funding_related": true})},
		{&stats.TotalAnnouncements, sq.Select("COUNT(*)").From("funding_announcements")},
		{&stats.Digested, sq.Select("COUNT(*)").From("funding_announcements").Where(sq.Eq{"included_in_digest": true})},
	}

	for _, c := range counts {
		query, args, err := c.query.ToSql()
		if err != nil {
			return domain.Stats{}, fmt.Errorf("build count: %w", err)
		}
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(c.dest); err != nil {
			return domain.Stats{}, fmt.Errorf("count: %w", err)
		}
	}

	stats.Pending = stats.TotalAnnouncements - stats.Digested
	return stats, nil
}
