package ports

import (
	"context"
	"errors"
	"time"

	"fundingmonitor/internal/domain"
)

// ErrDuplicateArticle is returned by repositories when an article URL is
// already stored. Callers treat it as a skip, not a failure.
var ErrDuplicateArticle = errors.New("article already stored")

// ArticleSource pulls fresh articles from the configured feeds.
type ArticleSource interface {
	FetchAll(ctx context.Context) ([]domain.Article, error)
}

// Detector classifies one article. The boolean is false for articles
// rejected by the relevance threshold; rejection is not an error.
type Detector interface {
	Analyze(article domain.Article) (domain.Announcement, bool)
}

// AnnouncementRepository persists processed articles for deduplication and
// tracks announcements until they are included in a digest.
type AnnouncementRepository interface {
	IsProcessed(ctx context.Context, url string) (bool, error)
	StoreArticle(ctx context.Context, article domain.Article, relevant bool, score int) (int64, error)
	StoreAnnouncement(ctx context.Context, articleID int64, ann domain.Announcement) (int64, error)
	PendingAnnouncements(ctx context.Context, since time.Time) ([]domain.DigestEntry, error)
	MarkDigested(ctx context.Context, ids []int64) error
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// DigestSender delivers a rendered digest to the configured recipient.
type DigestSender interface {
	SendDigest(ctx context.Context, entries []domain.DigestEntry, kind domain.DigestKind) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
