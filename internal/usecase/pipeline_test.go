package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundingmonitor/internal/domain"
	"fundingmonitor/internal/ports"
)

type fakeSource struct {
	articles []domain.Article
	err      error
}

func (f *fakeSource) FetchAll(context.Context) ([]domain.Article, error) {
	return f.articles, f.err
}

// fakeDetector accepts any article whose title mentions funding.
type fakeDetector struct{}

func (fakeDetector) Analyze(article domain.Article) (domain.Announcement, bool) {
	if !strings.Contains(article.Title, "raises") {
		return domain.Announcement{}, false
	}
	return domain.Announcement{
		Article: article,
		Score:   80,
		Fields:  domain.Fields{CompanyName: "Acme Corp"},
		Summary: article.Description,
	}, true
}

type storedArticle struct {
	article  domain.Article
	relevant bool
	score    int
}

type fakeRepo struct {
	processed     map[string]bool
	duplicates    map[string]bool
	articles      []storedArticle
	announcements map[int64]domain.Announcement
	pending       []domain.DigestEntry
	pendingSince  time.Time
	marked        []int64
	cleanupCutoff time.Time
	cleanupErr    error
	nextID        int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		processed:     map[string]bool{},
		duplicates:    map[string]bool{},
		announcements: map[int64]domain.Announcement{},
	}
}

func (f *fakeRepo) IsProcessed(_ context.Context, url string) (bool, error) {
	return f.processed[url], nil
}

func (f *fakeRepo) StoreArticle(_ context.Context, article domain.Article, relevant bool, score int) (int64, error) {
	if f.duplicates[article.URL] {
		return 0, ports.ErrDuplicateArticle
	}
	f.articles = append(f.articles, storedArticle{article, relevant, score})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeRepo) StoreAnnouncement(_ context.Context, articleID int64, ann domain.Announcement) (int64, error) {
	f.announcements[articleID] = ann
	return articleID, nil
}

func (f *fakeRepo) PendingAnnouncements(_ context.Context, since time.Time) ([]domain.DigestEntry, error) {
	f.pendingSince = since
	return f.pending, nil
}

func (f *fakeRepo) MarkDigested(_ context.Context, ids []int64) error {
	f.marked = append(f.marked, ids...)
	return nil
}

func (f *fakeRepo) Cleanup(_ context.Context, olderThan time.Time) (int64, error) {
	f.cleanupCutoff = olderThan
	return 0, f.cleanupErr
}

func (f *fakeRepo) Stats(context.Context) (domain.Stats, error) {
	return domain.Stats{}, nil
}

type fakeSender struct {
	entries []domain.DigestEntry
	kind    domain.DigestKind
	calls   int
	err     error
}

func (f *fakeSender) SendDigest(_ context.Context, entries []domain.DigestEntry, kind domain.DigestKind) error {
	f.calls++
	f.entries = entries
	f.kind = kind
	return f.err
}

func testPendingEntry(id int64) domain.DigestEntry {
	return domain.DigestEntry{
		ID: id,
		Announcement: domain.Announcement{
			Fields: domain.Fields{CompanyName: "Acme Corp"},
		},
	}
}

func TestRunStoresDetectedAnnouncements(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 25, 7, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	source := &fakeSource{articles: []domain.Article{
		{Title: "Acme raises $10M", URL: "https://example.com/a", PublishedAt: now},
		{Title: "Weekly roundup", URL: "https://example.com/b", PublishedAt: now},
	}}

	p := NewPipeline(PipelineDeps{
		Source:     source,
		Detector:   fakeDetector{},
		Repository: repo,
		DigestKind: domain.DigestDaily,
	})

	require.NoError(t, p.Run(context.Background(), now))

	// Both articles are stored; only the detected one gets an announcement.
	require.Len(t, repo.articles, 2)
	assert.True(t, repo.articles[0].relevant)
	assert.Equal(t, 80, repo.articles[0].score)
	assert.False(t, repo.articles[1].relevant)
	assert.Equal(t, 0, repo.articles[1].score)
	assert.Len(t, repo.announcements, 1)
}

func TestRunSkipsProcessedAndStaleArticles(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 25, 7, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.processed["https://example.com/seen"] = true

	source := &fakeSource{articles: []domain.Article{
		{Title: "Acme raises $10M", URL: "https://example.com/seen", PublishedAt: now},
		{Title: "Old news raises $1M", URL: "https://example.com/stale", PublishedAt: now.AddDate(0, 0, -90)},
		{Title: "Fresh raises $2M", URL: "https://example.com/fresh", PublishedAt: now},
	}}

	p := NewPipeline(PipelineDeps{
		Source:       source,
		Detector:     fakeDetector{},
		Repository:   repo,
		LookbackDays: 60,
	})

	require.NoError(t, p.Run(context.Background(), now))

	require.Len(t, repo.articles, 1)
	assert.Equal(t, "https://example.com/fresh", repo.articles[0].article.URL)
}

func TestRunToleratesStoreRace(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 25, 7, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	// Not marked processed, but the insert reports a duplicate.
	repo.duplicates["https://example.com/race"] = true

	source := &fakeSource{articles: []domain.Article{
		{Title: "Acme raises $10M", URL: "https://example.com/race", PublishedAt: now},
	}}

	p := NewPipeline(PipelineDeps{
		Source:     source,
		Detector:   fakeDetector{},
		Repository: repo,
	})

	require.NoError(t, p.Run(context.Background(), now))
	assert.Empty(t, repo.announcements)
}

func TestRunFlushesPendingDigest(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 25, 7, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.pending = []domain.DigestEntry{testPendingEntry(4), testPendingEntry(9)}
	sender := &fakeSender{}

	p := NewPipeline(PipelineDeps{
		Source:     &fakeSource{},
		Detector:   fakeDetector{},
		Repository: repo,
		Sender:     sender,
		DigestKind: domain.DigestWeekly,
	})

	require.NoError(t, p.Run(context.Background(), now))

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, domain.DigestWeekly, sender.kind)
	assert.Len(t, sender.entries, 2)
	assert.Equal(t, []int64{4, 9}, repo.marked)
	assert.Equal(t, now.AddDate(0, 0, -7), repo.pendingSince)
}

func TestRunKeepsAnnouncementsPendingOnSendFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 25, 7, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.pending = []domain.DigestEntry{testPendingEntry(4)}
	sender := &fakeSender{err: errors.New("smtp down")}

	p := NewPipeline(PipelineDeps{
		Source:     &fakeSource{},
		Detector:   fakeDetector{},
		Repository: repo,
		Sender:     sender,
	})

	// Delivery failure does not fail the run; the next one retries.
	require.NoError(t, p.Run(context.Background(), now))
	assert.Empty(t, repo.marked)
}

func TestRunWithoutSenderKeepsPending(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 25, 7, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.pending = []domain.DigestEntry{testPendingEntry(4)}

	p := NewPipeline(PipelineDeps{
		Source:     &fakeSource{},
		Detector:   fakeDetector{},
		Repository: repo,
	})

	require.NoError(t, p.Run(context.Background(), now))
	assert.Empty(t, repo.marked)
}

func TestRunCleansUpOldRows(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 25, 7, 0, 0, 0, time.UTC)
	repo := newFakeRepo()

	p := NewPipeline(PipelineDeps{
		Source:        &fakeSource{},
		Detector:      fakeDetector{},
		Repository:    repo,
		RetentionDays: 90,
	})

	require.NoError(t, p.Run(context.Background(), now))
	assert.Equal(t, now.AddDate(0, 0, -90), repo.cleanupCutoff)

	// Cleanup failures are logged, never fatal.
	repo.cleanupErr = errors.New("disk full")
	assert.NoError(t, p.Run(context.Background(), now))
}

func TestRunPropagatesFetchError(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{
		Source:     &fakeSource{err: errors.New("network down")},
		Detector:   fakeDetector{},
		Repository: newFakeRepo(),
	})

	err := p.Run(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch feeds")
}

func TestNewPipelineNormalizesDigestKind(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{DigestKind: "hourly"})
	assert.Equal(t, domain.DigestDaily, p.digestKind)

	p = NewPipeline(PipelineDeps{DigestKind: domain.DigestWeekly})
	assert.Equal(t, domain.DigestWeekly, p.digestKind)
}
