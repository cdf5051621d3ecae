// Package feed retrieves and parses the configured RSS feeds.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"fundingmonitor/internal/config"
	"fundingmonitor/internal/domain"
	"fundingmonitor/internal/ports"
	"fundingmonitor/internal/retry"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultDelay     = 2 * time.Second
	maxFeedBodyBytes = 8 << 20
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// statusError reports a non-2xx feed response.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.status)
}

// Fetcher retrieves all configured feeds over HTTP with retry/backoff and
// parses them into articles. A failing feed is skipped with a warning;
// it never aborts the whole run.
type Fetcher struct {
	client    *http.Client
	parser    *gofeed.Parser
	feeds     []config.FeedConfig
	retry     retry.Config
	delay     time.Duration
	userAgent string
	logger    *slog.Logger
	now       func() time.Time
}

var _ ports.ArticleSource = (*Fetcher)(nil)

// NewFetcher wires an HTTP client from configuration.
func NewFetcher(cfg config.FetcherConfig, feeds []config.FeedConfig, logger *slog.Logger) *Fetcher {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	delay := defaultDelay
	if cfg.DelaySeconds > 0 {
		delay = time.Duration(cfg.DelaySeconds) * time.Second
	}

	retryCfg := retry.DefaultConfig()
	if cfg.Retries > 0 {
		retryCfg.MaxAttempts = cfg.Retries
	}
	if cfg.BackoffSeconds > 0 {
		retryCfg.InitialDelay = time.Duration(cfg.BackoffSeconds) * time.Second
	}
	retryCfg.IsRetryable = isRetryable

	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		parser:    gofeed.NewParser(),
		feeds:     feeds,
		retry:     retryCfg,
		delay:     delay,
		userAgent: cfg.UserAgent,
		logger:    logger,
		now:       time.Now,
	}
}

// FetchAll retrieves every configured feed in order, pausing between
// requests to stay polite with the upstream servers.
func (f *Fetcher) FetchAll(ctx context.Context) ([]domain.Article, error) {
	var all []domain.Article

	for i, fc := range f.feeds {
		if i > 0 {
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(f.delay):
			}
		}

		f.debug("fetching feed", "feed", fc.Name, "url", fc.URL)

		body, err := f.fetchFeed(ctx, fc.URL)
		if err != nil {
			f.warn("skipping feed after fetch error", "feed", fc.Name, "error", err)
			continue
		}

		articles, err := f.parseFeed(body, fc.Name)
		if err != nil {
			f.warn("skipping feed after parse error", "feed", fc.Name, "error", err)
			continue
		}

		f.debug("feed produced articles", "feed", fc.Name, "count", len(articles))
		all = append(all, articles...)
	}

	f.info("feed fetch complete", "feeds", len(f.feeds), "articles", len(all))
	return all, nil
}

// fetchFeed GETs the feed body, retrying 429/5xx responses and network
// errors with exponential backoff. Other HTTP errors fail immediately.
func (f *Fetcher) fetchFeed(ctx context.Context, url string) (string, error) {
	var body string

	err := retry.Do(ctx, f.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("request feed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &statusError{code: resp.StatusCode, status: resp.Status}
		}

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodyBytes))
		if err != nil {
			return fmt.Errorf("read feed body: %w", err)
		}

		body = string(raw)
		return nil
	})
	if err != nil {
		return "", err
	}

	return body, nil
}

func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
	}
	// Network-level failures are worth another attempt.
	return true
}

// parseFeed turns a feed body into articles. Entries without a title or
// link are skipped; descriptions are HTML-stripped.
func (f *Fetcher) parseFeed(body, sourceName string) ([]domain.Article, error) {
	parsed, err := f.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	articles := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		articles = append(articles, domain.Article{
			Title:       title,
			Description: stripHTML(description),
			URL:         link,
			Source:      sourceName,
			PublishedAt: f.publishedAt(item),
		})
	}

	return articles, nil
}

// publishedAt prefers the parsed published date, falls back to the
// updated date, then to fetch time.
func (f *Fetcher) publishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return f.now()
}

// stripHTML reduces feed description markup to plain text and collapses
// whitespace runs.
func stripHTML(text string) string {
	if text == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err == nil {
		text = doc.Text()
	}

	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *Fetcher) info(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Info(msg, args...)
	}
}

func (f *Fetcher) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
