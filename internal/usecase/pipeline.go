package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fundingmonitor/internal/domain"
	"fundingmonitor/internal/ports"
)

// PipelineDeps wires all driven adapters into the monitoring pipeline.
type PipelineDeps struct {
	Source        ports.ArticleSource
	Detector      ports.Detector
	Repository    ports.AnnouncementRepository
	Sender        ports.DigestSender
	DigestKind    domain.DigestKind
	LookbackDays  int
	RetentionDays int
	Logger        *slog.Logger
}

// Pipeline implements one complete monitoring pass: fetch feeds, skip
// already-processed articles, detect announcements, persist, flush the
// pending digest, and clean up old rows.
type Pipeline struct {
	source        ports.ArticleSource
	detector      ports.Detector
	repository    ports.AnnouncementRepository
	sender        ports.DigestSender
	digestKind    domain.DigestKind
	lookbackDays  int
	retentionDays int
	logger        *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	kind := deps.DigestKind
	if kind != domain.DigestWeekly {
		kind = domain.DigestDaily
	}
	return &Pipeline{
		source:        deps.Source,
		detector:      deps.Detector,
		repository:    deps.Repository,
		sender:        deps.Sender,
		digestKind:    kind,
		lookbackDays:  deps.LookbackDays,
		retentionDays: deps.RetentionDays,
		logger:        deps.Logger,
	}
}

// Run executes a single monitoring pass. A pass with zero new articles
// still flushes any announcements pending from earlier runs.
func (p *Pipeline) Run(ctx context.Context, now time.Time) error {
	if p.source == nil || p.detector == nil || p.repository == nil {
		return nil
	}

	articles, err := p.source.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch feeds: %w", err)
	}

	newCount, detected, err := p.processArticles(ctx, articles, now)
	if err != nil {
		return err
	}

	sent, err := p.flushDigest(ctx, now)
	if err != nil {
		// Announcements stay pending; the next run retries them.
		p.warn("digest delivery failed", "error", err)
	}

	if p.retentionDays > 0 {
		cutoff := now.AddDate(0, 0, -p.retentionDays)
		deleted, cleanErr := p.repository.Cleanup(ctx, cutoff)
		if cleanErr != nil {
			p.warn("cleanup failed", "error", cleanErr)
		} else if deleted > 0 {
			p.info("cleaned up old articles", "deleted", deleted)
		}
	}

	p.logSummary(ctx, len(articles), newCount, detected, sent)
	return nil
}

func (p *Pipeline) processArticles(ctx context.Context, articles []domain.Article, now time.Time) (newCount, detected int, err error) {
	var ageCutoff time.Time
	if p.lookbackDays > 0 {
		ageCutoff = now.AddDate(0, 0, -p.lookbackDays)
	}

	for _, article := range articles {
		if p.lookbackDays > 0 && article.PublishedAt.Before(ageCutoff) {
			continue
		}

		processed, err := p.repository.IsProcessed(ctx, article.URL)
		if err != nil {
			return newCount, detected, fmt.Errorf("check processed %s: %w", article.URL, err)
		}
		if processed {
			continue
		}
		newCount++

		ann, ok := p.detector.Analyze(article)
		score := 0
		if ok {
			score = ann.Score
		}

		articleID, err := p.repository.StoreArticle(ctx, article, ok, score)
		if errors.Is(err, ports.ErrDuplicateArticle) {
			continue
		}
		if err != nil {
			return newCount, detected, fmt.Errorf("store article %s: %w", article.URL, err)
		}

		if ok {
			if _, err := p.repository.StoreAnnouncement(ctx, articleID, ann); err != nil {
				return newCount, detected, fmt.Errorf("store announcement %s: %w", article.URL, err)
			}
			detected++
		}
	}

	return newCount, detected, nil
}

// flushDigest sends all pending announcements inside the digest window and
// marks them so they are never re-sent.
func (p *Pipeline) flushDigest(ctx context.Context, now time.Time) (int, error) {
	since := now.AddDate(0, 0, -p.digestKind.LookbackDays())

	pending, err := p.repository.PendingAnnouncements(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("load pending announcements: %w", err)
	}
	if len(pending) == 0 {
		p.info("no pending announcements for digest")
		return 0, nil
	}
	if p.sender == nil {
		p.warn("digest sender not configured, keeping announcements pending", "count", len(pending))
		return 0, nil
	}

	if err := p.sender.SendDigest(ctx, pending, p.digestKind); err != nil {
		return 0, err
	}

	ids := make([]int64, len(pending))
	for i, entry := range pending {
		ids[i] = entry.ID
	}
	if err := p.repository.MarkDigested(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark digested: %w", err)
	}

	return len(pending), nil
}

func (p *Pipeline) logSummary(ctx context.Context, fetched, newCount, detected, sent int) {
	args := []any{
		"fetched", fetched,
		"new", newCount,
		"detected", detected,
		"sent", sent,
	}

	if stats, err := p.repository.Stats(ctx); err == nil {
		args = append(args,
			"db_articles", stats.TotalArticles,
			"db_funding", stats.FundingArticles,
			"db_pending", stats.Pending,
		)
	}

	p.info("monitoring pass complete", args...)
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
