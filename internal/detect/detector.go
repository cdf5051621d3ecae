package detect

import (
	"log/slog"

	"fundingmonitor/internal/domain"
)

// summaryLimit bounds the stored description length.
const summaryLimit = 500

// FieldExtractor extracts structured fields from the combined text blob
// and the title. It is an interface so tests can instrument invocations.
type FieldExtractor interface {
	Extract(text, title string) domain.Fields
}

// Detector gates articles on the relevance threshold and assembles
// announcements for those that pass. Rejection is a normal outcome, not
// an error; the extractor is never invoked for rejected articles.
type Detector struct {
	scorer    *Scorer
	extractor FieldExtractor
	threshold int
	logger    *slog.Logger
}

// NewDetector wires the scorer and extractor over a shared registry.
func NewDetector(reg *Registry, threshold int, logger *slog.Logger) *Detector {
	return &Detector{
		scorer:    NewScorer(reg),
		extractor: NewExtractor(reg),
		threshold: threshold,
		logger:    logger,
	}
}

// Analyze scores the article and, when the score meets the threshold,
// extracts fields and returns the assembled announcement. The second
// return value reports whether the article was accepted.
func (d *Detector) Analyze(article domain.Article) (domain.Announcement, bool) {
	text := article.Title + ". " + article.Description

	score := d.scorer.Score(text)
	if score < d.threshold {
		d.debug("article below threshold", "score", score, "title", article.Title)
		return domain.Announcement{}, false
	}

	fields := d.extractor.Extract(text, article.Title)

	summary := article.Description
	if runes := []rune(summary); len(runes) > summaryLimit {
		summary = string(runes[:summaryLimit])
	}

	d.info("detected funding announcement",
		"company", fields.CompanyName,
		"stage", fields.FundingStage,
		"score", score)

	return domain.Announcement{
		Article: article,
		Score:   score,
		Fields:  fields,
		Summary: summary,
	}, true
}

func (d *Detector) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *Detector) info(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}
