package domain

import "time"

// Sentinels for extracted fields. Absence is always one of these values,
// never an empty string.
const (
	Unknown            = "Unknown"
	AmountNotSpecified = "Not specified"
)

// Article is a single feed entry handed to the detector. Title and
// Description are HTML-stripped plain text.
type Article struct {
	Title       string
	Description string
	URL         string
	Source      string
	PublishedAt time.Time
}

// Fields holds the structured details extracted from an announcement.
type Fields struct {
	CompanyName   string
	FundingStage  string
	FundingAmount string
	Location      string
	Industry      string
}

// Announcement is a detected funding announcement. It exists only for
// articles whose relevance score met the threshold.
type Announcement struct {
	Article Article
	Score   int
	Fields  Fields
	// Summary is the article description truncated for storage.
	Summary string
}

// DigestEntry is a stored announcement queued for the next digest.
type DigestEntry struct {
	ID           int64
	Announcement Announcement
}

// DigestKind selects the digest cadence and lookback window.
type DigestKind string

const (
	DigestDaily  DigestKind = "daily"
	DigestWeekly DigestKind = "weekly"
)

// LookbackDays returns the pending-announcement window for the cadence.
func (k DigestKind) LookbackDays() int {
	if k == DigestWeekly {
		return 7
	}
	return 1
}

// Stats are repository counters used for the run summary.
type Stats struct {
	TotalArticles      int
	FundingArticles    int
	TotalAnnouncements int
	Digested           int
	Pending            int
}
