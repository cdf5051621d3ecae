package email

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundingmonitor/internal/config"
	"fundingmonitor/internal/domain"
)

func testConfig(backupDir string) config.EmailConfig {
	return config.EmailConfig{
		SMTPHost:  "smtp.example.com",
		SMTPPort:  587,
		Username:  "monitor@example.com",
		Password:  "secret",
		Recipient: "founder@example.com",
		BackupDir: backupDir,
	}
}

func testEntries() []domain.DigestEntry {
	return []domain.DigestEntry{
		{
			ID: 1,
			Announcement: domain.Announcement{
				Article: domain.Article{
					URL:    "https://example.com/acme",
					Title:  "Acme Corp raises $10M Series A",
					Source: "TechCrunch",
				},
				Score: 100,
				Fields: domain.Fields{
					CompanyName:   "Acme Corp",
					FundingStage:  "Series A",
					FundingAmount: "$10M",
					Location:      "London",
					Industry:      "Fintech",
				},
				Summary: "The London fintech expands.",
			},
		},
	}
}

func TestNewSenderRequiresCredentials(t *testing.T) {
	t.Parallel()

	cfg := testConfig("")
	cfg.Password = ""

	_, err := NewSender(cfg, nil)
	assert.Error(t, err)
}

func TestRenderHTMLDigest(t *testing.T) {
	t.Parallel()

	s, err := NewSender(testConfig(""), nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, time.August, 25, 7, 0, 0, 0, time.UTC) }

	view := s.buildView(testEntries(), domain.DigestDaily)
	html, err := s.renderHTML(view)
	require.NoError(t, err)

	assert.Contains(t, html, "Acme Corp")
	assert.Contains(t, html, "Series A")
	assert.Contains(t, html, "$10M")
	assert.Contains(t, html, "London")
	assert.Contains(t, html, "Fintech")
	assert.Contains(t, html, "https://example.com/acme")
	assert.Contains(t, html, "August 25, 2026")
	assert.Contains(t, html, "1 new funding announcement(s) in the last 1 day(s)")
}

func TestRenderHTMLEmptyDigest(t *testing.T) {
	t.Parallel()

	s, err := NewSender(testConfig(""), nil)
	require.NoError(t, err)

	html, err := s.renderHTML(s.buildView(nil, domain.DigestWeekly))
	require.NoError(t, err)
	assert.Contains(t, html, "No new funding announcements")
	assert.Contains(t, html, "last 7 day(s)")
}

func TestRenderPlainTextDigest(t *testing.T) {
	t.Parallel()

	s, err := NewSender(testConfig(""), nil)
	require.NoError(t, err)

	plain := renderPlainText(s.buildView(testEntries(), domain.DigestDaily))

	assert.Contains(t, plain, "1. Acme Corp")
	assert.Contains(t, plain, "Stage: Series A")
	assert.Contains(t, plain, "Amount: $10M")
	assert.Contains(t, plain, "Read more: https://example.com/acme")
	assert.NotContains(t, plain, "<")
}

func TestSubjectLines(t *testing.T) {
	t.Parallel()

	s, err := NewSender(testConfig(""), nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, time.August, 25, 7, 0, 0, 0, time.UTC) }

	assert.Equal(t,
		"Daily Funding Digest - 3 New Opportunities - 2026-08-25",
		s.subject(3, domain.DigestDaily))
	assert.Equal(t,
		"Weekly Funding Digest - 12 New Opportunities - Week of 2026-08-25",
		s.subject(12, domain.DigestWeekly))
}

func TestSaveBackupWritesHTML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewSender(testConfig(dir), nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, time.August, 25, 7, 30, 0, 0, time.UTC) }

	s.saveBackup("<html>digest</html>", domain.DigestDaily)

	path := filepath.Join(dir, "daily_digest_2026-08-25_07-30-00.html")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>digest</html>", string(raw))
}
