// Package email renders and delivers digest emails over SMTP.
package email

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"fundingmonitor/internal/config"
	"fundingmonitor/internal/domain"
	"fundingmonitor/internal/ports"
)

//go:embed templates/digest.html
var digestTemplate string

const (
	subjectDaily  = "Daily Funding Digest - %d New Opportunities - %s"
	subjectWeekly = "Weekly Funding Digest - %d New Opportunities - Week of %s"
)

// Sender renders HTML and plain-text digests and sends them via SMTP with
// STARTTLS. On a send failure the rendered HTML is written to the backup
// directory for manual recovery.
type Sender struct {
	cfg    config.EmailConfig
	tmpl   *template.Template
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.DigestSender = (*Sender)(nil)

// NewSender parses the embedded template and validates credentials.
func NewSender(cfg config.EmailConfig, logger *slog.Logger) (*Sender, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("email credentials not configured")
	}

	tmpl, err := template.New("digest").Parse(digestTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse digest template: %w", err)
	}

	return &Sender{cfg: cfg, tmpl: tmpl, logger: logger, now: time.Now}, nil
}

type entryView struct {
	Company     string
	Stage       string
	Amount      string
	Location    string
	Industry    string
	Score       int
	Description string
	URL         string
	Source      string
}

type digestView struct {
	Date        string
	Days        int
	Total       int
	Entries     []entryView
	GeneratedAt string
}

// SendDigest renders and delivers the digest for the given entries.
func (s *Sender) SendDigest(ctx context.Context, entries []domain.DigestEntry, kind domain.DigestKind) error {
	view := s.buildView(entries, kind)
	subject := s.subject(len(entries), kind)

	html, err := s.renderHTML(view)
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}
	plain := renderPlainText(view)

	if err := s.send(ctx, subject, html, plain); err != nil {
		s.saveBackup(html, kind)
		return fmt.Errorf("send digest: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("digest sent", "kind", string(kind), "announcements", len(entries), "to", s.cfg.Recipient)
	}
	return nil
}

func (s *Sender) buildView(entries []domain.DigestEntry, kind domain.DigestKind) digestView {
	now := s.now()
	view := digestView{
		Date:        now.Format("January 2, 2006"),
		Days:        kind.LookbackDays(),
		Total:       len(entries),
		GeneratedAt: now.UTC().Format("2006-01-02 15:04 UTC"),
	}

	for _, entry := range entries {
		ann := entry.Announcement
		view.Entries = append(view.Entries, entryView{
			Company:     ann.Fields.CompanyName,
			Stage:       ann.Fields.FundingStage,
			Amount:      ann.Fields.FundingAmount,
			Location:    ann.Fields.Location,
			Industry:    ann.Fields.Industry,
			Score:       ann.Score,
			Description: ann.Summary,
			URL:         ann.Article.URL,
			Source:      ann.Article.Source,
		})
	}

	return view
}

func (s *Sender) subject(count int, kind domain.DigestKind) string {
	date := s.now().Format("2006-01-02")
	if kind == domain.DigestWeekly {
		return fmt.Sprintf(subjectWeekly, count, date)
	}
	return fmt.Sprintf(subjectDaily, count, date)
}

func (s *Sender) renderHTML(view digestView) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderPlainText is the fallback body for clients that do not render HTML.
func renderPlainText(view digestView) string {
	var b strings.Builder

	divider := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "Venture Funding Digest - %s\n%s\n\n", view.Date, divider)
	fmt.Fprintf(&b, "%d new funding announcement(s) in the last %d day(s)\n", view.Total, view.Days)
	b.WriteString("Geographic Focus: UK, Europe & Middle East\n")
	b.WriteString("Stages: Seed to Series C | Priority: Fintech & SaaS\n\n")
	b.WriteString(divider + "\n\n")

	if len(view.Entries) == 0 {
		b.WriteString("No new funding announcements matching your criteria were found in this period.\n\n")
	}
	for i, entry := range view.Entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, entry.Company)
		fmt.Fprintf(&b, "   Stage: %s\n", entry.Stage)
		fmt.Fprintf(&b, "   Amount: %s\n", entry.Amount)
		fmt.Fprintf(&b, "   Location: %s\n", entry.Location)
		fmt.Fprintf(&b, "   Industry: %s\n", entry.Industry)
		fmt.Fprintf(&b, "   Description: %s\n", entry.Description)
		fmt.Fprintf(&b, "   Read more: %s\n\n", entry.URL)
	}

	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "Generated automatically by Funding Monitor on %s\n", view.GeneratedAt)

	return b.String()
}

func (s *Sender) send(ctx context.Context, subject, html, plain string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.Username); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(s.cfg.Recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, plain)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	client, err := mail.NewClient(s.cfg.SMTPHost,
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, msg)
}

// saveBackup writes the rendered HTML to disk so a failed delivery can be
// recovered manually.
func (s *Sender) saveBackup(html string, kind domain.DigestKind) {
	dir := s.cfg.BackupDir
	if dir == "" {
		dir = "backup_digests"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.warn("cannot create backup directory", "dir", dir, "error", err)
		return
	}

	name := fmt.Sprintf("%s_digest_%s.html", kind, s.now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		s.warn("cannot write backup digest", "path", path, "error", err)
		return
	}

	if s.logger != nil {
		s.logger.Info("saved backup digest", "path", path)
	}
}

func (s *Sender) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
