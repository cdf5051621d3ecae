package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "FUNDING_MONITOR_CONFIG"
	databasePathEnv = "DATABASE_PATH"
	smtpUsernameEnv = "SMTP_USERNAME"
	smtpPasswordEnv = "SMTP_PASSWORD"
	recipientEnv    = "RECIPIENT_EMAIL"
	digestTypeEnv   = "DIGEST_TYPE"
	logLevelEnv     = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Feeds     []FeedConfig    `yaml:"feeds"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Email     EmailConfig     `yaml:"email"`
	Detector  DetectorConfig  `yaml:"detector"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the SQLite store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	CleanupDays int    `yaml:"cleanupDays"`
}

// SchedulerConfig defines when the pipeline should run. An empty cron
// expression means a single run-and-exit invocation.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// FeedConfig describes a single RSS feed to monitor.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FetcherConfig tunes HTTP behavior for feed retrieval.
type FetcherConfig struct {
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	Retries        int    `yaml:"retries"`
	BackoffSeconds int    `yaml:"backoffSeconds"`
	DelaySeconds   int    `yaml:"delaySeconds"`
	UserAgent      string `yaml:"userAgent"`
}

// EmailConfig wires SMTP digest delivery.
type EmailConfig struct {
	SMTPHost   string `yaml:"smtpHost"`
	SMTPPort   int    `yaml:"smtpPort"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Recipient  string `yaml:"recipient"`
	BackupDir  string `yaml:"backupDir"`
	DigestType string `yaml:"digestType"`
}

// DetectorConfig is the full tunable surface of the detection core: the
// relevance threshold, the weight table, and the pattern set. Patterns are
// compiled once at startup; a pattern that fails to compile or a negative
// weight is a fatal configuration error.
type DetectorConfig struct {
	Threshold    int            `yaml:"threshold"`
	LookbackDays int            `yaml:"lookbackDays"`
	Weights      WeightsConfig  `yaml:"weights"`
	Patterns     PatternsConfig `yaml:"patterns"`
}

// WeightsConfig is the scoring weight table (points out of 100).
type WeightsConfig struct {
	FundingKeywords int `yaml:"fundingKeywords"`
	FundingStage    int `yaml:"fundingStage"`
	UKLocation      int `yaml:"ukLocation"`
	EULocation      int `yaml:"euLocation"`
	MELocation      int `yaml:"meLocation"`
	Fintech         int `yaml:"fintech"`
	SaaS            int `yaml:"saas"`
	Tech            int `yaml:"tech"`
}

// NamedPattern pairs a label with a regular expression. Order in the
// containing list is the priority order: first match wins.
type NamedPattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// PatternsConfig holds every regex the detector evaluates.
type PatternsConfig struct {
	FundingKeywords string         `yaml:"fundingKeywords"`
	Stages          []NamedPattern `yaml:"stages"`
	Locations       []NamedPattern `yaml:"locations"`
	Industries      []NamedPattern `yaml:"industries"`
	Company         []string       `yaml:"company"`
	Amounts         []string       `yaml:"amounts"`
}

// Load reads the optional .env file and YAML configuration (if present)
// and applies environment overrides.
func Load() Config {
	// .env is optional; deployed environments set variables directly.
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(smtpUsernameEnv); v != "" {
		c.Email.Username = v
	}

	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Email.Password = v
	}

	if v := os.Getenv(recipientEnv); v != "" {
		c.Email.Recipient = v
	}

	if v := os.Getenv(digestTypeEnv); v != "" {
		c.Email.DigestType = v
	}

	if c.Email.Recipient == "" {
		c.Email.Recipient = c.Email.Username
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}
	if override.Database.CleanupDays > 0 {
		base.Database.CleanupDays = override.Database.CleanupDays
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	base.Fetcher = mergeFetcher(base.Fetcher, override.Fetcher)
	base.Email = mergeEmail(base.Email, override.Email)
	base.Detector = mergeDetector(base.Detector, override.Detector)

	return base
}

func mergeFetcher(base, override FetcherConfig) FetcherConfig {
	if override.TimeoutSeconds > 0 {
		base.TimeoutSeconds = override.TimeoutSeconds
	}
	if override.Retries > 0 {
		base.Retries = override.Retries
	}
	if override.BackoffSeconds > 0 {
		base.BackoffSeconds = override.BackoffSeconds
	}
	if override.DelaySeconds > 0 {
		base.DelaySeconds = override.DelaySeconds
	}
	if override.UserAgent != "" {
		base.UserAgent = override.UserAgent
	}
	return base
}

func mergeEmail(base, override EmailConfig) EmailConfig {
	if override.SMTPHost != "" {
		base.SMTPHost = override.SMTPHost
	}
	if override.SMTPPort > 0 {
		base.SMTPPort = override.SMTPPort
	}
	if override.Username != "" {
		base.Username = override.Username
	}
	if override.Password != "" {
		base.Password = override.Password
	}
	if override.Recipient != "" {
		base.Recipient = override.Recipient
	}
	if override.BackupDir != "" {
		base.BackupDir = override.BackupDir
	}
	if override.DigestType != "" {
		base.DigestType = override.DigestType
	}
	return base
}

func mergeDetector(base, override DetectorConfig) DetectorConfig {
	if override.Threshold > 0 {
		base.Threshold = override.Threshold
	}
	if override.LookbackDays > 0 {
		base.LookbackDays = override.LookbackDays
	}

	if override.Weights != (WeightsConfig{}) {
		base.Weights = override.Weights
	}

	p := override.Patterns
	if p.FundingKeywords != "" {
		base.Patterns.FundingKeywords = p.FundingKeywords
	}
	if len(p.Stages) > 0 {
		base.Patterns.Stages = p.Stages
	}
	if len(p.Locations) > 0 {
		base.Patterns.Locations = p.Locations
	}
	if len(p.Industries) > 0 {
		base.Patterns.Industries = p.Industries
	}
	if len(p.Company) > 0 {
		base.Patterns.Company = p.Company
	}
	if len(p.Amounts) > 0 {
		base.Patterns.Amounts = p.Amounts
	}

	return base
}
