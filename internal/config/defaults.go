package config

import "time"

// Region and industry names used to bind ordered pattern lists to their
// weight-table entries. The registry rejects names outside these sets.
const (
	RegionUK         = "UK"
	RegionEurope     = "Europe"
	RegionMiddleEast = "Middle East"

	IndustryFintech = "Fintech"
	IndustrySaaS    = "SaaS"
	IndustryTech    = "Tech"
)

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Database: DatabaseConfig{
			Path:        "data/funding_monitor.db",
			CleanupDays: 90,
		},
		Scheduler: SchedulerConfig{
			CronExpression: "0 7 * * *",
			Timezone:       defaultTimezone,
			location:       tz,
		},
		Feeds: []FeedConfig{
			{Name: "TechCrunch", URL: "https://techcrunch.com/feed/"},
			{Name: "Sifted", URL: "https://sifted.eu/feed"},
			{Name: "VentureBeat", URL: "https://venturebeat.com/feed/"},
			{Name: "Crunchbase News", URL: "https://news.crunchbase.com/feed/"},
		},
		Fetcher: FetcherConfig{
			TimeoutSeconds: 10,
			Retries:        3,
			BackoffSeconds: 1,
			DelaySeconds:   2,
			UserAgent:      "FundingMonitor/1.0 (+https://github.com/fundingmonitor)",
		},
		Email: EmailConfig{
			SMTPHost:   "smtp.gmail.com",
			SMTPPort:   587,
			BackupDir:  "backup_digests",
			DigestType: "daily",
		},
		Detector: DefaultDetector(),
	}
}

// DefaultDetector carries the authoritative pattern and weight tables.
// All patterns are case-insensitive and word-boundary anchored unless the
// structure of the expression requires otherwise (company-name patterns
// are case-sensitive and anchored to the title start).
func DefaultDetector() DetectorConfig {
	return DetectorConfig{
		Threshold:    50,
		LookbackDays: 60,
		Weights: WeightsConfig{
			FundingKeywords: 30,
			FundingStage:    20,
			UKLocation:      30,
			EULocation:      15,
			MELocation:      15,
			Fintech:         20,
			SaaS:            20,
			Tech:            10,
		},
		Patterns: PatternsConfig{
			FundingKeywords: `(?i)\b(raises?|raised|secures?|secured|closes?|closed|funding|investment|backs?|backed)\b`,
			Stages: []NamedPattern{
				{Name: "Seed", Pattern: `(?i)\b(seed\s+round|seed\s+funding|pre-seed)\b`},
				{Name: "Series A", Pattern: `(?i)\b(series\s+a|series-a)\b`},
				{Name: "Series B", Pattern: `(?i)\b(series\s+b|series-b)\b`},
				{Name: "Series C", Pattern: `(?i)\b(series\s+c|series-c)\b`},
			},
			Locations: []NamedPattern{
				{Name: RegionUK, Pattern: `(?i)\b(UK|U\.K\.|United Kingdom|London|Manchester|Edinburgh|Bristol|Cambridge|Oxford|Birmingham|Leeds|Glasgow)\b`},
				{Name: RegionEurope, Pattern: `(?i)\b(Europe|European|Berlin|Paris|Amsterdam|Stockholm|Dublin|Copenhagen|Zurich|Barcelona|Madrid|Milan|Lisbon|Brussels|Munich|Hamburg|Vienna)\b`},
				{Name: RegionMiddleEast, Pattern: `(?i)\b(Middle East|Dubai|Abu Dhabi|UAE|U\.A\.E\.|Tel Aviv|Israel|Israeli|Riyadh|Saudi Arabia|Bahrain|Qatar|Doha|Kuwait)\b`},
			},
			Industries: []NamedPattern{
				{Name: IndustryFintech, Pattern: `(?i)\b(fintech|financial\s+technology|payments?|banking|digital\s+bank|neobank|crypto(?:currency)?|blockchain|digital\s+wallet|wealthtech)\b`},
				{Name: IndustrySaaS, Pattern: `(?i)\b(SaaS|software-as-a-service|B2B\s+software|enterprise\s+software|cloud\s+software|cloud\s+platform)\b`},
				{Name: IndustryTech, Pattern: `(?i)\b(tech-enabled|proptech|healthtech|edtech|insurtech|AI|artificial\s+intelligence|machine\s+learning|data\s+analytics|cybersecurity)\b`},
			},
			Company: []string{
				// "CompanyName raises $X" (name immediately precedes a funding verb)
				`^([A-Z][A-Za-z0-9\s&.'-]{2,40}?)\s+(?:raises?|secures?|closes?|lands?)`,
				// "CompanyName, a [description], ..." (appositive)
				`^([A-Z][A-Za-z0-9\s&.'-]{2,40}?),\s+an?\s+`,
				// "CompanyName has raised" (looser, unanchored)
				`([A-Z][A-Za-z0-9\s&.'-]{2,40}?)\s+(?:has\s+)?(?:raised|secured)`,
			},
			Amounts: []string{
				// $10M, £5m, €20B
				`(?i)[$£€]\s*(\d+(?:\.\d+)?)\s*(m(?:illion)?|b(?:illion)?|k(?:thousand)?)\b`,
				// "10 million dollars"
				`(?i)(\d+(?:\.\d+)?)\s*(million|billion)\s*(dollars?|pounds?|euros?)`,
			},
		},
	}
}
