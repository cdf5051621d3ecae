package detect

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"fundingmonitor/internal/config"
	"fundingmonitor/internal/domain"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Extractor pulls structured fields out of article text. Each field is
// extracted independently; absence resolves to a sentinel, never an error.
type Extractor struct {
	registry *Registry
}

// NewExtractor builds an extractor over the shared registry.
func NewExtractor(reg *Registry) *Extractor {
	return &Extractor{registry: reg}
}

// Extract attempts all five fields. The company name is taken from the
// title alone; everything else from the combined text blob.
func (e *Extractor) Extract(text, title string) domain.Fields {
	return domain.Fields{
		CompanyName:   e.companyName(title),
		FundingStage:  e.fundingStage(text),
		FundingAmount: e.fundingAmount(text),
		Location:      e.location(text),
		Industry:      e.industry(text),
	}
}

// companyName tries the title-anchored patterns in priority order: verb
// adjacency, then appositive, then the looser "has raised" form.
func (e *Extractor) companyName(title string) string {
	for _, p := range e.registry.company {
		m := p.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		return cleanCompanyName(m[1])
	}
	return domain.Unknown
}

// cleanCompanyName trims trailing punctuation and collapses internal
// whitespace runs to single spaces.
func cleanCompanyName(name string) string {
	name = strings.TrimRight(name, ".,;:")
	name = whitespaceRun.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

func (e *Extractor) fundingStage(text string) string {
	if rule, ok := firstMatch(e.registry.stages, text); ok {
		return rule.Label
	}
	return domain.Unknown
}

// fundingAmount normalizes any matched amount to "$<amount><UnitInitial>".
// The source currency symbol is not preserved; only the numeric magnitude
// and the scale letter survive.
func (e *Extractor) fundingAmount(text string) string {
	for _, p := range e.registry.amounts {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		switch len(m) {
		case 3: // symbol-prefixed: $10M, £5m, €20B
			amount, unit := m[1], normalizeUnit(m[2])
			return "$" + amount + upperInitial(unit)
		case 4: // spelled out: "10 million dollars"
			amount, unit := m[1], m[2]
			return "$" + amount + upperInitial(unit)
		}
	}
	return domain.AmountNotSpecified
}

// normalizeUnit maps a unit token to its full word by leading character:
// k → thousand, m → million, b → billion.
func normalizeUnit(unit string) string {
	switch {
	case unit == "":
		return unit
	case unit[0] == 'm' || unit[0] == 'M':
		return "million"
	case unit[0] == 'b' || unit[0] == 'B':
		return "billion"
	case unit[0] == 'k' || unit[0] == 'K':
		return "thousand"
	default:
		return strings.ToLower(unit)
	}
}

func upperInitial(word string) string {
	if word == "" {
		return ""
	}
	return strings.ToUpper(word[:1])
}

// location returns the literal matched substring of the first region
// pattern (UK before EU before ME), not a normalized label.
func (e *Extractor) location(text string) string {
	for _, rule := range e.registry.locations {
		if m := rule.Pattern.FindString(text); m != "" {
			return m
		}
	}
	return domain.Unknown
}

// industry returns the fixed label for fintech and SaaS; for the generic
// tech tier it returns the matched substring capitalized.
func (e *Extractor) industry(text string) string {
	for _, rule := range e.registry.industries {
		m := rule.Pattern.FindString(text)
		if m == "" {
			continue
		}
		if rule.Label == config.IndustryTech {
			return capitalize(m)
		}
		return rule.Label
	}
	return domain.Unknown
}

// capitalize uppercases the first rune and lowercases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
