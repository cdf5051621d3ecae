package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundingmonitor/internal/config"
	"fundingmonitor/internal/domain"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	reg, err := NewRegistry(config.DefaultDetector())
	require.NoError(t, err)
	return NewExtractor(reg)
}

func TestCompanyNameFromTitle(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"verb adjacency", "Acme Corp raises $5M to expand", "Acme Corp"},
		{"secures verb", "Bolt Technologies secures funding from investors", "Bolt Technologies"},
		{"appositive", "Acme Corp, a London fintech, raises $5M", "Acme Corp"},
		{"appositive an", "Orbit AI, an Amsterdam startup, closed its seed round", "Orbit AI"},
		{"has raised mid-title", "Fintech startup Monzo has raised new capital", "Fintech startup Monzo"},
		{"trailing punctuation trimmed", "Acme Corp. raises $5M", "Acme Corp"},
		{"lowercase start", "a startup raises $5M", domain.Unknown},
		{"no pattern", "Weekly venture roundup", domain.Unknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, e.companyName(tt.title))
		})
	}
}

func TestCompanyNameCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)
	assert.Equal(t, "Acme Corp", e.companyName("Acme  Corp raises $5M"))
}

func TestFundingAmountNormalization(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"dollar short unit", "raised $10M in new funding", "$10M"},
		{"dollar long unit", "raised $10 million in new funding", "$10M"},
		{"euro normalized to dollar", "secured €20 million from investors", "$20M"},
		{"pound thousands", "secured £5k from angels", "$5T"},
		{"billion", "a $1.2B round", "$1.2B"},
		{"spelled out", "raised 5 million dollars", "$5M"},
		{"spelled out pounds", "raised 3 billion pounds", "$3B"},
		{"decimal", "raised $7.5m", "$7.5M"},
		{"absent", "raised an undisclosed sum", domain.AmountNotSpecified},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, e.fundingAmount(tt.text))
		})
	}
}

func TestFundingStage(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	assert.Equal(t, "Seed", e.fundingStage("closed its seed round today"))
	assert.Equal(t, "Series A", e.fundingStage("announced a Series A"))
	assert.Equal(t, "Series B", e.fundingStage("a series-b extension"))
	assert.Equal(t, domain.Unknown, e.fundingStage("a growth equity deal"))
}

func TestLocationReturnsMatchedText(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	// The literal matched substring is returned, not a region label.
	assert.Equal(t, "London", e.location("based in London"))
	assert.Equal(t, "Berlin", e.location("based in Berlin"))
	assert.Equal(t, "Tel Aviv", e.location("based in Tel Aviv"))

	// UK outranks Europe when both appear.
	assert.Equal(t, "Manchester", e.location("teams in Manchester and Paris"))

	assert.Equal(t, domain.Unknown, e.location("based in Singapore"))
}

func TestIndustryLabels(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	assert.Equal(t, "Fintech", e.industry("a payments platform"))
	assert.Equal(t, "SaaS", e.industry("an enterprise software vendor"))

	// Fintech outranks SaaS when both appear.
	assert.Equal(t, "Fintech", e.industry("a SaaS neobank"))

	// The generic tier returns the capitalized match, not a fixed label.
	assert.Equal(t, "Healthtech", e.industry("a healthtech provider"))
	assert.Equal(t, "Ai", e.industry("an AI assistant"))

	assert.Equal(t, domain.Unknown, e.industry("a logistics company"))
}

func TestExtractNeverReturnsEmptyFields(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	fields := e.Extract("", "")
	assert.Equal(t, domain.Fields{
		CompanyName:   domain.Unknown,
		FundingStage:  domain.Unknown,
		FundingAmount: domain.AmountNotSpecified,
		Location:      domain.Unknown,
		Industry:      domain.Unknown,
	}, fields)
}

func TestExtractCompanyUsesTitleOnly(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	// The company pattern would match the body text, but only the title
	// is consulted for the name.
	fields := e.Extract("Acme Corp raises $5M", "Weekly venture roundup")
	assert.Equal(t, domain.Unknown, fields.CompanyName)
	assert.Equal(t, "$5M", fields.FundingAmount)
}
