// Package detect implements the funding-announcement detection core:
// a compiled pattern registry, a weighted relevance scorer, and
// priority-ordered field extractors.
package detect

import (
	"fmt"
	"regexp"

	"fundingmonitor/internal/config"
)

// Rule binds one compiled pattern to the label and weight it contributes
// when it is the first match within its axis.
type Rule struct {
	Label   string
	Weight  int
	Pattern *regexp.Regexp
}

// Registry is the immutable compiled pattern set shared by the scorer and
// the extractor. It is built once at startup and never mutated; concurrent
// use requires no locking.
type Registry struct {
	funding    []Rule
	stages     []Rule
	locations  []Rule
	industries []Rule
	company    []*regexp.Regexp
	amounts    []*regexp.Regexp
}

// NewRegistry compiles the configured pattern set. It fails if any pattern
// does not compile, any weight is negative, or an ordered pattern list
// names a region/industry outside the weight table. These are
// configuration errors and fatal at startup.
func NewRegistry(cfg config.DetectorConfig) (*Registry, error) {
	if err := validateWeights(cfg.Weights); err != nil {
		return nil, err
	}

	reg := &Registry{}

	funding, err := regexp.Compile(cfg.Patterns.FundingKeywords)
	if err != nil {
		return nil, fmt.Errorf("compile funding keywords pattern: %w", err)
	}
	reg.funding = []Rule{{Label: "Funding", Weight: cfg.Weights.FundingKeywords, Pattern: funding}}

	for _, stage := range cfg.Patterns.Stages {
		p, err := regexp.Compile(stage.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile stage pattern %q: %w", stage.Name, err)
		}
		reg.stages = append(reg.stages, Rule{Label: stage.Name, Weight: cfg.Weights.FundingStage, Pattern: p})
	}

	locationWeights := map[string]int{
		config.RegionUK:         cfg.Weights.UKLocation,
		config.RegionEurope:     cfg.Weights.EULocation,
		config.RegionMiddleEast: cfg.Weights.MELocation,
	}
	for _, loc := range cfg.Patterns.Locations {
		weight, ok := locationWeights[loc.Name]
		if !ok {
			return nil, fmt.Errorf("location pattern %q has no weight table entry", loc.Name)
		}
		p, err := regexp.Compile(loc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile location pattern %q: %w", loc.Name, err)
		}
		reg.locations = append(reg.locations, Rule{Label: loc.Name, Weight: weight, Pattern: p})
	}

	industryWeights := map[string]int{
		config.IndustryFintech: cfg.Weights.Fintech,
		config.IndustrySaaS:    cfg.Weights.SaaS,
		config.IndustryTech:    cfg.Weights.Tech,
	}
	for _, ind := range cfg.Patterns.Industries {
		weight, ok := industryWeights[ind.Name]
		if !ok {
			return nil, fmt.Errorf("industry pattern %q has no weight table entry", ind.Name)
		}
		p, err := regexp.Compile(ind.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile industry pattern %q: %w", ind.Name, err)
		}
		reg.industries = append(reg.industries, Rule{Label: ind.Name, Weight: weight, Pattern: p})
	}

	for i, raw := range cfg.Patterns.Company {
		p, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile company pattern %d: %w", i+1, err)
		}
		reg.company = append(reg.company, p)
	}

	for i, raw := range cfg.Patterns.Amounts {
		p, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile amount pattern %d: %w", i+1, err)
		}
		reg.amounts = append(reg.amounts, p)
	}

	return reg, nil
}

func validateWeights(w config.WeightsConfig) error {
	weights := map[string]int{
		"fundingKeywords": w.FundingKeywords,
		"fundingStage":    w.FundingStage,
		"ukLocation":      w.UKLocation,
		"euLocation":      w.EULocation,
		"meLocation":      w.MELocation,
		"fintech":         w.Fintech,
		"saas":            w.SaaS,
		"tech":            w.Tech,
	}
	for name, value := range weights {
		if value < 0 {
			return fmt.Errorf("weight %s is negative (%d)", name, value)
		}
	}
	return nil
}

// firstMatch walks an ordered rule list and returns the first rule whose
// pattern matches. Later rules in the same axis are suppressed.
func firstMatch(rules []Rule, text string) (Rule, bool) {
	for _, rule := range rules {
		if rule.Pattern.MatchString(text) {
			return rule, true
		}
	}
	return Rule{}, false
}
