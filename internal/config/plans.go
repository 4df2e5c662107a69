package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_plans.yaml
var defaultPlansYAML []byte

// PlanConfig describes one membership plan in the catalogue file.
type PlanConfig struct {
	Code               string   `yaml:"code"`
	Title              string   `yaml:"title"`
	Description        string   `yaml:"description"`
	Price              int64    `yaml:"price"` // öre
	Credits            int      `yaml:"credits"`
	IsDailyAccess      bool     `yaml:"is_daily_access"`
	MaxDailyAccessGyms int      `yaml:"max_daily_access_gyms"`
	StripePriceID      string   `yaml:"stripe_price_id"`
	Features           []string `yaml:"features"`
	SortOrder          int      `yaml:"sort_order"`
}

type planFile struct {
	Plans []PlanConfig `yaml:"plans"`
}

// LoadPlans reads the plan catalogue from path, or the embedded default when path is empty.
// A plan's Stripe price may also be set through STRIPE_PRICE_<CODE>.
func LoadPlans(path string) ([]PlanConfig, error) {
	data := defaultPlansYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading plans file %s: %w", path, err)
		}
		data = b
	}
	plans, err := parsePlans(data)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		if plans[i].StripePriceID == "" {
			plans[i].StripePriceID = os.Getenv("STRIPE_PRICE_" + strings.ToUpper(plans[i].Code))
		}
	}
	return plans, nil
}

func parsePlans(data []byte) ([]PlanConfig, error) {
	var f planFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing plans: %w", err)
	}
	seen := map[string]bool{}
	for i, p := range f.Plans {
		p.Code = strings.TrimSpace(p.Code)
		if p.Code == "" || p.Title == "" {
			return nil, fmt.Errorf("plan #%d: code and title are required", i+1)
		}
		if seen[p.Code] {
			return nil, fmt.Errorf("plan %q defined twice", p.Code)
		}
		seen[p.Code] = true
		if p.Credits < 0 || p.Price < 0 {
			return nil, fmt.Errorf("plan %q: credits and price must be non-negative", p.Code)
		}
		if p.IsDailyAccess && (p.MaxDailyAccessGyms <= 0 || p.MaxDailyAccessGyms > 3) {
			p.MaxDailyAccessGyms = 3
		}
		if !p.IsDailyAccess {
			p.MaxDailyAccessGyms = 0
		}
		f.Plans[i] = p
	}
	return f.Plans, nil
}
