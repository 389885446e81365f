package subscription

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileSource loads the plan catalog from a YAML file so pricing can ship as
// deployment config instead of a code change.
type fileSource struct {
	path string
}

// NewFileSource returns a CatalogSource reading plans from a YAML file.
//
// Expected document shape:
//
//	plans:
//	  - id: starter
//	    name: Starter
//	    monthly_price: {amount: 1900, currency: USD}
//	    yearly_price: {amount: 17100, currency: USD}
//	    photo_credits: 50
//	    max_models: 1
//	    max_parallel_generation: 1
//	    capabilities:
//	      photo_quality: low
//	      resemblance: low
func NewFileSource(path string) CatalogSource {
	return &fileSource{path: path}
}

type planFile struct {
	Plans []Plan `yaml:"plans"`
}

// Load reads and parses the YAML catalog. Duplicate tier entries are rejected
// so a config typo cannot silently shadow a plan.
func (s *fileSource) Load(ctx context.Context) (map[Tier]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read plan catalog %s: %w", s.path, err)
	}

	var doc planFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse plan catalog %s: %w", s.path, err)
	}
	if len(doc.Plans) == 0 {
		return nil, errors.New("plan catalog file contains no plans")
	}

	plans := make(map[Tier]Plan, len(doc.Plans))
	for _, plan := range doc.Plans {
		if _, exists := plans[plan.ID]; exists {
			return nil, fmt.Errorf("duplicate plan entry for tier %q", plan.ID)
		}
		plans[plan.ID] = plan
	}
	return plans, nil
}
