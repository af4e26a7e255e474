package achievements

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bizrank/review-service/internal/types"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Requirement is one named condition of a tier. Exactly one of Min and
// Equals is set.
type Requirement struct {
	Metric string   `yaml:"metric"`
	Min    *float64 `yaml:"min,omitempty"`
	Equals *bool    `yaml:"equals,omitempty"`
}

// Tier is one level of an achievement
type Tier struct {
	Level        types.TierLevel `yaml:"level"`
	Plan         types.PlanTier  `yaml:"plan"`
	Requirements []Requirement   `yaml:"requirements"`
}

// Definition describes an achievement type and its tiers, lowest first
type Definition struct {
	Type            string `yaml:"type"`
	DisplayName     string `yaml:"displayName"`
	BadgeIcon       string `yaml:"badgeIcon"`
	Category        string `yaml:"category"`
	DisplayPriority int    `yaml:"displayPriority"`
	Recommendation  string `yaml:"recommendation"`
	Tiers           []Tier `yaml:"tiers"`
}

// Catalog is the set of achievement definitions
type Catalog struct {
	Achievements []Definition `yaml:"achievements"`
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file, or the built-in one when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Get returns the definition of an achievement type
func (c *Catalog) Get(achievementType string) (Definition, bool) {
	for _, d := range c.Achievements {
		if d.Type == achievementType {
			return d, true
		}
	}
	return Definition{}, false
}

func (c *Catalog) validate() error {
	if len(c.Achievements) == 0 {
		return fmt.Errorf("catalog has no achievements")
	}
	seen := make(map[string]struct{}, len(c.Achievements))
	for _, d := range c.Achievements {
		if d.Type == "" {
			return fmt.Errorf("achievement without type")
		}
		if _, dup := seen[d.Type]; dup {
			return fmt.Errorf("duplicate achievement type %q", d.Type)
		}
		seen[d.Type] = struct{}{}

		if len(d.Tiers) == 0 || len(d.Tiers) > len(types.TierOrder) {
			return fmt.Errorf("%s: must have 1 to %d tiers", d.Type, len(types.TierOrder))
		}
		prev := -1
		for _, t := range d.Tiers {
			rank := t.Level.Rank()
			if rank < 0 {
				return fmt.Errorf("%s: unknown tier %q", d.Type, t.Level)
			}
			if rank <= prev {
				return fmt.Errorf("%s: tiers must be listed in ascending order", d.Type)
			}
			prev = rank
			if types.ParsePlanTier(string(t.Plan)) != t.Plan {
				return fmt.Errorf("%s/%s: unknown plan %q", d.Type, t.Level, t.Plan)
			}
			if len(t.Requirements) == 0 {
				return fmt.Errorf("%s/%s: no requirements", d.Type, t.Level)
			}
			for _, r := range t.Requirements {
				if r.Metric == "" {
					return fmt.Errorf("%s/%s: requirement without metric", d.Type, t.Level)
				}
				if (r.Min == nil) == (r.Equals == nil) {
					return fmt.Errorf("%s/%s/%s: set exactly one of min and equals", d.Type, t.Level, r.Metric)
				}
			}
		}
	}
	return nil
}
