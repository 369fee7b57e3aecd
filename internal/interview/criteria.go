// Package interview holds the interview lifecycle engine: the criteria
// catalog, checklist scoring, the phase state machine, the tool set exposed to
// the interviewer model and the per-turn prompt assembly.
package interview

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed criteria.yaml
var criteriaYAML []byte

// PositiveWeightTotal is the required sum of all non-red-flag weights.
const PositiveWeightTotal = 100

// Criterion is a single weighted evaluation dimension.
type Criterion struct {
	Key           string `yaml:"key" json:"key"`
	Name          string `yaml:"name" json:"name"`
	Description   string `yaml:"description" json:"description"`
	Category      string `yaml:"category" json:"category"`
	WeightPercent int    `yaml:"weight" json:"weight_percent"`
	IsRedFlag     bool   `yaml:"red_flag" json:"is_red_flag"`
}

// Catalog is the immutable registry of criteria.
type Catalog struct {
	criteria   []Criterion
	index      map[string]int
	categories []string
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the embedded catalog. It panics if the embedded
// definition is invalid, which is a build defect.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(criteriaYAML)
		if err != nil {
			panic(fmt.Sprintf("invalid criteria catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ParseCatalog decodes a YAML catalog and validates it.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Criteria []Criterion `yaml:"criteria"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse criteria: %w", err)
	}
	return NewCatalog(doc.Criteria)
}

// NewCatalog validates criteria and builds a catalog from them.
func NewCatalog(criteria []Criterion) (*Catalog, error) {
	if len(criteria) == 0 {
		return nil, &apperror.ValidationError{Field: "criteria", Message: "catalog is empty"}
	}

	c := &Catalog{
		criteria: make([]Criterion, 0, len(criteria)),
		index:    make(map[string]int, len(criteria)),
	}
	seenCategory := make(map[string]bool)
	positive := 0

	for _, cr := range criteria {
		switch {
		case cr.Key == "":
			return nil, &apperror.ValidationError{Field: "key", Message: "criterion key is empty"}
		case cr.Category == "":
			return nil, &apperror.ValidationError{Field: cr.Key, Message: "category is empty"}
		case cr.WeightPercent <= 0:
			return nil, &apperror.ValidationError{Field: cr.Key, Message: "weight must be positive"}
		}
		if _, dup := c.index[cr.Key]; dup {
			return nil, &apperror.ValidationError{Field: cr.Key, Message: "duplicate criterion key"}
		}
		if !cr.IsRedFlag {
			positive += cr.WeightPercent
		}
		if !seenCategory[cr.Category] {
			seenCategory[cr.Category] = true
			c.categories = append(c.categories, cr.Category)
		}
		c.index[cr.Key] = len(c.criteria)
		c.criteria = append(c.criteria, cr)
	}

	if positive != PositiveWeightTotal {
		return nil, &apperror.ValidationError{
			Field:   "weight",
			Message: fmt.Sprintf("positive weights sum to %d, want %d", positive, PositiveWeightTotal),
		}
	}
	return c, nil
}

// Lookup returns the criterion for key.
func (c *Catalog) Lookup(key string) (Criterion, error) {
	i, ok := c.index[key]
	if !ok {
		return Criterion{}, &apperror.NotFoundError{Resource: "criterion", ID: key}
	}
	return c.criteria[i], nil
}

// Has reports whether key belongs to the catalog.
func (c *Catalog) Has(key string) bool {
	_, ok := c.index[key]
	return ok
}

// List returns every criterion in catalog order.
func (c *Catalog) List() []Criterion {
	out := make([]Criterion, len(c.criteria))
	copy(out, c.criteria)
	return out
}

func (c *Catalog) PositiveKeys() []string {
	return c.keys(func(cr Criterion) bool { return !cr.IsRedFlag })
}

func (c *Catalog) RedFlagKeys() []string {
	return c.keys(func(cr Criterion) bool { return cr.IsRedFlag })
}

// Categories returns category names in order of first appearance.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// InCategory returns the criteria of one category in catalog order.
func (c *Catalog) InCategory(category string) []Criterion {
	var out []Criterion
	for _, cr := range c.criteria {
		if cr.Category == category {
			out = append(out, cr)
		}
	}
	return out
}

// DefaultChecklist returns an all-false checklist over every key.
func (c *Catalog) DefaultChecklist() model.Checklist {
	cl := make(model.Checklist, len(c.criteria))
	for _, cr := range c.criteria {
		cl[cr.Key] = false
	}
	return cl
}

func (c *Catalog) keys(keep func(Criterion) bool) []string {
	var out []string
	for _, cr := range c.criteria {
		if keep(cr) {
			out = append(out, cr.Key)
		}
	}
	return out
}
