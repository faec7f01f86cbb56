package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// SiteConstants are the empirical attenuation constants for one site.
type SiteConstants struct {
	K float64 `json:"k" yaml:"k"`
	B float64 `json:"b" yaml:"b"`
}

// DefaultSiteConstants apply to any site missing from a SiteTable.
var DefaultSiteConstants = SiteConstants{K: 1100, B: -1.6}

// builtinSites are the constants surveyed for the three open-cast mines the
// service was commissioned for.
var builtinSites = map[string]SiteConstants{
	"Jayanta OCP": {K: 1100, B: -1.6},
	"Khadia OCP":  {K: 950, B: -1.5},
	"Beena OCP":   {K: 1250, B: -1.7},
}

// Validate checks that K is positive and B negative.
func (c SiteConstants) Validate() error {
	if err := requirePositive("k", c.K); err != nil {
		return err
	}
	if math.IsNaN(c.B) || math.IsInf(c.B, 0) {
		return invalidInput("b", c.B, "must be a finite number")
	}
	if c.B >= 0 {
		return invalidInput("b", c.B, "must be negative")
	}
	return nil
}

// SiteTable maps site names to constants. It is immutable once built.
type SiteTable struct {
	sites map[string]SiteConstants
}

// NewSiteTable validates and copies sites into a new table.
func NewSiteTable(sites map[string]SiteConstants) (SiteTable, error) {
	copied := make(map[string]SiteConstants, len(sites))
	for name, c := range sites {
		if strings.TrimSpace(name) == "" {
			return SiteTable{}, invalidInput("site", nil, "name must not be empty")
		}
		if err := c.Validate(); err != nil {
			return SiteTable{}, fmt.Errorf("site %q: %w", name, err)
		}
		copied[name] = c
	}
	return SiteTable{sites: copied}, nil
}

// DefaultSiteTable returns the built-in constants.
func DefaultSiteTable() SiteTable {
	t, err := NewSiteTable(builtinSites)
	if err != nil {
		panic(err) // built-in table is static
	}
	return t
}

// Lookup returns the constants for name and whether the site is known.
// Unknown sites resolve to DefaultSiteConstants.
func (t SiteTable) Lookup(name string) (SiteConstants, bool) {
	c, ok := t.sites[name]
	if !ok {
		return DefaultSiteConstants, false
	}
	return c, true
}

// Names returns the known site names in sorted order.
func (t SiteTable) Names() []string {
	names := make([]string, 0, len(t.sites))
	for name := range t.sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many sites the table knows.
func (t SiteTable) Len() int { return len(t.sites) }
