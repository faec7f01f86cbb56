package domain

import (
	"fmt"
	"math"
	"strings"
)

// DamageLevel is an ordered classification of expected structural damage.
type DamageLevel int

const (
	DamageNone DamageLevel = iota
	DamageMinor
	DamageModerate
	DamageSevere
	DamageExtreme
)

var damageLevelNames = [...]string{"None", "Minor", "Moderate", "Severe", "Extreme"}

func (l DamageLevel) String() string {
	if l < DamageNone || l > DamageExtreme {
		return fmt.Sprintf("DamageLevel(%d)", int(l))
	}
	return damageLevelNames[l]
}

// MarshalText renders the level name so JSON carries "Minor" rather than 1.
func (l DamageLevel) MarshalText() ([]byte, error) {
	if l < DamageNone || l > DamageExtreme {
		return nil, fmt.Errorf("unknown damage level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *DamageLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseDamageLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseDamageLevel parses a level name, ignoring case and surrounding space.
func ParseDamageLevel(s string) (DamageLevel, error) {
	s = strings.TrimSpace(s)
	for i, name := range damageLevelNames {
		if strings.EqualFold(s, name) {
			return DamageLevel(i), nil
		}
	}
	return DamageNone, invalidInput("damage level", s, "unknown level")
}

// DamageCategory is one row of the classification table.
type DamageCategory struct {
	Level       DamageLevel `json:"level"`
	PPVRange    string      `json:"ppv_range"`
	UpperBound  float64     `json:"upper_bound_mm_s,omitempty"` // inclusive; zero for the open-ended tier
	Description string      `json:"description"`
}

var damageCategories = [...]DamageCategory{
	{Level: DamageNone, PPVRange: "0-10 mm/s", UpperBound: 10, Description: "No observable damage"},
	{Level: DamageMinor, PPVRange: "10-25 mm/s", UpperBound: 25, Description: "Fine cracks in plaster, small chips"},
	{Level: DamageModerate, PPVRange: "25-50 mm/s", UpperBound: 50, Description: "Cracks in walls, broken windows"},
	{Level: DamageSevere, PPVRange: "50-100 mm/s", UpperBound: 100, Description: "Major structural damage, unsafe conditions"},
	{Level: DamageExtreme, PPVRange: ">100 mm/s", Description: "Partial or complete building collapse"},
}

// DamageCategories returns a copy of the classification table, safest tier first.
func DamageCategories() []DamageCategory {
	out := make([]DamageCategory, len(damageCategories))
	copy(out, damageCategories[:])
	return out
}

// Description returns the human-readable description for the level.
func (l DamageLevel) Description() string {
	if l < DamageNone || l > DamageExtreme {
		return ""
	}
	return damageCategories[l].Description
}

// Assessment is a classified PPV value.
type Assessment struct {
	PPV         float64     `json:"ppv"`
	Level       DamageLevel `json:"damage_level"`
	Description string      `json:"description"`
}

// ClassifyDamage maps a PPV value (mm/s) to a damage level. A value exactly on
// a threshold belongs to the lower tier.
func ClassifyDamage(ppv float64) (Assessment, error) {
	if err := requireNonNegative("ppv", ppv); err != nil {
		return Assessment{}, err
	}

	var level DamageLevel
	switch {
	case ppv <= 10:
		level = DamageNone
	case ppv <= 25:
		level = DamageMinor
	case ppv <= 50:
		level = DamageModerate
	case ppv <= 100:
		level = DamageSevere
	default:
		level = DamageExtreme
	}

	return Assessment{
		PPV:         ppv,
		Level:       level,
		Description: level.Description(),
	}, nil
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
