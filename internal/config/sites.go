package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

// siteFile is the YAML layout of SITE_CONSTANTS_FILE:
//
//	sites:
//	  Jayanta OCP: {k: 1100, b: -1.6}
type siteFile struct {
	Sites map[string]domain.SiteConstants `yaml:"sites"`
}

// LoadSiteTable reads and validates a site constants file.
func LoadSiteTable(path string) (domain.SiteTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.SiteTable{}, fmt.Errorf("read SITE_CONSTANTS_FILE: %w", err)
	}
	return ParseSiteTable(data)
}

// ParseSiteTable decodes YAML site constants.
func ParseSiteTable(data []byte) (domain.SiteTable, error) {
	var f siteFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.SiteTable{}, fmt.Errorf("parse SITE_CONSTANTS_FILE: %w", err)
	}
	if len(f.Sites) == 0 {
		return domain.SiteTable{}, fmt.Errorf("SITE_CONSTANTS_FILE defines no sites")
	}
	table, err := domain.NewSiteTable(f.Sites)
	if err != nil {
		return domain.SiteTable{}, fmt.Errorf("SITE_CONSTANTS_FILE: %w", err)
	}
	return table, nil
}

// MarshalSites renders constants in the SITE_CONSTANTS_FILE layout.
func MarshalSites(sites map[string]domain.SiteConstants) ([]byte, error) {
	return yaml.Marshal(siteFile{Sites: sites})
}
