package service

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"transporter-onboarding/internal/config"

	"gopkg.in/yaml.v3"
)

// DefaultDisallowedIDs is used when neither BLOCKLIST nor BLOCKLIST_FILE is set.
var DefaultDisallowedIDs = []string{"AAAA1234K", "BBBB1234K"}

// Blocklist is the fixed set of tax identifiers that are always rejected.
// It is built once at start up and never changes afterwards.
type Blocklist struct {
	ids map[string]struct{}
}

func NewBlocklist(ids []string) *Blocklist {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return &Blocklist{ids: set}
}

// Contains compares the trimmed id case-sensitively.
func (b *Blocklist) Contains(id string) bool {
	if b == nil {
		return false
	}
	_, ok := b.ids[strings.TrimSpace(id)]
	return ok
}

func (b *Blocklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ids)
}

// IDs returns the identifiers in sorted order.
func (b *Blocklist) IDs() []string {
	ids := make([]string, 0, b.Len())
	if b != nil {
		for id := range b.ids {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

type blocklistFile struct {
	DisallowedTaxIDs []string `yaml:"disallowed_tax_ids"`
}

// LoadBlocklistFile reads a YAML document with a disallowed_tax_ids list.
func LoadBlocklistFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blocklist file: %w", err)
	}

	var doc blocklistFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse blocklist file %s: %w", path, err)
	}
	return doc.DisallowedTaxIDs, nil
}

// LoadBlocklist merges BLOCKLIST and BLOCKLIST_FILE, falling back to the defaults.
func LoadBlocklist(cfg *config.Config) (*Blocklist, error) {
	ids := append([]string{}, cfg.Blocklist...)
	if cfg.BlocklistFile != "" {
		fromFile, err := LoadBlocklistFile(cfg.BlocklistFile)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) == 0 {
		ids = DefaultDisallowedIDs
	}
	return NewBlocklist(ids), nil
}
