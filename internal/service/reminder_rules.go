package service

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ReminderRules tune the reminder scan per install. The file is
// optional; a missing path yields zero-valued rules.
//
//	mute:
//	  - "^Trial "
//	lead_days:
//	  System: 14
//	notes:
//	  iCloud: "family plan, renews with the Apple ID"
type ReminderRules struct {
	Mute     []string          `yaml:"mute"`      // name patterns never reminded about
	LeadDays map[string]int    `yaml:"lead_days"` // per-category reminder window override
	Notes    map[string]string `yaml:"notes"`     // extra context appended per subscription

	muted []*regexp.Regexp
}

// LoadReminderRules reads and compiles a rules file. An empty path or
// missing file is not an error.
func LoadReminderRules(path string) (ReminderRules, error) {
	var rules ReminderRules
	if path == "" {
		return rules, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rules, nil
		}
		return rules, fmt.Errorf("read reminder rules: %w", err)
	}

	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return rules, fmt.Errorf("parse reminder rules %s: %w", path, err)
	}

	for _, pattern := range rules.Mute {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return rules, fmt.Errorf("invalid mute pattern %q: %w", pattern, err)
		}
		rules.muted = append(rules.muted, re)
	}
	for category, days := range rules.LeadDays {
		if days < 0 || days > 365 {
			return rules, fmt.Errorf("invalid lead days %d for category %q", days, category)
		}
	}

	return rules, nil
}

// Muted reports whether any mute pattern matches the subscription name.
func (r *ReminderRules) Muted(name string) bool {
	for _, re := range r.muted {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Window returns the reminder window for a category, falling back to
// the global default.
func (r *ReminderRules) Window(category string, fallback int) int {
	if days, ok := r.LeadDays[category]; ok {
		return days
	}
	return fallback
}

// Note returns the configured note for a subscription name, if any.
func (r *ReminderRules) Note(name string) string {
	return r.Notes[name]
}
