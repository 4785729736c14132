// Package djprofile implements the Timeline/DJ Validator (spec §4.4): the
// DJProfile record and the ordered rules that decide whether a DJ may
// narrate a Story and in what framing.
package djprofile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Yates-Labs/deadwave/internal/story"
)

// Profile is a static per-DJ record, loaded once per run.
type Profile struct {
	ID                   string              `yaml:"id" json:"id"`
	Era                  string              `yaml:"era" json:"era"`
	Year                 int                 `yaml:"year" json:"year"`
	Region               string              `yaml:"region" json:"region"`
	KnownFactions        []string            `yaml:"known_factions" json:"known_factions"`
	UnknownFactions      []string            `yaml:"unknown_factions" json:"unknown_factions"`
	KnowledgeTierCeiling story.KnowledgeTier `yaml:"knowledge_tier_ceiling" json:"knowledge_tier_ceiling"`
}

func (p *Profile) knowsFaction(f string) bool {
	for _, k := range p.KnownFactions {
		if k == f {
			return true
		}
	}
	return false
}

func (p *Profile) unknownFaction(f string) bool {
	for _, u := range p.UnknownFactions {
		if u == f {
			return true
		}
	}
	return false
}

// Roster is a named collection of DJ profiles, as loaded from
// configs/djroster.yaml.
type Roster struct {
	DJs []Profile `yaml:"djs"`
}

// Find returns the profile with the given ID, or false if absent.
func (r Roster) Find(id string) (Profile, bool) {
	for _, p := range r.DJs {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// LoadRoster reads a DJ roster from a YAML file. A missing file is not
// an error: the caller falls back to DefaultRoster().
func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultRoster(), nil
	}
	if err != nil {
		return Roster{}, fmt.Errorf("djprofile: reading %s: %w", path, err)
	}

	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("djprofile: parsing %s: %w", path, err)
	}
	return r, nil
}

// DefaultRoster returns a small built-in roster used by tests and as the
// fallback when no roster file is configured.
func DefaultRoster() Roster {
	return Roster{
		DJs: []Profile{
			{
				ID:                   "dj-appalachia-2102",
				Era:                  "early_waste",
				Year:                 2102,
				Region:               "appalachia",
				KnownFactions:        []string{"raiders", "settlers", "scorched"},
				UnknownFactions:      []string{"ncr", "institute", "legion"},
				KnowledgeTierCeiling: story.TierRegional,
			},
			{
				ID:                   "dj-commonwealth-2287",
				Era:                  "reclamation",
				Year:                 2287,
				Region:               "commonwealth",
				KnownFactions:        []string{"minutemen", "railroad", "institute", "brotherhood"},
				UnknownFactions:      []string{"responders", "scorched", "legion"},
				KnowledgeTierCeiling: story.TierRestricted,
			},
			{
				ID:                   "dj-mojave-2281",
				Era:                  "reclamation",
				Year:                 2281,
				Region:               "mojave",
				KnownFactions:        []string{"ncr", "legion", "brotherhood"},
				UnknownFactions:      []string{"institute", "railroad", "minutemen"},
				KnowledgeTierCeiling: story.TierClassified,
			},
		},
	}
}
