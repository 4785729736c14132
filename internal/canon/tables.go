// Package canon holds the static tables the Lore Validator checks stories
// against — faction relationships, faction lifespans, canon events, and
// era bounds — as plain data rather than a class hierarchy, per the
// "tables, not code" design note.
package canon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Relationship is the diplomatic state between two factions.
type Relationship string

const (
	RelationWar      Relationship = "war"
	RelationHostile  Relationship = "hostile"
	RelationNeutral  Relationship = "neutral"
	RelationFriendly Relationship = "friendly"
	RelationAllied   Relationship = "allied"
)

// Lifespan bounds the years a faction is known to exist. Dissolved is nil
// for factions still active at the edge of known history.
type Lifespan struct {
	Founded   int
	Dissolved *int
}

// EraBounds is the inclusive year range an era covers.
type EraBounds struct {
	MinYear int
	MaxYear int
}

// factionPair normalizes an unordered faction pair for map lookups.
type factionPair struct {
	A, B string
}

func pair(a, b string) factionPair {
	if a > b {
		a, b = b, a
	}
	return factionPair{A: a, B: b}
}

// Tables bundles the four static tables the validator consults. A default
// set is provided by Default() for tests and as the fallback when no
// configs/canon.yaml override is loaded.
type Tables struct {
	Relationships map[factionPair]Relationship
	Lifespans     map[string]Lifespan
	Events        map[string]int
	Eras          map[string]EraBounds
}

// Relationship looks up the diplomatic state between two factions. The
// second return value is false if no entry exists (treated as neutral by
// callers that want a permissive default, but the validator treats unknown
// as neutral explicitly rather than silently).
func (t Tables) Relationship(a, b string) (Relationship, bool) {
	rel, ok := t.Relationships[pair(a, b)]
	return rel, ok
}

// Lifespan looks up a faction's founding/dissolution years.
func (t Tables) Lifespan(faction string) (Lifespan, bool) {
	ls, ok := t.Lifespans[faction]
	return ls, ok
}

// EventYear looks up a canon event's exact year.
func (t Tables) EventYear(event string) (int, bool) {
	y, ok := t.Events[event]
	return y, ok
}

// EraBounds looks up an era's year range.
func (t Tables) EraBounds(era string) (EraBounds, bool) {
	b, ok := t.Eras[era]
	return b, ok
}

func intPtr(v int) *int { return &v }

// Default returns the built-in canon tables used by tests and as the
// fallback configuration. A real deployment overrides this via
// configs/canon.yaml loaded through internal/config.
func Default() Tables {
	relationships := map[factionPair]Relationship{
		pair("ncr", "legion"):             RelationWar,
		pair("brotherhood", "institute"):  RelationWar,
		pair("ncr", "brotherhood"):        RelationHostile,
		pair("legion", "brotherhood"):     RelationHostile,
		pair("raiders", "settlers"):       RelationHostile,
		pair("minutemen", "settlers"):     RelationAllied,
		pair("institute", "railroad"):     RelationWar,
		pair("railroad", "minutemen"):     RelationFriendly,
		pair("ncr", "settlers"):           RelationFriendly,
		pair("vault_dwellers", "raiders"): RelationHostile,
	}

	lifespans := map[string]Lifespan{
		"ncr":            {Founded: 2189},
		"legion":         {Founded: 2247, Dissolved: intPtr(2282)},
		"brotherhood":    {Founded: 2077},
		"institute":      {Founded: 2110},
		"railroad":       {Founded: 2140},
		"minutemen":      {Founded: 2180},
		"raiders":        {Founded: 2077},
		"settlers":       {Founded: 2090},
		"vault_dwellers": {Founded: 2077},
		"enclave":        {Founded: 2077, Dissolved: intPtr(2242)},
	}

	events := map[string]int{
		"great_war":       2077,
		"founding_of_ncr":  2189,
		"fall_of_legion":   2282,
		"battle_of_hoover": 2281,
		"institute_coup":   2110,
	}

	eras := map[string]EraBounds{
		"pre_war":     {MinYear: 0, MaxYear: 2076},
		"early_waste": {MinYear: 2077, MaxYear: 2161},
		"frontier":    {MinYear: 2162, MaxYear: 2241},
		"reclamation": {MinYear: 2242, MaxYear: 2296},
		"modern":      {MinYear: 2297, MaxYear: 9999},
	}

	return Tables{
		Relationships: relationships,
		Lifespans:     lifespans,
		Events:        events,
		Eras:          eras,
	}
}

// relationshipEntry is one row of the YAML-friendly relationships list;
// Tables itself keys relationships by an unordered factionPair, which
// does not round-trip through yaml.Marshal directly.
type relationshipEntry struct {
	A            string       `yaml:"a"`
	B            string       `yaml:"b"`
	Relationship Relationship `yaml:"relationship"`
}

type lifespanEntry struct {
	Faction   string `yaml:"faction"`
	Founded   int    `yaml:"founded"`
	Dissolved *int   `yaml:"dissolved,omitempty"`
}

// tablesFile is the on-disk shape of configs/canon.yaml.
type tablesFile struct {
	Relationships []relationshipEntry  `yaml:"relationships"`
	Lifespans     []lifespanEntry      `yaml:"lifespans"`
	Events        map[string]int       `yaml:"events"`
	Eras          map[string]EraBounds `yaml:"eras"`
}

// Load reads canon tables from a YAML file. A missing file is not an
// error: the caller falls back to Default().
func Load(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Tables{}, fmt.Errorf("canon: reading %s: %w", path, err)
	}

	var tf tablesFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return Tables{}, fmt.Errorf("canon: parsing %s: %w", path, err)
	}

	t := Tables{
		Relationships: make(map[factionPair]Relationship, len(tf.Relationships)),
		Lifespans:     make(map[string]Lifespan, len(tf.Lifespans)),
		Events:        tf.Events,
		Eras:          tf.Eras,
	}
	for _, r := range tf.Relationships {
		t.Relationships[pair(r.A, r.B)] = r.Relationship
	}
	for _, l := range tf.Lifespans {
		t.Lifespans[l.Faction] = Lifespan{Founded: l.Founded, Dissolved: l.Dissolved}
	}
	return t, nil
}

// MajorFactions lists factions whose presence in a story contributes to
// the Narrative Weight Scorer's faction-weight bonus (§4.3).
var MajorFactions = map[string]bool{
	"ncr": true, "legion": true, "brotherhood": true, "institute": true,
	"railroad": true, "minutemen": true, "enclave": true, "raiders": true,
	"children_of_atom": true, "gunners": true,
}
