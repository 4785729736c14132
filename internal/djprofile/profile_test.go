package djprofile

import "testing"

func TestRoster_Find(t *testing.T) {
	r := DefaultRoster()

	if _, ok := r.Find("dj-mojave-2281"); !ok {
		t.Fatal("expected dj-mojave-2281 in default roster")
	}
	if _, ok := r.Find("dj-nonexistent"); ok {
		t.Fatal("expected no match for unknown DJ id")
	}
}

func TestLoadRoster_MissingFileFallsBackToDefault(t *testing.T) {
	r, err := LoadRoster("/nonexistent/path/roster.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.DJs) != len(DefaultRoster().DJs) {
		t.Fatalf("expected fallback to DefaultRoster(), got %d DJs", len(r.DJs))
	}
}

func TestProfile_KnowsAndUnknownFaction(t *testing.T) {
	p := &Profile{KnownFactions: []string{"ncr"}, UnknownFactions: []string{"legion"}}

	if !p.knowsFaction("ncr") {
		t.Error("expected knowsFaction(ncr) to be true")
	}
	if p.knowsFaction("legion") {
		t.Error("expected knowsFaction(legion) to be false")
	}
	if !p.unknownFaction("legion") {
		t.Error("expected unknownFaction(legion) to be true")
	}
}
