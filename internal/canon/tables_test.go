package canon

import "testing"

func TestDefault_KeyLookups(t *testing.T) {
	tables := Default()

	rel, ok := tables.Relationship("ncr", "legion")
	if !ok || rel != RelationWar {
		t.Errorf("Relationship(ncr, legion) = (%s, %v), want (war, true)", rel, ok)
	}

	// Order shouldn't matter for an unordered pair.
	rel2, ok2 := tables.Relationship("legion", "ncr")
	if !ok2 || rel2 != rel {
		t.Error("Relationship should be symmetric regardless of argument order")
	}

	if _, ok := tables.Relationship("ncr", "nobody"); ok {
		t.Error("expected no relationship entry for an unrelated faction")
	}
}

func TestDefault_LifespanAndEventYear(t *testing.T) {
	tables := Default()

	ls, ok := tables.Lifespan("legion")
	if !ok || ls.Founded != 2247 || ls.Dissolved == nil || *ls.Dissolved != 2282 {
		t.Errorf("unexpected legion lifespan: %+v", ls)
	}

	year, ok := tables.EventYear("great_war")
	if !ok || year != 2077 {
		t.Errorf("EventYear(great_war) = (%d, %v), want (2077, true)", year, ok)
	}
}

func TestLoad_MissingFileFallsBackToDefault(t *testing.T) {
	tables, err := Load("/nonexistent/path/canon.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tables.Relationships) != len(Default().Relationships) {
		t.Fatalf("expected fallback to Default(), got %d relationships", len(tables.Relationships))
	}
}
