package extractor

import (
	"testing"

	"github.com/Yates-Labs/deadwave/internal/rag"
	"github.com/Yates-Labs/deadwave/internal/story"
)

func chunk(id, text, faction string) rag.Chunk {
	return rag.Chunk{ID: id, Text: text, WikiTitle: "Siege of Hoover Dam", Metadata: rag.ChunkMetadata{Faction: faction}}
}

func TestBuildActs_MergesAdjacentSameType(t *testing.T) {
	chunks := []rag.Chunk{
		chunk("c1", "The scouts arrives at the dam.", "ncr"),
		chunk("c2", "More troops arrives and discovers the legion camp.", "ncr"),
		chunk("c3", "The battle begins at dawn.", "ncr"),
	}

	acts := buildActs(chunks)
	if len(acts) != 2 {
		t.Fatalf("expected the two setup chunks to merge into one act, got %d acts", len(acts))
	}
	if acts[0].Type != story.ActSetup {
		t.Errorf("acts[0].Type = %s, want setup", acts[0].Type)
	}
	if len(acts[0].SourceChunkIDs) != 2 {
		t.Errorf("expected merged act to carry both source chunk ids, got %v", acts[0].SourceChunkIDs)
	}
	if acts[1].Type != story.ActClimax {
		t.Errorf("acts[1].Type = %s, want climax", acts[1].Type)
	}
}

func TestBuildActs_CapsAtSevenActs(t *testing.T) {
	texts := []string{
		"Troops arrive at the dam.",
		"The battle begins at dawn.",
		"Survivors retreat at nightfall.",
		"The column marches south.",
		"An armistice ends the fighting.",
		"Scouts arrive to assess the damage.",
		"Another battle erupts at the bridge.",
		"The last of the wounded withdraw.",
	}
	var chunks []rag.Chunk
	for i, txt := range texts {
		chunks = append(chunks, chunk(string(rune('a'+i)), txt, "ncr"))
	}

	acts := buildActs(chunks)
	if len(acts) > 7 {
		t.Fatalf("expected at most 7 acts, got %d", len(acts))
	}
	for i, a := range acts {
		if a.Index != i+1 {
			t.Errorf("acts[%d].Index = %d, want %d", i, a.Index, i+1)
		}
	}
}

func TestBuildActs_EmptyInput(t *testing.T) {
	if acts := buildActs(nil); acts != nil {
		t.Errorf("expected nil acts for empty input, got %v", acts)
	}
}

func TestDedupeStrings_RemovesBlanksAndDuplicates(t *testing.T) {
	got := dedupeStrings([]string{"ncr", "", "ncr", "legion"})
	want := []string{"ncr", "legion"}
	if len(got) != len(want) {
		t.Fatalf("dedupeStrings() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dedupeStrings()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDominantTone_NeutralYieldsToOther(t *testing.T) {
	if got := dominantTone(story.ToneNeutral, story.ToneTragic); got != story.ToneTragic {
		t.Errorf("dominantTone(neutral, tragic) = %s, want tragic", got)
	}
	if got := dominantTone(story.ToneHopeful, story.ToneTragic); got != story.ToneHopeful {
		t.Errorf("dominantTone(hopeful, tragic) = %s, want hopeful (first non-neutral wins)", got)
	}
}
