package extractor

import "testing"

func TestClassifyActType_ClimaxBeatsRising(t *testing.T) {
	actType, conflict := classifyActType("The NCR patrol marches toward the battle at the dam.")
	if actType != "climax" {
		t.Errorf("classifyActType() = %s, want climax (climax family checked before rising)", actType)
	}
	if conflict != 0.85 {
		t.Errorf("conflict = %f, want 0.85", conflict)
	}
}

func TestClassifyActType_DefaultsToRising(t *testing.T) {
	actType, _ := classifyActType("A quiet caravan passes through the valley.")
	if actType != "rising" {
		t.Errorf("classifyActType() = %s, want rising fallback", actType)
	}
}

func TestClassifyActType_Resolution(t *testing.T) {
	actType, conflict := classifyActType("The armistice brought peace to the wasteland.")
	if actType != "resolution" {
		t.Errorf("classifyActType() = %s, want resolution", actType)
	}
	if conflict != 0.1 {
		t.Errorf("conflict = %f, want 0.1", conflict)
	}
}

func TestDeriveTone_MostFrequentFamilyWins(t *testing.T) {
	tone := deriveTone("Death and loss followed the fallen soldiers, though there was a small hope of rebuilding.")
	if tone != "tragic" {
		t.Errorf("deriveTone() = %s, want tragic", tone)
	}
}

func TestDeriveTone_DefaultsToNeutral(t *testing.T) {
	if tone := deriveTone("The caravan arrived on schedule."); tone != "neutral" {
		t.Errorf("deriveTone() = %s, want neutral", tone)
	}
}

func TestHasWorldEventKeyword(t *testing.T) {
	if !hasWorldEventKeyword("The Great War ended civilization.") {
		t.Error("expected war keyword to match")
	}
	if hasWorldEventKeyword("A trader opens a new stall.") {
		t.Error("expected no world event keyword match")
	}
}
