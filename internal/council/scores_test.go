package council

import (
	"testing"
)

func TestParseScores_ColonFormat(t *testing.T) {
	raw := "#1: 8.5 - solid reasoning\n#3: 6 - shallow\n"
	scores, warnings := ParseScores(raw, []string{"#1", "#2", "#3"}, "#2")
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(scores) != 2 || scores["#1"] != 8.5 || scores["#3"] != 6 {
		t.Errorf("scores = %v", scores)
	}
}

func TestParseScores_FullWidthColonAndSuffix(t *testing.T) {
	raw := "#1：9分\n#2：7.5分"
	scores, _ := ParseScores(raw, []string{"#1", "#2", "#3"}, "#3")
	if scores["#1"] != 9 || scores["#2"] != 7.5 {
		t.Errorf("scores = %v", scores)
	}
}

func TestParseScores_EqualsFallback(t *testing.T) {
	raw := "my verdict: #1=7, #3=9"
	scores, _ := ParseScores(raw, []string{"#1", "#2", "#3"}, "#2")
	if len(scores) != 2 || scores["#1"] != 7 || scores["#3"] != 9 {
		t.Errorf("scores = %v", scores)
	}
}

func TestParseScores_ColonWinsOverEquals(t *testing.T) {
	// Once the colon strategy resolves anything, the equals strategy
	// must not run and overwrite.
	raw := "#1: 8\n#1=2"
	scores, _ := ParseScores(raw, []string{"#1", "#2"}, "#2")
	if scores["#1"] != 8 {
		t.Errorf("scores = %v, want #1=8", scores)
	}
}

func TestParseScores_FirstOccurrenceWins(t *testing.T) {
	raw := "#1: 8\nrevised: #1: 3"
	scores, _ := ParseScores(raw, []string{"#1", "#2"}, "#2")
	if scores["#1"] != 8 {
		t.Errorf("duplicate label should keep first value, got %v", scores)
	}
}

func TestParseScores_ExcludesReviewerOwnLabel(t *testing.T) {
	raw := "#1: 8\n#2: 10\n#3: 7"
	scores, _ := ParseScores(raw, []string{"#1", "#2", "#3"}, "#2")
	if _, ok := scores["#2"]; ok {
		t.Error("reviewer's own label must never be scored")
	}
	if len(scores) != 2 {
		t.Errorf("scores = %v", scores)
	}
}

func TestParseScores_BoundsAndUnknownLabels(t *testing.T) {
	raw := "#1: 11\n#2: -3\n#9: 5\n#3: 10"
	scores, _ := ParseScores(raw, []string{"#1", "#2", "#3"}, "")
	if len(scores) != 1 || scores["#3"] != 10 {
		t.Errorf("out-of-range and unknown labels must be dropped, got %v", scores)
	}
}

func TestParseScores_NothingParsed(t *testing.T) {
	scores, warnings := ParseScores("I refuse to give numbers.", []string{"#1", "#2"}, "#1")
	if len(scores) != 0 {
		t.Errorf("scores = %v, want empty", scores)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning for unparseable review")
	}
}

func TestParseScores_PartialResolution(t *testing.T) {
	scores, warnings := ParseScores("#1: 5", []string{"#1", "#2", "#3"}, "#3")
	if len(scores) != 1 {
		t.Errorf("scores = %v", scores)
	}
	if len(warnings) != 1 {
		t.Errorf("expected partial-resolution warning, got %v", warnings)
	}
}

func TestParseScores_EmptyInput(t *testing.T) {
	scores, _ := ParseScores("", []string{"#1"}, "")
	if len(scores) != 0 {
		t.Errorf("scores = %v", scores)
	}
}
