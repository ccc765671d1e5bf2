package council

import (
	"strings"
	"testing"

	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

func s1(modelID, response string) model.Stage1Result {
	return model.Stage1Result{Model: modelID, Response: response}
}

func s2(modelID string, scores map[string]float64) model.Stage2Result {
	return model.Stage2Result{Model: modelID, Scores: scores, Participated: true}
}

func TestAggregate_ThreeModels(t *testing.T) {
	stage1 := []model.Stage1Result{
		s1("a/p", "answer A"),
		s1("b/p", "answer B"),
		s1("c/p", "answer C"),
	}
	stage2 := []model.Stage2Result{
		s2("a/p", map[string]float64{"#2": 8, "#3": 6}),
		s2("b/p", map[string]float64{"#1": 9, "#3": 7}),
		s2("c/p", map[string]float64{"#1": 7, "#2": 6}),
	}

	res := Aggregate(stage1, stage2)
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if res.ValidScorerCount != 3 {
		t.Errorf("valid scorers = %d, want 3", res.ValidScorerCount)
	}

	// Averages: #1 = 8.0, #2 = 7.0, #3 = 6.5.
	want := []struct {
		label string
		model string
		avg   float64
	}{
		{"#1", "a/p", 8.0},
		{"#2", "b/p", 7.0},
		{"#3", "c/p", 6.5},
	}
	if len(res.Rankings) != 3 {
		t.Fatalf("rankings = %d entries", len(res.Rankings))
	}
	for i, w := range want {
		r := res.Rankings[i]
		if r.Rank != i+1 || r.Label != w.label || r.Model != w.model || r.AvgScore != w.avg {
			t.Errorf("rank %d = %+v, want %s/%s avg=%v", i+1, r, w.label, w.model, w.avg)
		}
		if r.ScoreCount != 2 {
			t.Errorf("rank %d score count = %d, want 2", i+1, r.ScoreCount)
		}
		if !r.ScorerValid {
			t.Errorf("rank %d scorer should be valid", i+1)
		}
	}
	if res.BestAnswer != "answer A" {
		t.Errorf("best answer = %q", res.BestAnswer)
	}
}

func TestAggregate_FailedReviewerExcluded(t *testing.T) {
	stage1 := []model.Stage1Result{
		s1("a/p", "answer A"),
		s1("b/p", "answer B"),
		s1("c/p", "answer C"),
	}
	stage2 := []model.Stage2Result{
		s2("a/p", map[string]float64{"#2": 10, "#3": 2}),
		{Model: "b/p", Error: "all 3 attempts failed: timeout"},
		s2("c/p", map[string]float64{"#1": 6, "#2": 4}),
	}

	res := Aggregate(stage1, stage2)
	if res.ValidScorerCount != 2 {
		t.Errorf("valid scorers = %d, want 2", res.ValidScorerCount)
	}

	// b/p's scores contribute nothing; #1 is scored only by c/p.
	byLabel := make(map[string]model.RankingEntry)
	for _, r := range res.Rankings {
		byLabel[r.Label] = r
	}
	if byLabel["#1"].AvgScore != 6 || byLabel["#1"].ScoreCount != 1 {
		t.Errorf("#1 = %+v", byLabel["#1"])
	}
	if byLabel["#2"].AvgScore != 7 || byLabel["#2"].ScoreCount != 2 {
		t.Errorf("#2 = %+v", byLabel["#2"])
	}

	// The failed reviewer is still ranked as an answer author, flagged as
	// an invalid scorer with the call failure as the reason.
	b := byLabel["#2"]
	if b.Model != "b/p" || b.ScorerValid {
		t.Errorf("b/p entry = %+v", b)
	}
	if !strings.Contains(b.ScorerReason, "review call failed") {
		t.Errorf("scorer reason = %q", b.ScorerReason)
	}

	summary := res.ScoringSummary["b/p"]
	if summary.Valid || summary.Actual != 0 {
		t.Errorf("summary for b/p = %+v", summary)
	}
}

func TestAggregate_WrongScoreCountInvalid(t *testing.T) {
	stage1 := []model.Stage1Result{s1("a/p", "A"), s1("b/p", "B"), s1("c/p", "C")}
	stage2 := []model.Stage2Result{
		s2("a/p", map[string]float64{"#2": 8}), // expected 2, got 1
		s2("b/p", map[string]float64{"#1": 9, "#3": 7}),
		s2("c/p", map[string]float64{"#1": 7, "#2": 6}),
	}

	res := Aggregate(stage1, stage2)
	if res.ValidScorerCount != 2 {
		t.Errorf("valid scorers = %d, want 2", res.ValidScorerCount)
	}
	summary := res.ScoringSummary["a/p"]
	if summary.Valid {
		t.Error("short submission must be invalid")
	}
	if !strings.Contains(summary.Reason, "expected 2, got 1") {
		t.Errorf("reason = %q", summary.Reason)
	}
}

func TestAggregate_SkippedReviewerCarriesReason(t *testing.T) {
	stage1 := []model.Stage1Result{s1("a/p", "only answer")}
	stage2 := []model.Stage2Result{
		{Model: "a/p", Participated: false, SkipReason: "not enough valid answers to review"},
	}

	res := Aggregate(stage1, stage2)
	if len(res.Rankings) != 1 {
		t.Fatalf("rankings = %d entries", len(res.Rankings))
	}
	r := res.Rankings[0]
	if r.Rank != 1 || r.AvgScore != 0 || r.ScoreCount != 0 {
		t.Errorf("entry = %+v", r)
	}
	if r.ScorerValid || r.ScorerReason == "" {
		t.Errorf("skipped reviewer must be invalid with a reason, got %+v", r)
	}
	if res.BestAnswer != "only answer" {
		t.Errorf("best answer = %q", res.BestAnswer)
	}
}

func TestAggregate_TieBreaksByCompletionOrder(t *testing.T) {
	stage1 := []model.Stage1Result{s1("a/p", "A"), s1("b/p", "B"), s1("c/p", "C")}
	stage2 := []model.Stage2Result{
		s2("a/p", map[string]float64{"#2": 7, "#3": 7}),
		s2("b/p", map[string]float64{"#1": 7, "#3": 7}),
		s2("c/p", map[string]float64{"#1": 7, "#2": 7}),
	}

	res := Aggregate(stage1, stage2)
	for i, wantLabel := range []string{"#1", "#2", "#3"} {
		if res.Rankings[i].Label != wantLabel {
			t.Errorf("rank %d = %s, want %s (completion order tie-break)", i+1, res.Rankings[i].Label, wantLabel)
		}
	}
}

func TestAggregate_NoValidResponses(t *testing.T) {
	res := Aggregate([]model.Stage1Result{{Model: "a/p", Error: "x"}}, nil)
	if res.Error == "" {
		t.Error("expected an explanatory error")
	}
	if len(res.Rankings) != 0 {
		t.Errorf("rankings = %v, want empty", res.Rankings)
	}
}
