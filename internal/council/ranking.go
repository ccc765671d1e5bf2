package council

import (
	"fmt"
	"sort"
	"time"

	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

// Aggregate runs the Stage 4 computation: validate every reviewer, average
// the scores each label received from valid reviewers, and rank all
// Stage-1-successful models. Pure computation — it always produces a
// Stage4Result, degenerating to an explanatory error when nothing survived.
func Aggregate(stage1 []model.Stage1Result, stage2 []model.Stage2Result) *model.Stage4Result {
	now := time.Now().UTC().Format(time.RFC3339)

	labels := AssignLabels(stage1)
	if labels.Len() == 0 {
		return &model.Stage4Result{
			Rankings:       []model.RankingEntry{},
			ScoringSummary: map[string]model.ScorerSummary{},
			Timestamp:      now,
			Error:          "no valid responses to rank",
		}
	}

	responses := make(map[string]model.Stage1Result, labels.Len())
	for _, r := range stage1 {
		if r.Error == "" {
			responses[r.Model] = r
		}
	}

	// A valid scorer resolved every expected label except its own.
	expected := labels.Len() - 1
	summary := make(map[string]model.ScorerSummary, len(stage2))
	validScorers := make(map[string]bool)

	for _, s2 := range stage2 {
		actual := len(s2.Scores)
		entry := model.ScorerSummary{Expected: expected, Actual: actual}

		switch {
		case s2.Error != "":
			entry.Reason = fmt.Sprintf("review call failed: %s", s2.Error)
			entry.Actual = 0
		case !s2.Participated:
			entry.Reason = s2.SkipReason
			if entry.Reason == "" {
				entry.Reason = "did not participate in review"
			}
		case actual == 0:
			entry.Reason = "no scores could be parsed from the review text"
		case actual != expected:
			entry.Reason = fmt.Sprintf("wrong number of scores (expected %d, got %d)", expected, actual)
		default:
			entry.Valid = true
			validScorers[s2.Model] = true
		}
		summary[s2.Model] = entry
	}

	// Average only over valid scorers; a label nobody scored stays at 0
	// with a zero count rather than dragging in invalid submissions.
	totals := make(map[string][]float64, labels.Len())
	for _, s2 := range stage2 {
		if !validScorers[s2.Model] {
			continue
		}
		for label, score := range s2.Scores {
			if _, ok := labels.Model(label); ok {
				totals[label] = append(totals[label], score)
			}
		}
	}

	ordered := labels.Labels()
	avg := make(map[string]float64, len(ordered))
	for _, label := range ordered {
		if scores := totals[label]; len(scores) > 0 {
			var sum float64
			for _, s := range scores {
				sum += s
			}
			avg[label] = sum / float64(len(scores))
		}
	}

	// Order labels by average descending. The index into the ordered label
	// slice is the Stage 1 completion order, which breaks ties so equal
	// averages still rank deterministically.
	idx := make([]int, len(ordered))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		la, lb := ordered[idx[a]], ordered[idx[b]]
		if avg[la] != avg[lb] {
			return avg[la] > avg[lb]
		}
		return idx[a] < idx[b]
	})

	rankings := make([]model.RankingEntry, 0, len(ordered))
	for rank, i := range idx {
		label := ordered[i]
		modelID, _ := labels.Model(label)
		resp := responses[modelID]
		scorer := summary[modelID]

		entry := model.RankingEntry{
			Rank:        rank + 1,
			Label:       label,
			Model:       modelID,
			AvgScore:    round2(avg[label]),
			ScoreCount:  len(totals[label]),
			Response:    resp.Response,
			ScorerValid: scorer.Valid,
		}
		if !scorer.Valid {
			entry.ScorerReason = scorer.Reason
			if entry.ScorerReason == "" {
				entry.ScorerReason = "no review submission recorded"
			}
		}
		rankings = append(rankings, entry)
	}

	return &model.Stage4Result{
		Rankings:         rankings,
		BestAnswer:       rankings[0].Response,
		ScoringSummary:   summary,
		ValidScorerCount: len(validScorers),
		Timestamp:        now,
	}
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
