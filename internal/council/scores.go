package council

import (
	"fmt"
	"regexp"
	"strconv"
)

// Reviewers are asked for "#n: <score> - <comment>" lines, but responses are
// free text. Strategies are tried in order; later ones only run if the
// earlier found nothing, so a well-formed response is never double-counted.
var (
	colonScorePattern  = regexp.MustCompile(`#?(\d+)\s*[:：]\s*(\d+(?:\.\d+)?)\s*分?`)
	equalsScorePattern = regexp.MustCompile(`#?(\d+)\s*=\s*(\d+(?:\.\d+)?)`)
)

// ParseScores extracts a 0–10 score per expected label from a reviewer's
// raw response. reviewerLabel (the reviewer's own answer) is never scored.
// Labels that cannot be confidently resolved are skipped, not guessed:
// downstream aggregation treats a missing label as "no score from this
// reviewer", never as zero.
func ParseScores(raw string, expectedLabels []string, reviewerLabel string) (map[string]float64, []string) {
	scores := make(map[string]float64)
	var warnings []string

	if raw == "" || len(expectedLabels) == 0 {
		return scores, warnings
	}

	valid := make(map[string]bool, len(expectedLabels))
	for _, l := range expectedLabels {
		valid[l] = true
	}
	delete(valid, reviewerLabel)

	for _, pattern := range []*regexp.Regexp{colonScorePattern, equalsScorePattern} {
		for _, m := range pattern.FindAllStringSubmatch(raw, -1) {
			label := "#" + m[1]
			if !valid[label] {
				continue
			}
			score, err := strconv.ParseFloat(m[2], 64)
			if err != nil || score < 0 || score > 10 {
				continue
			}
			if _, dup := scores[label]; dup {
				continue
			}
			scores[label] = score
		}
		if len(scores) > 0 {
			break
		}
	}

	if len(scores) == 0 {
		warnings = append(warnings, "no scores could be parsed from the review text")
	} else if len(scores) < len(valid) {
		warnings = append(warnings, fmt.Sprintf("resolved %d of %d expected labels", len(scores), len(valid)))
	}
	return scores, warnings
}
