package council

import (
	"fmt"
	"strings"
)

// Turn is one completed question/answer exchange from an earlier meeting in
// the same conversation. The answer is the chairman's synthesis, not the raw
// participant responses.
type Turn struct {
	Question string
	Answer   string
}

// BuildContext renders the most recent maxTurns turns as a plain Q/A
// transcript for inclusion in Stage 1 prompts. Returns "" when there is no
// history.
func BuildContext(turns []Turn, maxTurns int) string {
	if maxTurns <= 0 || len(turns) == 0 {
		return ""
	}
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Q: %s\n\nA: %s", t.Question, t.Answer)
	}
	return b.String()
}
