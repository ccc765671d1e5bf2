package council

import (
	"regexp"
	"strings"
)

// Models emit LaTeX in several delimiters; the renderer only understands
// $...$ and $$...$$. Bare [ ... ] is ambiguous (citations, links), so it is
// only converted when the content plausibly is a formula.
var (
	displayMathPattern = regexp.MustCompile(`(?s)\\\[(.*?)\\\]`)
	inlineMathPattern  = regexp.MustCompile(`(?s)\\\((.*?)\\\)`)
	bracketPattern     = regexp.MustCompile(`(?s)\[\s*(.*?)\s*\]`)
)

var mathIndicators = []string{
	`\boxed`, `\frac`, `\sqrt`, `\sum`, `\int`, `\prod`,
	`\lim`, `\exp`, `\log`, `\sin`, `\cos`, `\tan`,
	`\alpha`, `\beta`, `\gamma`, `\delta`, `\epsilon`,
	`\theta`, `\lambda`, `\mu`, `\pi`, `\sigma`, `\omega`,
	`\le`, `\ge`, `\ne`, `\approx`,
	`\in`, `\notin`, `\subset`, `\supset`, `\to`, `\rightarrow`,
	`\left`, `\right`, `\bigl`, `\bigr`, `\Bigl`, `\Bigr`,
	`\tag`, `\qquad`, `\quad`, `\forall`, `\exists`,
	`\mathbb`, `\mathcal`, `\mathrm`,
	`^`, `_`,
}

// NormalizeLaTeX rewrites \[...\] to $$...$$, \(...\) to $...$, and bare
// bracketed formulas to $$...$$ where the content looks mathematical.
// Applied to Stage 1 and Stage 3 responses before they are recorded.
func NormalizeLaTeX(text string) string {
	if text == "" {
		return text
	}
	text = displayMathPattern.ReplaceAllString(text, `$$$$${1}$$$$`)
	text = inlineMathPattern.ReplaceAllString(text, `$$${1}$$`)
	return convertBracketFormulas(text)
}

// convertBracketFormulas handles [ ... ] blocks. Brackets preceded by a
// backtick (code) or followed by an opening paren (Markdown links) are left
// alone.
func convertBracketFormulas(text string) string {
	matches := bracketPattern.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		content := text[m[2]:m[3]]

		if start > 0 && text[start-1] == '`' {
			continue
		}
		if end < len(text) && text[end] == '(' {
			continue
		}
		if !isLikelyMath(content) {
			continue
		}

		b.WriteString(text[last:start])
		b.WriteString("$$")
		b.WriteString(content)
		b.WriteString("$$")
		last = end
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func isLikelyMath(content string) bool {
	// Very short content is usually a citation number, not a formula.
	if len(strings.TrimSpace(content)) < 3 {
		return false
	}
	for _, indicator := range mathIndicators {
		if strings.Contains(content, indicator) {
			return true
		}
	}
	ops := 0
	for _, op := range []string{"+", "-", "*", "/", "=", "<", ">", "|"} {
		if strings.Contains(content, op) {
			ops++
		}
	}
	return ops >= 2
}
