package council

import "testing"

func TestNormalizeLaTeX(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"display delimiters",
			`The result is \[x^2 + y^2 = z^2\] as shown.`,
			`The result is $$x^2 + y^2 = z^2$$ as shown.`,
		},
		{
			"inline delimiters",
			`where \(x\) is the unknown`,
			`where $x$ is the unknown`,
		},
		{
			"bracket formula",
			`So [ \frac{a}{b} = c ] holds.`,
			`So $$\frac{a}{b} = c$$ holds.`,
		},
		{
			"bracket with operators",
			`We get [ 2 + 2 = 4 ] directly.`,
			`We get $$2 + 2 = 4$$ directly.`,
		},
		{
			"markdown link untouched",
			`See [the docs](https://example.test) for details.`,
			`See [the docs](https://example.test) for details.`,
		},
		{
			"code bracket untouched",
			"Use `[x + y = z]` in the source.",
			"Use `[x + y = z]` in the source.",
		},
		{
			"citation untouched",
			`As shown earlier [1] the claim holds.`,
			`As shown earlier [1] the claim holds.`,
		},
		{
			"plain prose bracket untouched",
			`The committee [in its 2020 report] disagreed.`,
			`The committee [in its 2020 report] disagreed.`,
		},
		{
			"empty input",
			"",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeLaTeX(tt.in); got != tt.want {
				t.Errorf("NormalizeLaTeX(%q)\n got %q\nwant %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsLikelyMath(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{`\boxed{42}`, true},
		{`x^2 - 1`, true},
		{`a_i`, true},
		{`a_`, false}, // too short
		{`1`, false},
		{`plain words only`, false},
		{`a + b = c`, true},
	}
	for _, tt := range tests {
		if got := isLikelyMath(tt.content); got != tt.want {
			t.Errorf("isLikelyMath(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}
