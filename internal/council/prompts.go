package council

import (
	"fmt"
	"strings"

	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

// Prompt builders for the four stages. All participants in a stage receive
// the same prompt text so differences in their answers reflect the models,
// not the inputs.

const formattingGuidance = `Formatting requirements:
- Answer in Markdown.
- Write mathematical formulas with $...$ for inline math and $$...$$ for display math.
- Do not wrap the whole answer in a code block.`

// BuildStage1Prompt assembles the question every participant answers:
// conversation context first, then attachments, then the user's question.
func BuildStage1Prompt(content string, attachments []model.Attachment, convContext string) string {
	var b strings.Builder

	if convContext != "" {
		b.WriteString("Here is the conversation so far:\n\n")
		b.WriteString(convContext)
		b.WriteString("\n\n---\n\n")
	}

	if len(attachments) > 0 {
		b.WriteString("The user attached the following documents:\n\n")
		for _, a := range attachments {
			fmt.Fprintf(&b, "=== %s ===\n%s\n\n", a.Name, a.Content)
		}
		b.WriteString("---\n\n")
	}

	b.WriteString("Answer the following question as well as you can.\n\n")
	b.WriteString(formattingGuidance)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(content)
	return b.String()
}

// BuildStage2Prompt asks one reviewer to score every anonymized answer except
// its own. The reviewer is told which label is its own so it can skip it; the
// aggregator independently discards any self-score that slips through.
func BuildStage2Prompt(question string, labels *LabelMap, stage1 []model.Stage1Result, reviewerLabel string) string {
	var b strings.Builder

	b.WriteString("Several anonymous experts answered the question below. ")
	b.WriteString("Score each answer from 0 to 10 based on correctness, depth, and clarity.\n\n")
	fmt.Fprintf(&b, "Question:\n%s\n\n", question)

	byModel := make(map[string]string, len(stage1))
	for _, r := range stage1 {
		if r.Error == "" {
			byModel[r.Model] = r.Response
		}
	}
	for _, label := range labels.Labels() {
		modelID, _ := labels.Model(label)
		fmt.Fprintf(&b, "--- Answer %s ---\n%s\n\n", label, byModel[modelID])
	}

	if reviewerLabel != "" {
		fmt.Fprintf(&b, "Answer %s is your own. Do not score it.\n\n", reviewerLabel)
	}

	b.WriteString("Respond with one line per answer in exactly this format:\n")
	b.WriteString("#1: 8.5 - brief justification\n")
	b.WriteString("#2: 6.0 - brief justification\n")
	b.WriteString("\nScore every answer except your own.")
	return b.String()
}

// BuildStage3Prompt gives the chairman the question, every surviving answer,
// and every review, and asks for one synthesized final answer.
func BuildStage3Prompt(question string, labels *LabelMap, stage1 []model.Stage1Result, stage2 []model.Stage2Result) string {
	var b strings.Builder

	b.WriteString("You are the chairman of a council of AI experts. ")
	b.WriteString("The council answered a question independently and then reviewed each other's answers. ")
	b.WriteString("Synthesize the strongest single answer from all of this material. ")
	b.WriteString("Resolve disagreements on the merits and do not mention the council or the review process in your answer.\n\n")
	b.WriteString(formattingGuidance)
	fmt.Fprintf(&b, "\n\nQuestion:\n%s\n\n", question)

	byModel := make(map[string]string, len(stage1))
	for _, r := range stage1 {
		if r.Error == "" {
			byModel[r.Model] = r.Response
		}
	}
	for _, label := range labels.Labels() {
		modelID, _ := labels.Model(label)
		fmt.Fprintf(&b, "--- Answer %s ---\n%s\n\n", label, byModel[modelID])
	}

	for _, r := range stage2 {
		if !r.Participated || r.RawText == "" {
			continue
		}
		label, ok := labels.Label(r.Model)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "--- Review by the author of %s ---\n%s\n\n", label, r.RawText)
	}

	return b.String()
}

// BuildTitlePrompt asks for a short conversation title after the first
// completed meeting. Kept deliberately terse; the answer is used verbatim.
func BuildTitlePrompt(question string) string {
	return fmt.Sprintf(
		"Write a title of at most 6 words for a conversation that starts with the question below. "+
			"Reply with the title only, no quotes, no trailing punctuation.\n\nQuestion:\n%s", question)
}
