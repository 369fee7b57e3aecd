package interview

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/fadilmartias/interview-coach/internal/prompts"
)

// PromptInput is everything a single interviewer turn is conditioned on.
type PromptInput struct {
	Phase           model.Phase
	Problem         model.Problem
	Checklist       model.Checklist
	BoardState      string
	PriorBoardState string
}

// AssemblePrompt builds the system instruction for the next interviewer turn.
func AssemblePrompt(catalog *Catalog, in PromptInput) (string, error) {
	if PhaseIndex(in.Phase) < 0 {
		return "", &apperror.ValidationError{Field: "phase", Message: fmt.Sprintf("unknown phase %q", in.Phase)}
	}
	persona, err := prompts.Get(prompts.InterviewFile, "persona")
	if err != nil {
		return "", err
	}
	instructions, err := prompts.Get(prompts.InterviewFile, "phase-"+string(in.Phase))
	if err != nil {
		return "", err
	}
	contextTmpl, err := prompts.Get(prompts.InterviewFile, "context")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	b.WriteString(instructions)
	b.WriteString("\n\n")
	b.WriteString(prompts.Format(contextTmpl, map[string]string{
		"Title":        in.Problem.Title,
		"Description":  in.Problem.Description,
		"Requirements": RenderRequirements(in.Problem.Requirements),
		"Score":        strconv.Itoa(catalog.Score(in.Checklist)),
		"Checklist":    RenderChecklist(catalog, in.Checklist),
	}))

	diff, changed, err := BoardDiff(in.PriorBoardState, in.BoardState)
	if err != nil {
		return "", err
	}
	if changed {
		b.WriteString("\n\n## Board changes since the last turn\n```diff\n")
		b.WriteString(diff)
		if !strings.HasSuffix(diff, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```")
	}
	return b.String(), nil
}

// RenderChecklist lists criteria grouped by category with a checked/total
// count per group. Observed red flags are marked [!].
func RenderChecklist(catalog *Catalog, checklist model.Checklist) string {
	var b strings.Builder
	for i, category := range catalog.Categories() {
		items := catalog.InCategory(category)
		checked := 0
		for _, cr := range items {
			if checklist[cr.Key] {
				checked++
			}
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s (%d/%d)\n", category, checked, len(items))
		for _, cr := range items {
			fmt.Fprintf(&b, "- %s %s [%s]\n", marker(cr, checklist[cr.Key]), cr.Name, cr.Key)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func marker(cr Criterion, observed bool) string {
	switch {
	case observed && cr.IsRedFlag:
		return "[!]"
	case observed:
		return "[x]"
	default:
		return "[ ]"
	}
}

// RenderRequirements renders the problem requirements as bullet lists.
func RenderRequirements(r model.Requirements) string {
	sections := []struct {
		title string
		items []string
	}{
		{"Functional", r.Functional},
		{"Non-functional", r.NonFunctional},
		{"Constraints", r.Constraints},
		{"Out of scope (mention only if asked)", r.OutOfScope},
	}
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.title + ":\n")
		if len(s.items) == 0 {
			b.WriteString("- none\n")
			continue
		}
		for _, item := range s.items {
			b.WriteString("- " + item + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
