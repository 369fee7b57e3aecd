package interview

import (
	"fmt"
	"strings"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/model"
)

var phaseOrder = []model.Phase{
	model.PhaseGreeting,
	model.PhaseRequirements,
	model.PhaseDesigning,
	model.PhaseDeepDive,
	model.PhaseConclusion,
}

// Phases returns the fixed phase order.
func Phases() []model.Phase {
	out := make([]model.Phase, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

// PhaseIndex returns the 0-based position of p, or -1 if p is unknown.
func PhaseIndex(p model.Phase) int {
	for i, candidate := range phaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// ParsePhase accepts a phase name in any case.
func ParsePhase(s string) (model.Phase, error) {
	p := model.Phase(strings.ToUpper(strings.TrimSpace(s)))
	if PhaseIndex(p) < 0 {
		return "", &apperror.ValidationError{Field: "phase", Message: fmt.Sprintf("unknown phase %q", s)}
	}
	return p, nil
}

// NextPhase returns the phase following p. The second result is false for
// CONCLUSION and for unknown phases.
func NextPhase(p model.Phase) (model.Phase, bool) {
	i := PhaseIndex(p)
	if i < 0 || i == len(phaseOrder)-1 {
		return "", false
	}
	return phaseOrder[i+1], true
}

// RequestTransition validates a move from current to requested and returns the
// resulting phase. Staying in place is a no-op and advancing by one step
// succeeds. Skips, backward moves and any request made from CONCLUSION fail
// with ErrInvalidTransition.
func RequestTransition(current, requested model.Phase) (model.Phase, error) {
	if PhaseIndex(current) < 0 {
		return "", &apperror.ValidationError{Field: "phase", Message: fmt.Sprintf("unknown phase %q", current)}
	}
	if PhaseIndex(requested) < 0 {
		return "", &apperror.ValidationError{Field: "phase", Message: fmt.Sprintf("unknown phase %q", requested)}
	}
	if current == model.PhaseConclusion {
		return "", invalidTransition(current, requested)
	}
	if requested == current {
		return current, nil
	}
	if next, _ := NextPhase(current); requested == next {
		return next, nil
	}
	return "", invalidTransition(current, requested)
}

func invalidTransition(from, to model.Phase) error {
	return &apperror.StateConflictError{
		Reason:  apperror.ErrInvalidTransition,
		Message: fmt.Sprintf("%s -> %s", from, to),
	}
}

// AllowedTools returns the tool set the model may call in phase p.
func AllowedTools(p model.Phase) []ToolName {
	switch p {
	case model.PhaseRequirements, model.PhaseDesigning, model.PhaseDeepDive:
		return []ToolName{ToolUpdateChecklist, ToolRequestStateTransition, ToolGetBoardState}
	case model.PhaseGreeting, model.PhaseConclusion:
		return []ToolName{ToolUpdateChecklist, ToolRequestStateTransition}
	default:
		return nil
	}
}

// ToolAllowed reports whether name is exposed in phase p.
func ToolAllowed(p model.Phase, name ToolName) bool {
	for _, t := range AllowedTools(p) {
		if t == name {
			return true
		}
	}
	return false
}
