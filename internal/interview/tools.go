package interview

import (
	"fmt"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/mitchellh/mapstructure"
)

type ToolName string

const (
	ToolUpdateChecklist        ToolName = "update_checklist"
	ToolRequestStateTransition ToolName = "request_state_transition"
	ToolGetBoardState          ToolName = "get_board_state"
)

// ToolCall is the closed set of operations the interviewer model can invoke.
// Implementations live in this package only; adding one requires a matching
// method on toolHandler, so every dispatcher must handle it.
type ToolCall interface {
	Name() ToolName
	dispatch(h toolHandler) (map[string]any, error)
}

type toolHandler interface {
	updateChecklist(UpdateChecklistCall) (map[string]any, error)
	requestStateTransition(RequestStateTransitionCall) (map[string]any, error)
	getBoardState(GetBoardStateCall) (map[string]any, error)
}

type UpdateChecklistCall struct {
	Observations []string `mapstructure:"observations"`
}

func (UpdateChecklistCall) Name() ToolName { return ToolUpdateChecklist }

func (c UpdateChecklistCall) dispatch(h toolHandler) (map[string]any, error) {
	return h.updateChecklist(c)
}

type RequestStateTransitionCall struct {
	Phase string `mapstructure:"phase"`
}

func (RequestStateTransitionCall) Name() ToolName { return ToolRequestStateTransition }

func (c RequestStateTransitionCall) dispatch(h toolHandler) (map[string]any, error) {
	return h.requestStateTransition(c)
}

type GetBoardStateCall struct{}

func (GetBoardStateCall) Name() ToolName { return ToolGetBoardState }

func (c GetBoardStateCall) dispatch(h toolHandler) (map[string]any, error) {
	return h.getBoardState(c)
}

// ParseToolCall decodes a raw model invocation into a typed ToolCall.
func ParseToolCall(inv model.ToolInvocation) (ToolCall, error) {
	var call ToolCall
	switch ToolName(inv.Name) {
	case ToolUpdateChecklist:
		var c UpdateChecklistCall
		if err := decodeArgs(inv.Args, &c); err != nil {
			return nil, err
		}
		call = c
	case ToolRequestStateTransition:
		var c RequestStateTransitionCall
		if err := decodeArgs(inv.Args, &c); err != nil {
			return nil, err
		}
		if c.Phase == "" {
			return nil, &apperror.ValidationError{Field: "phase", Message: "phase is required"}
		}
		call = c
	case ToolGetBoardState:
		call = GetBoardStateCall{}
	default:
		return nil, &apperror.ValidationError{Field: "tool", Message: fmt.Sprintf("unknown tool %q", inv.Name)}
	}
	return call, nil
}

func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return &apperror.ValidationError{Field: "args", Message: err.Error()}
	}
	return nil
}

// ToolState is the mutable slice of a session a tool round may touch.
type ToolState struct {
	Phase      model.Phase
	Checklist  model.Checklist
	BoardState string
}

// Dispatcher executes tool calls against a ToolState.
type Dispatcher struct {
	catalog *Catalog
	state   *ToolState
}

func NewDispatcher(catalog *Catalog, state *ToolState) *Dispatcher {
	return &Dispatcher{catalog: catalog, state: state}
}

// Dispatch runs call if the current phase exposes it.
func (d *Dispatcher) Dispatch(call ToolCall) (map[string]any, error) {
	if !ToolAllowed(d.state.Phase, call.Name()) {
		return nil, &apperror.ValidationError{
			Field:   "tool",
			Message: fmt.Sprintf("%s is not available in phase %s", call.Name(), d.state.Phase),
		}
	}
	return call.dispatch(d)
}

// Execute parses and dispatches inv. Failures are reported to the model in
// the outcome rather than returned, so a bad call never aborts a turn.
func (d *Dispatcher) Execute(inv model.ToolInvocation) model.ToolOutcome {
	out := model.ToolOutcome{ID: inv.ID, Name: inv.Name}
	call, err := ParseToolCall(inv)
	if err == nil {
		out.Response, err = d.Dispatch(call)
	}
	if err != nil {
		out.Response = map[string]any{"error": err.Error()}
	}
	return out
}

func (d *Dispatcher) updateChecklist(c UpdateChecklistCall) (map[string]any, error) {
	checklist, noted := d.catalog.Apply(d.state.Checklist, c.Observations)
	d.state.Checklist = checklist
	return map[string]any{
		"noted":         noted,
		"current_score": d.catalog.Score(checklist),
	}, nil
}

func (d *Dispatcher) requestStateTransition(c RequestStateTransitionCall) (map[string]any, error) {
	requested, err := ParsePhase(c.Phase)
	if err != nil {
		return nil, err
	}
	next, err := RequestTransition(d.state.Phase, requested)
	if err != nil {
		return nil, err
	}
	d.state.Phase = next
	return map[string]any{"phase": string(next)}, nil
}

func (d *Dispatcher) getBoardState(GetBoardStateCall) (map[string]any, error) {
	return map[string]any{"board_state": d.state.BoardState}, nil
}

// Declarations returns the tool declarations exposed in phase p.
func Declarations(catalog *Catalog, p model.Phase) []llm.ToolDeclaration {
	var out []llm.ToolDeclaration
	for _, name := range AllowedTools(p) {
		out = append(out, declaration(catalog, name))
	}
	return out
}

func declaration(catalog *Catalog, name ToolName) llm.ToolDeclaration {
	switch name {
	case ToolUpdateChecklist:
		keys := make([]string, 0, len(catalog.criteria))
		for _, cr := range catalog.criteria {
			keys = append(keys, cr.Key)
		}
		return llm.ToolDeclaration{
			Name:        string(name),
			Description: "Record criteria the candidate has demonstrated. Entries can only be marked, never cleared.",
			Parameters: &llm.Schema{
				Type: "object",
				Properties: map[string]llm.Schema{
					"observations": {
						Type:        "array",
						Description: "Criterion keys observed in the candidate's latest answers.",
						Items:       &llm.Schema{Type: "string", Enum: keys},
					},
				},
				Required: []string{"observations"},
			},
		}
	case ToolRequestStateTransition:
		phases := make([]string, 0, len(phaseOrder))
		for _, p := range phaseOrder {
			phases = append(phases, string(p))
		}
		return llm.ToolDeclaration{
			Name:        string(name),
			Description: "Move the interview to the next phase. Phases cannot be skipped or revisited.",
			Parameters: &llm.Schema{
				Type: "object",
				Properties: map[string]llm.Schema{
					"phase": {Type: "string", Description: "Requested phase.", Enum: phases},
				},
				Required: []string{"phase"},
			},
		}
	default:
		return llm.ToolDeclaration{
			Name:        string(name),
			Description: "Read the candidate's current design board. Read-only.",
		}
	}
}
