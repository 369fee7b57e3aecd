package interview

import (
	"testing"

	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCall(t *testing.T) {
	call, err := ParseToolCall(model.ToolInvocation{
		Name: "update_checklist",
		Args: map[string]any{"observations": []any{"defines_apis_and_data_model"}},
	})
	require.NoError(t, err)
	assert.Equal(t, UpdateChecklistCall{Observations: []string{"defines_apis_and_data_model"}}, call)

	call, err = ParseToolCall(model.ToolInvocation{Name: "request_state_transition", Args: map[string]any{"phase": "DESIGNING"}})
	require.NoError(t, err)
	assert.Equal(t, ToolRequestStateTransition, call.Name())

	call, err = ParseToolCall(model.ToolInvocation{Name: "get_board_state"})
	require.NoError(t, err)
	assert.Equal(t, GetBoardStateCall{}, call)

	_, err = ParseToolCall(model.ToolInvocation{Name: "request_state_transition"})
	assert.Error(t, err)

	_, err = ParseToolCall(model.ToolInvocation{Name: "delete_session"})
	assert.Error(t, err)
}

func TestDispatcher_UpdateChecklist(t *testing.T) {
	c := DefaultCatalog()
	state := &ToolState{Phase: model.PhaseDesigning, Checklist: c.DefaultChecklist()}
	d := NewDispatcher(c, state)

	out := d.Execute(model.ToolInvocation{
		ID:   "call-1",
		Name: "update_checklist",
		Args: map[string]any{"observations": []any{
			"proposes_high_level_architecture_first",
			"communicates_decisions_and_tradeoffs",
			"made_up",
		}},
	})

	assert.Equal(t, "call-1", out.ID)
	assert.Equal(t, []string{"proposes_high_level_architecture_first", "communicates_decisions_and_tradeoffs"}, out.Response["noted"])
	assert.Equal(t, 30, out.Response["current_score"])
	assert.True(t, state.Checklist["communicates_decisions_and_tradeoffs"])
}

func TestDispatcher_Transition(t *testing.T) {
	state := &ToolState{Phase: model.PhaseGreeting}
	d := NewDispatcher(DefaultCatalog(), state)

	out := d.Execute(model.ToolInvocation{Name: "request_state_transition", Args: map[string]any{"phase": "DESIGNING"}})
	assert.Contains(t, out.Response["error"], "invalid phase transition")
	assert.Equal(t, model.PhaseGreeting, state.Phase)

	out = d.Execute(model.ToolInvocation{Name: "request_state_transition", Args: map[string]any{"phase": "requirements"}})
	assert.Equal(t, "REQUIREMENTS", out.Response["phase"])
	assert.Equal(t, model.PhaseRequirements, state.Phase)
}

func TestDispatcher_BoardGatedByPhase(t *testing.T) {
	state := &ToolState{Phase: model.PhaseGreeting, BoardState: `{"nodes":[]}`}
	d := NewDispatcher(DefaultCatalog(), state)

	_, err := d.Dispatch(GetBoardStateCall{})
	assert.Error(t, err)

	state.Phase = model.PhaseDeepDive
	out, err := d.Dispatch(GetBoardStateCall{})
	require.NoError(t, err)
	assert.Equal(t, `{"nodes":[]}`, out["board_state"])
}

func TestDeclarations(t *testing.T) {
	c := DefaultCatalog()

	greeting := Declarations(c, model.PhaseGreeting)
	require.Len(t, greeting, 2)
	assert.Equal(t, "update_checklist", greeting[0].Name)
	assert.Len(t, greeting[0].Parameters.Properties["observations"].Items.Enum, len(c.List()))

	designing := Declarations(c, model.PhaseDesigning)
	require.Len(t, designing, 3)
	assert.Equal(t, "get_board_state", designing[2].Name)
	assert.Nil(t, designing[2].Parameters)
}
