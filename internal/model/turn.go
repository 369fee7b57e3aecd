package model

import (
	"strings"
	"time"
)

// Conversation roles.
const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleTool   = "tool"
	RoleSystem = "system"
)

// EvaluationMarker is the text of the system turn appended once the final
// evaluation has been stored.
const EvaluationMarker = "[evaluation completed]"

// Turn is one entry of the append-only conversation log.
type Turn struct {
	Role      string     `json:"role"`
	Parts     []TurnPart `json:"parts"`
	CreatedAt time.Time  `json:"created_at"`
}

type TurnPart struct {
	Text       string          `json:"text,omitempty"`
	ToolCall   *ToolInvocation `json:"tool_call,omitempty"`
	ToolResult *ToolOutcome    `json:"tool_result,omitempty"`
}

// ToolInvocation is a tool call requested by the model.
type ToolInvocation struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolOutcome is the answer sent back to the model for a ToolInvocation.
type ToolOutcome struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

func TextTurn(role, text string, at time.Time) Turn {
	return Turn{Role: role, Parts: []TurnPart{{Text: text}}, CreatedAt: at}
}

// Text joins the textual parts of the turn.
func (t Turn) Text() string {
	texts := make([]string, 0, len(t.Parts))
	for _, p := range t.Parts {
		if s := strings.TrimSpace(p.Text); s != "" {
			texts = append(texts, s)
		}
	}
	return strings.Join(texts, "\n")
}
