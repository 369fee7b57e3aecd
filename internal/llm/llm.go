// Package llm describes the language-model capability the interview engine
// depends on. Providers live in internal/service; callers only see these types.
package llm

import (
	"context"

	"github.com/fadilmartias/interview-coach/internal/model"
)

// Usage is the token accounting reported by a provider for one call.
type Usage struct {
	PromptTokens int
	OutputTokens int
}

// Schema is the JSON-schema subset used to declare tool parameters.
type Schema struct {
	Type        string            `json:"type,omitempty"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]Schema `json:"properties,omitempty"`
	Items       *Schema           `json:"items,omitempty"`
	Required    []string          `json:"required,omitempty"`
	Enum        []string          `json:"enum,omitempty"`
}

// ToolDeclaration describes a tool the model may call during a chat turn.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  *Schema
}

type ChatRequest struct {
	Model             string
	SystemInstruction string
	History           []model.Turn
	Tools             []ToolDeclaration
	Temperature       float32
}

type ChatResponse struct {
	Text      string
	ToolCalls []model.ToolInvocation
	Model     string
	Usage     Usage
}

type JSONRequest struct {
	Model             string
	SystemInstruction string
	Prompt            string
	Temperature       float32
}

// Completion is the raw text of a structured-output call.
type Completion struct {
	Text     string
	Model    string
	Provider string
	Usage    Usage
}

// ChatModel runs one interviewer turn, optionally returning tool calls.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Provider() string
}

// JSONGenerator returns a JSON document for a prompt.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, req JSONRequest) (*Completion, error)
	Provider() string
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Provider() string
}
