package usage

import (
	"context"
	"unicode/utf8"

	"github.com/fadilmartias/interview-coach/internal/llm"
)

// MeteredChatModel reports the usage of every successful chat call.
type MeteredChatModel struct {
	next    llm.ChatModel
	tracker Tracker
}

func NewMeteredChatModel(next llm.ChatModel, tracker Tracker) *MeteredChatModel {
	return &MeteredChatModel{next: next, tracker: tracker}
}

func (m *MeteredChatModel) Provider() string { return m.next.Provider() }

func (m *MeteredChatModel) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := m.next.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	m.tracker.Track(eventFor(ctx, "chat", m.next.Provider(), resp.Model, resp.Usage))
	return resp, nil
}

// MeteredJSONGenerator reports the usage of every successful JSON call.
type MeteredJSONGenerator struct {
	next    llm.JSONGenerator
	tracker Tracker
}

func NewMeteredJSONGenerator(next llm.JSONGenerator, tracker Tracker) *MeteredJSONGenerator {
	return &MeteredJSONGenerator{next: next, tracker: tracker}
}

func (m *MeteredJSONGenerator) Provider() string { return m.next.Provider() }

func (m *MeteredJSONGenerator) GenerateJSON(ctx context.Context, req llm.JSONRequest) (*llm.Completion, error) {
	c, err := m.next.GenerateJSON(ctx, req)
	if err != nil {
		return nil, err
	}
	m.tracker.Track(eventFor(ctx, "generate_json", m.next.Provider(), c.Model, c.Usage))
	return c, nil
}

// MeteredEmbedder reports embedding calls. The embeddings endpoint returns no
// token count, so input tokens are estimated at four characters per token.
type MeteredEmbedder struct {
	next    llm.Embedder
	tracker Tracker
	model   string
}

func NewMeteredEmbedder(next llm.Embedder, tracker Tracker, model string) *MeteredEmbedder {
	return &MeteredEmbedder{next: next, tracker: tracker, model: model}
}

func (m *MeteredEmbedder) Provider() string { return m.next.Provider() }

func (m *MeteredEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := m.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	tokens := (utf8.RuneCountInString(text) + 3) / 4
	m.tracker.Track(eventFor(ctx, "embed", m.next.Provider(), m.model, llm.Usage{PromptTokens: tokens}))
	return v, nil
}

func eventFor(ctx context.Context, fallbackOp, provider, model string, u llm.Usage) Event {
	info := llm.CallInfoFrom(ctx)
	op := info.Operation
	if op == "" {
		op = fallbackOp
	}
	return Event{
		SessionID: info.SessionID,
		Operation: op,
		Provider:  provider,
		Model:     model,
		Usage:     u,
	}
}
