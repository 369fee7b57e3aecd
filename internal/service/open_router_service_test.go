package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/config"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouterGenerateJSON(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "openai/gpt-4o-mini-2024",
			"choices": [{"message": {"content": "{\"overall_score\": 70}"}}],
			"usage": {"prompt_tokens": 900, "completion_tokens": 120}
		}`))
	}))
	defer srv.Close()

	s, err := NewOpenRouterService(&config.OpenRouterConfig{APIKey: "test-key", Model: "openai/gpt-4o-mini", BaseURL: srv.URL + "/api/v1/"}, nil)
	require.NoError(t, err)

	c, err := s.GenerateJSON(context.Background(), llm.JSONRequest{SystemInstruction: "sys", Prompt: "grade this"})
	require.NoError(t, err)

	assert.Equal(t, `{"overall_score": 70}`, c.Text)
	assert.Equal(t, "openai/gpt-4o-mini-2024", c.Model)
	assert.Equal(t, "openrouter", c.Provider)
	assert.Equal(t, llm.Usage{PromptTokens: 900, OutputTokens: 120}, c.Usage)

	assert.Equal(t, "openai/gpt-4o-mini", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestOpenRouterGenerateJSON_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer srv.Close()

	s, err := NewOpenRouterService(&config.OpenRouterConfig{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = s.GenerateJSON(context.Background(), llm.JSONRequest{Prompt: "x"})

	var pe *apperror.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "rate limited")
	assert.Contains(t, err.Error(), "429")
}

func TestOpenRouterGenerateJSON_EmptyChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	s, err := NewOpenRouterService(&config.OpenRouterConfig{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = s.GenerateJSON(context.Background(), llm.JSONRequest{Prompt: "x"})
	assert.ErrorContains(t, err, "no response")
}

func TestNewOpenRouterService_RequiresKey(t *testing.T) {
	_, err := NewOpenRouterService(&config.OpenRouterConfig{}, nil)
	assert.Error(t, err)
}
