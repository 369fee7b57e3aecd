package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/interview"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boardChangesHeader = "## Board changes since the last turn"

type interviewFixture struct {
	sessions *memSessionStore
	problems *memProblemStore
	chat     *fakeChat
	uc       *InterviewUsecase
	problem  model.Problem
}

func newInterviewFixture(t *testing.T, maxToolRounds int) *interviewFixture {
	t.Helper()
	problems := newMemProblemStore(sampleProblem())
	p := problems.problems[problems.order[0]]
	f := &interviewFixture{
		sessions: newMemSessionStore(),
		problems: problems,
		chat:     &fakeChat{},
		problem:  p,
	}
	f.uc = NewInterviewUsecase(f.sessions, f.problems, f.chat, interview.DefaultCatalog(), maxToolRounds, nil)
	f.uc.now = func() time.Time { return testTime }
	return f
}

func (f *interviewFixture) start(t *testing.T) *model.InterviewSession {
	t.Helper()
	s, err := f.uc.StartSession(context.Background(), f.problem.ID)
	require.NoError(t, err)
	return s
}

func toolNames(decls []llm.ToolDeclaration) []string {
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	return names
}

func observe(keys ...any) model.ToolInvocation {
	return model.ToolInvocation{Name: "update_checklist", Args: map[string]any{"observations": keys}}
}

func transition(phase string) model.ToolInvocation {
	return model.ToolInvocation{Name: "request_state_transition", Args: map[string]any{"phase": phase}}
}

func TestStartSession(t *testing.T) {
	f := newInterviewFixture(t, 0)

	s := f.start(t)

	assert.Equal(t, model.PhaseGreeting, s.Phase)
	assert.Equal(t, model.StatusActive, s.Status)
	assert.Len(t, s.Checklist, len(interview.DefaultCatalog().List()))
	for key, observed := range s.Checklist {
		assert.False(t, observed, key)
	}
	assert.Zero(t, f.uc.Catalog().Score(s.Checklist))
}

func TestStartSession_UnknownProblem(t *testing.T) {
	f := newInterviewFixture(t, 0)

	_, err := f.uc.StartSession(context.Background(), uuid.New())

	var notFound *apperror.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "problem", notFound.Resource)
}

func TestSendMessage_ToolLoop(t *testing.T) {
	f := newInterviewFixture(t, 0)
	s := f.start(t)
	f.chat.replies = []*llm.ChatResponse{
		{ToolCalls: []model.ToolInvocation{
			observe("clarifies_functional_requirements", "not_a_criterion"),
			transition("REQUIREMENTS"),
		}},
		{Text: "Great, let's talk about requirements. Who are the users?"},
	}

	res, err := f.uc.SendMessage(context.Background(), s.ID, "Hi! Before I start, what should the service do?")
	require.NoError(t, err)

	assert.Equal(t, "Great, let's talk about requirements. Who are the users?", res.Reply)
	assert.Equal(t, model.PhaseRequirements, res.Phase)
	expected := f.uc.Catalog().Score(model.Checklist{"clarifies_functional_requirements": true})
	assert.Equal(t, expected, res.Score)
	assert.Contains(t, res.Grouping.Noted, "clarifies_functional_requirements")

	require.Len(t, f.chat.requests, 2)
	assert.ElementsMatch(t, []string{"update_checklist", "request_state_transition"}, toolNames(f.chat.requests[0].Tools))
	assert.ElementsMatch(t, []string{"update_checklist", "request_state_transition", "get_board_state"}, toolNames(f.chat.requests[1].Tools))

	stored, err := f.uc.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseRequirements, stored.Phase)
	assert.True(t, stored.Checklist["clarifies_functional_requirements"])
	assert.NotContains(t, stored.Checklist, "not_a_criterion")
	assert.Equal(t, int64(1), stored.Version)

	require.Len(t, stored.Conversation, 4)
	assert.Equal(t, model.RoleUser, stored.Conversation[0].Role)
	assert.Equal(t, model.RoleModel, stored.Conversation[1].Role)
	require.Len(t, stored.Conversation[1].Parts, 2)
	assert.Equal(t, "update_checklist", stored.Conversation[1].Parts[0].ToolCall.Name)
	assert.Equal(t, model.RoleTool, stored.Conversation[2].Role)
	require.Len(t, stored.Conversation[2].Parts, 2)
	assert.Equal(t, "REQUIREMENTS", stored.Conversation[2].Parts[1].ToolResult.Response["phase"])
	assert.Equal(t, model.RoleModel, stored.Conversation[3].Role)
	assert.Equal(t, res.Reply, stored.Conversation[3].Text())
}

func TestSendMessage_InvalidTransitionIsReportedToModel(t *testing.T) {
	f := newInterviewFixture(t, 0)
	s := f.start(t)
	f.chat.replies = []*llm.ChatResponse{
		{ToolCalls: []model.ToolInvocation{transition("DEEP_DIVE")}},
		{Text: "Let's not skip ahead."},
	}

	res, err := f.uc.SendMessage(context.Background(), s.ID, "Can we jump to the deep dive?")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseGreeting, res.Phase)

	stored, err := f.uc.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	outcome := stored.Conversation[2].Parts[0].ToolResult
	require.NotNil(t, outcome)
	assert.Contains(t, outcome.Response["error"], "invalid phase transition")
}

func TestSendMessage_LastRoundHasNoTools(t *testing.T) {
	f := newInterviewFixture(t, 2)
	s := f.start(t)
	f.chat.replies = []*llm.ChatResponse{
		{Text: "Noting that.", ToolCalls: []model.ToolInvocation{observe("clarifies_functional_requirements")}},
		{Text: "Tell me more.", ToolCalls: []model.ToolInvocation{observe("estimates_scale_and_capacity")}},
	}

	res, err := f.uc.SendMessage(context.Background(), s.ID, "It must shorten URLs.")
	require.NoError(t, err)

	require.Len(t, f.chat.requests, 2)
	assert.NotEmpty(t, f.chat.requests[0].Tools)
	assert.Empty(t, f.chat.requests[1].Tools)
	assert.Equal(t, "Noting that.\n\nTell me more.", res.Reply)

	stored, err := f.uc.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, stored.Checklist["clarifies_functional_requirements"])
	assert.False(t, stored.Checklist["estimates_scale_and_capacity"], "tool calls of the final round are not executed")
}

func TestSendMessage_RejectsInactiveSession(t *testing.T) {
	f := newInterviewFixture(t, 0)
	s := f.start(t)
	f.sessions.mutate(s.ID, func(s *model.InterviewSession) { s.Status = model.StatusEvaluating })

	_, err := f.uc.SendMessage(context.Background(), s.ID, "hello?")

	require.ErrorIs(t, err, apperror.ErrSessionNotActive)
	assert.Empty(t, f.chat.requests)
}

func TestSendMessage_StaleSessionIsRejected(t *testing.T) {
	f := newInterviewFixture(t, 0)
	s := f.start(t)
	f.sessions.beforeSave = func(in *model.InterviewSession) {
		f.sessions.beforeSave = nil
		f.sessions.mutate(in.ID, func(s *model.InterviewSession) { s.BoardState = "changed elsewhere" })
	}

	_, err := f.uc.SendMessage(context.Background(), s.ID, "hello")

	require.ErrorIs(t, err, apperror.ErrVersionConflict)
	stored, err := f.uc.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Conversation)
	assert.Equal(t, "changed elsewhere", stored.BoardState)
}

func TestSendMessage_ProviderError(t *testing.T) {
	f := newInterviewFixture(t, 0)
	s := f.start(t)
	f.chat.err = &apperror.ProviderError{Provider: "fake", Message: "chat", Cause: errors.New("timeout")}

	_, err := f.uc.SendMessage(context.Background(), s.ID, "hello")

	var providerErr *apperror.ProviderError
	require.ErrorAs(t, err, &providerErr)
	stored, err := f.uc.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Conversation)
}

func TestUpdateBoard_DiffShownOnce(t *testing.T) {
	f := newInterviewFixture(t, 0)
	s := f.start(t)
	ctx := context.Background()

	f.sessions.beforeSave = func(in *model.InterviewSession) {
		f.sessions.beforeSave = nil
		f.sessions.mutate(in.ID, func(*model.InterviewSession) {})
	}
	updated, err := f.uc.UpdateBoard(ctx, s.ID, `{"nodes":["client","api","db"]}`)
	require.NoError(t, err, "a version conflict is retried")
	assert.Equal(t, `{"nodes":["client","api","db"]}`, updated.BoardState)

	_, err = f.uc.SendMessage(ctx, s.ID, "I drew the first boxes.")
	require.NoError(t, err)
	_, err = f.uc.SendMessage(ctx, s.ID, "Any thoughts?")
	require.NoError(t, err)

	require.Len(t, f.chat.requests, 2)
	assert.Contains(t, f.chat.requests[0].SystemInstruction, boardChangesHeader)
	assert.Contains(t, f.chat.requests[0].SystemInstruction, `+    "db"`)
	assert.NotContains(t, f.chat.requests[1].SystemInstruction, boardChangesHeader)

	stored, err := f.uc.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.BoardState, stored.PriorBoardState)
}

func TestUpdateBoard_RejectsInactiveSession(t *testing.T) {
	f := newInterviewFixture(t, 0)
	s := f.start(t)
	f.sessions.mutate(s.ID, func(s *model.InterviewSession) { s.Status = model.StatusCompleted })

	_, err := f.uc.UpdateBoard(context.Background(), s.ID, "{}")

	require.ErrorIs(t, err, apperror.ErrSessionNotActive)
}

func TestListSessions(t *testing.T) {
	f := newInterviewFixture(t, 0)
	for range 3 {
		f.start(t)
	}

	page, total, err := f.uc.ListSessions(context.Background(), 1, 5)

	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)
}
