package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/evaluation"
	"github.com/fadilmartias/interview-coach/internal/interview"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conclusionFixture struct {
	sessions  *memSessionStore
	evaluator *fakeEvaluator
	workflow  *ConclusionWorkflow
	session   *model.InterviewSession
}

func newConclusionFixture(t *testing.T, evaluate func(ctx context.Context, in evaluation.Input) (*model.FinalEvaluation, error)) *conclusionFixture {
	t.Helper()
	problems := newMemProblemStore(sampleProblem())
	sessions := newMemSessionStore()
	catalog := interview.DefaultCatalog()

	s := &model.InterviewSession{
		ProblemID: problems.order[0],
		Phase:     model.PhaseDeepDive,
		Status:    model.StatusActive,
		Conversation: []model.Turn{
			model.TextTurn(model.RoleUser, "I would shard by short code.", testTime),
		},
		BoardState: `{"nodes":["api","kv"]}`,
		Checklist:  catalog.DefaultChecklist(),
	}
	require.NoError(t, sessions.Create(context.Background(), s))

	evaluator := &fakeEvaluator{EvaluateFunc: evaluate}
	w := NewConclusionWorkflow(sessions, problems, evaluator, nil)
	w.now = func() time.Time { return testTime }
	return &conclusionFixture{sessions: sessions, evaluator: evaluator, workflow: w, session: s}
}

func returning(final *model.FinalEvaluation, err error) func(context.Context, evaluation.Input) (*model.FinalEvaluation, error) {
	return func(context.Context, evaluation.Input) (*model.FinalEvaluation, error) {
		return final, err
	}
}

func TestConclude_StoresEvaluation(t *testing.T) {
	release := make(chan struct{})
	var seen evaluation.Input
	f := newConclusionFixture(t, func(_ context.Context, in evaluation.Input) (*model.FinalEvaluation, error) {
		<-release
		seen = in
		return sampleEvaluation(), nil
	})
	ctx := context.Background()

	require.NoError(t, f.workflow.Conclude(ctx, f.session.ID))

	status, err := f.workflow.EvaluationStatus(ctx, f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEvaluating, status.Status)
	assert.Nil(t, status.Evaluation)
	require.NotNil(t, status.ConcludedAt)

	close(release)
	f.workflow.Wait()

	status, err = f.workflow.EvaluationStatus(ctx, f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status.Status)
	require.NotNil(t, status.Evaluation)
	assert.Equal(t, 72, status.Evaluation.OverallScore)
	assert.Equal(t, []int{70, 74}, status.Evaluation.JudgeScores)
	assert.NotNil(t, status.EvaluatedAt)

	assert.Equal(t, "URL shortener", seen.Problem.Title)
	assert.Equal(t, `{"nodes":["api","kv"]}`, seen.BoardState)
	require.Len(t, seen.Conversation, 1)

	stored, err := f.sessions.FindByID(ctx, f.session.ID)
	require.NoError(t, err)
	last := stored.Conversation[len(stored.Conversation)-1]
	assert.Equal(t, model.RoleSystem, last.Role)
	assert.Equal(t, model.EvaluationMarker, last.Text())

	require.Len(t, f.evaluator.infos, 1)
	assert.Equal(t, f.session.ID.String(), f.evaluator.infos[0].SessionID)
}

func TestConclude_ConcurrentCallsAcceptOnce(t *testing.T) {
	f := newConclusionFixture(t, returning(sampleEvaluation(), nil))
	ctx := context.Background()

	const callers = 2
	errs := make([]error, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = f.workflow.Conclude(ctx, f.session.ID)
		}()
	}
	close(start)
	wg.Wait()
	f.workflow.Wait()

	accepted, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, apperror.ErrAlreadyConcluded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 1, f.evaluator.calls)
}

func TestConclude_AlreadyConcluded(t *testing.T) {
	for _, status := range []model.SessionStatus{model.StatusEvaluating, model.StatusCompleted, model.StatusEvaluationFailed} {
		t.Run(string(status), func(t *testing.T) {
			f := newConclusionFixture(t, returning(sampleEvaluation(), nil))
			f.sessions.mutate(f.session.ID, func(s *model.InterviewSession) { s.Status = status })

			err := f.workflow.Conclude(context.Background(), f.session.ID)

			require.ErrorIs(t, err, apperror.ErrAlreadyConcluded)
			assert.Equal(t, http.StatusConflict, apperror.HTTPStatus(err))
			f.workflow.Wait()
			assert.Zero(t, f.evaluator.calls)

			stored, err := f.sessions.FindByID(context.Background(), f.session.ID)
			require.NoError(t, err)
			assert.Equal(t, status, stored.Status)
		})
	}
}

func TestConclude_UnknownSession(t *testing.T) {
	f := newConclusionFixture(t, returning(sampleEvaluation(), nil))

	err := f.workflow.Conclude(context.Background(), uuid.New())

	var notFound *apperror.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestConclude_EvaluationFailure(t *testing.T) {
	cases := map[string]func(context.Context, evaluation.Input) (*model.FinalEvaluation, error){
		"summarizer error": returning(nil, &apperror.SummarizationError{Cause: errors.New("bad json")}),
		"judge error": returning(nil, &apperror.SchemaValidationError{
			Source: "judge",
			Errors: []apperror.FieldError{{Field: "technical.max", Message: "must be 70"}},
		}),
		"panic": func(context.Context, evaluation.Input) (*model.FinalEvaluation, error) {
			panic("boom")
		},
	}
	for name, evaluate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newConclusionFixture(t, evaluate)
			ctx := context.Background()

			require.NoError(t, f.workflow.Conclude(ctx, f.session.ID))
			f.workflow.Wait()

			status, err := f.workflow.EvaluationStatus(ctx, f.session.ID)
			require.NoError(t, err)
			assert.Equal(t, model.StatusEvaluationFailed, status.Status)
			assert.Nil(t, status.Evaluation)
			assert.Nil(t, status.EvaluatedAt)

			stored, err := f.sessions.FindByID(ctx, f.session.ID)
			require.NoError(t, err)
			assert.Len(t, stored.Conversation, 1, "no marker turn on failure")

			err = f.workflow.Conclude(ctx, f.session.ID)
			assert.ErrorIs(t, err, apperror.ErrAlreadyConcluded)
		})
	}
}

func TestConclude_ChatAfterConclusionIsRejected(t *testing.T) {
	release := make(chan struct{})
	f := newConclusionFixture(t, func(context.Context, evaluation.Input) (*model.FinalEvaluation, error) {
		<-release
		return sampleEvaluation(), nil
	})
	chat := &fakeChat{}
	problems := newMemProblemStore()
	uc := NewInterviewUsecase(f.sessions, problems, chat, interview.DefaultCatalog(), 0, nil)
	ctx := context.Background()

	require.NoError(t, f.workflow.Conclude(ctx, f.session.ID))
	_, err := uc.SendMessage(ctx, f.session.ID, "one more thing")
	close(release)
	f.workflow.Wait()

	require.ErrorIs(t, err, apperror.ErrSessionNotActive)
	assert.Empty(t, chat.requests)
}
