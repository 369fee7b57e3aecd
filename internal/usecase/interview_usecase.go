package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/interview"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/logger"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/fadilmartias/interview-coach/internal/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxToolRounds = 5
	chatTemperature      = 0.7
	maxSaveAttempts      = 5
)

// SessionStore persists interview sessions. Save is a compare-and-swap on
// the session version.
type SessionStore interface {
	Create(ctx context.Context, s *model.InterviewSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InterviewSession, error)
	Save(ctx context.Context, s *model.InterviewSession) error
	List(ctx context.Context, offset, limit int) ([]model.InterviewSession, int64, error)
}

type ProblemReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Problem, error)
}

// TurnResult is what the candidate sees after a chat turn.
type TurnResult struct {
	Reply    string             `json:"reply"`
	Phase    model.Phase        `json:"phase"`
	Score    int                `json:"score"`
	Grouping interview.Grouping `json:"grouping"`
}

type InterviewUsecase struct {
	sessions      SessionStore
	problems      ProblemReader
	chat          llm.ChatModel
	catalog       *interview.Catalog
	maxToolRounds int
	logger        *zap.Logger
	now           func() time.Time
}

func NewInterviewUsecase(sessions SessionStore, problems ProblemReader, chat llm.ChatModel, catalog *interview.Catalog, maxToolRounds int, log *zap.Logger) *InterviewUsecase {
	if maxToolRounds <= 0 {
		maxToolRounds = defaultMaxToolRounds
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &InterviewUsecase{
		sessions:      sessions,
		problems:      problems,
		chat:          chat,
		catalog:       catalog,
		maxToolRounds: maxToolRounds,
		logger:        log.Named("interview"),
		now:           time.Now,
	}
}

func (uc *InterviewUsecase) Catalog() *interview.Catalog {
	return uc.catalog
}

// StartSession opens a session in GREETING with an all-false checklist.
func (uc *InterviewUsecase) StartSession(ctx context.Context, problemID uuid.UUID) (*model.InterviewSession, error) {
	if _, err := uc.problems.FindByID(ctx, problemID); err != nil {
		return nil, err
	}
	s := &model.InterviewSession{
		ProblemID:    problemID,
		Phase:        model.PhaseGreeting,
		Status:       model.StatusActive,
		Conversation: []model.Turn{},
		Checklist:    uc.catalog.DefaultChecklist(),
	}
	if err := uc.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	logger.WithSession(uc.logger, s.ID.String(), string(s.Phase)).Info("session started", zap.String("problem_id", problemID.String()))
	return s, nil
}

func (uc *InterviewUsecase) GetSession(ctx context.Context, id uuid.UUID) (*model.InterviewSession, error) {
	return uc.sessions.FindByID(ctx, id)
}

func (uc *InterviewUsecase) ListSessions(ctx context.Context, offset, limit int) ([]model.InterviewSession, int64, error) {
	return uc.sessions.List(ctx, offset, limit)
}

// UpdateBoard replaces the board snapshot of an active session.
func (uc *InterviewUsecase) UpdateBoard(ctx context.Context, id uuid.UUID, board string) (*model.InterviewSession, error) {
	return updateSession(ctx, uc.sessions, id, func(s *model.InterviewSession) error {
		if s.Status != model.StatusActive {
			return notActive(s)
		}
		s.BoardState = board
		return nil
	})
}

// SendMessage runs one interviewer turn: the candidate message is appended,
// the model is called with the tools of the current phase and every tool call
// is dispatched until the model answers in text. The final round exposes no
// tools so that it must answer. The session is written once, with
// compare-and-swap, so a turn computed on a stale session is rejected.
func (uc *InterviewUsecase) SendMessage(ctx context.Context, id uuid.UUID, text string) (*TurnResult, error) {
	s, err := uc.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != model.StatusActive {
		return nil, notActive(s)
	}
	problem, err := uc.problems.FindByID(ctx, s.ProblemID)
	if err != nil {
		return nil, err
	}

	log := logger.WithSession(uc.logger, s.ID.String(), string(s.Phase))
	ctx = llm.WithCallInfo(ctx, llm.CallInfo{SessionID: s.ID.String(), Operation: "chat"})

	s.Conversation = append(s.Conversation, model.TextTurn(model.RoleUser, text, uc.now()))
	state := &interview.ToolState{
		Phase:      s.Phase,
		Checklist:  uc.catalog.Normalize(s.Checklist),
		BoardState: s.BoardState,
	}
	dispatcher := interview.NewDispatcher(uc.catalog, state)
	priorBoard := s.PriorBoardState

	var replies []string
	for round := 0; round < uc.maxToolRounds; round++ {
		prompt, err := interview.AssemblePrompt(uc.catalog, interview.PromptInput{
			Phase:           state.Phase,
			Problem:         *problem,
			Checklist:       state.Checklist,
			BoardState:      s.BoardState,
			PriorBoardState: priorBoard,
		})
		if err != nil {
			return nil, err
		}
		priorBoard = s.BoardState

		lastRound := round == uc.maxToolRounds-1
		var tools []llm.ToolDeclaration
		if !lastRound {
			tools = interview.Declarations(uc.catalog, state.Phase)
		}

		resp, err := uc.chat.Chat(ctx, llm.ChatRequest{
			SystemInstruction: prompt,
			History:           s.Conversation,
			Tools:             tools,
			Temperature:       chatTemperature,
		})
		if err != nil {
			return nil, err
		}
		if t := strings.TrimSpace(resp.Text); t != "" {
			replies = append(replies, t)
		}

		if len(resp.ToolCalls) == 0 || lastRound {
			s.Conversation = append(s.Conversation, model.TextTurn(model.RoleModel, resp.Text, uc.now()))
			break
		}

		modelTurn := model.Turn{Role: model.RoleModel, CreatedAt: uc.now()}
		if strings.TrimSpace(resp.Text) != "" {
			modelTurn.Parts = append(modelTurn.Parts, model.TurnPart{Text: resp.Text})
		}
		toolTurn := model.Turn{Role: model.RoleTool, CreatedAt: uc.now()}
		for _, call := range resp.ToolCalls {
			modelTurn.Parts = append(modelTurn.Parts, model.TurnPart{ToolCall: &call})
			outcome := dispatcher.Execute(call)
			toolTurn.Parts = append(toolTurn.Parts, model.TurnPart{ToolResult: &outcome})
			log.Debug("tool executed",
				zap.String("tool", call.Name),
				zap.String("phase", string(state.Phase)),
				zap.String("result", util.TruncateForLog(formatOutcome(outcome), 200)),
			)
		}
		s.Conversation = append(s.Conversation, modelTurn, toolTurn)
	}

	if state.Phase != s.Phase {
		log.Info("phase advanced", zap.String("to", string(state.Phase)))
	}
	s.Phase = state.Phase
	s.Checklist = state.Checklist
	s.PriorBoardState = s.BoardState

	if err := uc.sessions.Save(ctx, s); err != nil {
		return nil, err
	}

	return &TurnResult{
		Reply:    strings.Join(replies, "\n\n"),
		Phase:    s.Phase,
		Score:    uc.catalog.Score(s.Checklist),
		Grouping: uc.catalog.Group(s.Checklist),
	}, nil
}

func formatOutcome(o model.ToolOutcome) string {
	b, err := json.Marshal(o.Response)
	if err != nil {
		return err.Error()
	}
	return string(b)
}

func notActive(s *model.InterviewSession) error {
	return &apperror.StateConflictError{Reason: apperror.ErrSessionNotActive, Message: "status is " + string(s.Status)}
}

// updateSession loads the session, applies mutate and saves it, reloading and
// reapplying on a version conflict.
func updateSession(ctx context.Context, store SessionStore, id uuid.UUID, mutate func(*model.InterviewSession) error) (*model.InterviewSession, error) {
	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		s, err := store.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(s); err != nil {
			return nil, err
		}
		err = store.Save(ctx, s)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, apperror.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
