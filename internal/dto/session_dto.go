package dto

import (
	"time"

	"github.com/fadilmartias/interview-coach/internal/interview"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/google/uuid"
)

type StartSessionRequest struct {
	ProblemID string `json:"problem_id" validate:"required,uuid"`
}

type SendMessageRequest struct {
	Message string `json:"message" validate:"required,max=8000"`
}

type UpdateBoardRequest struct {
	BoardState string `json:"board_state" validate:"max=200000"`
}

// SessionDTO is the session detail with the live score and grouping derived
// from its checklist.
type SessionDTO struct {
	ID           uuid.UUID              `json:"id"`
	ProblemID    uuid.UUID              `json:"problem_id"`
	Phase        model.Phase            `json:"phase"`
	Status       model.SessionStatus    `json:"status"`
	Score        int                    `json:"score"`
	Grouping     interview.Grouping     `json:"grouping"`
	Checklist    model.Checklist        `json:"checklist"`
	BoardState   string                 `json:"board_state"`
	Conversation []TurnDTO              `json:"conversation,omitempty"`
	Evaluation   *model.FinalEvaluation `json:"evaluation,omitempty"`
	Version      int64                  `json:"version"`
	ConcludedAt  *time.Time             `json:"concluded_at,omitempty"`
	EvaluatedAt  *time.Time             `json:"evaluated_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// TurnDTO is the transcript view of a turn. Tool traffic is summarised by
// tool name.
type TurnDTO struct {
	Role      string    `json:"role"`
	Text      string    `json:"text,omitempty"`
	Tools     []string  `json:"tools,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageResponse struct {
	Reply    string             `json:"reply"`
	Phase    model.Phase        `json:"phase"`
	Score    int                `json:"score"`
	Grouping interview.Grouping `json:"grouping"`
}

type ConcludeResponse struct {
	Accepted bool `json:"accepted"`
}

type EvaluationStatusResponse struct {
	Status      model.SessionStatus    `json:"status"`
	Evaluation  *model.FinalEvaluation `json:"evaluation"`
	ConcludedAt *time.Time             `json:"concluded_at"`
	EvaluatedAt *time.Time             `json:"evaluated_at"`
}

// NewSessionDTO builds the detail view. withConversation is false for list
// pages.
func NewSessionDTO(s *model.InterviewSession, catalog *interview.Catalog, withConversation bool) SessionDTO {
	out := SessionDTO{
		ID:          s.ID,
		ProblemID:   s.ProblemID,
		Phase:       s.Phase,
		Status:      s.Status,
		Score:       catalog.Score(s.Checklist),
		Grouping:    catalog.Group(s.Checklist),
		Checklist:   s.Checklist,
		BoardState:  s.BoardState,
		Evaluation:  s.Evaluation,
		Version:     s.Version,
		ConcludedAt: s.ConcludedAt,
		EvaluatedAt: s.EvaluatedAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if withConversation {
		out.Conversation = make([]TurnDTO, 0, len(s.Conversation))
		for _, t := range s.Conversation {
			out.Conversation = append(out.Conversation, newTurnDTO(t))
		}
	}
	return out
}

func newTurnDTO(t model.Turn) TurnDTO {
	out := TurnDTO{Role: t.Role, Text: t.Text(), CreatedAt: t.CreatedAt}
	for _, p := range t.Parts {
		switch {
		case p.ToolCall != nil:
			out.Tools = append(out.Tools, p.ToolCall.Name)
		case p.ToolResult != nil:
			out.Tools = append(out.Tools, p.ToolResult.Name)
		}
	}
	return out
}
