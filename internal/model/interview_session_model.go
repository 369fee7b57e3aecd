package model

import (
	"time"

	"github.com/google/uuid"
)

// Phase is one of the five fixed, linearly ordered stages of an interview.
type Phase string

const (
	PhaseGreeting     Phase = "GREETING"
	PhaseRequirements Phase = "REQUIREMENTS"
	PhaseDesigning    Phase = "DESIGNING"
	PhaseDeepDive     Phase = "DEEP_DIVE"
	PhaseConclusion   Phase = "CONCLUSION"
)

// SessionStatus follows active -> evaluating -> {completed | evaluation_failed}.
type SessionStatus string

const (
	StatusActive           SessionStatus = "active"
	StatusEvaluating       SessionStatus = "evaluating"
	StatusCompleted        SessionStatus = "completed"
	StatusEvaluationFailed SessionStatus = "evaluation_failed"
)

// Terminal reports whether no further status change is defined.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusEvaluationFailed
}

// Checklist maps a criterion key to whether it was observed.
type Checklist map[string]bool

type InterviewSession struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProblemID       uuid.UUID        `gorm:"type:uuid;index" json:"problem_id"`
	Phase           Phase            `gorm:"type:varchar(32)" json:"phase"`
	Status          SessionStatus    `gorm:"type:varchar(32);index" json:"status"`
	Conversation    []Turn           `gorm:"type:jsonb;serializer:json" json:"conversation"`
	BoardState      string           `gorm:"type:text" json:"board_state"`
	PriorBoardState string           `gorm:"type:text" json:"prior_board_state"`
	Checklist       Checklist        `gorm:"type:jsonb;serializer:json" json:"checklist"`
	Evaluation      *FinalEvaluation `gorm:"type:jsonb;serializer:json" json:"evaluation"`
	Version         int64            `gorm:"not null;default:0" json:"version"`
	ConcludedAt     *time.Time       `json:"concluded_at"`
	EvaluatedAt     *time.Time       `json:"evaluated_at"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (s *InterviewSession) TableName() string {
	return "interview_sessions"
}
