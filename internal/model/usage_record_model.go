package model

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is the token and cost accounting of one model call.
type UsageRecord struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID    *uuid.UUID `gorm:"type:uuid;index" json:"session_id"`
	Operation    string     `gorm:"type:varchar(64)" json:"operation"` // chat, judge, summarize, embed
	Provider     string     `gorm:"type:varchar(32)" json:"provider"`
	Model        string     `gorm:"type:varchar(128)" json:"model"`
	PromptTokens int        `json:"prompt_tokens"`
	OutputTokens int        `json:"output_tokens"`
	CostUSD      float64    `gorm:"type:numeric(12,6)" json:"cost_usd"`
	CreatedAt    time.Time  `json:"created_at"`
}
