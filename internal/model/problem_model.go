package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type Requirements struct {
	Functional    []string `json:"functional" yaml:"functional"`
	NonFunctional []string `json:"non_functional" yaml:"non_functional"`
	Constraints   []string `json:"constraints" yaml:"constraints"`
	OutOfScope    []string `json:"out_of_scope" yaml:"out_of_scope"`
}

// Problem is the read-only definition a session is run against.
type Problem struct {
	ID                 uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title              string           `gorm:"type:varchar(255)" json:"title"`
	Description        string           `gorm:"type:text" json:"description"`
	Requirements       Requirements     `gorm:"type:jsonb;serializer:json" json:"requirements"`
	EvaluationCriteria []string         `gorm:"type:jsonb;serializer:json" json:"evaluation_criteria"`
	Embedding          *pgvector.Vector `gorm:"type:vector(3072)" json:"-"` // gemini-embedding-001
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func (p *Problem) TableName() string {
	return "problems"
}

// EmbeddingText is the text indexed for similar-problem search.
func (p *Problem) EmbeddingText() string {
	return p.Title + "\n\n" + p.Description
}
