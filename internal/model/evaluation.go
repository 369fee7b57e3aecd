package model

// CategoryAssessment scores one evaluation category.
type CategoryAssessment struct {
	Score      int      `json:"score" validate:"gte=0,ltefield=Max"`
	Max        int      `json:"max" validate:"gt=0"`
	Percentage int      `json:"percentage" validate:"gte=0,lte=100"`
	Pros       []string `json:"pros" validate:"max=5,dive,required"`
	Cons       []string `json:"cons" validate:"max=5,dive,required"`
}

// JudgeEvaluation is the result of a single judge pass. It is transient and
// never persisted on its own.
type JudgeEvaluation struct {
	OverallScore  int                `json:"overall_score" validate:"gte=0,lte=100"`
	Summary       string             `json:"summary" validate:"min=40"`
	Technical     CategoryAssessment `json:"technical"`
	Communication CategoryAssessment `json:"communication"`
}

// FinalEvaluation is the consensus of two or more judge passes.
type FinalEvaluation struct {
	JudgeEvaluation
	JudgeScores []int `json:"judge_scores"`
}
