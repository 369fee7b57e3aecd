package evaluation

import (
	"errors"
	"strings"
	"testing"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJudgeEvaluation_Valid(t *testing.T) {
	je, err := ParseJudgeEvaluation("judge", judgeJSON(72, 50, 22, "Good"))
	require.NoError(t, err)
	assert.Equal(t, 72, je.OverallScore)
	assert.Equal(t, []string{"Good"}, je.Technical.Pros)
}

func TestParseJudgeEvaluation_Invalid(t *testing.T) {
	valid := judgeJSON(72, 50, 22, "Good")

	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"not json", "I think they did well", ""},
		{"score out of range", strings.Replace(valid, `"overall_score": 72`, `"overall_score": 101`, 1), "overall_score"},
		{"summary too short", strings.Replace(valid, "The candidate produced a reasonable design and explained most trade-offs clearly.", "ok", 1), "summary"},
		{"too many pros", judgeJSON(72, 50, 22, "a", "b", "c", "d", "e", "f"), "technical.pros"},
		{"score above max", judgeJSON(72, 71, 22), "technical.score"},
		{"wrong scale", strings.Replace(valid, `"max": 30`, `"max": 40`, 1), "communication.max"},
		{"missing category", `{"overall_score": 50, "summary": "The candidate produced a reasonable design and explained it."}`, "(root)"},
		{"empty point", judgeJSON(72, 50, 22, ""), "technical.pros.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			je, err := ParseJudgeEvaluation("judge", tt.raw)
			assert.Nil(t, je)

			var se *apperror.SchemaValidationError
			require.True(t, errors.As(err, &se), "got %v", err)
			if tt.field == "" {
				return
			}
			fields := make([]string, 0, len(se.Errors))
			for _, fe := range se.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}
