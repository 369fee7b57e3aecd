package evaluation

import (
	"testing"
	"time"

	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/stretchr/testify/assert"
)

var testTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func TestRoundedMean(t *testing.T) {
	tests := []struct {
		values []int
		want   int
	}{
		{[]int{70, 80}, 75},
		{[]int{70, 81}, 76},
		{[]int{70, 71}, 71},
		{[]int{0, 1}, 1},
		{[]int{0, 0}, 0},
		{[]int{100, 100}, 100},
		{[]int{10, 20, 40}, 23},
		{nil, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundedMean(tt.values), "%v", tt.values)
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 50, Percentage(35, 70))
	assert.Equal(t, 76, Percentage(53, 70))
	assert.Equal(t, 100, Percentage(30, 30))
	assert.Equal(t, 0, Percentage(5, 0))
}

func TestMergePoints(t *testing.T) {
	summary := []string{"Clear API", "Good naming"}
	a := []string{"Used queues", "clear api.", "Handled retries"}
	b := []string{"Handled retries", "Clear  API", "Sharding", "Partitioning", "Monitoring"}

	got := MergePoints(summary, a, b)

	assert.Equal(t, []string{"Clear API", "Handled retries", "Used queues", "Sharding", "Partitioning"}, got)
}

func TestMergePoints_JudgeAgreementOutranksSummary(t *testing.T) {
	summary := []string{"Sharded writes", "Cached reads"}
	a := []string{"Sharded writes", "Rate limited clients", "Cached reads"}
	b := []string{"Rate limited clients", "Used a queue"}

	got := MergePoints(summary, a, b)

	// Both judges beat one judge plus the summary; the summary only breaks
	// ties between points with the same judge count.
	assert.Equal(t, []string{"Rate limited clients", "Sharded writes", "Cached reads", "Used a queue"}, got)
}

func TestMergePoints_SummaryBreaksTies(t *testing.T) {
	a := []string{"Used a queue", "Added retries"}
	b := []string{"Monitored lag"}

	got := MergePoints([]string{"monitored lag."}, a, b)

	assert.Equal(t, []string{"monitored lag.", "Used a queue", "Added retries"}, got)
}

func TestMergePoints_DedupWithinList(t *testing.T) {
	got := MergePoints([]string{"x", "X", " x "}, []string{"y"})
	assert.Equal(t, []string{"y", "x"}, got)
}

func TestMergePoints_Cap(t *testing.T) {
	got := MergePoints([]string{"a", "b", "c", "d", "e", "f", "g"})
	assert.Len(t, got, MaxPoints)
	assert.Empty(t, MergePoints(nil, []string{"", "  "}))
}

func TestConsensus(t *testing.T) {
	cat := func(score, outOf int, pros ...string) model.CategoryAssessment {
		return model.CategoryAssessment{Score: score, Max: outOf, Pros: pros}
	}
	judges := []*model.JudgeEvaluation{
		{OverallScore: 70, Technical: cat(50, 70, "p1"), Communication: cat(20, 30)},
		{OverallScore: 80, Technical: cat(51, 70, "p2", "p1"), Communication: cat(25, 30)},
	}
	summary := &model.JudgeEvaluation{
		OverallScore:  10,
		Summary:       "summary text",
		Technical:     cat(0, 70, "p2"),
		Communication: cat(0, 30),
	}

	final := Consensus(judges, summary)

	assert.Equal(t, 75, final.OverallScore)
	assert.Equal(t, []int{70, 80}, final.JudgeScores)
	assert.Equal(t, "summary text", final.Summary)
	assert.Equal(t, 51, final.Technical.Score)
	assert.Equal(t, 73, final.Technical.Percentage)
	assert.Equal(t, []string{"p1", "p2"}, final.Technical.Pros)
	assert.Equal(t, 23, final.Communication.Score)
	assert.Equal(t, 77, final.Communication.Percentage)
	assert.Empty(t, final.Communication.Pros)
}
