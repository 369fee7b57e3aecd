package evaluation

import (
	"sort"
	"strings"
	"unicode"

	"github.com/fadilmartias/interview-coach/internal/model"
)

// MaxPoints caps pros and cons per category.
const MaxPoints = 5

// RoundedMean returns the arithmetic mean of non-negative values rounded half
// up, so the mean of 70 and 80 is 75 and the mean of 70 and 81 is 76.
func RoundedMean(values []int) int {
	n := len(values)
	if n == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return (2*sum + n) / (2 * n)
}

// Percentage returns round(100*score/outOf), half up.
func Percentage(score, outOf int) int {
	if outOf <= 0 {
		return 0
	}
	return (200*score + outOf) / (2 * outOf)
}

// MergePoints deduplicates feedback points from the judge lists and the
// preferred list. Points raised by more judges come first; among equals a
// point also in preferred ranks higher, then order of first appearance with
// preferred read first, so its wording wins. The result holds at most
// MaxPoints entries.
func MergePoints(preferred []string, judgeLists ...[]string) []string {
	type point struct {
		text      string
		judges    int
		preferred bool
	}
	byKey := make(map[string]*point)
	var order []*point

	add := func(list []string, fromJudge bool) {
		inList := make(map[string]bool, len(list))
		for _, text := range list {
			key := normalizePoint(text)
			if key == "" || inList[key] {
				continue
			}
			inList[key] = true
			p, ok := byKey[key]
			if !ok {
				p = &point{text: strings.TrimSpace(text)}
				byKey[key] = p
				order = append(order, p)
			}
			if fromJudge {
				p.judges++
			} else {
				p.preferred = true
			}
		}
	}
	add(preferred, false)
	for _, list := range judgeLists {
		add(list, true)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].judges != order[j].judges {
			return order[i].judges > order[j].judges
		}
		return order[i].preferred && !order[j].preferred
	})

	out := make([]string, 0, MaxPoints)
	for _, p := range order {
		if len(out) == MaxPoints {
			break
		}
		out = append(out, p.text)
	}
	return out
}

func normalizePoint(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// Consensus merges judge passes with the summarizer pass. Scores are always
// derived from the judges; the summarizer contributes the summary text and
// the preferred wording and order of pros and cons.
func Consensus(judges []*model.JudgeEvaluation, summary *model.JudgeEvaluation) *model.FinalEvaluation {
	scores := make([]int, len(judges))
	technical := make([]model.CategoryAssessment, len(judges))
	communication := make([]model.CategoryAssessment, len(judges))
	for i, j := range judges {
		scores[i] = j.OverallScore
		technical[i] = j.Technical
		communication[i] = j.Communication
	}

	return &model.FinalEvaluation{
		JudgeEvaluation: model.JudgeEvaluation{
			OverallScore:  RoundedMean(scores),
			Summary:       summary.Summary,
			Technical:     mergeCategory(summary.Technical, technical),
			Communication: mergeCategory(summary.Communication, communication),
		},
		JudgeScores: scores,
	}
}

func mergeCategory(summary model.CategoryAssessment, judges []model.CategoryAssessment) model.CategoryAssessment {
	scores := make([]int, len(judges))
	pros := make([][]string, 0, len(judges))
	cons := make([][]string, 0, len(judges))
	outOf := summary.Max
	for i, j := range judges {
		scores[i] = j.Score
		pros = append(pros, j.Pros)
		cons = append(cons, j.Cons)
		outOf = j.Max
	}
	score := RoundedMean(scores)
	return model.CategoryAssessment{
		Score:      score,
		Max:        outOf,
		Percentage: Percentage(score, outOf),
		Pros:       MergePoints(summary.Pros, pros...),
		Cons:       MergePoints(summary.Cons, cons...),
	}
}
