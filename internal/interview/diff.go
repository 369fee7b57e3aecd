package interview

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const boardDiffContext = 3

// BoardDiff renders a unified diff between two board snapshots. JSON boards
// are re-indented first so the diff is line oriented. The second result is
// false when the boards are equivalent.
func BoardDiff(prior, current string) (string, bool, error) {
	a := normalizeBoard(prior)
	b := normalizeBoard(current)
	if a == b {
		return "", false, nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "previous",
		ToFile:   "current",
		Context:  boardDiffContext,
	})
	if err != nil {
		return "", false, err
	}
	return diff, true, nil
}

func normalizeBoard(board string) string {
	board = strings.TrimSpace(board)
	if board == "" {
		return ""
	}
	if json.Valid([]byte(board)) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(board), "", "  "); err == nil {
			board = buf.String()
		}
	}
	return board + "\n"
}
