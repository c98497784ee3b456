package survey

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidMark = errors.New("invalid qa_mark")

// MarkError names the row whose marker couldn't be read as an integer.
type MarkError struct {
	Line  int
	Value string
}

func (e *MarkError) Error() string {
	return fmt.Sprintf("row %d: qa_mark %q is not an integer", e.Line, e.Value)
}

func (e *MarkError) Unwrap() error {
	return ErrInvalidMark
}

const questionMark = 1

// parseMark accepts integers and integral floats, spreadsheets tend to store
// numeric cells as "1.0".
func parseMark(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// Parse builds the question/answer tree out of `rows`.
//
// Answers that appear before the first question have no owner and are dropped.
// Rows that are entirely blank are skipped.
func Parse(rows []Row) (Document, error) {
	var doc Document
	current := -1

	for _, row := range rows {
		text := strings.TrimSpace(row.Text)
		if text == "" && strings.TrimSpace(row.Mark) == "" {
			continue
		}

		mark, ok := parseMark(row.Mark)
		if !ok {
			return Document{}, &MarkError{Line: row.Line, Value: row.Mark}
		}

		if mark == questionMark {
			doc.Questions = append(doc.Questions, Question{
				ID:   questionId(len(doc.Questions) + 1),
				Text: text,
			})
			current = len(doc.Questions) - 1
			continue
		}

		if current < 0 {
			continue
		}
		q := &doc.Questions[current]
		q.Answers = append(q.Answers, Answer{
			ID:   answerId(q.ID, len(q.Answers)+1),
			Text: text,
		})
	}

	return doc, nil
}
