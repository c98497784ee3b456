package logic

import (
	"fmt"
	"strings"
	"surveylogic/internal/survey"
)

const (
	ExportFileName    = "survey_logic.txt"
	ExportContentType = "text/plain"
)

// Rule is the jump target of a single answer.
type Rule struct {
	AnswerID string
	Target   Target
}

// Mapping holds one rule per answer, in the order the answers were registered.
type Mapping []Rule

// BuildMapping resolves `selections` (answer id -> chosen option) against
// every answer of `doc`. Answers without a selection map to NoJump and
// selections for unknown answers are ignored.
func BuildMapping(doc survey.Document, selections map[string]string) Mapping {
	answers := doc.Answers()
	mapping := make(Mapping, 0, len(answers))
	for _, a := range answers {
		mapping = append(mapping, Rule{
			AnswerID: a.ID,
			Target:   Resolve(selections[a.ID]),
		})
	}
	return mapping
}

// Target returns the target of `answerID`, NoJump if it isn't mapped.
func (m Mapping) Target(answerID string) Target {
	for _, rule := range m {
		if rule.AnswerID == answerID {
			return rule.Target
		}
	}
	return NoJump
}

func (r Rule) line() (string, bool) {
	switch r.Target.Kind {
	case TargetEnd:
		return fmt.Sprintf("if %s then end", r.AnswerID), true
	case TargetQuestion:
		return fmt.Sprintf("if %s then show %s", r.AnswerID, r.Target.QuestionID), true
	}
	return "", false
}

// Export renders one line per answer that jumps somewhere, newline separated.
func (m Mapping) Export() string {
	lines := make([]string, 0, len(m))
	for _, rule := range m {
		line, ok := rule.line()
		if ok {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
