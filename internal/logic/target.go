package logic

import (
	"strings"
	"surveylogic/internal/survey"
)

type TargetKind int

const (
	// TargetNone means the answer doesn't jump anywhere.
	TargetNone TargetKind = iota
	// TargetEnd terminates the survey.
	TargetEnd
	// TargetQuestion shows another question.
	TargetQuestion
)

// Target is where choosing an answer leads.
type Target struct {
	Kind       TargetKind
	QuestionID string
}

var (
	NoJump = Target{Kind: TargetNone}
	End    = Target{Kind: TargetEnd}
)

func ShowQuestion(id string) Target {
	return Target{Kind: TargetQuestion, QuestionID: id}
}

// String renders the target the way the logic mapping stores it.
func (t Target) String() string {
	switch t.Kind {
	case TargetEnd:
		return "END"
	case TargetQuestion:
		return t.QuestionID
	}
	return ""
}

const (
	OptionNone = ""
	OptionEnd  = "End"
)

// Options lists every choice offered for an answer: no jump, End, then every
// question label in document order. Questions earlier in the document and the
// answer's own question are included, loops are allowed.
func Options(doc survey.Document) []string {
	options := make([]string, 0, len(doc.Questions)+2)
	options = append(options, OptionNone, OptionEnd)
	for _, q := range doc.Questions {
		options = append(options, q.Label())
	}
	return options
}

// Resolve turns a chosen option back into a target, a question label is
// reduced to the id before its first colon.
func Resolve(option string) Target {
	switch option {
	case OptionNone:
		return NoJump
	case OptionEnd:
		return End
	}
	id, _, _ := strings.Cut(option, ":")
	return ShowQuestion(strings.TrimSpace(id))
}
