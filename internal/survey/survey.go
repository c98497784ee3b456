package survey

import "fmt"

// Row is a single data row of a survey structure spreadsheet.
type Row struct {
	// Line is the 1-based line of the row in its source, the header being line 1.
	Line int
	Text string
	// Mark is the raw `qa_mark` cell, 1 marks a question and any other integer
	// an answer to the latest question.
	Mark string
}

type Answer struct {
	ID   string
	Text string
}

type Question struct {
	ID      string
	Text    string
	Answers []Answer
}

// Label is the text the jump-target selector shows for a question.
func (q Question) Label() string {
	return fmt.Sprintf("%s: %s", q.ID, q.Text)
}

// Document is the ordered list of questions parsed out of a survey structure.
type Document struct {
	Questions []Question
}

// Labels maps every question id to its label.
func (d Document) Labels() map[string]string {
	labels := make(map[string]string, len(d.Questions))
	for _, q := range d.Questions {
		labels[q.ID] = q.Label()
	}
	return labels
}

func (d Document) Question(id string) (Question, bool) {
	for _, q := range d.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

func (d Document) Answer(id string) (Answer, bool) {
	for _, q := range d.Questions {
		for _, a := range q.Answers {
			if a.ID == id {
				return a, true
			}
		}
	}
	return Answer{}, false
}

// Answers returns every answer in the order it was registered.
func (d Document) Answers() []Answer {
	var out []Answer
	for _, q := range d.Questions {
		out = append(out, q.Answers...)
	}
	return out
}

func questionId(n int) string {
	return fmt.Sprintf("Q%d", n)
}

func answerId(qid string, n int) string {
	return fmt.Sprintf("%sA%d", qid, n)
}
