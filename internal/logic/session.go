package logic

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"surveylogic/internal/survey"
	"sync"
)

var (
	ErrNoDocument    = errors.New("no survey document loaded")
	ErrUnknownAnswer = errors.New("unknown answer")
	ErrUnknownOption = errors.New("unknown option")
)

type State int

const (
	StateEmpty State = iota
	StateParsed
	StateAnnotated
	StateExported
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateParsed:
		return "parsed"
	case StateAnnotated:
		return "annotated"
	case StateExported:
		return "exported"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is the logic builder state of one operator: the loaded document and
// the option chosen for each of its answers. Mappings and exports are derived
// from that state on every call. It is safe for concurrent use.
type Session struct {
	mu         sync.Mutex
	state      State
	doc        survey.Document
	options    []string
	selections map[string]string
}

func NewSession() *Session {
	return &Session{selections: map[string]string{}}
}

// Load replaces the document, every previous selection is discarded.
func (s *Session) Load(doc survey.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = doc
	s.options = Options(doc)
	s.selections = map[string]string{}
	s.state = StateParsed
}

// Reset returns the session to its empty state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = survey.Document{}
	s.options = nil
	s.selections = map[string]string{}
	s.state = StateEmpty
}

// Select records `option` as the choice for `answerID`, the no-jump option
// clears it.
func (s *Session) Select(answerID, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEmpty {
		return ErrNoDocument
	}
	_, ok := s.doc.Answer(answerID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAnswer, answerID)
	}
	if !slices.Contains(s.options, option) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, option)
	}

	if option == OptionNone {
		delete(s.selections, answerID)
	} else {
		s.selections[answerID] = option
	}
	s.state = StateAnnotated
	return nil
}

// Snapshot is a consistent copy of a Session.
type Snapshot struct {
	State      State
	Document   survey.Document
	Options    []string
	Selections map[string]string
}

// Mapping derives the logic mapping of the snapshot.
func (s Snapshot) Mapping() Mapping {
	return BuildMapping(s.Document, s.Selections)
}

// Snapshot copies the whole session under a single lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:      s.state,
		Document:   s.doc,
		Options:    slices.Clone(s.options),
		Selections: maps.Clone(s.selections),
	}
}

// Export renders the rules of the current mapping.
func (s *Session) Export() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEmpty {
		return "", ErrNoDocument
	}
	s.state = StateExported
	return BuildMapping(s.doc, s.selections).Export(), nil
}
