package logic

import (
	"surveylogic/internal/survey"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func scenario(t testing.TB) survey.Document {
	doc, err := survey.Parse([]survey.Row{
		{Line: 2, Text: "Fav color?", Mark: "1"},
		{Line: 3, Text: "Red", Mark: "0"},
		{Line: 4, Text: "Blue", Mark: "0"},
		{Line: 5, Text: "Fav animal?", Mark: "1"},
		{Line: 6, Text: "Cat", Mark: "0"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestOptions(t *testing.T) {
	require.Equal(t, []string{
		"",
		"End",
		"Q1: Fav color?",
		"Q2: Fav animal?",
	}, Options(scenario(t)))

	require.Equal(t, []string{"", "End"}, Options(survey.Document{}))
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		option   string
		expected Target
	}{
		{option: "", expected: NoJump},
		{option: "End", expected: End},
		{option: "Q3: Do you like Subaru or Volvo?", expected: ShowQuestion("Q3")},
		{option: "Q12: time: morning or night", expected: ShowQuestion("Q12")},
		{option: "Q4", expected: ShowQuestion("Q4")},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, Resolve(test.option), test.option)
	}

	require.Equal(t, "", NoJump.String())
	require.Equal(t, "END", End.String())
	require.Equal(t, "Q3", ShowQuestion("Q3").String())
}

func TestExportScenario(t *testing.T) {
	doc := scenario(t)
	mapping := BuildMapping(doc, map[string]string{
		"Q1A1": "End",
		"Q1A2": "Q2: Fav animal?",
		"Q2A1": "",
	})

	require.Equal(t, Mapping{
		{AnswerID: "Q1A1", Target: End},
		{AnswerID: "Q1A2", Target: ShowQuestion("Q2")},
		{AnswerID: "Q2A1", Target: NoJump},
	}, mapping)
	require.Equal(t, "if Q1A1 then end\nif Q1A2 then show Q2", mapping.Export())
}

func TestExportOrderFollowsRegistration(t *testing.T) {
	doc := scenario(t)
	// selections made in reverse, back jumps and self jumps are allowed
	mapping := BuildMapping(doc, map[string]string{
		"Q2A1": "Q1: Fav color?",
		"Q1A2": "Q1: Fav color?",
		"Q1A1": "Q2: Fav animal?",
	})

	require.Equal(t,
		"if Q1A1 then show Q2\nif Q1A2 then show Q1\nif Q2A1 then show Q1",
		mapping.Export(),
	)
	require.Equal(t, ShowQuestion("Q1"), mapping.Target("Q2A1"))
	require.Equal(t, NoJump, mapping.Target("Q9A9"))
}

func TestExportEmpty(t *testing.T) {
	require.Equal(t, "", BuildMapping(scenario(t), nil).Export())
	require.Equal(t, "", Mapping{}.Export())
}

func TestSessionLifecycle(t *testing.T) {
	s := NewSession()
	require.Equal(t, Snapshot{State: StateEmpty, Selections: map[string]string{}}, s.Snapshot())

	require.ErrorIs(t, s.Select("Q1A1", "End"), ErrNoDocument)
	_, err := s.Export()
	require.ErrorIs(t, err, ErrNoDocument)

	s.Load(scenario(t))
	snapshot := s.Snapshot()
	require.Equal(t, StateParsed, snapshot.State)
	require.Len(t, snapshot.Options, 4)
	require.Len(t, snapshot.Document.Questions, 2)

	require.NoError(t, s.Select("Q1A1", "End"))
	require.NoError(t, s.Select("Q1A2", "Q2: Fav animal?"))
	snapshot = s.Snapshot()
	require.Equal(t, StateAnnotated, snapshot.State)
	require.Equal(t, "End", snapshot.Selections["Q1A1"])

	require.ErrorIs(t, s.Select("Q7A1", "End"), ErrUnknownAnswer)
	require.ErrorIs(t, s.Select("Q1A1", "Q9: nope"), ErrUnknownOption)

	text, err := s.Export()
	require.NoError(t, err)
	require.Equal(t, "if Q1A1 then end\nif Q1A2 then show Q2", text)
	require.Equal(t, StateExported, s.Snapshot().State)

	require.NoError(t, s.Select("Q1A1", ""))
	snapshot = s.Snapshot()
	require.Equal(t, StateAnnotated, snapshot.State)
	require.Equal(t, map[string]string{"Q1A2": "Q2: Fav animal?"}, snapshot.Selections)
	require.Equal(t, "if Q1A2 then show Q2", snapshot.Mapping().Export())

	// snapshots are copies
	snapshot.Selections["Q1A1"] = "End"
	snapshot.Options[0] = "changed"
	require.NotContains(t, s.Snapshot().Selections, "Q1A1")
	require.Equal(t, OptionNone, s.Snapshot().Options[0])

	// a new upload drops every selection
	s.Load(scenario(t))
	require.Equal(t, StateParsed, s.Snapshot().State)
	require.Empty(t, s.Snapshot().Selections)

	s.Reset()
	require.Equal(t, StateEmpty, s.Snapshot().State)
	require.Empty(t, s.Snapshot().Options)
}

func TestSessionSnapshotIsConsistent(t *testing.T) {
	s := NewSession()
	s.Load(scenario(t))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			option := OptionEnd
			if i%2 == 1 {
				option = "Q2: Fav animal?"
			}
			_ = s.Select("Q1A1", option)
		}
	}()

	for i := 0; i < 200; i++ {
		snapshot := s.Snapshot()
		selection := snapshot.Selections["Q1A1"]
		require.Equal(t, Resolve(selection), snapshot.Mapping().Target("Q1A1"))
	}
	<-done
}

func TestStore(t *testing.T) {
	store := NewStore(2, time.Minute)

	id1, s1 := store.Create()
	id2, _ := store.Create()
	require.NotEqual(t, id1, id2)

	got, ok := store.Get(id1)
	require.True(t, ok)
	require.Same(t, s1, got)

	// id2 is now the least recently used
	id3, _ := store.Create()
	_, ok = store.Get(id2)
	require.False(t, ok)
	_, ok = store.Get(id3)
	require.True(t, ok)
	require.Equal(t, 2, store.Len())

	require.True(t, store.Delete(id1))
	require.False(t, store.Delete(id1))
	_, ok = store.Get(id1)
	require.False(t, ok)
}
