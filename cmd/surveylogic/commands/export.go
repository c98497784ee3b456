package commands

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"surveylogic/internal/logic"
	"surveylogic/internal/survey"

	"github.com/spf13/cobra"
	"github.com/titanous/json5"
)

var (
	selectionsPath string
	exportOut      string
)

func init() {
	exportCmd.Flags().StringVar(&selectionsPath, "selections", "", "json5 file mapping answer ids to options (\"End\", \"Q2\", \"Q2: ...\" or \"\")")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write the rules to this file instead of stdout")
	exportCmd.MarkFlagRequired("selections")
	rootCmd.AddCommand(exportCmd)
}

func readSelections(path string) (map[string]string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var selections map[string]string
	err = json5.Unmarshal(contents, &selections)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return selections, nil
}

// selectionOption accepts a bare question id ("Q2") for the label the
// builder offers ("Q2: Fav animal?").
func selectionOption(doc survey.Document, option string) string {
	q, ok := doc.Question(option)
	if ok {
		return q.Label()
	}
	return option
}

// applySelections validates every selection against `doc` and renders the
// logic, all invalid selections are reported together.
func applySelections(doc survey.Document, selections map[string]string) (string, error) {
	session := logic.NewSession()
	session.Load(doc)

	answerIds := make([]string, 0, len(selections))
	for id := range selections {
		answerIds = append(answerIds, id)
	}
	slices.Sort(answerIds)

	var errs []error
	for _, id := range answerIds {
		err := session.Select(id, selectionOption(doc, selections[id]))
		if errors.Is(err, logic.ErrUnknownOption) {
			err = fmt.Errorf("%s: %w, expected %q, %q or a question id", id, err, logic.OptionNone, logic.OptionEnd)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return session.Export()
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Applies a selections file to a survey structure and prints the resulting skip logic.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}
		selections, err := readSelections(selectionsPath)
		if err != nil {
			return err
		}
		text, err := applySelections(doc, selections)
		if err != nil {
			return err
		}

		if exportOut == "" {
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		}
		return os.WriteFile(exportOut, []byte(text), 0644)
	},
}
