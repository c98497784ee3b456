package commands

import (
	"fmt"
	"io"
	"surveylogic/internal/survey"
	"surveylogic/internal/survey/sheet"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(parseCmd)
}

func readDocument(path string) (survey.Document, error) {
	rows, err := sheet.ReadFile(path)
	if err != nil {
		return survey.Document{}, err
	}
	return survey.Parse(rows)
}

func renderDocument(w io.Writer, doc survey.Document) {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedRounded)
	l.SetOutputMirror(w)
	for _, q := range doc.Questions {
		l.AppendItem(q.Label())
		l.Indent()
		for _, a := range q.Answers {
			l.AppendItem(fmt.Sprintf("%s: %s", a.ID, a.Text))
		}
		l.UnIndent()
	}
	l.Render()
}

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Prints the questions and answers of a survey structure spreadsheet (.xlsx or .csv).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}
		renderDocument(cmd.OutOrStdout(), doc)
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d questions, %d answers\n", len(doc.Questions), len(doc.Answers()))
		return nil
	},
}
