package commands

import (
	"fmt"
	"strconv"
	"surveylogic/internal/db"
	"surveylogic/internal/report"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsLimit int

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to list")
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

func openStore() (db.Store, func() error, error) {
	config, err := loadConfig(configPath, true)
	if err != nil {
		return db.Store{}, nil, err
	}
	database, err := db.OpenDB(config.Database)
	if err != nil {
		return db.Store{}, nil, err
	}
	return db.NewStore(database), database.Close, nil
}

func parseRunId(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid run id %q: %w", arg, err)
	}
	return id, nil
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists the fetch runs recorded in the database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeDb, err := openStore()
		if err != nil {
			return err
		}
		defer closeDb()

		runs, err := store.Runs(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"ID", "Source", "Started", "Duration"})
		for _, run := range runs {
			t.AppendRow(table.Row{
				run.ID,
				run.Source,
				run.StartedAt.Format(time.DateTime),
				run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
			})
		}
		t.Render()
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Prints the results of a single fetch run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRunId(args[0])
		if err != nil {
			return err
		}

		store, closeDb, err := openStore()
		if err != nil {
			return err
		}
		defer closeDb()

		run, err := store.Run(cmd.Context(), id)
		if err != nil {
			return err
		}
		report.Render(cmd.OutOrStdout(), report.Users(run.Results))
		failures := report.Failures(run.Results)
		if len(failures.Rows) > 0 {
			report.Render(cmd.OutOrStdout(), failures)
		}
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Deletes a fetch run and everything fetched in it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRunId(args[0])
		if err != nil {
			return err
		}

		store, closeDb, err := openStore()
		if err != nil {
			return err
		}
		defer closeDb()

		err = store.DeleteRun(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted run %d\n", id)
		return nil
	},
}
