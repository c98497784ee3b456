package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"surveylogic/internal/components/chrono"
	"surveylogic/internal/components/telemetry"
	"surveylogic/internal/db"
	"surveylogic/internal/report"
	"surveylogic/internal/scrapers/portal"
	"surveylogic/internal/survey/sheet"
	"time"

	"github.com/spf13/cobra"
)

var (
	fetchIds     string
	fetchOut     string
	fetchDb      string
	fetchWorkers int
	fetchMail    bool
	fetchCron    string
	fetchDumpDir string
)

func init() {
	fetchCmd.Flags().StringVar(&fetchIds, "ids", "", "spreadsheet (.xlsx or .csv) whose first column lists the user ids")
	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", report.FileName, "path of the results workbook")
	fetchCmd.Flags().StringVar(&fetchDb, "db", "", "sqlite file to record the run in, overrides database.file")
	fetchCmd.Flags().IntVarP(&fetchWorkers, "workers", "w", 0, "number of concurrent portal sessions, overrides portal.workers")
	fetchCmd.Flags().BoolVar(&fetchMail, "mail", false, "mail the results workbook to mail.to")
	fetchCmd.Flags().StringVar(&fetchCron, "cron", "", "repeat the fetch on this cron schedule until interrupted")
	fetchCmd.Flags().StringVar(&fetchDumpDir, "dump-dir", "", "write every portal HTTP exchange to this directory, overrides portal.dump_dir")
	fetchCmd.MarkFlagRequired("ids")
	rootCmd.AddCommand(fetchCmd)
}

func readIds(path string) ([]string, error) {
	format, err := sheet.FormatFromName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sheet.ReadColumn(f, format)
}

type fetchJob struct {
	idsPath string
	outPath string
	mail    bool
	config  Config
	creds   portal.Credentials
	workers int
	clock   chrono.TimeAPI
	tel     telemetry.API
	stdout  io.Writer
	stderr  io.Writer
}

func (j fetchJob) run(ctx context.Context) error {
	ids, err := readIds(j.idsPath)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no user ids found in %s", j.idsPath)
	}
	workers := min(j.workers, len(ids))

	started := j.clock.Now()

	opts := j.config.Portal.Options()
	if j.config.Portal.DumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(j.config.Portal.DumpDir)
		if err != nil {
			return fmt.Errorf("dump dir: %w", err)
		}
		opts.Dump = output
	}

	pool, err := portal.Dial(ctx, opts, j.creds, workers, j.tel)
	if err != nil {
		return err
	}
	results := pool.FetchAll(ctx, ids)
	finished := j.clock.Now()

	failures := report.Failures(results)
	if len(failures.Rows) > 0 {
		report.Render(j.stderr, failures)
	}

	var workbook bytes.Buffer
	err = report.WriteXLSX(&workbook, results)
	if err != nil {
		return err
	}
	err = os.WriteFile(j.outPath, workbook.Bytes(), 0644)
	if err != nil {
		return err
	}
	summary := fmt.Sprintf(
		"fetched %d of %d users in %s",
		len(ids)-len(failures.Rows), len(ids), finished.Sub(started).Round(time.Millisecond),
	)
	fmt.Fprintln(j.stdout, summary)

	database := j.config.Database
	if database.File != "" || database.Url != "" {
		conn, err := db.OpenDB(database)
		if err != nil {
			return err
		}
		defer conn.Close()
		runId, err := db.NewStore(conn).SaveRun(ctx, db.Run{
			Source:     j.idsPath,
			StartedAt:  started,
			FinishedAt: finished,
			Results:    results,
		})
		if err != nil {
			return err
		}
		slog.Info("saved fetch run", "id", runId)
	}

	if j.mail {
		mail, err := report.NewMail(j.config.Mail, "User details: "+j.idsPath, summary, report.Attachment{
			Name:        report.FileName,
			ContentType: report.ContentType,
			Data:        workbook.Bytes(),
		})
		if err != nil {
			return err
		}
		err = report.Send(ctx, j.config.Mail, mail)
		if err != nil {
			return err
		}
		slog.Info("mailed results", "to", j.config.Mail.To)
	}

	return ctx.Err()
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetches the portal user properties of every id in a spreadsheet.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		config, err := loadConfig(configPath, true)
		if err != nil {
			return err
		}
		creds, err := config.Portal.Credentials()
		if err != nil {
			return err
		}
		if fetchDb != "" {
			config.Database = db.Config{File: fetchDb}
		}
		if fetchDumpDir != "" {
			config.Portal.DumpDir = fetchDumpDir
		}

		job := fetchJob{
			idsPath: fetchIds,
			outPath: fetchOut,
			mail:    fetchMail,
			config:  config,
			creds:   creds,
			workers: config.Portal.Workers,
			clock:   chrono.StandardTime{},
			tel:     telemetry.SlogAPI{},
			stdout:  cmd.OutOrStdout(),
			stderr:  cmd.ErrOrStderr(),
		}
		if fetchWorkers > 0 {
			job.workers = fetchWorkers
		}

		if fetchCron == "" {
			return job.run(ctx)
		}

		scheduler := chrono.NewStandardCron(job.tel)
		err = scheduler.Cron(fetchCron, func() {
			err := job.run(ctx)
			if err != nil {
				slog.Error("scheduled fetch failed", "err", err.Error())
			}
		})
		if err != nil {
			return err
		}
		slog.Info("fetch scheduled", "cron", fetchCron)

		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		scheduler.Stop(stopCtx)
		return nil
	},
}
