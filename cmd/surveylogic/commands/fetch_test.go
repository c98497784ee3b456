package commands

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"surveylogic/internal/components/chrono"
	"surveylogic/internal/components/telemetry"
	"surveylogic/internal/db"
	"surveylogic/internal/scrapers/portal"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const tokenInput = `<input type="hidden" name="csrfmiddlewaretoken" value="token">`

func newPortal(t testing.TB) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.FormValue("password") == "secret" {
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "ok", Path: "/"})
			fmt.Fprint(w, "<p>welcome</p>")
			return
		}
		fmt.Fprintf(w, `<form>%s<input type="password" name="password"></form>`, tokenInput)
	})
	mux.HandleFunc("/forever_new/query/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprintf(w, `<form>%s</form>`, tokenInput)
			return
		}
		userID := r.FormValue("user_id")
		if strings.HasPrefix(userID, "x") {
			fmt.Fprint(w, `<p>No such user</p>`)
			return
		}
		fmt.Fprintf(w, `<p>User properties</p><table>
			<tr><th>User ID</th><th>Name</th></tr>
			<tr><td>%s</td><td>user %s</td></tr>
		</table>`, userID, userID)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchJob(t *testing.T) {
	server := newPortal(t)
	dir := t.TempDir()

	idsPath := filepath.Join(dir, "input_ids.csv")
	err := os.WriteFile(idsPath, []byte("user_id\n42\n\nx1\n7\n"), 0644)
	require.NoError(t, err)

	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	var stdout, stderr bytes.Buffer
	job := fetchJob{
		idsPath: idsPath,
		outPath: filepath.Join(dir, "results.xlsx"),
		config: Config{
			Portal: PortalConfig{
				BaseUrl:           server.URL,
				RequestsPerSecond: 1000,
				DumpDir:           filepath.Join(dir, "dump"),
			},
			Database: db.Config{File: filepath.Join(dir, "results.db")},
		},
		creds:   portal.Credentials{Username: "operator", Password: "secret"},
		workers: 8,
		clock:   &chrono.FixedTime{Current: start, Step: 2 * time.Second},
		tel:     &telemetry.Recorder{},
		stdout:  &stdout,
		stderr:  &stderr,
	}

	err = job.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fetched 2 of 3 users in 2s\n", stdout.String())
	require.Contains(t, stderr.String(), "x1")

	f, err := excelize.OpenFile(job.outPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("results")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"queried_user_id", "User ID", "Name"},
		{"42", "42", "user 42"},
		{"7", "7", "user 7"},
	}, rows)

	conn, err := db.OpenDB(job.config.Database)
	require.NoError(t, err)
	defer conn.Close()
	run, err := db.NewStore(conn).Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, idsPath, run.Source)
	require.Len(t, run.Results, 3)
	require.Error(t, run.Results[1].Err)
	require.Equal(t, 2*time.Second, run.FinishedAt.Sub(run.StartedAt))

	dumps, err := os.ReadDir(job.config.Portal.DumpDir)
	require.NoError(t, err)
	require.NotEmpty(t, dumps)
	for _, entry := range dumps {
		contents, err := os.ReadFile(filepath.Join(job.config.Portal.DumpDir, entry.Name()))
		require.NoError(t, err)
		require.NotContains(t, string(contents), "secret", entry.Name())
	}
}

func TestFetchJobBadLogin(t *testing.T) {
	server := newPortal(t)
	dir := t.TempDir()

	idsPath := filepath.Join(dir, "ids.csv")
	require.NoError(t, os.WriteFile(idsPath, []byte("id\n1\n"), 0644))

	job := fetchJob{
		idsPath: idsPath,
		outPath: filepath.Join(dir, "results.xlsx"),
		config:  Config{Portal: PortalConfig{BaseUrl: server.URL, RequestsPerSecond: 1000}},
		creds:   portal.Credentials{Username: "operator", Password: "wrong"},
		workers: 1,
		clock:   chrono.StandardTime{},
		tel:     &telemetry.Recorder{},
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
	}
	require.Error(t, job.run(context.Background()))

	_, err := os.Stat(job.outPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}
