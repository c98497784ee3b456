package report

import (
	"bytes"
	"errors"
	"strings"
	"surveylogic/internal/scrapers/portal"
	"surveylogic/internal/survey/sheet"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleResults() []portal.Result {
	return []portal.Result{
		{UserID: "42", Record: portal.Record{UserID: "42", Fields: []portal.Field{
			{Key: "User ID", Value: "42"},
			{Key: "Name", Value: "Ada"},
		}}},
		{UserID: "bad", Err: errors.New("user properties section not found")},
		{UserID: "7", Record: portal.Record{UserID: "7", Fields: []portal.Field{
			{Key: "Group", Value: "staff"},
			{Key: "User ID", Value: "7"},
		}}},
	}
}

func TestUsers(t *testing.T) {
	expected := sheet.Table{
		Name:   "results",
		Header: []string{"queried_user_id", "User ID", "Name", "Group"},
		Rows: [][]string{
			{"42", "42", "Ada", ""},
			{"7", "7", "", "staff"},
		},
	}
	diff := cmp.Diff(expected, Users(sampleResults()))
	if diff != "" {
		t.Fatal(diff)
	}

	empty := Users(nil)
	require.Equal(t, []string{"queried_user_id"}, empty.Header)
	require.Empty(t, empty.Rows)
}

func TestFailures(t *testing.T) {
	failures := Failures(sampleResults())
	require.Equal(t, "errors", failures.Name)
	require.Equal(t, []string{"queried_user_id", "error"}, failures.Header)
	require.Equal(t, [][]string{{"bad", "user properties section not found"}}, failures.Rows)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleResults()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"results", "errors"}, f.GetSheetList())

	for cell, expected := range map[string]string{
		"A1": "queried_user_id",
		"D1": "Group",
		"A2": "42",
		"C2": "Ada",
		"D2": "",
		"A3": "7",
		"D3": "staff",
	} {
		value, err := f.GetCellValue("results", cell)
		require.NoError(t, err)
		require.Equal(t, expected, value, cell)
	}

	rows, err := f.GetRows("errors")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"queried_user_id", "error"},
		{"bad", "user properties section not found"},
	}, rows)
}

func TestRender(t *testing.T) {
	var out strings.Builder
	Render(&out, Users(sampleResults()))

	text := out.String()
	require.Contains(t, text, "results")
	require.Contains(t, text, "Ada")
	require.Contains(t, text, "staff")
	require.Contains(t, text, "╭")
}

func TestNewMail(t *testing.T) {
	config := MailConfig{
		Server:       "smtp.example.com",
		Port:         587,
		EmailAddress: "helper@example.com",
		To:           []string{"ops@example.com"},
	}

	mail, err := NewMail(config, "fetch results", "3 users, 1 failed", Attachment{
		Name:        FileName,
		ContentType: ContentType,
		Data:        []byte("not really a workbook"),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"ops@example.com"}, mail.To)
	require.Len(t, mail.Attachments, 1)

	raw, err := mail.Bytes()
	require.NoError(t, err)
	require.Contains(t, string(raw), "Subject: fetch results")
	require.Contains(t, string(raw), "results.xlsx")
	require.Contains(t, string(raw), "helper@example.com")

	_, err = NewMail(MailConfig{EmailAddress: "helper@example.com"}, "s", "b")
	require.Error(t, err)
}
