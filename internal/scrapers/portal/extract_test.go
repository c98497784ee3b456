package portal

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func parseHtml(t testing.TB, contents string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestExtractUserProperties(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected []Field
		err      error
	}{
		{
			name: "two header pairs",
			html: `<table><tr><th>ignored</th></tr><tr><td>before heading</td></tr></table>
				<p>User properties</p>
				<table>
					<tr><th> User ID </th><th>Name</th><th>Email</th></tr>
					<tr><td>42</td><td> Ada <b>Lovelace</b> </td><td>ada@example.com</td></tr>
					<tr><th>Group</th><th>Name</th></tr>
					<tr><td>admins</td><td>Ada L.</td><td>extra</td></tr>
				</table>`,
			expected: []Field{
				{Key: "User ID", Value: "42"},
				{Key: "Name", Value: "Ada L."},
				{Key: "Email", Value: "ada@example.com"},
				{Key: "Group", Value: "admins"},
			},
		},
		{
			name: "single pair with a dangling row",
			html: `<div><p><b>User properties</b> of 7</p>
				<span>between</span>
				<table>
					<tr><th>User ID</th><th>Status</th></tr>
					<tr><td>7</td></tr>
					<tr><th>Unpaired</th></tr>
				</table></div>`,
			expected: []Field{
				{Key: "User ID", Value: "7"},
			},
		},
		{
			name: "wrapped heading and control characters",
			html: `<p>User
					properties</p>
				<table>
					<tr><th>Display` + "\u200b" + `name</th><th>Email` + "\u00ad" + `</th></tr>
					<tr><td>Ada   Lovelace</td><td>ada@example.com</td></tr>
				</table>`,
			expected: []Field{
				{Key: "Displayname", Value: "Ada Lovelace"},
				{Key: "Email", Value: "ada@example.com"},
			},
		},
		{
			name: "no heading",
			html: `<p>Nothing to see</p><table><tr><th>a</th></tr><tr><td>b</td></tr></table>`,
			err:  ErrSectionNotFound,
		},
		{
			name: "heading without table",
			html: `<p>User properties</p><div>empty</div>`,
			err:  ErrTableShape,
		},
		{
			name: "single row",
			html: `<p>User properties</p><table><tr><th>User ID</th></tr></table>`,
			err:  ErrTableShape,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			fields, err := ExtractUserProperties(parseHtml(t, test.html))
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			diff := cmp.Diff(test.expected, fields)
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestRecordGet(t *testing.T) {
	record := Record{
		UserID: "42",
		Fields: setField(setField(nil, "Name", "Ada"), "Name", "Grace"),
	}
	require.Len(t, record.Fields, 1)

	value, ok := record.Get("Name")
	require.True(t, ok)
	require.Equal(t, "Grace", value)

	_, ok = record.Get("Email")
	require.False(t, ok)
}
