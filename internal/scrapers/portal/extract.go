package portal

import (
	"errors"
	"fmt"
	"strings"
	"surveylogic/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const userPropertiesHeading = "User properties"

var (
	ErrSectionNotFound = errors.New("user properties section not found")
	ErrTableShape      = errors.New("user properties table has an unexpected shape")
)

func cellTexts(row *goquery.Selection, selector string) []string {
	cells := row.Find(selector)
	out := make([]string, 0, cells.Length())
	for _, node := range cells.Nodes {
		out = append(out, htmlutil.Normalize(htmlutil.GetStrippedText(node)))
	}
	return out
}

// ExtractUserProperties reads the table following the "User properties"
// paragraph, whitespace in the heading is collapsed before matching. Rows 0/1 and 2/3 are header/value pairs, keys and values are
// zipped up to the shorter of the two.
func ExtractUserProperties(doc *goquery.Document) ([]Field, error) {
	heading := doc.Find("p").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(htmlutil.Normalize(htmlutil.GetText(s.Get(0))), userPropertiesHeading)
	}).First()
	if heading.Length() == 0 {
		return nil, ErrSectionNotFound
	}

	table := heading.NextAllFiltered("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no table after %q", ErrTableShape, userPropertiesHeading)
	}
	rows := table.Find("tr")
	if rows.Length() < 2 {
		return nil, fmt.Errorf("%w: %d rows", ErrTableShape, rows.Length())
	}

	var fields []Field
	for i := 0; i+1 < rows.Length() && i < 4; i += 2 {
		keys := cellTexts(rows.Eq(i), "th")
		values := cellTexts(rows.Eq(i+1), "td")
		for j := 0; j < len(keys) && j < len(values); j++ {
			fields = setField(fields, keys[j], values[j])
		}
	}
	return fields, nil
}
