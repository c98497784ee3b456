package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// GetText concatenates every text node under `node`.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, false)
	return buffer.String()
}

// GetStrippedText concatenates every text node under `node` after trimming
// the whitespace around each one, so "<th> User <b>ID</b> </th>" becomes "UserID".
func GetStrippedText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, true)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer, strip bool) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		if strip {
			buffer.WriteString(strings.TrimSpace(node.Data))
			return
		}
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer, strip)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// Normalize removes non-printable characters, trims the edges and collapses
// inner runs of whitespace.
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}
