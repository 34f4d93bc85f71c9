package htmlutil

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// NormalizeText trims the text and collapses every run of whitespace
// (newlines included) into a single space.
func NormalizeText(s string) string {
	s = removeNonPrintable(s)
	return strings.Join(strings.Fields(s), " ")
}

// SelectionText is NormalizeText over the text of every node in sel, with
// one line per node. Nodes with no text are skipped.
func SelectionText(sel *goquery.Selection) []string {
	var lines []string
	for _, n := range sel.Nodes {
		text := NormalizeText(GetText(n))
		if text == "" {
			continue
		}
		lines = append(lines, text)
	}
	return lines
}
