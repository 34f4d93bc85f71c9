package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	require.Equal(t, "", NormalizeText("  \n\t "))
	require.Equal(t, "Fixed a crash when saving.", NormalizeText("\n  Fixed a   crash\n when saving.  "))
	require.Equal(t, "no bell", NormalizeText("no\a bell"))
}

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table><tr><td>
			<p>Fixed <b>Karma</b>
			  render crash.</p>
			<ul><li> first </li><li></li><li>second</li></ul>
		</td></tr></table>`))
	require.NoError(t, err)

	lines := SelectionText(doc.Find("td p, li"))
	require.Equal(t, []string{"Fixed Karma render crash.", "first", "second"}, lines)

	require.Equal(t, "Fixed Karma\n\t\t\t  render crash.", GetText(doc.Find("p").Nodes[0]))
}
