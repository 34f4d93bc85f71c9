package changelog

import (
	"fmt"
	"regexp"
	"strings"
)

var backticks = regexp.MustCompile("`([\\p{L}\\p{N}_]+(?:[\\p{L}\\p{N}_]+|[ ])*)`")

// escaper covers the characters Telegram requires escaped in HTML mode.
var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Renderer formats category sets with Telegram flavoured HTML markup.
type Renderer struct {
	Icons IconTable
}

func NewRenderer(icons IconTable) Renderer {
	return Renderer{Icons: icons}
}

// Render writes a header per category followed by one bullet per line of
// each description:
//
//	🧠#<b>SOP</b>:
//	- Fixed <code>Boolean</code> crash
func (r Renderer) Render(set *CategorySet) string {
	var out strings.Builder
	for _, category := range set.Categories() {
		fmt.Fprintf(
			&out, "%s#<b>%s</b>:\n",
			r.Icons.Icon(category),
			strings.ToUpper(category),
		)
		for _, description := range set.EntriesFor(category) {
			for _, line := range strings.Split(description, "\n") {
				line = backticks.ReplaceAllString(escaper.Replace(line), "<code>$1</code>")
				fmt.Fprintf(&out, "- %s\n\n", line)
			}
		}
	}
	return out.String()
}

// Message renders the full post announcing the new entries of a build.
func (r Renderer) Message(build string, set *CategorySet) string {
	return fmt.Sprintf("<b>Daily Build: %s</b>\n\n%s", escaper.Replace(build), r.Render(set))
}
