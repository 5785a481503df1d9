package cli

import (
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	crumbStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "243", Dark: "245"})
	urlStyle    = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("#5A56E0"))
	matchStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EE6FF8"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(16)
	teaserStyle = lipgloss.NewStyle().PaddingLeft(4).Width(88)
)

// renderTeaser swaps the <em> markers of a teaser for terminal emphasis and
// undoes the HTML escaping of the surrounding text.
func renderTeaser(teaser string) string {
	var b strings.Builder
	for {
		start := strings.Index(teaser, "<em>")
		if start < 0 {
			break
		}
		end := strings.Index(teaser[start:], "</em>")
		if end < 0 {
			break
		}
		b.WriteString(html.UnescapeString(teaser[:start]))
		b.WriteString(matchStyle.Render(html.UnescapeString(teaser[start+len("<em>") : start+end])))
		teaser = teaser[start+end+len("</em>"):]
	}
	b.WriteString(html.UnescapeString(teaser))
	return b.String()
}
