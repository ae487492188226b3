// Package caption renders the HTML caption of a submission preview and of the published post.
package caption

import (
	"fmt"
	"strings"

	"github.com/m3rciful/muzposter/core/telegram/format"
	"github.com/m3rciful/muzposter/internal/music"
)

// Renderer builds captions. BotUsername feeds the suggested-track credit block.
type Renderer struct {
	BotUsername string
}

// Render lists one link per present service in declaration order, then the aggregator
// page as "Other", then the credit block when suggested is set.
func (r Renderer) Render(links music.Links, suggested bool) string {
	var b strings.Builder
	for _, s := range music.Services {
		if url, ok := links[s]; ok && url != "" {
			b.WriteString(format.Link(url, s.Name()))
			b.WriteByte('\n')
		}
	}
	if self, ok := links[music.Self]; ok && self != "" {
		fmt.Fprintf(&b, "<a href='%s'>%s</a>\n", format.EscapeAttr(self), music.Self.Name())
	}
	if suggested {
		b.WriteString(r.suggestedBlock())
	}
	return b.String()
}

func (r Renderer) suggestedBlock() string {
	self := format.EscapeAttr("https://t.me/" + strings.TrimPrefix(r.BotUsername, "@"))
	return "_______\n" +
		"Трек из <a href='" + self + "'>предложки</a>\n" +
		"<a href='" + self + "'>Suggested</a> track"
}
