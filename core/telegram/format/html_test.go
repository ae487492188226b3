package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "Tom &amp; Jerry &lt;3&gt;", EscapeHTML("Tom & Jerry <3>"))
	assert.Equal(t, `say "hi"`, EscapeHTML(`say "hi"`))
}

func TestLink(t *testing.T) {
	assert.Equal(t,
		`<a href="https://x.com/?a=1&amp;b=&#34;2&#34;">A &amp; B</a>`,
		Link(`https://x.com/?a=1&b="2"`, "A & B"),
	)
	assert.Equal(t, "<i>YouTube Music</i>", Italic("YouTube Music"))
}
