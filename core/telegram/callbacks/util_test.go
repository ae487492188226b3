package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{"nil", nil, "", ""},
		{"generic endpoint", &tele.Callback{Data: "\fpost|silent"}, "post", "silent"},
		{"no payload", &tele.Callback{Data: "\fcancel"}, "cancel", ""},
		{"payload with pipe", &tele.Callback{Data: "\fedit_link|a|b"}, "edit_link", "a|b"},
		{"unique set", &tele.Callback{Unique: "edit_link", Data: "spotify"}, "edit_link", "spotify"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tc.cb)
			assert.Equal(t, tc.key, key)
			assert.Equal(t, tc.payload, payload)
		})
	}
}
