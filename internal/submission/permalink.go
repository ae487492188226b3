package submission

import (
	"strconv"
	"strings"
)

// Permalink returns the public t.me link of message id in destination.
// destination is either "@username" or a numeric "-100…" channel id.
func Permalink(destination string, id int) string {
	msg := strconv.Itoa(id)
	if name, ok := strings.CutPrefix(destination, "@"); ok {
		return "https://t.me/" + name + "/" + msg
	}
	return "https://t.me/c/" + strings.TrimPrefix(destination, "-100") + "/" + msg
}
