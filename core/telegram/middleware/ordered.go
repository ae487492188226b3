package middleware

import (
	"github.com/m3rciful/muzposter/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// OrderedMiddleware hands the rest of the chain to seq, keyed by chat, and returns at once.
// Installed on a synchronous bot it keeps each chat's updates in arrival order while
// different chats run in parallel. Errors of the deferred chain go to onError.
func OrderedMiddleware(seq *state.Sequencer, onError func(error, tele.Context)) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			key, ok := orderKey(c)
			if !ok {
				return next(c)
			}
			seq.Go(key, func() {
				if err := next(c); err != nil && onError != nil {
					onError(err, c)
				}
			})
			return nil
		}
	}
}

func orderKey(c tele.Context) (int64, bool) {
	if chat := c.Chat(); chat != nil {
		return chat.ID, true
	}
	if user := c.Sender(); user != nil {
		return user.ID, true
	}
	return 0, false
}
