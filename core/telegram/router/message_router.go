package router

import (
	"time"

	tg "github.com/m3rciful/muzposter/core/telegram"
	"github.com/m3rciful/muzposter/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MessageOptions holds the handlers for plain message updates. Nil handlers are skipped.
type MessageOptions struct {
	Text   tele.HandlerFunc
	Audio  tele.HandlerFunc
	Edited tele.HandlerFunc
}

// MessageRoutes builds handlers for text, audio and edited-message updates.
// Text matching a registered command or alias is dispatched to that command.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, "", func() error {
					return cmd.Handler(c)
				})
			}
		}
		if opts.Text == nil {
			logHandlerSummary(c, "text", start, "skip", nil)
			return nil
		}
		return handleWithSummary(c, "text", start, "", func() error { return opts.Text(c) })
	}

	routes := []tg.Route{{Endpoint: tele.OnText, Handler: wrap(text)}}
	if opts.Audio != nil {
		routes = append(routes, tg.Route{Endpoint: tele.OnAudio, Handler: wrap(summarized("audio", opts.Audio))})
	}
	if opts.Edited != nil {
		routes = append(routes, tg.Route{Endpoint: tele.OnEdited, Handler: wrap(summarized("edited", opts.Edited))})
	}
	return routes
}

func summarized(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return handleWithSummary(c, name, time.Now(), "", func() error { return h(c) })
	}
}

func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}
