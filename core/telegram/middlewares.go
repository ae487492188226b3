package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/muzposter/core/config"
	"github.com/m3rciful/muzposter/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the shared middleware chain: panic recovery, optional rate limiting, receipt logging.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[t] = struct{}{}
		}
		opts := middleware.RateLimitOptions{
			Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
			Exclude:   ex,
			OnLimited: onLimited,
		}
		if cfg.RateLimit.ExemptAdmin {
			opts.ExemptID = cfg.Telegram.AdminID
		}
		mws = append(mws, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(opts)})
	}

	return append(mws, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
}
