// Package app assembles the submission bot from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/muzposter/core/bootstrap"
	"github.com/m3rciful/muzposter/core/cmd"
	"github.com/m3rciful/muzposter/core/logger"
	tg "github.com/m3rciful/muzposter/core/telegram"
	"github.com/m3rciful/muzposter/core/telegram/sender"
	"github.com/m3rciful/muzposter/core/telegram/state"
	"github.com/m3rciful/muzposter/internal/bot"
	"github.com/m3rciful/muzposter/internal/caption"
	"github.com/m3rciful/muzposter/internal/config"
	"github.com/m3rciful/muzposter/internal/journal"
	"github.com/m3rciful/muzposter/internal/songlink"
	"github.com/m3rciful/muzposter/internal/submission"

	tele "gopkg.in/telebot.v4"
)

const textSlowDown = "⏳ Slow down"

// App holds the infrastructure shared by the bot for its whole lifetime.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	sessions *state.Memory[submission.Session]
	resolver *songlink.Client
	journal  submission.PostRecorder
	handlers *bot.Handlers
}

var _ cmd.TelegramApp = (*App)(nil)

// Bootstrap initializes logging and the optional journal database, then builds the App.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	return New(cfg, res.DB), nil
}

// New builds an App. A nil db disables the post journal.
func New(cfg *config.Config, db *sqlx.DB) *App {
	a := &App{
		cfg:      cfg,
		db:       db,
		sessions: state.NewMemory[submission.Session](),
		resolver: songlink.New(cfg.Songlink),
		journal:  journal.Nop{},
	}
	if db != nil {
		a.journal = journal.NewStore(db)
	}
	logger.Info(context.Background(), logger.CompApp, "bootstrap",
		slog.String("status", "ok"),
		slog.String("post_to", cfg.Bot.PostTo),
		slog.Bool("journal", db != nil),
	)
	return a
}

// TelegramRunOptions wires the bot runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	return tg.RunOptions{
		Config:   core,
		Registry: tg.NewRegistry(),
		DispatcherOptions: sender.Options{
			MaxRetries:   3,
			RetryBackoff: 500 * time.Millisecond,
			MaxDuration:  30 * time.Second,
		},
		Middlewares: tg.DefaultMiddlewares(core, onLimited),
		OnStart:     a.start,
		Routes: func(rt tg.Runtime) []tg.Route {
			return bot.Routes(rt.Registry, a.handlers)
		},
	}, nil
}

func (a *App) start(ctx context.Context, rt tg.Runtime) error {
	username := a.cfg.Bot.Username
	if username == "" && rt.Bot != nil && rt.Bot.Me != nil {
		username = rt.Bot.Me.Username
	}
	machine := submission.NewMachine(
		submission.Config{
			AdminID:          a.cfg.Telegram.AdminID,
			Destination:      a.cfg.Bot.PostTo,
			PreviewThreshold: a.cfg.Bot.PreviewThresholdSeconds,
		},
		a.sessions,
		a.resolver,
		bot.NewTransport(rt.Bot),
		caption.Renderer{BotUsername: username},
		submission.WithJournal(a.journal),
	)
	a.handlers = bot.NewHandlers(machine)
	if err := bot.Register(rt.Registry, a.handlers, a.cfg.Telegram.AdminID); err != nil {
		return fmt.Errorf("app: register handlers: %w", err)
	}
	logger.Debug(ctx, logger.CompApp, "wired",
		slog.String("status", "ok"),
		slog.String("bot", username),
	)
	return nil
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: textSlowDown})
	}
	return nil
}
