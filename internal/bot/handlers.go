package bot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/muzposter/core/logger"
	tg "github.com/m3rciful/muzposter/core/telegram"
	"github.com/m3rciful/muzposter/core/telegram/callbacks"
	"github.com/m3rciful/muzposter/core/telegram/commands"
	"github.com/m3rciful/muzposter/core/telegram/helpers"
	"github.com/m3rciful/muzposter/core/telegram/middleware"
	"github.com/m3rciful/muzposter/core/telegram/router"
	"github.com/m3rciful/muzposter/internal/keyboard"
	"github.com/m3rciful/muzposter/internal/submission"

	tele "gopkg.in/telebot.v4"
)

const textUnknownAction = "🤷 Unknown action"

// Machine is the part of the submission machine driven by updates.
type Machine interface {
	Greet(ctx context.Context, msg submission.Message) error
	HandleMessage(ctx context.Context, msg submission.Message) error
	HandleEdited(ctx context.Context, msg submission.Message) error
	HandleAction(ctx context.Context, cb submission.Callback, action keyboard.Action) error
}

// Handlers adapts Telegram updates to machine events.
type Handlers struct {
	machine Machine
}

// NewHandlers binds handlers to m.
func NewHandlers(m Machine) *Handlers {
	return &Handlers{machine: m}
}

// Start answers /start and /help.
func (h *Handlers) Start(c tele.Context) error {
	return h.machine.Greet(helpers.BuildContext(c), toMessage(c.Message()))
}

// Message handles a new text or audio message.
func (h *Handlers) Message(c tele.Context) error {
	if c.Message() == nil {
		return nil
	}
	return h.machine.HandleMessage(helpers.BuildContext(c), toMessage(c.Message()))
}

// Edited handles an edited message.
func (h *Handlers) Edited(c tele.Context) error {
	msg := c.Update().EditedMessage
	if msg == nil {
		return nil
	}
	return h.machine.HandleEdited(helpers.BuildContext(c), toMessage(msg))
}

// Callback decodes the pressed button and hands it to the machine.
func (h *Handlers) Callback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	ctx := helpers.BuildContext(c)
	key, payload := callbacks.ParseCallbackData(cb)
	action, err := keyboard.Decode(key, payload)
	if err != nil {
		logger.Debug(ctx, logger.CompTG, "callback.decode",
			slog.String("status", "skip"),
			slog.String("cb_key", key),
			slog.String("err", err.Error()),
		)
		return c.Respond(&tele.CallbackResponse{Text: textUnknownAction})
	}
	return h.machine.HandleAction(ctx, toCallback(cb), action)
}

// Register adds the bot's commands and one callback per button key to reg.
// Every key but cancel is answered silently unless adminID pressed it.
func Register(reg *tg.Registry, h *Handlers, adminID int64) error {
	reg.RegisterCommand("/start", commands.Command{Handler: h.Start, Description: "Start the bot"})
	reg.RegisterCommand("/help", commands.Command{Handler: h.Start, Description: "How to suggest a track"})
	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  adminID,
		OnReject: func(c tele.Context) error { return c.Respond() },
	})
	for _, key := range keyboard.Keys {
		handler := h.Callback
		if key != keyboard.KeyCancel {
			handler = adminOnly(handler)
		}
		if err := reg.RegisterCallback(key, handler); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(h.Callback)
	return nil
}

// Routes returns every endpoint the bot serves.
func Routes(reg *tg.Registry, h *Handlers) []tg.Route {
	routes := router.CommandRoutes(reg)
	routes = append(routes, router.MessageRoutes(reg, router.MessageOptions{
		Text:   h.Message,
		Audio:  h.Message,
		Edited: h.Edited,
	})...)
	return append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
}
