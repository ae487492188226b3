// Package bot binds the submission machine to the Telegram Bot API.
package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/m3rciful/muzposter/core/telegram/helpers"
	corekb "github.com/m3rciful/muzposter/core/telegram/keyboard"
	"github.com/m3rciful/muzposter/core/telegram/sender"
	"github.com/m3rciful/muzposter/internal/keyboard"
	"github.com/m3rciful/muzposter/internal/submission"

	tele "gopkg.in/telebot.v4"
)

// botAPI is the subset of *tele.Bot the transport calls.
type botAPI interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
	Edit(msg tele.Editable, what any, opts ...any) (*tele.Message, error)
	EditCaption(msg tele.Editable, caption string, opts ...any) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
	Delete(msg tele.Editable) error
	Copy(to tele.Recipient, msg tele.Editable, opts ...any) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// Transport implements submission.Transport. Calls whose result the machine needs go
// through the dispatcher synchronously; keyboard removal and deletes are queued.
type Transport struct {
	api botAPI
}

var _ submission.Transport = (*Transport)(nil)

// NewTransport wraps a bot.
func NewTransport(api botAPI) *Transport {
	return &Transport{api: api}
}

// chatRef addresses a chat by its public "@username".
type chatRef string

func (r chatRef) Recipient() string { return string(r) }

// recipient parses a destination given as "@username" or a numeric chat id.
func recipient(dest string) tele.Recipient {
	dest = strings.TrimSpace(dest)
	if id, err := strconv.ParseInt(dest, 10, 64); err == nil {
		return tele.ChatID(id)
	}
	return chatRef(dest)
}

func editable(ref submission.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
}

// markup converts a keyboard into inline markup; nil stays nil.
func markup(kb keyboard.Keyboard) *tele.ReplyMarkup {
	if kb == nil {
		return nil
	}
	rows := make([][]corekb.InlineBtn, 0, len(kb))
	for _, row := range kb {
		btns := make([]corekb.InlineBtn, 0, len(row))
		for _, b := range row {
			key, payload := keyboard.Encode(b.Action)
			btns = append(btns, corekb.InlineBtn{Text: b.Text, Unique: key, Data: payload})
		}
		rows = append(rows, btns)
	}
	return corekb.InlineButtonsRows(rows...)
}

func sendOptions(opts submission.SendOptions) *tele.SendOptions {
	so := &tele.SendOptions{ReplyMarkup: markup(opts.Keyboard)}
	if opts.ReplyTo != 0 {
		so.ReplyTo = &tele.Message{ID: opts.ReplyTo}
		so.AllowWithoutReply = true
	}
	if opts.HTML {
		so.ParseMode = tele.ModeHTML
	}
	return so
}

func (t *Transport) SendText(ctx context.Context, chatID int64, text string, opts submission.SendOptions) (int, error) {
	var sent *tele.Message
	err := helpers.Do(ctx, "send_text", "sendMessage", func() (err error) {
		sent, err = t.api.Send(tele.ChatID(chatID), text, sendOptions(opts))
		return err
	})
	return messageID(sent, err)
}

func (t *Transport) SendAudio(ctx context.Context, chatID int64, audioRef, caption string, opts submission.SendOptions) (int, error) {
	audio := &tele.Audio{File: tele.File{FileID: audioRef}, Caption: caption}
	var sent *tele.Message
	err := helpers.Do(ctx, "send_audio", "sendAudio", func() (err error) {
		sent, err = t.api.Send(tele.ChatID(chatID), audio, sendOptions(opts))
		return err
	})
	return messageID(sent, err)
}

func (t *Transport) EditText(ctx context.Context, ref submission.MessageRef, text string, opts submission.SendOptions) error {
	return helpers.Do(ctx, "edit_text", "editMessageText", func() error {
		_, err := t.api.Edit(editable(ref), text, sendOptions(opts))
		return ignoreNotModified(err)
	})
}

func (t *Transport) EditCaption(ctx context.Context, ref submission.MessageRef, caption string, opts submission.SendOptions) error {
	return helpers.Do(ctx, "edit_caption", "editMessageCaption", func() error {
		_, err := t.api.EditCaption(editable(ref), caption, sendOptions(opts))
		return ignoreNotModified(err)
	})
}

func (t *Transport) EditReplyMarkup(ctx context.Context, ref submission.MessageRef, kb keyboard.Keyboard) error {
	return helpers.Enqueue(ctx, "edit_markup", "editMessageReplyMarkup", func() error {
		_, err := t.api.EditReplyMarkup(editable(ref), markup(kb))
		return ignoreNotModified(err)
	})
}

func (t *Transport) DeleteMessage(ctx context.Context, ref submission.MessageRef) error {
	return helpers.Enqueue(ctx, "delete", "deleteMessage", func() error {
		return t.api.Delete(editable(ref))
	})
}

func (t *Transport) CopyMessage(ctx context.Context, destination string, src submission.MessageRef, silent bool) (int, error) {
	opts := &tele.SendOptions{DisableNotification: silent}
	var sent *tele.Message
	err := helpers.Do(ctx, "copy", "copyMessage", func() (err error) {
		sent, err = t.api.Copy(recipient(destination), editable(src), opts)
		return err
	})
	return messageID(sent, err)
}

func (t *Transport) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return helpers.Do(ctx, "answer_callback", "answerCallbackQuery", func() error {
		return t.api.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
	})
}

func messageID(m *tele.Message, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	if m == nil {
		return 0, nil
	}
	return m.ID, nil
}

func ignoreNotModified(err error) error {
	if sender.IsNotModified(err) {
		return nil
	}
	return err
}
