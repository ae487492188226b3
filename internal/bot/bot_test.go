package bot

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/muzposter/core/telegram"
	"github.com/m3rciful/muzposter/internal/keyboard"
	"github.com/m3rciful/muzposter/internal/music"
	"github.com/m3rciful/muzposter/internal/submission"
)

type apiCall struct {
	Method string
	To     string
	What   any
	Opts   *tele.SendOptions
	Markup *tele.ReplyMarkup
	Msg    tele.StoredMessage
}

type fakeAPI struct {
	calls []apiCall
	err   error
}

func (f *fakeAPI) opts(opts []any) *tele.SendOptions {
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			return so
		}
	}
	return nil
}

func stored(m tele.Editable) tele.StoredMessage {
	id, chat := m.MessageSig()
	return tele.StoredMessage{MessageID: id, ChatID: chat}
}

func (f *fakeAPI) Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error) {
	f.calls = append(f.calls, apiCall{Method: "send", To: to.Recipient(), What: what, Opts: f.opts(opts)})
	return &tele.Message{ID: 42}, f.err
}

func (f *fakeAPI) Edit(msg tele.Editable, what any, opts ...any) (*tele.Message, error) {
	f.calls = append(f.calls, apiCall{Method: "edit", What: what, Opts: f.opts(opts), Msg: stored(msg)})
	return nil, f.err
}

func (f *fakeAPI) EditCaption(msg tele.Editable, caption string, opts ...any) (*tele.Message, error) {
	f.calls = append(f.calls, apiCall{Method: "edit_caption", What: caption, Opts: f.opts(opts), Msg: stored(msg)})
	return nil, f.err
}

func (f *fakeAPI) EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error) {
	f.calls = append(f.calls, apiCall{Method: "edit_markup", Markup: markup, Msg: stored(msg)})
	return nil, f.err
}

func (f *fakeAPI) Delete(msg tele.Editable) error {
	f.calls = append(f.calls, apiCall{Method: "delete", Msg: stored(msg)})
	return f.err
}

func (f *fakeAPI) Copy(to tele.Recipient, msg tele.Editable, opts ...any) (*tele.Message, error) {
	f.calls = append(f.calls, apiCall{Method: "copy", To: to.Recipient(), Opts: f.opts(opts), Msg: stored(msg)})
	return &tele.Message{ID: 77}, f.err
}

func (f *fakeAPI) Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error {
	text := ""
	if len(resp) > 0 {
		text = resp[0].Text
	}
	f.calls = append(f.calls, apiCall{Method: "respond", To: c.ID, What: text})
	return f.err
}

func TestRecipient(t *testing.T) {
	assert.Equal(t, tele.ChatID(-100123), recipient("-100123"))
	assert.Equal(t, "@mychannel", recipient(" @mychannel ").Recipient())
}

func TestMarkupEncodesActions(t *testing.T) {
	assert.Nil(t, markup(nil))

	m := markup(keyboard.Keyboard{
		{{Text: "post", Action: keyboard.Post{Silent: true}}},
		{{Text: "edit", Action: keyboard.EditLink{Service: music.Spotify}}},
	})
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "post", m.InlineKeyboard[0][0].Text)
	assert.Equal(t, keyboard.KeyPost, m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "silent", m.InlineKeyboard[0][0].Data)
	assert.Equal(t, keyboard.KeyEditLink, m.InlineKeyboard[1][0].Unique)
	assert.Equal(t, "spotify", m.InlineKeyboard[1][0].Data)
}

func TestTransportSendAudio(t *testing.T) {
	api := &fakeAPI{}
	tr := NewTransport(api)
	id, err := tr.SendAudio(context.Background(), 5, "file-1", "<b>x</b>",
		submission.SendOptions{ReplyTo: 9, HTML: true, Keyboard: keyboard.PostMenu()})
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	call := api.calls[0]
	assert.Equal(t, "5", call.To)
	audio, ok := call.What.(*tele.Audio)
	require.True(t, ok)
	assert.Equal(t, "file-1", audio.FileID)
	assert.Equal(t, "<b>x</b>", audio.Caption)
	assert.Equal(t, tele.ModeHTML, call.Opts.ParseMode)
	assert.Equal(t, 9, call.Opts.ReplyTo.ID)
	assert.Len(t, call.Opts.ReplyMarkup.InlineKeyboard, len(keyboard.PostMenu()))
}

func TestTransportCopySilently(t *testing.T) {
	api := &fakeAPI{}
	id, err := NewTransport(api).CopyMessage(context.Background(), "@mychannel",
		submission.MessageRef{ChatID: 5, MessageID: 11}, true)
	require.NoError(t, err)
	assert.Equal(t, 77, id)

	call := api.calls[0]
	assert.Equal(t, "@mychannel", call.To)
	assert.Equal(t, tele.StoredMessage{MessageID: "11", ChatID: 5}, call.Msg)
	assert.True(t, call.Opts.DisableNotification)
}

func TestTransportSendError(t *testing.T) {
	api := &fakeAPI{err: errors.New("boom")}
	id, err := NewTransport(api).SendText(context.Background(), 5, "hi", submission.SendOptions{})
	require.Error(t, err)
	assert.Zero(t, id)
}

func TestTransportIgnoresNotModified(t *testing.T) {
	api := &fakeAPI{err: tele.ErrSameMessageContent}
	tr := NewTransport(api)
	ref := submission.MessageRef{ChatID: 5, MessageID: 3}
	assert.NoError(t, tr.EditText(context.Background(), ref, "same", submission.SendOptions{}))
	assert.NoError(t, tr.EditCaption(context.Background(), ref, "same", submission.SendOptions{}))
	assert.NoError(t, tr.EditReplyMarkup(context.Background(), ref, nil))
	assert.Nil(t, api.calls[2].Markup)
}

func TestTransportAnswerCallback(t *testing.T) {
	api := &fakeAPI{}
	require.NoError(t, NewTransport(api).AnswerCallback(context.Background(), "cb-1", "👌"))
	assert.Equal(t, apiCall{Method: "respond", To: "cb-1", What: "👌"}, api.calls[0])
}

func TestToMessage(t *testing.T) {
	src := &tele.Message{
		ID:      3,
		Chat:    &tele.Chat{ID: 100},
		Sender:  &tele.User{ID: 100},
		Caption: "track",
		CaptionEntities: tele.Entities{
			{Type: tele.EntityTextLink, Offset: 0, Length: 5, URL: "https://open.spotify.com/track/abc"},
		},
		Audio: &tele.Audio{File: tele.File{FileID: "f"}, Duration: 180},
	}
	prompt := &tele.Message{ID: 4, Chat: &tele.Chat{ID: 100}, Text: "❌ upstream error", ReplyTo: src}

	got := toMessage(prompt)
	assert.Equal(t, 4, got.ID)
	require.NotNil(t, got.ReplyTo)
	assert.Equal(t, int64(100), got.ReplyTo.SenderID)
	assert.Equal(t, &submission.Audio{FileID: "f", Duration: 180}, got.ReplyTo.Audio)
	assert.Equal(t, []submission.Entity{{Type: submission.EntityTextLink, Length: 5, URL: "https://open.spotify.com/track/abc"}}, got.ReplyTo.Entities)
}

type action struct {
	cb submission.Callback
	a  keyboard.Action
}

type fakeMachine struct {
	greeted  []submission.Message
	messages []submission.Message
	edited   []submission.Message
	actions  []action
}

func (m *fakeMachine) Greet(_ context.Context, msg submission.Message) error {
	m.greeted = append(m.greeted, msg)
	return nil
}

func (m *fakeMachine) HandleMessage(_ context.Context, msg submission.Message) error {
	m.messages = append(m.messages, msg)
	return nil
}

func (m *fakeMachine) HandleEdited(_ context.Context, msg submission.Message) error {
	m.edited = append(m.edited, msg)
	return nil
}

func (m *fakeMachine) HandleAction(_ context.Context, cb submission.Callback, a keyboard.Action) error {
	m.actions = append(m.actions, action{cb: cb, a: a})
	return nil
}

// fakeContext implements only what the handlers touch.
type fakeContext struct {
	tele.Context
	update    tele.Update
	store     map[string]any
	responses []*tele.CallbackResponse
	answered  int
}

func newFakeContext(upd tele.Update) *fakeContext {
	return &fakeContext{update: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update      { return f.update }
func (f *fakeContext) Message() *tele.Message   { return f.update.Message }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Sender() *tele.User {
	if f.update.Callback != nil {
		return f.update.Callback.Sender
	}
	return nil
}
func (f *fakeContext) Chat() *tele.Chat        { return nil }
func (f *fakeContext) Get(key string) any      { return f.store[key] }
func (f *fakeContext) Set(key string, val any) { f.store[key] = val }
func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.answered++
	f.responses = append(f.responses, resp...)
	return nil
}

func TestCallbackDecodesAction(t *testing.T) {
	m := &fakeMachine{}
	h := NewHandlers(m)
	c := newFakeContext(tele.Update{ID: 1, Callback: &tele.Callback{
		ID:      "cb",
		Data:    "\fedit_link|yandex",
		Sender:  &tele.User{ID: 100},
		Message: &tele.Message{ID: 9, Chat: &tele.Chat{ID: 100}},
	}})
	require.NoError(t, h.Callback(c))

	require.Len(t, m.actions, 1)
	assert.Equal(t, keyboard.EditLink{Service: music.Yandex}, m.actions[0].a)
	assert.Equal(t, "cb", m.actions[0].cb.ID)
	assert.Equal(t, int64(100), m.actions[0].cb.SenderID)
	assert.Equal(t, 9, m.actions[0].cb.Message.ID)
}

func TestCallbackUnknownDataAnswers(t *testing.T) {
	m := &fakeMachine{}
	c := newFakeContext(tele.Update{ID: 2, Callback: &tele.Callback{ID: "cb", Data: "\fedit_link|self"}})
	require.NoError(t, NewHandlers(m).Callback(c))

	assert.Empty(t, m.actions)
	require.Len(t, c.responses, 1)
	assert.Equal(t, textUnknownAction, c.responses[0].Text)
}

func TestEditedHandler(t *testing.T) {
	m := &fakeMachine{}
	h := NewHandlers(m)
	require.NoError(t, h.Edited(newFakeContext(tele.Update{ID: 3})))
	assert.Empty(t, m.edited)

	upd := tele.Update{ID: 4, EditedMessage: &tele.Message{ID: 5, Chat: &tele.Chat{ID: 100}, Audio: &tele.Audio{Duration: 200}}}
	require.NoError(t, h.Edited(newFakeContext(upd)))
	require.Len(t, m.edited, 1)
	assert.Equal(t, 200, m.edited[0].Audio.Duration)
}

func TestRegister(t *testing.T) {
	reg := tg.NewRegistry()
	h := NewHandlers(&fakeMachine{})
	require.NoError(t, Register(reg, h, 100))

	keys := append([]string(nil), keyboard.Keys...)
	sort.Strings(keys)
	assert.Equal(t, keys, reg.ListCallbacks())
	_, _, ok := reg.LookupCommand("/start@muzbot")
	assert.True(t, ok)
	assert.Len(t, reg.ListCommands(true), 2)

	routes := Routes(reg, h)
	endpoints := map[any]bool{}
	for _, r := range routes {
		endpoints[r.Endpoint] = true
	}
	for _, e := range []any{"/start", "/help", tele.OnText, tele.OnAudio, tele.OnEdited, tele.OnCallback} {
		assert.True(t, endpoints[e], "missing route %v", e)
	}
}

func TestRegisteredCallbacksRequireAdmin(t *testing.T) {
	reg := tg.NewRegistry()
	m := &fakeMachine{}
	require.NoError(t, Register(reg, NewHandlers(m), 100))

	press := func(key, payload string, sender int64) *fakeContext {
		handler, ok := reg.GetCallback(key)
		require.True(t, ok)
		c := newFakeContext(tele.Update{ID: 1, Callback: &tele.Callback{
			ID:      "cb",
			Data:    "\f" + key + "|" + payload,
			Sender:  &tele.User{ID: sender},
			Message: &tele.Message{ID: 9, Chat: &tele.Chat{ID: 100}},
		}})
		require.NoError(t, handler(c))
		return c
	}

	c := press(keyboard.KeyPost, "silent", 555)
	assert.Empty(t, m.actions)
	assert.Equal(t, 1, c.answered)
	assert.Empty(t, c.responses)

	press(keyboard.KeyCancel, "", 555)
	require.Len(t, m.actions, 1)
	assert.Equal(t, keyboard.Cancel{}, m.actions[0].a)
	assert.Equal(t, int64(555), m.actions[0].cb.SenderID)

	press(keyboard.KeyPost, "silent", 100)
	require.Len(t, m.actions, 2)
	assert.Equal(t, keyboard.Post{Silent: true}, m.actions[1].a)
}
