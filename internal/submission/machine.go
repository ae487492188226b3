// Package submission drives a submitted track from receipt to publishing.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/muzposter/core/logger"
	"github.com/m3rciful/muzposter/core/telegram/format"
	"github.com/m3rciful/muzposter/internal/caption"
	"github.com/m3rciful/muzposter/internal/journal"
	"github.com/m3rciful/muzposter/internal/keyboard"
	"github.com/m3rciful/muzposter/internal/music"
)

// DefaultPreviewThreshold is the audio duration, in seconds, below which a file is treated as
// a placeholder that Telegram is still downloading.
const DefaultPreviewThreshold = 3

const (
	textWaiting      = "⏳ Waiting for music to download…"
	textEnterLink    = "🔗 Enter new link for %s"
	textSendSong     = "🎵 Send me new audio file"
	textCancelled    = "🚫 Post cancelled"
	textCancelAck    = "👌"
	textForwarded    = "📩 Okay, I've forwarded it, thanks!"
	textPostedLoud   = "📩🔔 Successfully posted!"
	textPostedSilent = "📩🔕 Successfully posted!"
	textPostFailed   = "❌ Failed to post, try again"
	textUnknown      = "🤷 Unknown action"
)

// Config holds the machine's deployment parameters.
type Config struct {
	AdminID int64
	// Destination is the channel posts are published to: "@username" or a numeric id.
	Destination string
	// PreviewThreshold in seconds; zero means DefaultPreviewThreshold.
	PreviewThreshold int
}

// Machine is the submission state machine. Events for one chat are processed one at a time.
type Machine struct {
	cfg       Config
	store     SessionStore
	resolver  LinkResolver
	transport Transport
	render    caption.Renderer
	journal   PostRecorder
	now       func() time.Time
}

// Option customizes a Machine.
type Option func(*Machine)

// WithJournal records published posts.
func WithJournal(r PostRecorder) Option {
	return func(m *Machine) { m.journal = r }
}

// WithClock overrides time.Now for journal timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// NewMachine wires a machine.
func NewMachine(cfg Config, store SessionStore, resolver LinkResolver, transport Transport, render caption.Renderer, opts ...Option) *Machine {
	if cfg.PreviewThreshold <= 0 {
		cfg.PreviewThreshold = DefaultPreviewThreshold
	}
	m := &Machine{
		cfg:       cfg,
		store:     store,
		resolver:  resolver,
		transport: transport,
		render:    render,
		journal:   journal.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Greet answers /start and /help.
func (m *Machine) Greet(ctx context.Context, msg Message) error {
	target := "the channel"
	if strings.HasPrefix(m.cfg.Destination, "@") {
		target = m.cfg.Destination
	}
	text := fmt.Sprintf("👋 Hello! I can help you suggest new music to %s! "+
		"Simply send me the name of the track or the track itself and I'll forward it.", target)
	_, err := m.transport.SendText(ctx, msg.ChatID, text, SendOptions{ReplyTo: msg.ID})
	return err
}

// HandleMessage processes a new text or audio message.
func (m *Machine) HandleMessage(ctx context.Context, msg Message) error {
	unlock := m.store.Lock(msg.ChatID)
	defer unlock()

	sess, active := m.store.Get(msg.ChatID)
	admin := m.isAdmin(msg.SenderID)

	switch {
	case msg.Audio != nil && active && sess.State == StateEditingSong:
		return m.replaceSong(ctx, msg, sess)
	case msg.Audio != nil && admin && msg.Audio.Duration < m.cfg.PreviewThreshold:
		return m.awaitDownload(ctx, msg, sess, active)
	case msg.Audio != nil && admin:
		return m.submit(ctx, msg, sess, active)
	case msg.Audio == nil && admin && active && sess.State == StateEditingLink:
		return m.setLink(ctx, msg, sess)
	case active:
		logger.Debug(ctx, logger.CompSubmission, "message.ignored",
			slog.String("status", "skip"),
			slog.String("state", string(sess.State)),
		)
		return nil
	default:
		return m.forward(ctx, msg)
	}
}

// HandleEdited processes an edited message; only a finished download of a pending audio matters.
func (m *Machine) HandleEdited(ctx context.Context, msg Message) error {
	unlock := m.store.Lock(msg.ChatID)
	defer unlock()

	sess, active := m.store.Get(msg.ChatID)
	if !active || sess.State != StatePendingDownload || !m.isAdmin(msg.SenderID) ||
		msg.Audio == nil || msg.Audio.Duration < m.cfg.PreviewThreshold {
		return nil
	}

	links, err := m.resolveLinks(ctx, msg)
	if err != nil {
		m.logResolveFailure(ctx, err)
		return m.transport.EditText(ctx, MessageRef{ChatID: msg.ChatID, MessageID: sess.WaitMessageID},
			"❌ "+err.Error(), SendOptions{Keyboard: keyboard.ErrorMenu()})
	}

	next := Session{
		State:            StatePreparing,
		AudioRef:         msg.Audio.FileID,
		Links:            links,
		ReplyToMessageID: msg.ID,
	}
	if err := m.preview(ctx, msg.ChatID, next); err != nil {
		return err
	}
	m.store.Set(msg.ChatID, next)
	m.transition(ctx, StatePendingDownload, StatePreparing, "download_finished")
	m.cleanup(ctx, "delete_wait", m.transport.DeleteMessage(ctx, MessageRef{ChatID: msg.ChatID, MessageID: sess.WaitMessageID}))
	return nil
}

// HandleAction processes a pressed inline button.
func (m *Machine) HandleAction(ctx context.Context, cb Callback, action keyboard.Action) error {
	chatID := cb.SenderID
	if cb.Message != nil {
		chatID = cb.Message.ChatID
	}
	unlock := m.store.Lock(chatID)
	defer unlock()

	if _, ok := action.(keyboard.Cancel); ok {
		return m.cancel(ctx, cb, chatID)
	}
	if !m.isAdmin(cb.SenderID) {
		return m.answer(ctx, cb, "")
	}

	switch a := action.(type) {
	case keyboard.Retry:
		return m.retry(ctx, cb, chatID)
	case keyboard.Post:
		return m.post(ctx, cb, chatID, a.Silent)
	case keyboard.EditLink:
		return m.editLink(ctx, cb, chatID, a.Service)
	case keyboard.ReplaceSong:
		return m.askSong(ctx, cb, chatID)
	case keyboard.RemoveLink:
		return m.removeLink(ctx, cb, chatID)
	case keyboard.CancelEdit:
		return m.cancelEdit(ctx, cb, chatID)
	case keyboard.ToggleSuggested:
		return m.toggleSuggested(ctx, cb, chatID)
	}
	return m.answer(ctx, cb, textUnknown)
}

func (m *Machine) isAdmin(userID int64) bool {
	return m.cfg.AdminID != 0 && userID == m.cfg.AdminID
}

func (m *Machine) forward(ctx context.Context, msg Message) error {
	admin := strconv.FormatInt(m.cfg.AdminID, 10)
	if _, err := m.transport.CopyMessage(ctx, admin, msg.Ref(), false); err != nil {
		return fmt.Errorf("submission: forward to admin: %w", err)
	}
	_, err := m.transport.SendText(ctx, msg.ChatID, textForwarded, SendOptions{ReplyTo: msg.ID})
	return err
}

func (m *Machine) awaitDownload(ctx context.Context, msg Message, prev Session, active bool) error {
	waitID, err := m.transport.SendText(ctx, msg.ChatID, textWaiting,
		SendOptions{ReplyTo: msg.ID, Keyboard: keyboard.WaitingMenu()})
	if err != nil {
		return fmt.Errorf("submission: send waiting prompt: %w", err)
	}
	m.store.Set(msg.ChatID, Session{
		State:            StatePendingDownload,
		WaitMessageID:    waitID,
		ReplyToMessageID: msg.ID,
	})
	m.transition(ctx, stateOf(prev, active), StatePendingDownload, "audio_placeholder")
	return nil
}

// submit starts a submission from a complete audio, replacing any session of the chat.
func (m *Machine) submit(ctx context.Context, msg Message, prev Session, active bool) error {
	if active {
		m.store.Clear(msg.ChatID)
		m.transition(ctx, prev.State, StateIdle, "replaced")
	}
	links, err := m.resolveLinks(ctx, msg)
	if err != nil {
		m.logResolveFailure(ctx, err)
		_, sendErr := m.transport.SendText(ctx, msg.ChatID, "❌ "+err.Error(),
			SendOptions{ReplyTo: msg.ID, Keyboard: keyboard.ErrorMenu()})
		return sendErr
	}
	next := Session{
		State:            StatePreparing,
		AudioRef:         msg.Audio.FileID,
		Links:            links,
		ReplyToMessageID: msg.ID,
	}
	if err := m.preview(ctx, msg.ChatID, next); err != nil {
		return err
	}
	m.store.Set(msg.ChatID, next)
	m.transition(ctx, StateIdle, StatePreparing, "audio")
	return nil
}

func (m *Machine) retry(ctx context.Context, cb Callback, chatID int64) error {
	sess, active := m.store.Get(chatID)
	if active && sess.State != StatePendingDownload {
		return m.answer(ctx, cb, "")
	}
	if cb.Message == nil || cb.Message.ReplyTo == nil || cb.Message.ReplyTo.Audio == nil {
		return m.answer(ctx, cb, textUnknown)
	}
	src := *cb.Message.ReplyTo
	if src.ChatID == 0 {
		src.ChatID = chatID
	}

	links, err := m.resolveLinks(ctx, src)
	if err != nil {
		m.logResolveFailure(ctx, err)
		m.cleanup(ctx, "edit_error", m.transport.EditText(ctx, cb.Message.Ref(), "❌ "+err.Error(),
			SendOptions{Keyboard: keyboard.ErrorMenu()}))
		return m.answer(ctx, cb, "")
	}

	next := Session{
		State:            StatePreparing,
		AudioRef:         src.Audio.FileID,
		Links:            links,
		ReplyToMessageID: src.ID,
	}
	if err := m.preview(ctx, chatID, next); err != nil {
		_ = m.answer(ctx, cb, "")
		return err
	}
	m.store.Set(chatID, next)
	m.transition(ctx, stateOf(sess, active), StatePreparing, "retry")
	m.cleanup(ctx, "delete_prompt", m.transport.DeleteMessage(ctx, cb.Message.Ref()))
	return m.answer(ctx, cb, "")
}

func (m *Machine) editLink(ctx context.Context, cb Callback, chatID int64, service music.Service) error {
	sess, ok := m.session(ctx, cb, chatID, StatePreparing)
	if !ok {
		return nil
	}
	m.cleanup(ctx, "strip_preview", m.transport.EditReplyMarkup(ctx, cb.Message.Ref(), nil))
	promptID, err := m.transport.SendText(ctx, chatID, fmt.Sprintf(textEnterLink, format.Italic(service.Name())),
		SendOptions{HTML: true, Keyboard: keyboard.EditLinkMenu()})
	if err != nil {
		_ = m.answer(ctx, cb, "")
		return fmt.Errorf("submission: send link prompt: %w", err)
	}
	m.store.Update(chatID, func(s *Session) {
		s.State = StateEditingLink
		s.EditingKey = service
		s.PromptMessageID = promptID
		s.ReplyToMessageID = replyTarget(cb, sess)
	})
	m.transition(ctx, StatePreparing, StateEditingLink, "edit_link", slog.String("service", string(service)))
	return m.answer(ctx, cb, "")
}

func (m *Machine) askSong(ctx context.Context, cb Callback, chatID int64) error {
	sess, ok := m.session(ctx, cb, chatID, StatePreparing)
	if !ok {
		return nil
	}
	m.cleanup(ctx, "strip_preview", m.transport.EditReplyMarkup(ctx, cb.Message.Ref(), nil))
	promptID, err := m.transport.SendText(ctx, chatID, textSendSong, SendOptions{Keyboard: keyboard.EditSongMenu()})
	if err != nil {
		_ = m.answer(ctx, cb, "")
		return fmt.Errorf("submission: send song prompt: %w", err)
	}
	m.store.Update(chatID, func(s *Session) {
		s.State = StateEditingSong
		s.PromptMessageID = promptID
		s.ReplyToMessageID = replyTarget(cb, sess)
	})
	m.transition(ctx, StatePreparing, StateEditingSong, "replace_song")
	return m.answer(ctx, cb, "")
}

func (m *Machine) replaceSong(ctx context.Context, msg Message, sess Session) error {
	m.stripPrompt(ctx, msg.ChatID, sess)
	next := sess
	next.State = StatePreparing
	next.AudioRef = msg.Audio.FileID
	next.PromptMessageID = 0
	if err := m.preview(ctx, msg.ChatID, next); err != nil {
		return err
	}
	m.store.Set(msg.ChatID, next)
	m.transition(ctx, StateEditingSong, StatePreparing, "song_replaced")
	return nil
}

func (m *Machine) setLink(ctx context.Context, msg Message, sess Session) error {
	link := strings.TrimSpace(msg.Text)
	if link == "" {
		return nil
	}
	m.stripPrompt(ctx, msg.ChatID, sess)
	next := leaveEdit(sess)
	next.Links[sess.EditingKey] = link
	if err := m.preview(ctx, msg.ChatID, next); err != nil {
		return err
	}
	m.store.Set(msg.ChatID, next)
	m.transition(ctx, StateEditingLink, StatePreparing, "link_set", slog.String("service", string(sess.EditingKey)))
	return nil
}

func (m *Machine) removeLink(ctx context.Context, cb Callback, chatID int64) error {
	sess, ok := m.session(ctx, cb, chatID, StateEditingLink)
	if !ok {
		return nil
	}
	m.stripPrompt(ctx, chatID, sess)
	next := leaveEdit(sess)
	delete(next.Links, sess.EditingKey)
	if err := m.preview(ctx, chatID, next); err != nil {
		_ = m.answer(ctx, cb, "")
		return err
	}
	m.store.Set(chatID, next)
	m.transition(ctx, StateEditingLink, StatePreparing, "link_removed", slog.String("service", string(sess.EditingKey)))
	return m.answer(ctx, cb, "")
}

func (m *Machine) cancelEdit(ctx context.Context, cb Callback, chatID int64) error {
	sess, ok := m.session(ctx, cb, chatID, StateEditingLink, StateEditingSong)
	if !ok {
		return nil
	}
	m.stripPrompt(ctx, chatID, sess)
	next := leaveEdit(sess)
	if err := m.preview(ctx, chatID, next); err != nil {
		_ = m.answer(ctx, cb, "")
		return err
	}
	m.store.Set(chatID, next)
	m.transition(ctx, sess.State, StatePreparing, "cancel_edit")
	return m.answer(ctx, cb, "")
}

func (m *Machine) toggleSuggested(ctx context.Context, cb Callback, chatID int64) error {
	sess, ok := m.session(ctx, cb, chatID, StatePreparing)
	if !ok {
		return nil
	}
	suggested := !sess.Suggested
	err := m.transport.EditCaption(ctx, cb.Message.Ref(), m.render.Render(sess.Links, suggested),
		SendOptions{HTML: true, Keyboard: keyboard.PostMenu()})
	if err != nil {
		_ = m.answer(ctx, cb, "")
		return fmt.Errorf("submission: toggle suggested: %w", err)
	}
	m.store.Update(chatID, func(s *Session) { s.Suggested = suggested })
	logger.Debug(ctx, logger.CompSubmission, "session.suggested",
		slog.String("status", "ok"),
		slog.Bool("suggested", suggested),
	)
	return m.answer(ctx, cb, "")
}

func (m *Machine) post(ctx context.Context, cb Callback, chatID int64, silent bool) error {
	sess, ok := m.session(ctx, cb, chatID, StatePreparing)
	if !ok {
		return nil
	}
	dest := m.cfg.Destination
	id, err := m.transport.CopyMessage(ctx, dest, cb.Message.Ref(), silent)
	if err != nil {
		_ = m.answer(ctx, cb, textPostFailed)
		return fmt.Errorf("submission: copy to %s: %w", dest, err)
	}
	m.store.Clear(chatID)
	link := Permalink(dest, id)
	m.transition(ctx, StatePreparing, StatePosted, "post",
		slog.Bool("silent", silent),
		slog.String("permalink", link),
	)
	m.cleanup(ctx, "caption_permalink", m.transport.EditCaption(ctx, cb.Message.Ref(), link, SendOptions{}))

	rec := journal.Post{
		SourceChatID:    chatID,
		SourceMessageID: cb.Message.ID,
		Destination:     dest,
		MessageID:       id,
		Permalink:       link,
		Silent:          silent,
		Suggested:       sess.Suggested,
		Links:           sess.Links,
		PostedAt:        m.now().UTC(),
	}
	if err := m.journal.Record(ctx, rec); err != nil {
		logger.Warn(ctx, logger.CompSubmission, "journal.record",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}

	if silent {
		return m.answer(ctx, cb, textPostedSilent)
	}
	return m.answer(ctx, cb, textPostedLoud)
}

func (m *Machine) cancel(ctx context.Context, cb Callback, chatID int64) error {
	if sess, ok := m.store.Get(chatID); ok {
		m.store.Clear(chatID)
		m.transition(ctx, sess.State, StateCancelled, "cancel")
	}
	if cb.Message != nil {
		if cb.Message.Text != "" {
			m.cleanup(ctx, "edit_cancelled", m.transport.EditText(ctx, cb.Message.Ref(), textCancelled, SendOptions{}))
		} else {
			m.cleanup(ctx, "strip_keyboard", m.transport.EditReplyMarkup(ctx, cb.Message.Ref(), nil))
		}
	}
	return m.answer(ctx, cb, textCancelAck)
}

// session loads the chat's session and checks its state. Rejections are answered here.
func (m *Machine) session(ctx context.Context, cb Callback, chatID int64, states ...State) (Session, bool) {
	sess, ok := m.store.Get(chatID)
	if !ok || cb.Message == nil {
		_ = m.answer(ctx, cb, textUnknown)
		return Session{}, false
	}
	for _, s := range states {
		if sess.State == s {
			return sess, true
		}
	}
	logger.Debug(ctx, logger.CompSubmission, "action.rejected",
		slog.String("status", "skip"),
		slog.String("state", string(sess.State)),
	)
	_ = m.answer(ctx, cb, "")
	return Session{}, false
}

// resolveLinks resolves the first caption entity that carries a recognized track link.
func (m *Machine) resolveLinks(ctx context.Context, msg Message) (music.Links, error) {
	for _, e := range msg.Entities {
		url := entityURL(msg.Caption, e)
		if url == "" {
			continue
		}
		match, ok := music.DetectLink(url)
		if !ok {
			continue
		}
		var (
			links music.Links
			err   error
		)
		if match.Aggregator || match.ID == "" {
			links, err = m.resolver.ResolveByURL(ctx, match.URL)
		} else {
			links, err = m.resolver.ResolveByPlatformID(ctx, match.Service, match.ID)
		}
		if err != nil {
			return nil, errUpstream(err)
		}
		return links, nil
	}
	return nil, errNoLink()
}

func (m *Machine) preview(ctx context.Context, chatID int64, s Session) error {
	_, err := m.transport.SendAudio(ctx, chatID, s.AudioRef, m.render.Render(s.Links, s.Suggested),
		SendOptions{ReplyTo: s.ReplyToMessageID, Keyboard: keyboard.PostMenu(), HTML: true})
	if err != nil {
		return fmt.Errorf("submission: send preview: %w", err)
	}
	return nil
}

func (m *Machine) stripPrompt(ctx context.Context, chatID int64, s Session) {
	if s.PromptMessageID == 0 {
		return
	}
	m.cleanup(ctx, "strip_prompt", m.transport.EditReplyMarkup(ctx, MessageRef{ChatID: chatID, MessageID: s.PromptMessageID}, nil))
}

func (m *Machine) answer(ctx context.Context, cb Callback, text string) error {
	if cb.ID == "" {
		return nil
	}
	if err := m.transport.AnswerCallback(ctx, cb.ID, text); err != nil {
		m.cleanup(ctx, "answer_callback", err)
	}
	return nil
}

// cleanup logs failures of edits whose loss only leaves stale UI behind.
func (m *Machine) cleanup(ctx context.Context, op string, err error) {
	if err == nil {
		return
	}
	logger.Debug(ctx, logger.CompSubmission, "cleanup",
		slog.String("status", "skip"),
		slog.String("action", op),
		slog.String("err", err.Error()),
	)
}

func (m *Machine) transition(ctx context.Context, from, to State, trigger string, attrs ...slog.Attr) {
	logger.Info(ctx, logger.CompSubmission, "session.transition", append([]slog.Attr{
		slog.String("status", "ok"),
		slog.String("from_state", string(from)),
		slog.String("to_state", string(to)),
		slog.String("action", trigger),
	}, attrs...)...)
}

func (m *Machine) logResolveFailure(ctx context.Context, err error) {
	attrs := []slog.Attr{slog.String("status", "fail"), slog.String("err", err.Error())}
	if cause := errors.Unwrap(err); cause != nil {
		attrs = append(attrs, slog.String("cause", cause.Error()))
	}
	logger.Warn(ctx, logger.CompSubmission, "resolve", attrs...)
}

// leaveEdit returns s back in preparing with edit bookkeeping dropped and links copied.
func leaveEdit(s Session) Session {
	s.State = StatePreparing
	s.EditingKey = ""
	s.PromptMessageID = 0
	s.Links = s.Links.Clone()
	return s
}

func replyTarget(cb Callback, s Session) int {
	if cb.Message != nil && cb.Message.ReplyTo != nil {
		return cb.Message.ReplyTo.ID
	}
	return s.ReplyToMessageID
}

func stateOf(s Session, active bool) State {
	if !active {
		return StateIdle
	}
	return s.State
}
