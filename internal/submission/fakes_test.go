package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/m3rciful/muzposter/core/telegram/state"
	"github.com/m3rciful/muzposter/internal/caption"
	"github.com/m3rciful/muzposter/internal/journal"
	"github.com/m3rciful/muzposter/internal/keyboard"
	"github.com/m3rciful/muzposter/internal/music"
)

const (
	adminID  int64 = 100
	userID   int64 = 200
	destChan       = "@mychannel"
)

type sent struct {
	ChatID  int64
	ID      int
	Text    string
	Audio   string
	Caption string
	Opts    SendOptions
}

type edit struct {
	Ref      MessageRef
	Kind     string
	Text     string
	Keyboard keyboard.Keyboard
}

type copied struct {
	Dest   string
	Src    MessageRef
	Silent bool
	ID     int
}

type fakeTransport struct {
	mu      sync.Mutex
	nextID  int
	texts   []sent
	audios  []sent
	edits   []edit
	deletes []MessageRef
	copies  []copied
	answers map[string]string

	copyErr error
	editErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextID: 1000, answers: map[string]string{}}
}

func (f *fakeTransport) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeTransport) SendText(_ context.Context, chatID int64, text string, opts SendOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.texts = append(f.texts, sent{ChatID: chatID, ID: id, Text: text, Opts: opts})
	return id, nil
}

func (f *fakeTransport) SendAudio(_ context.Context, chatID int64, audioRef, caption string, opts SendOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.audios = append(f.audios, sent{ChatID: chatID, ID: id, Audio: audioRef, Caption: caption, Opts: opts})
	return id, nil
}

func (f *fakeTransport) EditText(_ context.Context, ref MessageRef, text string, opts SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit{Ref: ref, Kind: "text", Text: text, Keyboard: opts.Keyboard})
	return f.editErr
}

func (f *fakeTransport) EditCaption(_ context.Context, ref MessageRef, caption string, opts SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit{Ref: ref, Kind: "caption", Text: caption, Keyboard: opts.Keyboard})
	return f.editErr
}

func (f *fakeTransport) EditReplyMarkup(_ context.Context, ref MessageRef, kb keyboard.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit{Ref: ref, Kind: "markup", Keyboard: kb})
	return f.editErr
}

func (f *fakeTransport) DeleteMessage(_ context.Context, ref MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, ref)
	return nil
}

func (f *fakeTransport) CopyMessage(_ context.Context, dest string, src MessageRef, silent bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	id := f.id()
	f.copies = append(f.copies, copied{Dest: dest, Src: src, Silent: silent, ID: id})
	return id, nil
}

func (f *fakeTransport) AnswerCallback(_ context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[callbackID] = text
	return nil
}

func (f *fakeTransport) lastAudio() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audios[len(f.audios)-1]
}

func (f *fakeTransport) lastText() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[len(f.texts)-1]
}

type resolveCall struct {
	URL     string
	Service music.Service
	ID      string
}

type fakeResolver struct {
	mu    sync.Mutex
	calls []resolveCall
	links music.Links
	err   error
}

func (r *fakeResolver) ResolveByURL(_ context.Context, url string) (music.Links, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, resolveCall{URL: url})
	if r.err != nil {
		return nil, r.err
	}
	return r.links.Clone(), nil
}

func (r *fakeResolver) ResolveByPlatformID(_ context.Context, service music.Service, id string) (music.Links, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, resolveCall{Service: service, ID: id})
	if r.err != nil {
		return nil, r.err
	}
	return r.links.Clone(), nil
}

type fakeJournal struct {
	posts []journal.Post
	err   error
}

func (j *fakeJournal) Record(_ context.Context, p journal.Post) error {
	j.posts = append(j.posts, p)
	return j.err
}

var errUpstreamDown = errors.New("connection refused")

func resolvedLinks() music.Links {
	return music.Links{
		music.Spotify:      "https://open.spotify.com/track/abc",
		music.YouTubeMusic: "https://music.youtube.com/watch?v=xyz",
		music.Yandex:       "https://music.yandex.ru/track/1",
		music.SoundCloud:   "https://soundcloud.com/a/b",
		music.Self:         "https://song.link/s/abc",
	}
}

type harness struct {
	m         *Machine
	store     *state.Memory[Session]
	transport *fakeTransport
	resolver  *fakeResolver
	journal   *fakeJournal
	render    caption.Renderer
}

func newHarness() *harness {
	h := &harness{
		store:     state.NewMemory[Session](),
		transport: newFakeTransport(),
		resolver:  &fakeResolver{links: resolvedLinks()},
		journal:   &fakeJournal{},
		render:    caption.Renderer{BotUsername: "muzbot"},
	}
	h.m = NewMachine(
		Config{AdminID: adminID, Destination: destChan},
		h.store, h.resolver, h.transport, h.render,
		WithJournal(h.journal),
	)
	return h
}

func (h *harness) session() (Session, bool) {
	return h.store.Get(adminID)
}

const spotifyURL = "https://open.spotify.com/track/abc"

// audioMsg is an admin audio in the admin's private chat with a Spotify text link in the caption.
func audioMsg(id, duration int) Message {
	return Message{
		ID:       id,
		ChatID:   adminID,
		SenderID: adminID,
		Caption:  "listen",
		Entities: []Entity{{Type: EntityTextLink, Offset: 0, Length: 6, URL: spotifyURL}},
		Audio:    &Audio{FileID: fmt.Sprintf("file-%d", id), Duration: duration},
	}
}

func callbackOn(msg *Message, id string) Callback {
	return Callback{ID: id, SenderID: adminID, Message: msg}
}
