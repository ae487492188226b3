package submission

import (
	"context"

	"github.com/m3rciful/muzposter/internal/journal"
	"github.com/m3rciful/muzposter/internal/keyboard"
	"github.com/m3rciful/muzposter/internal/music"
)

// MessageRef addresses a message for edits, deletes and copies.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// SendOptions apply to sends and edits. A nil Keyboard sends no keyboard, or strips it on edit.
type SendOptions struct {
	ReplyTo  int
	Keyboard keyboard.Keyboard
	HTML     bool
}

// Transport delivers the machine's output to the chat.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, opts SendOptions) (int, error)
	SendAudio(ctx context.Context, chatID int64, audioRef, caption string, opts SendOptions) (int, error)
	EditText(ctx context.Context, ref MessageRef, text string, opts SendOptions) error
	EditCaption(ctx context.Context, ref MessageRef, caption string, opts SendOptions) error
	EditReplyMarkup(ctx context.Context, ref MessageRef, kb keyboard.Keyboard) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	// CopyMessage copies src to destination ("@username" or numeric id) and returns the new message id.
	CopyMessage(ctx context.Context, destination string, src MessageRef, silent bool) (int, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// LinkResolver expands one track link into links for every service plus music.Self.
type LinkResolver interface {
	ResolveByURL(ctx context.Context, url string) (music.Links, error)
	ResolveByPlatformID(ctx context.Context, service music.Service, id string) (music.Links, error)
}

// PostRecorder receives every published post.
type PostRecorder interface {
	Record(ctx context.Context, p journal.Post) error
}
