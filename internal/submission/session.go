package submission

import "github.com/m3rciful/muzposter/internal/music"

// State is the position of a chat in the submission flow.
type State string

const (
	StateIdle            State = "idle"
	StatePendingDownload State = "pendingDownload"
	StatePreparing       State = "preparing"
	StateEditingLink     State = "editingLink"
	StateEditingSong     State = "editingSong"

	// Terminal states are never stored; the session is cleared on reaching them.
	StatePosted    State = "posted"
	StateCancelled State = "cancelled"
)

// Session is the in-flight submission of one chat.
type Session struct {
	State    State
	AudioRef string
	Links    music.Links
	// EditingKey is set only in StateEditingLink.
	EditingKey music.Service
	Suggested  bool

	PromptMessageID  int
	WaitMessageID    int
	ReplyToMessageID int
}

// SessionStore keeps one Session per chat. Lock serializes event processing for a chat.
type SessionStore interface {
	Get(chatID int64) (Session, bool)
	Set(chatID int64, s Session)
	// Update merges changes into an existing session and reports whether one existed.
	Update(chatID int64, fn func(*Session)) bool
	Clear(chatID int64)
	Lock(chatID int64) func()
}
