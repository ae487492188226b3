package submission

import "unicode/utf16"

// Entity types that may carry a track link.
const (
	EntityURL      = "url"
	EntityTextLink = "text_link"
)

// Entity is a formatting span of a caption. Offset and Length count UTF-16 code units.
type Entity struct {
	Type   string
	Offset int
	Length int
	URL    string
}

// Audio is an attached audio file.
type Audio struct {
	FileID string
	// Duration in seconds.
	Duration int
}

// Message is an inbound message as seen by the machine.
type Message struct {
	ID       int
	ChatID   int64
	SenderID int64
	Text     string
	Caption  string
	// Entities are the caption entities.
	Entities []Entity
	Audio    *Audio
	ReplyTo  *Message
}

// Ref returns the reference of m for edits and copies.
func (m Message) Ref() MessageRef {
	return MessageRef{ChatID: m.ChatID, MessageID: m.ID}
}

// Callback is a pressed inline button, already decoded.
type Callback struct {
	ID       string
	SenderID int64
	// Message carries the keyboard; nil when Telegram no longer has it.
	Message *Message
}

// entityText returns the caption substring covered by e, or "" when out of range.
func entityText(caption string, e Entity) string {
	units := utf16.Encode([]rune(caption))
	if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
}

// entityURL returns the link target of e, if it has one.
func entityURL(caption string, e Entity) string {
	switch e.Type {
	case EntityTextLink:
		return e.URL
	case EntityURL:
		return entityText(caption, e)
	}
	return ""
}
