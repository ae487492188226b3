package keyboard

import "github.com/m3rciful/muzposter/internal/music"

// Button is a labelled action.
type Button struct {
	Text   string
	Action Action
}

// Keyboard is a grid of buttons. A nil Keyboard means no inline keyboard.
type Keyboard [][]Button

func column(buttons ...Button) Keyboard {
	kb := make(Keyboard, 0, len(buttons))
	for _, b := range buttons {
		kb = append(kb, []Button{b})
	}
	return kb
}

var cancelButton = Button{Text: "❌ Cancel", Action: Cancel{}}

// PostMenu is attached to a preview ready for publishing.
func PostMenu() Keyboard {
	buttons := []Button{
		{Text: "🎶 Let the party begin!", Action: Post{}},
		{Text: "🔕 Post this silently", Action: Post{Silent: true}},
		{Text: "🎵 Replace file", Action: ReplaceSong{}},
	}
	for _, s := range music.Services {
		buttons = append(buttons, Button{Text: "✏ Edit " + s.Name() + " link", Action: EditLink{Service: s}})
	}
	buttons = append(buttons,
		Button{Text: "💡 Toggle suggested", Action: ToggleSuggested{}},
		cancelButton,
	)
	return column(buttons...)
}

// WaitingMenu is attached to the prompt shown while a short audio placeholder downloads.
func WaitingMenu() Keyboard {
	return column(Button{Text: "⏩ Continue anyway", Action: Retry{}}, cancelButton)
}

// ErrorMenu is attached to a link resolution failure.
func ErrorMenu() Keyboard {
	return column(Button{Text: "🔁 Try again", Action: Retry{}}, cancelButton)
}

// EditLinkMenu is attached to the prompt asking for a new link.
func EditLinkMenu() Keyboard {
	return column(
		Button{Text: "❌ Remove existing link", Action: RemoveLink{}},
		Button{Text: "↩ Cancel edit", Action: CancelEdit{}},
	)
}

// EditSongMenu is attached to the prompt asking for a new audio file.
func EditSongMenu() Keyboard {
	return column(Button{Text: "↩ Cancel edit", Action: CancelEdit{}})
}
