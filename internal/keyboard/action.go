// Package keyboard holds the catalog of interactive actions and the inline menus built from them.
package keyboard

import (
	"errors"
	"fmt"

	"github.com/m3rciful/muzposter/internal/music"
)

// Action is one interactive choice offered on an inline keyboard.
// The set of implementations is closed; switch on the concrete type.
type Action interface {
	isAction()
}

type (
	// Retry re-runs link resolution on the audio the prompt replies to.
	Retry struct{}
	// Cancel drops the submission.
	Cancel struct{}
	// Post publishes the preview to the destination channel.
	Post struct{ Silent bool }
	// EditLink prompts for a new link of Service.
	EditLink struct{ Service music.Service }
	// ReplaceSong prompts for a new audio file.
	ReplaceSong struct{}
	// RemoveLink drops the link being edited.
	RemoveLink struct{}
	// CancelEdit leaves an edit prompt without changes.
	CancelEdit struct{}
	// ToggleSuggested flips the suggested-track credit.
	ToggleSuggested struct{}
)

func (Retry) isAction()           {}
func (Cancel) isAction()          {}
func (Post) isAction()            {}
func (EditLink) isAction()        {}
func (ReplaceSong) isAction()     {}
func (RemoveLink) isAction()      {}
func (CancelEdit) isAction()      {}
func (ToggleSuggested) isAction() {}

// Callback unique keys.
const (
	KeyRetry           = "retry"
	KeyCancel          = "cancel"
	KeyPost            = "post"
	KeyEditLink        = "edit_link"
	KeyReplaceSong     = "replace_song"
	KeyRemoveLink      = "remove_link"
	KeyCancelEdit      = "cancel_edit"
	KeyToggleSuggested = "toggle_suggested"
)

// Keys lists every callback key the catalog produces.
var Keys = []string{
	KeyRetry, KeyCancel, KeyPost, KeyEditLink,
	KeyReplaceSong, KeyRemoveLink, KeyCancelEdit, KeyToggleSuggested,
}

const (
	postLoud   = "loud"
	postSilent = "silent"
)

// ErrUnknownAction is returned by Decode for callback data the catalog did not produce.
var ErrUnknownAction = errors.New("keyboard: unknown action")

// Encode returns the callback key and payload of a.
func Encode(a Action) (key, payload string) {
	switch a := a.(type) {
	case Retry:
		return KeyRetry, ""
	case Cancel:
		return KeyCancel, ""
	case Post:
		if a.Silent {
			return KeyPost, postSilent
		}
		return KeyPost, postLoud
	case EditLink:
		return KeyEditLink, string(a.Service)
	case ReplaceSong:
		return KeyReplaceSong, ""
	case RemoveLink:
		return KeyRemoveLink, ""
	case CancelEdit:
		return KeyCancelEdit, ""
	case ToggleSuggested:
		return KeyToggleSuggested, ""
	}
	panic(fmt.Sprintf("keyboard: unhandled action %T", a))
}

// Decode parses callback data produced by Encode.
func Decode(key, payload string) (Action, error) {
	switch key {
	case KeyRetry:
		return Retry{}, nil
	case KeyCancel:
		return Cancel{}, nil
	case KeyPost:
		switch payload {
		case postLoud:
			return Post{}, nil
		case postSilent:
			return Post{Silent: true}, nil
		}
	case KeyEditLink:
		if s, ok := music.ParseService(payload); ok {
			return EditLink{Service: s}, nil
		}
	case KeyReplaceSong:
		return ReplaceSong{}, nil
	case KeyRemoveLink:
		return RemoveLink{}, nil
	case KeyCancelEdit:
		return CancelEdit{}, nil
	case KeyToggleSuggested:
		return ToggleSuggested{}, nil
	}
	return nil, fmt.Errorf("%w: %q %q", ErrUnknownAction, key, payload)
}
