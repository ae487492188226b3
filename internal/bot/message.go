package bot

import (
	"github.com/m3rciful/muzposter/internal/submission"

	tele "gopkg.in/telebot.v4"
)

// toMessage converts an inbound Telegram message, following ReplyTo one level deep.
func toMessage(m *tele.Message) submission.Message {
	if m == nil {
		return submission.Message{}
	}
	msg := convert(m)
	if m.ReplyTo != nil {
		reply := convert(m.ReplyTo)
		msg.ReplyTo = &reply
	}
	return msg
}

func convert(m *tele.Message) submission.Message {
	msg := submission.Message{
		ID:      m.ID,
		Text:    m.Text,
		Caption: m.Caption,
	}
	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
	}
	if m.Sender != nil {
		msg.SenderID = m.Sender.ID
	}
	for _, e := range m.CaptionEntities {
		msg.Entities = append(msg.Entities, submission.Entity{
			Type:   string(e.Type),
			Offset: e.Offset,
			Length: e.Length,
			URL:    e.URL,
		})
	}
	if m.Audio != nil {
		msg.Audio = &submission.Audio{FileID: m.Audio.FileID, Duration: m.Audio.Duration}
	}
	return msg
}

func toCallback(cb *tele.Callback) submission.Callback {
	out := submission.Callback{ID: cb.ID}
	if cb.Sender != nil {
		out.SenderID = cb.Sender.ID
	}
	if cb.Message != nil {
		msg := toMessage(cb.Message)
		out.Message = &msg
	}
	return out
}
