// Package inbound turns raw webhook deliveries into replies: it
// normalizes channel payloads, filters redeliveries, walks users through
// onboarding, and routes content into the conversation and audio
// pipelines.
package inbound

import (
	"github.com/zapdesk/zapdesk/internal/whatsapp"
)

// Kind classifies a normalized inbound message.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindAudio
	KindImage
	KindDocument
	KindVideo
	KindSticker
	KindLocation
	KindContacts
	KindInteractive
	KindButton
)

// wireKinds maps the Cloud API type string to a Kind. Anything not listed
// normalizes to KindUnknown instead of failing.
var wireKinds = map[string]Kind{
	"text":        KindText,
	"audio":       KindAudio,
	"image":       KindImage,
	"document":    KindDocument,
	"video":       KindVideo,
	"sticker":     KindSticker,
	"location":    KindLocation,
	"contacts":    KindContacts,
	"interactive": KindInteractive,
	"button":      KindButton,
}

var kindNames = map[Kind]string{
	KindUnknown:     "unknown",
	KindText:        "text",
	KindAudio:       "audio",
	KindImage:       "image",
	KindDocument:    "document",
	KindVideo:       "video",
	KindSticker:     "sticker",
	KindLocation:    "location",
	KindContacts:    "contacts",
	KindInteractive: "interactive",
	KindButton:      "button",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Message is the canonical form of one inbound message. It is built once
// by Normalize and read-only afterwards.
type Message struct {
	ID         string
	From       string
	Timestamp  string
	Kind       Kind
	Text       string
	MediaID    string
	SenderName string
}

// Normalize converts one wire message plus the webhook's contact metadata
// into a Message. Extraction is kind-conditional: text carries a body,
// audio carries a media id, image and document carry a media id and an
// optional caption.
func Normalize(raw whatsapp.RawMessage, contacts []whatsapp.Contact) Message {
	msg := Message{
		ID:         raw.ID,
		From:       raw.From,
		Timestamp:  raw.Timestamp,
		Kind:       wireKinds[raw.Type],
		SenderName: whatsapp.ContactName(contacts),
	}

	switch msg.Kind {
	case KindText:
		if raw.Text != nil {
			msg.Text = raw.Text.Body
		}
	case KindAudio:
		if raw.Audio != nil {
			msg.MediaID = raw.Audio.ID
		}
	case KindImage:
		if raw.Image != nil {
			msg.MediaID = raw.Image.ID
			msg.Text = raw.Image.Caption
		}
	case KindDocument:
		if raw.Document != nil {
			msg.MediaID = raw.Document.ID
			msg.Text = raw.Document.Caption
		}
	}

	return msg
}
