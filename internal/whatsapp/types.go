// Package whatsapp speaks the WhatsApp Cloud API: the webhook payload
// shapes, the outbound message sender, and the media fetcher.
package whatsapp

// WebhookPayload is the Graph API webhook envelope. Only the fields the
// relay consumes are modelled; everything else passes through unparsed.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string       `json:"messaging_product"`
	Metadata         Metadata     `json:"metadata"`
	Contacts         []Contact    `json:"contacts"`
	Messages         []RawMessage `json:"messages"`
	Statuses         []Status     `json:"statuses"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

type Profile struct {
	Name string `json:"name"`
}

// RawMessage is one inbound message as delivered on the wire. The type
// field decides which of the nested payloads is populated.
type RawMessage struct {
	ID        string        `json:"id"`
	From      string        `json:"from"`
	Timestamp string        `json:"timestamp"`
	Type      string        `json:"type"`
	Text      *TextPayload  `json:"text,omitempty"`
	Audio     *MediaPayload `json:"audio,omitempty"`
	Image     *MediaPayload `json:"image,omitempty"`
	Document  *MediaPayload `json:"document,omitempty"`
}

type TextPayload struct {
	Body string `json:"body"`
}

type MediaPayload struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// Status is a delivery-status callback entry. Its presence marks the
// payload as a status notification rather than a user message.
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// ContactName returns the first contact's profile name, or "Unknown" when
// the webhook carried no usable contact metadata.
func ContactName(contacts []Contact) string {
	if len(contacts) == 0 {
		return "Unknown"
	}
	if contacts[0].Profile.Name == "" {
		return "Unknown"
	}
	return contacts[0].Profile.Name
}
