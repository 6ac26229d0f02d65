package users

import "time"

// User is one registered WhatsApp contact. ProfileID is the stable internal
// identity; PhoneNumber is the channel address and unique secondary key.
type User struct {
	ProfileID       string    `json:"profile_id"`
	PhoneNumber     string    `json:"phone_number"`
	Name            string    `json:"name,omitempty"`
	Email           string    `json:"email,omitempty"`
	ConsentAccepted bool      `json:"consent_accepted"`
	Language        string    `json:"language"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Interaction is one answered conversational turn.
type Interaction struct {
	ProfileID string    `json:"profile_id"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}
