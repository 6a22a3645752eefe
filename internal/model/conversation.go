package model

import "time"

type ConversationStatus string

const (
	ConversationStatusActive ConversationStatus = "active"
	ConversationStatusClosed ConversationStatus = "closed"
)

// Conversation links a task's uploader with the accepted applicant.
// Participants are fixed at creation: [task uploader, applicant].
type Conversation struct {
	ID            string             `json:"id"`
	TaskID        string             `json:"task_id"`
	ApplicationID string             `json:"application_id"`
	ParticipantA  string             `json:"-"`
	ParticipantB  string             `json:"-"`
	Status        ConversationStatus `json:"status"`
	LastMessageAt *time.Time         `json:"last_message_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`

	// OtherUser is the non-caller participant, filled in by the chat
	// service for list responses (id, name, avatar only).
	OtherUser *UserPublic `json:"other_user,omitempty"`
}

// HasParticipant reports whether userID is one of the two members.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID == c.ParticipantA || userID == c.ParticipantB
}

// OtherParticipant returns whichever of the two members is not the caller.
func (c *Conversation) OtherParticipant(callerID string) string {
	if callerID == c.ParticipantA {
		return c.ParticipantB
	}
	return c.ParticipantA
}
