package model

import "time"

// Attachment is an embedded value owned by its parent message. It is
// removed from the remote store only when the message is deleted for
// everyone.
type Attachment struct {
	URL          string    `json:"url"`
	PublicID     string    `json:"public_id"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	ResourceType string    `json:"resource_type"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Message carries encrypted text, attachments, or both.
// EncryptedText holds the "nonceHex:tagHex:cipherHex" envelope and is
// never serialized to clients; Text carries the decrypted form instead.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	SenderID       string       `json:"sender_id"`
	EncryptedText  string       `json:"-"`
	Text           *string      `json:"text"`
	Attachments    []Attachment `json:"attachments"`
	IsRead         bool         `json:"is_read"`
	ReadAt         *time.Time   `json:"read_at,omitempty"`
	DeletedFor     []string     `json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
}
