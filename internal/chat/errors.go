package chat

import "errors"

// Domain errors carry the client-facing message. Authorization and
// ownership failures all map to HTTP 403 at the handler so existence is
// not leaked, but the messages stay distinct for UI display.
var (
	ErrConversationNotFound = errors.New("Conversation not found.")
	ErrNotParticipant       = errors.New("You are not a participant in this conversation.")
	ErrTaskNotFound         = errors.New("Associated task not found.")
	ErrChatUnavailable      = errors.New("Chat is only available when the task is in progress or completed.")
	ErrMessageNotFound      = errors.New("Message not found.")
	ErrNotSender            = errors.New("You are not allowed to delete this message.")
	ErrEmptyMessage         = errors.New("Message must contain text or at least one attachment.")
	ErrTaskNotAssigned      = errors.New("Task has no accepted applicant.")
)

// IsForbidden reports whether err is an authorization or ownership
// failure (HTTP 403).
func IsForbidden(err error) bool {
	return errors.Is(err, ErrNotParticipant) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrChatUnavailable) ||
		errors.Is(err, ErrNotSender)
}

// IsNotFound reports whether err means the entity is absent (HTTP 404).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConversationNotFound) || errors.Is(err, ErrMessageNotFound)
}
