package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/internal/encryption"
	"github.com/taskhub/internal/logger"
	"github.com/taskhub/internal/model"
	"github.com/taskhub/internal/repository"
)

// MessageStore is what the chat core needs from message persistence.
// Implemented by repository.MessageRepository.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	ListPage(ctx context.Context, conversationID, callerID string, limit int, before, after *time.Time) ([]model.Message, error)
	MarkReadFromOther(ctx context.Context, conversationID, callerID string) (int64, error)
	SoftDeleteForCaller(ctx context.Context, messageID, callerID string) error
	DeleteForEveryone(ctx context.Context, messageID, callerID string) ([]model.Attachment, error)
}

// UserLookup resolves public display data for the other party.
type UserLookup interface {
	GetPublicByID(ctx context.Context, id string) (*model.UserPublic, error)
}

// AttachmentRemover deletes an object from the remote attachment store.
// Implemented by attachment.Client.
type AttachmentRemover interface {
	Delete(ctx context.Context, publicID, resourceType string) error
}

// attachmentDeleteTimeout bounds each remote delete attempt during
// delete-for-everyone independently, so one slow object cannot stall or
// cancel the rest of the loop.
const attachmentDeleteTimeout = 10 * time.Second

// Service composes the guard, the stores, the codec and the attachment
// adapter into the chat use cases.
type Service struct {
	guard *Guard
	convs ConversationStore
	msgs  MessageStore
	users UserLookup
	tasks TaskLookup
	files AttachmentRemover
}

func NewService(guard *Guard, convs ConversationStore, msgs MessageStore, users UserLookup, tasks TaskLookup, files AttachmentRemover) *Service {
	return &Service{guard: guard, convs: convs, msgs: msgs, users: users, tasks: tasks, files: files}
}

// ListConversations returns the caller's active conversations enriched
// with the other participant's public profile. No per-conversation guard:
// the query is already scoped to the caller's own set.
func (s *Service) ListConversations(ctx context.Context, callerID string, updatedSince *time.Time) ([]model.Conversation, error) {
	convs, err := s.convs.ListForUser(ctx, callerID, updatedSince)
	if err != nil {
		return nil, fmt.Errorf("chat.ListConversations: %w", err)
	}
	for i := range convs {
		otherID := convs[i].OtherParticipant(callerID)
		other, err := s.users.GetPublicByID(ctx, otherID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				logger.Errorf("chat.ListConversations: resolve user %s: %v", otherID, err)
			}
			continue
		}
		convs[i].OtherUser = other
	}
	return convs, nil
}

// MessagePage is the list-messages response: the other party's public
// profile plus one page of decrypted messages, oldest first.
type MessagePage struct {
	Recipient *model.UserPublic `json:"recipient"`
	Messages  []model.Message   `json:"messages"`
}

// ListMessages fetches a page after authorization and decrypts each
// message. A single undecryptable record must not fail the page: its
// text is left null and the failure is logged.
func (s *Service) ListMessages(ctx context.Context, conversationID, callerID string, limit int, before, after *time.Time) (*MessagePage, error) {
	conv, err := s.guard.Authorize(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.users.GetPublicByID(ctx, conv.OtherParticipant(callerID))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("chat.ListMessages: recipient: %w", err)
	}
	messages, err := s.msgs.ListPage(ctx, conversationID, callerID, limit, before, after)
	if err != nil {
		return nil, fmt.Errorf("chat.ListMessages: %w", err)
	}
	for i := range messages {
		decryptInto(&messages[i])
	}
	return &MessagePage{Recipient: recipient, Messages: messages}, nil
}

// decryptInto fills m.Text from the stored envelope and strips the raw
// envelope from the response. Codec failures are scoped to the record.
func decryptInto(m *model.Message) {
	if m.EncryptedText == "" {
		m.Text = nil
	} else if text, err := encryption.DecryptText(m.EncryptedText); err != nil {
		logger.Errorf("chat: decrypt message %s: %v", m.ID, err)
		m.Text = nil
	} else {
		m.Text = &text
	}
	m.EncryptedText = ""
}

// SendMessage encrypts and stores a message after authorization.
// Attachments have already been uploaded by the attachment adapter; the
// caller passes their descriptors. The plaintext is echoed back to the
// sender only, as a response-shaping convenience rather than a security
// boundary.
func (s *Service) SendMessage(ctx context.Context, conversationID, callerID, text string, attachments []model.Attachment) (*model.Message, error) {
	if _, err := s.guard.Authorize(ctx, conversationID, callerID); err != nil {
		return nil, err
	}
	if text == "" && len(attachments) == 0 {
		return nil, ErrEmptyMessage
	}
	envelope, err := encryption.EncryptText(text)
	if err != nil {
		return nil, fmt.Errorf("chat.SendMessage: encrypt: %w", err)
	}
	msg := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       callerID,
		EncryptedText:  envelope,
		Attachments:    attachments,
	}
	if err := s.msgs.Create(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrEmptyMessage) {
			return nil, ErrEmptyMessage
		}
		return nil, fmt.Errorf("chat.SendMessage: %w", err)
	}
	// The message is already persisted; a failed touch only delays the
	// conversation surfacing in incremental sync until the next send.
	if err := s.convs.TouchLastMessageAt(ctx, conversationID, msg.CreatedAt); err != nil {
		logger.Errorf("chat.SendMessage: touch last_message_at: %v", err)
	}
	if envelope != "" {
		msg.Text = &text
	}
	msg.EncryptedText = ""
	return msg, nil
}

// MarkRead marks all unread messages from the other participant as read.
func (s *Service) MarkRead(ctx context.Context, conversationID, callerID string) (int64, error) {
	if _, err := s.guard.Authorize(ctx, conversationID, callerID); err != nil {
		return 0, err
	}
	n, err := s.msgs.MarkReadFromOther(ctx, conversationID, callerID)
	if err != nil {
		return 0, fmt.Errorf("chat.MarkRead: %w", err)
	}
	return n, nil
}

// DeleteForMe hides a single message for its sender. The action is
// scoped to one message already known to belong to some conversation, so
// only the sender-identity check applies, with no conversation-level guard.
func (s *Service) DeleteForMe(ctx context.Context, messageID, callerID string) error {
	err := s.msgs.SoftDeleteForCaller(ctx, messageID, callerID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrMessageNotFound
	case errors.Is(err, repository.ErrForbidden):
		return ErrNotSender
	case err != nil:
		return fmt.Errorf("chat.DeleteForMe: %w", err)
	}
	return nil
}

// DeleteForEveryone removes the message record and then attempts remote
// cleanup of each attachment independently. Local deletion is the
// contract; a failed remote delete is logged and leaves an orphaned
// object to be reconciled out of band.
func (s *Service) DeleteForEveryone(ctx context.Context, messageID, callerID string) error {
	attachments, err := s.msgs.DeleteForEveryone(ctx, messageID, callerID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrMessageNotFound
	case errors.Is(err, repository.ErrForbidden):
		return ErrNotSender
	case err != nil:
		return fmt.Errorf("chat.DeleteForEveryone: %w", err)
	}
	var failed int
	for _, att := range attachments {
		if att.PublicID == "" || s.files == nil {
			continue
		}
		delCtx, cancel := context.WithTimeout(ctx, attachmentDeleteTimeout)
		err := s.files.Delete(delCtx, att.PublicID, att.ResourceType)
		cancel()
		if err != nil {
			failed++
			logger.Errorf("chat.DeleteForEveryone: delete attachment %s: %v", att.PublicID, err)
		}
	}
	if failed > 0 {
		logger.Errorf("chat.DeleteForEveryone: message %s: %d of %d attachments left orphaned", messageID, failed, len(attachments))
	}
	return nil
}

// CreateConversation opens the chat between a task's uploader and its
// accepted applicant. Invoked by the application-acceptance collaborator
// through the internal endpoint; membership never changes afterwards.
func (s *Service) CreateConversation(ctx context.Context, taskID, applicationID string) (*model.Conversation, error) {
	task, err := s.tasks.GetRef(ctx, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chat.CreateConversation: %w", err)
	}
	if task.AssignedTo == "" {
		return nil, ErrTaskNotAssigned
	}
	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:            uuid.New().String(),
		TaskID:        taskID,
		ApplicationID: applicationID,
		ParticipantA:  task.UploadedBy,
		ParticipantB:  task.AssignedTo,
		Status:        model.ConversationStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("chat.CreateConversation: %w", err)
	}
	return conv, nil
}
