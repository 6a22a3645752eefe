package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskhub/internal/logger"
	"github.com/taskhub/internal/model"
	"github.com/taskhub/internal/repository"
	"github.com/taskhub/internal/storage"
)

// ConversationStore is what the chat core needs from conversation
// persistence. Implemented by repository.ConversationRepository.
type ConversationStore interface {
	Create(ctx context.Context, c *model.Conversation) error
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID string, updatedSince *time.Time) ([]model.Conversation, error)
	TouchLastMessageAt(ctx context.Context, id string, t time.Time) error
}

// TaskLookup resolves the chat-relevant slice of a task.
// Implemented by repository.TaskRepository.
type TaskLookup interface {
	GetRef(ctx context.Context, id string) (*model.TaskRef, error)
}

// Guard decides whether a caller may act on a conversation. Chat access
// is derived, not stored: the linked task's current status is the single
// source of truth for whether a conversation is live, so there is no
// second state machine to drift out of sync with the task lifecycle.
type Guard struct {
	convs ConversationStore
	tasks TaskLookup
	cache storage.TaskStatusCache
	ttl   time.Duration
}

func NewGuard(convs ConversationStore, tasks TaskLookup, cache storage.TaskStatusCache, ttl time.Duration) *Guard {
	return &Guard{convs: convs, tasks: tasks, cache: cache, ttl: ttl}
}

// Authorize is read-only and runs before every per-conversation
// operation; no operation bypasses it.
func (g *Guard) Authorize(ctx context.Context, conversationID, callerID string) (*model.Conversation, error) {
	conv, err := g.convs.GetByID(ctx, conversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}
	if !conv.HasParticipant(callerID) {
		return nil, ErrNotParticipant
	}
	task, err := g.taskRef(ctx, conv.TaskID)
	if err != nil {
		return nil, err
	}
	if !task.Status.ChatEligible() {
		return nil, ErrChatUnavailable
	}
	return conv, nil
}

// taskRef resolves the task through the short-TTL cache. Cache errors
// count as misses; the lookup itself is authoritative.
func (g *Guard) taskRef(ctx context.Context, taskID string) (*model.TaskRef, error) {
	if g.cache != nil {
		ref, err := g.cache.GetTaskRef(ctx, taskID)
		if err != nil {
			logger.Errorf("guard: task cache get: %v", err)
		} else if ref != nil {
			return ref, nil
		}
	}
	ref, err := g.tasks.GetRef(ctx, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		// Dangling task reference: collapsed into Forbidden at the
		// handler, same as an ineligible status.
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("guard: task lookup: %w", err)
	}
	if g.cache != nil {
		if err := g.cache.SetTaskRef(ctx, ref, g.ttl); err != nil {
			logger.Errorf("guard: task cache set: %v", err)
		}
	}
	return ref, nil
}
