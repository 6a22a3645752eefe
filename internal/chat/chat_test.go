package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/internal/encryption"
	"github.com/taskhub/internal/model"
	"github.com/taskhub/internal/repository"
	"github.com/taskhub/internal/storage/memory"
)

func init() {
	encryption.SetSecret("test-secret")
}

// fakeConvStore keeps conversations in a map and records touches.
type fakeConvStore struct {
	convs   map[string]*model.Conversation
	touched []string
	err     error
}

func newFakeConvStore(convs ...*model.Conversation) *fakeConvStore {
	m := make(map[string]*model.Conversation)
	for _, c := range convs {
		m[c.ID] = c
	}
	return &fakeConvStore{convs: m}
}

func (f *fakeConvStore) Create(ctx context.Context, c *model.Conversation) error {
	if f.err != nil {
		return f.err
	}
	f.convs[c.ID] = c
	return nil
}

func (f *fakeConvStore) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.convs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConvStore) ListForUser(ctx context.Context, userID string, updatedSince *time.Time) ([]model.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Conversation
	for _, c := range f.convs {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConvStore) TouchLastMessageAt(ctx context.Context, id string, t time.Time) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakeTaskLookup struct {
	tasks map[string]*model.TaskRef
	calls int
}

func (f *fakeTaskLookup) GetRef(ctx context.Context, id string) (*model.TaskRef, error) {
	f.calls++
	ref, ok := f.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ref
	return &cp, nil
}

type fakeMsgStore struct {
	created   []*model.Message
	page      []model.Message
	pageErr   error
	marked    int64
	deleted   []string
	delAttach []model.Attachment
	delErr    error
}

func (f *fakeMsgStore) Create(ctx context.Context, m *model.Message) error {
	m.CreatedAt = time.Now().UTC()
	f.created = append(f.created, m)
	return nil
}

func (f *fakeMsgStore) ListPage(ctx context.Context, conversationID, callerID string, limit int, before, after *time.Time) ([]model.Message, error) {
	return f.page, f.pageErr
}

func (f *fakeMsgStore) MarkReadFromOther(ctx context.Context, conversationID, callerID string) (int64, error) {
	return f.marked, nil
}

func (f *fakeMsgStore) SoftDeleteForCaller(ctx context.Context, messageID, callerID string) error {
	return f.delErr
}

func (f *fakeMsgStore) DeleteForEveryone(ctx context.Context, messageID, callerID string) ([]model.Attachment, error) {
	if f.delErr != nil {
		return nil, f.delErr
	}
	f.deleted = append(f.deleted, messageID)
	return f.delAttach, nil
}

type fakeUserLookup struct {
	users map[string]*model.UserPublic
}

func (f *fakeUserLookup) GetPublicByID(ctx context.Context, id string) (*model.UserPublic, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type fakeRemover struct {
	deleted []string
	failFor map[string]bool
}

func (f *fakeRemover) Delete(ctx context.Context, publicID, resourceType string) error {
	if f.failFor[publicID] {
		return errors.New("remote store unavailable")
	}
	f.deleted = append(f.deleted, publicID)
	return nil
}

func activeFixture() (*fakeConvStore, *fakeTaskLookup) {
	convs := newFakeConvStore(&model.Conversation{
		ID:           "conv1",
		TaskID:       "task1",
		ParticipantA: "alice",
		ParticipantB: "bob",
		Status:       model.ConversationStatusActive,
	})
	tasks := &fakeTaskLookup{tasks: map[string]*model.TaskRef{
		"task1": {ID: "task1", Status: model.TaskStatusInProgress, UploadedBy: "alice", AssignedTo: "bob"},
	}}
	return convs, tasks
}

func newTestService(convs *fakeConvStore, tasks *fakeTaskLookup, msgs *fakeMsgStore, users *fakeUserLookup, files *fakeRemover) *Service {
	guard := NewGuard(convs, tasks, nil, time.Minute)
	if users == nil {
		users = &fakeUserLookup{users: map[string]*model.UserPublic{
			"alice": {ID: "alice", Name: "Alice"},
			"bob":   {ID: "bob", Name: "Bob"},
		}}
	}
	return NewService(guard, convs, msgs, users, tasks, files)
}

func TestGuardAuthorize(t *testing.T) {
	convs, tasks := activeFixture()
	guard := NewGuard(convs, tasks, nil, time.Minute)
	ctx := context.Background()

	conv, err := guard.Authorize(ctx, "conv1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "conv1", conv.ID)

	_, err = guard.Authorize(ctx, "missing", "alice")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = guard.Authorize(ctx, "conv1", "mallory")
	assert.ErrorIs(t, err, ErrNotParticipant)
	assert.Equal(t, "You are not a participant in this conversation.", err.Error())
}

func TestGuardTaskStatusGate(t *testing.T) {
	convs, tasks := activeFixture()
	guard := NewGuard(convs, tasks, nil, time.Minute)
	ctx := context.Background()

	for _, status := range []model.TaskStatus{model.TaskStatusOpen, model.TaskStatusCancelled} {
		tasks.tasks["task1"].Status = status
		_, err := guard.Authorize(ctx, "conv1", "alice")
		assert.ErrorIs(t, err, ErrChatUnavailable, string(status))
	}
	for _, status := range []model.TaskStatus{model.TaskStatusInProgress, model.TaskStatusCompleted} {
		tasks.tasks["task1"].Status = status
		_, err := guard.Authorize(ctx, "conv1", "alice")
		assert.NoError(t, err, string(status))
	}
}

func TestGuardDanglingTask(t *testing.T) {
	convs, tasks := activeFixture()
	delete(tasks.tasks, "task1")
	guard := NewGuard(convs, tasks, nil, time.Minute)

	_, err := guard.Authorize(context.Background(), "conv1", "alice")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.True(t, IsForbidden(err))
}

func TestGuardCachesTaskRef(t *testing.T) {
	convs, tasks := activeFixture()
	guard := NewGuard(convs, tasks, memory.New(), time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := guard.Authorize(ctx, "conv1", "alice")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, tasks.calls)
}

func TestSendMessage(t *testing.T) {
	convs, tasks := activeFixture()
	msgs := &fakeMsgStore{}
	svc := newTestService(convs, tasks, msgs, nil, nil)
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, "conv1", "alice", "hello", nil)
	require.NoError(t, err)
	require.NotNil(t, msg.Text)
	assert.Equal(t, "hello", *msg.Text)
	assert.Empty(t, msg.EncryptedText)
	assert.Equal(t, "alice", msg.SenderID)
	assert.NotEmpty(t, msg.ID)

	// The stored record carries the envelope, never the plaintext.
	require.Len(t, msgs.created, 1)
	stored := msgs.created[0]
	assert.NotEqual(t, "hello", stored.EncryptedText)
	assert.Equal(t, []string{"conv1"}, convs.touched)
}

func TestSendMessageEmpty(t *testing.T) {
	convs, tasks := activeFixture()
	msgs := &fakeMsgStore{}
	svc := newTestService(convs, tasks, msgs, nil, nil)

	_, err := svc.SendMessage(context.Background(), "conv1", "alice", "", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, msgs.created)
}

func TestSendMessageAttachmentOnly(t *testing.T) {
	convs, tasks := activeFixture()
	msgs := &fakeMsgStore{}
	svc := newTestService(convs, tasks, msgs, nil, nil)

	att := []model.Attachment{{URL: "/files/x", PublicID: "x", Filename: "x.png"}}
	msg, err := svc.SendMessage(context.Background(), "conv1", "alice", "", att)
	require.NoError(t, err)
	assert.Nil(t, msg.Text)
	assert.Len(t, msg.Attachments, 1)
}

func TestSendMessageNonParticipant(t *testing.T) {
	convs, tasks := activeFixture()
	msgs := &fakeMsgStore{}
	svc := newTestService(convs, tasks, msgs, nil, nil)

	_, err := svc.SendMessage(context.Background(), "conv1", "mallory", "hi", nil)
	assert.ErrorIs(t, err, ErrNotParticipant)
	assert.Empty(t, msgs.created)
}

func TestListMessagesDecrypts(t *testing.T) {
	env, err := encryption.EncryptText("first")
	require.NoError(t, err)

	convs, tasks := activeFixture()
	msgs := &fakeMsgStore{page: []model.Message{
		{ID: "m1", ConversationID: "conv1", SenderID: "alice", EncryptedText: env},
		{ID: "m2", ConversationID: "conv1", SenderID: "bob", EncryptedText: "not:an:envelope"},
		{ID: "m3", ConversationID: "conv1", SenderID: "bob"},
	}}
	svc := newTestService(convs, tasks, msgs, nil, nil)

	page, err := svc.ListMessages(context.Background(), "conv1", "alice", 30, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, page.Recipient)
	assert.Equal(t, "bob", page.Recipient.ID)
	require.Len(t, page.Messages, 3)

	// Valid envelope decrypts.
	require.NotNil(t, page.Messages[0].Text)
	assert.Equal(t, "first", *page.Messages[0].Text)
	// A bad record degrades alone, not the page.
	assert.Nil(t, page.Messages[1].Text)
	// Attachment-only message has no text.
	assert.Nil(t, page.Messages[2].Text)
	for _, m := range page.Messages {
		assert.Empty(t, m.EncryptedText)
	}
}

func TestListConversationsEnriches(t *testing.T) {
	convs, tasks := activeFixture()
	users := &fakeUserLookup{users: map[string]*model.UserPublic{
		"bob": {ID: "bob", Name: "Bob", AvatarURL: "/avatars/bob.png"},
	}}
	svc := newTestService(convs, tasks, &fakeMsgStore{}, users, nil)

	out, err := svc.ListConversations(context.Background(), "alice", nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].OtherUser)
	assert.Equal(t, "Bob", out[0].OtherUser.Name)
}

func TestDeleteForMeErrorMapping(t *testing.T) {
	convs, tasks := activeFixture()
	msgs := &fakeMsgStore{delErr: repository.ErrNotFound}
	svc := newTestService(convs, tasks, msgs, nil, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteForMe(ctx, "m1", "alice"), ErrMessageNotFound)

	msgs.delErr = repository.ErrForbidden
	err := svc.DeleteForMe(ctx, "m1", "alice")
	assert.ErrorIs(t, err, ErrNotSender)
	assert.True(t, IsForbidden(err))

	msgs.delErr = nil
	assert.NoError(t, svc.DeleteForMe(ctx, "m1", "alice"))
}

func TestDeleteForEveryoneCleansAttachments(t *testing.T) {
	convs, tasks := activeFixture()
	msgs := &fakeMsgStore{delAttach: []model.Attachment{
		{PublicID: "a1", ResourceType: "image"},
		{PublicID: "a2", ResourceType: "raw"},
	}}
	files := &fakeRemover{}
	svc := newTestService(convs, tasks, msgs, nil, files)

	require.NoError(t, svc.DeleteForEveryone(context.Background(), "m1", "alice"))
	assert.Equal(t, []string{"a1", "a2"}, files.deleted)
}

func TestDeleteForEveryoneBestEffort(t *testing.T) {
	convs, tasks := activeFixture()
	msgs := &fakeMsgStore{delAttach: []model.Attachment{
		{PublicID: "a1", ResourceType: "image"},
		{PublicID: "a2", ResourceType: "raw"},
		{PublicID: "a3", ResourceType: "image"},
	}}
	files := &fakeRemover{failFor: map[string]bool{"a2": true}}
	svc := newTestService(convs, tasks, msgs, nil, files)

	// One failed remote delete does not fail the operation or stop the loop.
	require.NoError(t, svc.DeleteForEveryone(context.Background(), "m1", "alice"))
	assert.Equal(t, []string{"a1", "a3"}, files.deleted)
}

func TestMarkRead(t *testing.T) {
	convs, tasks := activeFixture()
	msgs := &fakeMsgStore{marked: 4}
	svc := newTestService(convs, tasks, msgs, nil, nil)

	n, err := svc.MarkRead(context.Background(), "conv1", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = svc.MarkRead(context.Background(), "conv1", "mallory")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestCreateConversation(t *testing.T) {
	convs, tasks := activeFixture()
	svc := newTestService(convs, tasks, &fakeMsgStore{}, nil, nil)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "task1", "app1")
	require.NoError(t, err)
	assert.Equal(t, "alice", conv.ParticipantA)
	assert.Equal(t, "bob", conv.ParticipantB)
	assert.Equal(t, model.ConversationStatusActive, conv.Status)
	assert.Equal(t, "app1", conv.ApplicationID)

	_, err = svc.CreateConversation(ctx, "missing", "app1")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	tasks.tasks["task1"].AssignedTo = ""
	_, err = svc.CreateConversation(ctx, "task1", "app2")
	assert.ErrorIs(t, err, ErrTaskNotAssigned)
}
