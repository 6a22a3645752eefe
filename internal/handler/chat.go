package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/taskhub/internal/attachment"
	"github.com/taskhub/internal/chat"
	"github.com/taskhub/internal/logger"
	"github.com/taskhub/internal/middleware"
	"github.com/taskhub/internal/model"
)

type ChatHandler struct {
	svc         *chat.Service
	files       *attachment.Client
	maxFiles    int
	maxFileSize int64
}

func NewChatHandler(svc *chat.Service, files *attachment.Client, maxFiles int, maxFileSize int64) *ChatHandler {
	return &ChatHandler{svc: svc, files: files, maxFiles: maxFiles, maxFileSize: maxFileSize}
}

// writeChatError maps the chat error taxonomy onto HTTP statuses. All
// authorization/ownership failures collapse to 403.
func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case chat.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case chat.IsForbidden(err):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrTaskNotAssigned):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Errorf("chat handler: %v", err)
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

// GetConversations handles GET /api/chat/conversations?updatedSince=
func (h *ChatHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	updatedSince := queryTime(r, "updatedSince")

	convs, err := h.svc.ListConversations(r.Context(), userID, updatedSince)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// GetMessages handles GET /api/chat/conversations/{id}/messages?limit=&before=&after=
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())

	limit := queryInt(r, "limit", 30)
	if limit > 100 {
		limit = 100
	}
	before := queryTime(r, "before")
	after := queryTime(r, "after")

	page, err := h.svc.ListMessages(r.Context(), conversationID, userID, limit, before, after)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// SendMessage handles POST /api/chat/conversations/{id}/messages
// (multipart/form-data: field "text", files "attachments"). Attachments
// are pushed to the file service before the message is stored; limits
// are enforced here so no encryption or store work is wasted.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())

	var text string
	var attachments []model.Attachment

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		maxBody := int64(h.maxFiles)*h.maxFileSize + 1<<20
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		if err := r.ParseMultipartForm(maxBody); err != nil {
			writeError(w, http.StatusBadRequest, "request body too large")
			return
		}
		text = r.FormValue("text")

		files := r.MultipartForm.File["attachments"]
		if len(files) > h.maxFiles {
			writeError(w, http.StatusBadRequest, "You can upload a maximum of 3 attachments per message.")
			return
		}
		for _, fh := range files {
			if fh.Size > h.maxFileSize {
				writeError(w, http.StatusBadRequest, "Each attachment must be 10 MB or smaller.")
				return
			}
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "Failed to read attachment.")
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "Failed to read attachment.")
				return
			}
			mimeType := fh.Header.Get("Content-Type")
			stored, err := h.files.Store(r.Context(), data, fh.Filename, mimeType)
			if err != nil {
				if errors.Is(err, attachment.ErrDisabled) {
					writeError(w, http.StatusBadRequest, "Attachments are not enabled.")
					return
				}
				logger.Errorf("chat handler: store attachment: %v", err)
				writeError(w, http.StatusInternalServerError, "Failed to upload chat attachments.")
				return
			}
			attachments = append(attachments, model.Attachment{
				URL:          stored.URL,
				PublicID:     stored.PublicID,
				Filename:     fh.Filename,
				MimeType:     mimeType,
				Size:         fh.Size,
				ResourceType: stored.ResourceType,
				UploadedAt:   time.Now().UTC(),
			})
		}
	} else {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		text = body.Text
	}

	msg, err := h.svc.SendMessage(r.Context(), conversationID, userID, text, attachments)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": msg})
}

// MarkRead handles PATCH /api/chat/conversations/{id}/read
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())

	if _, err := h.svc.MarkRead(r.Context(), conversationID, userID); err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation marked as read."})
}

// DeleteMessage handles DELETE /api/chat/messages/{messageId} ("delete for me").
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageId")
	userID := middleware.GetUserID(r.Context())

	if err := h.svc.DeleteForMe(r.Context(), messageID, userID); err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message deleted successfully (for this user)."})
}

// DeleteMessageForEveryone handles DELETE /api/chat/messages/{messageId}/for-everyone.
func (h *ChatHandler) DeleteMessageForEveryone(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageId")
	userID := middleware.GetUserID(r.Context())

	if err := h.svc.DeleteForEveryone(r.Context(), messageID, userID); err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Message deleted for everyone successfully.",
		"message_id": messageID,
	})
}

type createConversationRequest struct {
	TaskID        string `json:"task_id"`
	ApplicationID string `json:"application_id"`
}

// CreateConversation handles POST /internal/conversations, invoked by
// the application subsystem when an application is accepted. Guarded by
// middleware.InternalOnly, not user auth.
func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.TaskID == "" || req.ApplicationID == "" {
		writeError(w, http.StatusBadRequest, "task_id and application_id are required")
		return
	}
	conv, err := h.svc.CreateConversation(r.Context(), req.TaskID, req.ApplicationID)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}
