package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/relaychat/relay-backend/internal/services"
	"github.com/relaychat/relay-backend/internal/types"
)

type MessageHandler struct {
	messages services.MessageService
}

func NewMessageHandler(messages services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type createMessageRequest struct {
	AuthorID    uuid.UUID                 `json:"author_id" binding:"required"`
	ParentID    *uuid.UUID                `json:"parent_id"`
	Content     string                    `json:"content"`
	Attachments []createAttachmentRequest `json:"attachments"`
}

type createAttachmentRequest struct {
	FileName   string `json:"file_name" binding:"required"`
	MimeType   string `json:"mime_type"`
	StorageKey string `json:"storage_key" binding:"required"`
	SizeBytes  int64  `json:"size_bytes"`
}

// POST /api/channels/:id/messages
func (h *MessageHandler) CreateInChannel(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_channel_id", err)
		return
	}
	h.create(c, &channelID, nil)
}

// POST /api/conversations/:id/messages
func (h *MessageHandler) CreateInConversation(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	h.create(c, nil, &conversationID)
}

func (h *MessageHandler) create(c *gin.Context, channelID, conversationID *uuid.UUID) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	input := services.CreateMessageInput{
		AuthorID:       req.AuthorID,
		ChannelID:      channelID,
		ConversationID: conversationID,
		ParentID:       req.ParentID,
		Content:        req.Content,
	}
	for _, a := range req.Attachments {
		input.Attachments = append(input.Attachments, services.CreateAttachmentInput{
			FileName:   a.FileName,
			MimeType:   a.MimeType,
			StorageKey: a.StorageKey,
			SizeBytes:  a.SizeBytes,
		})
	}

	msg, err := h.messages.Create(c.Request.Context(), input)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "message_create_failed", err)
		return
	}
	RespondCreated(c, gin.H{"message": msg})
}

// GET /api/channels/:id/messages
func (h *MessageHandler) ListChannelMessages(c *gin.Context) {
	h.list(c, types.ContextChannel)
}

// GET /api/conversations/:id/messages
func (h *MessageHandler) ListConversationMessages(c *gin.Context) {
	h.list(c, types.ContextConversation)
}

func (h *MessageHandler) list(c *gin.Context, kind types.ContextKind) {
	contextID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_context_id", err)
		return
	}
	msgs, err := h.messages.ListByContext(c.Request.Context(), kind, contextID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "message_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"messages": msgs})
}

// GET /api/messages/:id
func (h *MessageHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_message_id", err)
		return
	}
	msg, err := h.messages.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "message_get_failed", err)
		return
	}
	if msg == nil {
		RespondError(c, http.StatusNotFound, "message_not_found", fmt.Errorf("message %s not found", id))
		return
	}
	RespondOK(c, gin.H{"message": msg})
}
