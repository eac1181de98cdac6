package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Khambazarov/realtime-chat-app/internal/service"
	"github.com/Khambazarov/realtime-chat-app/internal/session"
)

// CreateChatroom starts a new chatroom with the caller and the named members.
func (h *Handler) CreateChatroom(c *gin.Context) {
	ident, _ := session.FromContext(c)
	var req struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid payload"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid chatroom name"})
		return
	}

	room, err := h.roomSvc.Create(c.Request.Context(), ident.UserID, req.Name, req.Members)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"errorMessage": "User not found"})
			return
		}
		log.Error().Err(err).Str("user_id", ident.UserID).Str("name", req.Name).Msg("create chatroom")
		c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"chatroom": room})
}

// ListChatrooms returns the caller's chatrooms with display data.
func (h *Handler) ListChatrooms(c *gin.Context) {
	ident, _ := session.FromContext(c)
	rooms, err := h.roomSvc.ListForUser(c.Request.Context(), ident.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", ident.UserID).Msg("list chatrooms")
		c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatrooms": rooms})
}

// MarkChatroomRead resets the caller's unread counter for one chatroom.
func (h *Handler) MarkChatroomRead(c *gin.Context) {
	ident, _ := session.FromContext(c)
	chatroomID := c.Param("id")

	if err := h.roomSvc.MarkRead(c.Request.Context(), ident.UserID, chatroomID); err != nil {
		if errors.Is(err, service.ErrChatroomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"errorMessage": "Chatroom not found"})
			return
		}
		log.Error().Err(err).Str("user_id", ident.UserID).Str("chatroom_id", chatroomID).Msg("mark chatroom read")
		c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chatroom marked as read"})
}

// CreateMessage stores a message and fans it out to the chatroom's group.
func (h *Handler) CreateMessage(c *gin.Context) {
	ident, _ := session.FromContext(c)
	var req struct {
		ChatroomID string `json:"chatroomId"`
		Content    string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatroomID == "" || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid payload"})
		return
	}

	msg, err := h.msgSvc.Create(c.Request.Context(), ident.UserID, ident.Username, req.ChatroomID, req.Content)
	if err != nil {
		h.writeMessageError(c, err, ident.UserID, "create message")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// ListMessages returns a chatroom's messages, oldest first.
func (h *Handler) ListMessages(c *gin.Context) {
	ident, _ := session.FromContext(c)
	chatroomID := c.Query("chatroomId")
	if chatroomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "missing chatroomId"})
		return
	}
	limit := 50
	if ls := c.Query("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil {
			limit = v
		}
	}

	msgs, err := h.msgSvc.ListByChatroom(c.Request.Context(), ident.UserID, chatroomID, limit)
	if err != nil {
		h.writeMessageError(c, err, ident.UserID, "list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// UpdateMessage edits the caller's own message.
func (h *Handler) UpdateMessage(c *gin.Context) {
	ident, _ := session.FromContext(c)
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid payload"})
		return
	}

	msg, err := h.msgSvc.Update(c.Request.Context(), ident.UserID, ident.Username, c.Param("id"), req.Content)
	if err != nil {
		h.writeMessageError(c, err, ident.UserID, "update message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// DeleteMessage removes the caller's own message.
func (h *Handler) DeleteMessage(c *gin.Context) {
	ident, _ := session.FromContext(c)

	if err := h.msgSvc.Delete(c.Request.Context(), ident.UserID, c.Param("id")); err != nil {
		h.writeMessageError(c, err, ident.UserID, "delete message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}

func (h *Handler) writeMessageError(c *gin.Context, err error, userID, op string) {
	switch {
	case errors.Is(err, service.ErrChatroomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"errorMessage": "Chatroom not found"})
	case errors.Is(err, service.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"errorMessage": "Message not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"errorMessage": "Not allowed"})
	default:
		log.Error().Err(err).Str("user_id", userID).Msg(op)
		c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
	}
}
