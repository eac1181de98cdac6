package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Khambazarov/realtime-chat-app/internal/metrics"
	"github.com/Khambazarov/realtime-chat-app/internal/models"
	"github.com/Khambazarov/realtime-chat-app/internal/ws"
)

// MessageService owns message CRUD. Every mutation broadcasts a room-scoped
// event so connected members see it live.
type MessageService struct {
	db  *gorm.DB
	hub *ws.Hub
}

func NewMessageService(db *gorm.DB, hub *ws.Hub) *MessageService {
	return &MessageService{db: db, hub: hub}
}

type MessageDTO struct {
	ID         string    `json:"id"`
	ChatroomID string    `json:"chatroom_id"`
	SenderID   string    `json:"sender_id"`
	Sender     string    `json:"sender"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Create stores a message from a chatroom member and emits "message" to the
// room's broadcast group.
func (s *MessageService) Create(ctx context.Context, senderID, senderName, chatroomID, content string) (*MessageDTO, error) {
	if err := s.requireMembership(ctx, senderID, chatroomID); err != nil {
		return nil, err
	}

	msg := models.Message{ChatroomID: chatroomID, SenderID: senderID, Content: content}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	// Bump the room so it sorts to the top of the listing.
	if err := s.db.WithContext(ctx).Model(&models.Chatroom{}).Where("id = ?", chatroomID).
		Update("updated_at", msg.CreatedAt).Error; err != nil {
		log.Error().Err(err).Str("chatroom_id", chatroomID).Msg("bump chatroom")
	}

	metrics.MessagesTotal.Inc()
	dto := s.toDTO(msg, senderName)
	s.hub.Broadcast(chatroomID, "message", dto)
	return &dto, nil
}

// ListByChatroom returns the room's messages in ascending order, gated on
// membership.
func (s *MessageService) ListByChatroom(ctx context.Context, userID, chatroomID string, limit int) ([]MessageDTO, error) {
	if err := s.requireMembership(ctx, userID, chatroomID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var msgs []models.Message
	if err := s.db.WithContext(ctx).Where("chatroom_id = ?", chatroomID).
		Order("created_at desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	usernames, err := s.resolveUsernames(ctx, msgs)
	if err != nil {
		return nil, err
	}

	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.toDTO(m, usernames[m.SenderID]))
	}
	return out, nil
}

// Update edits the caller's own message and emits "message-update".
func (s *MessageService) Update(ctx context.Context, userID, userName, messageID, content string) (*MessageDTO, error) {
	if _, err := uuid.Parse(messageID); err != nil {
		return nil, ErrMessageNotFound
	}
	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, ErrForbidden
	}

	if err := s.db.WithContext(ctx).Model(&msg).Update("content", content).Error; err != nil {
		return nil, err
	}
	dto := s.toDTO(msg, userName)
	s.hub.Broadcast(msg.ChatroomID, "message-update", dto)
	return &dto, nil
}

// Delete removes the caller's own message and emits "message-delete".
func (s *MessageService) Delete(ctx context.Context, userID, messageID string) error {
	if _, err := uuid.Parse(messageID); err != nil {
		return ErrMessageNotFound
	}
	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	if msg.SenderID != userID {
		return ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(&models.Message{}, "id = ?", messageID).Error; err != nil {
		return err
	}
	s.hub.Broadcast(msg.ChatroomID, "message-delete", map[string]string{
		"id":          msg.ID,
		"chatroom_id": msg.ChatroomID,
	})
	return nil
}

// requireMembership gates message access. The id is validated before it hits a
// uuid-typed column; Postgres rejects malformed uuids with a type error rather
// than an empty result.
func (s *MessageService) requireMembership(ctx context.Context, userID, chatroomID string) error {
	if _, err := uuid.Parse(chatroomID); err != nil {
		return ErrChatroomNotFound
	}
	var room models.Chatroom
	if err := s.db.WithContext(ctx).First(&room, "id = ?", chatroomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatroomNotFound
		}
		return err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ChatroomMember{}).
		Where("chatroom_id = ? AND user_id = ?", chatroomID, userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrForbidden
	}
	return nil
}

func (s *MessageService) resolveUsernames(ctx context.Context, msgs []models.Message) (map[string]string, error) {
	seen := make(map[string]struct{}, len(msgs))
	senderIDs := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; ok {
			continue
		}
		seen[m.SenderID] = struct{}{}
		senderIDs = append(senderIDs, m.SenderID)
	}

	usernames := make(map[string]string, len(senderIDs))
	if len(senderIDs) > 0 {
		var users []models.User
		if err := s.db.WithContext(ctx).Select("id", "username").
			Where("id IN ?", senderIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			usernames[u.ID] = u.Username
		}
	}
	return usernames, nil
}

func (s *MessageService) toDTO(m models.Message, senderName string) MessageDTO {
	return MessageDTO{
		ID:         m.ID,
		ChatroomID: m.ChatroomID,
		SenderID:   m.SenderID,
		Sender:     senderName,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
