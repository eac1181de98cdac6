package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Khambazarov/realtime-chat-app/internal/models"
	"github.com/Khambazarov/realtime-chat-app/internal/ws"
)

// ChatroomService covers chatroom creation and the listing data the client
// renders: participants, last message and unread count per room.
type ChatroomService struct {
	db  *gorm.DB
	hub *ws.Hub
}

func NewChatroomService(db *gorm.DB, hub *ws.Hub) *ChatroomService {
	return &ChatroomService{db: db, hub: hub}
}

// LastMessage is the preview shown in the chatroom list.
type LastMessage struct {
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatroomDTO struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Participants []string     `json:"participants"`
	LastMessage  *LastMessage `json:"last_message,omitempty"`
	UnreadCount  int64        `json:"unread_count"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Create resolves the member usernames and stores the chatroom with its
// memberships in one transaction. The creator is always a member.
func (s *ChatroomService) Create(ctx context.Context, creatorID, name string, memberUsernames []string) (*ChatroomDTO, error) {
	memberIDs := map[string]struct{}{creatorID: {}}
	if len(memberUsernames) > 0 {
		var users []models.User
		if err := s.db.WithContext(ctx).Select("id", "username").
			Where("username IN ?", memberUsernames).Find(&users).Error; err != nil {
			return nil, err
		}
		if len(users) != len(dedup(memberUsernames)) {
			return nil, ErrUserNotFound
		}
		for _, u := range users {
			memberIDs[u.ID] = struct{}{}
		}
	}

	room := models.Chatroom{Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		now := time.Now()
		for id := range memberIDs {
			member := models.ChatroomMember{ChatroomID: room.ID, UserID: id, LastReadAt: now}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	participants, err := s.participantNames(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	return &ChatroomDTO{
		ID:           room.ID,
		Name:         room.Name,
		Participants: participants,
		CreatedAt:    room.CreatedAt,
		UpdatedAt:    room.UpdatedAt,
	}, nil
}

// ListForUser returns every chatroom the user belongs to, with display data.
func (s *ChatroomService) ListForUser(ctx context.Context, userID string) ([]ChatroomDTO, error) {
	var memberships []models.ChatroomMember
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []ChatroomDTO{}, nil
	}

	roomIDs := make([]string, 0, len(memberships))
	lastRead := make(map[string]time.Time, len(memberships))
	for _, m := range memberships {
		roomIDs = append(roomIDs, m.ChatroomID)
		lastRead[m.ChatroomID] = m.LastReadAt
	}

	var rooms []models.Chatroom
	if err := s.db.WithContext(ctx).Where("id IN ?", roomIDs).
		Order("updated_at desc").Find(&rooms).Error; err != nil {
		return nil, err
	}

	out := make([]ChatroomDTO, 0, len(rooms))
	for _, room := range rooms {
		participants, err := s.participantNames(ctx, room.ID)
		if err != nil {
			return nil, err
		}

		dto := ChatroomDTO{
			ID:           room.ID,
			Name:         room.Name,
			Participants: participants,
			CreatedAt:    room.CreatedAt,
			UpdatedAt:    room.UpdatedAt,
		}

		var last models.Message
		err = s.db.WithContext(ctx).Where("chatroom_id = ?", room.ID).
			Order("created_at desc").First(&last).Error
		if err == nil {
			var sender models.User
			senderName := ""
			if err := s.db.WithContext(ctx).Select("username").First(&sender, "id = ?", last.SenderID).Error; err == nil {
				senderName = sender.Username
			}
			dto.LastMessage = &LastMessage{Content: last.Content, Sender: senderName, CreatedAt: last.CreatedAt}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		if err := s.db.WithContext(ctx).Model(&models.Message{}).
			Where("chatroom_id = ? AND sender_id <> ? AND created_at > ?", room.ID, userID, lastRead[room.ID]).
			Count(&dto.UnreadCount).Error; err != nil {
			return nil, err
		}

		out = append(out, dto)
	}
	return out, nil
}

// MarkRead resets the unread counter for the caller in one chatroom. A
// malformed id is treated as an unknown room before it reaches the uuid-typed
// column.
func (s *ChatroomService) MarkRead(ctx context.Context, userID, chatroomID string) error {
	if _, err := uuid.Parse(chatroomID); err != nil {
		return ErrChatroomNotFound
	}
	res := s.db.WithContext(ctx).Model(&models.ChatroomMember{}).
		Where("chatroom_id = ? AND user_id = ?", chatroomID, userID).
		Update("last_read_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrChatroomNotFound
	}
	return nil
}

func (s *ChatroomService) participantNames(ctx context.Context, chatroomID string) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&models.ChatroomMember{}).
		Joins("JOIN users ON users.id = chatroom_members.user_id").
		Where("chatroom_members.chatroom_id = ?", chatroomID).
		Order("users.username").
		Pluck("users.username", &names).Error
	return names, err
}

func dedup(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
