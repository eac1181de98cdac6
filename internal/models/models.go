package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the identity record. An unverified user carries a VerificationKey;
// verification clears the key and sets Verified in the same update. ResetKey
// exists only between a forgot-password request and its consumption.
type User struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	Email           string  `gorm:"uniqueIndex;size:254;not null"`
	Username        string  `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash    string  `gorm:"not null"`
	Verified        bool    `gorm:"not null;default:false"`
	VerificationKey *string `gorm:"size:16"`
	ResetKey        *string `gorm:"size:16"`
	Volume          string  `gorm:"size:16;not null;default:middle"`
	Language        string  `gorm:"size:8;not null;default:en"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Chatroom struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"size:128;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Chatroom) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ChatroomMember links a user into a chatroom. LastReadAt drives unread counts.
type ChatroomMember struct {
	ID         uint   `gorm:"primaryKey"`
	ChatroomID string `gorm:"type:uuid;uniqueIndex:idx_member_room_user;not null"`
	UserID     string `gorm:"type:uuid;uniqueIndex:idx_member_room_user;index;not null"`
	LastReadAt time.Time
	CreatedAt  time.Time
}

type Message struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	ChatroomID string `gorm:"type:uuid;index:idx_msg_chatroom;not null"`
	SenderID   string `gorm:"type:uuid;index;not null"`
	Content    string `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
