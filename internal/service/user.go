package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Khambazarov/realtime-chat-app/internal/auth"
	"github.com/Khambazarov/realtime-chat-app/internal/models"
	"github.com/Khambazarov/realtime-chat-app/internal/session"
	"github.com/Khambazarov/realtime-chat-app/internal/ws"
)

// Mailer is the outbound-mail collaborator. Implementations dispatch
// asynchronously and never surface delivery failures to the caller.
type Mailer interface {
	SendVerification(email, code string)
	SendReset(email, code string)
}

// Volumes and languages a user may choose from.
var (
	Volumes   = []string{"silent", "middle", "full"}
	Languages = []string{"en", "de"}
)

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// UserService owns the auth workflow: registration, verification, login,
// password lifecycle, preferences and account deletion.
type UserService struct {
	db       *gorm.DB
	sessions session.Store
	mailer   Mailer
	hub      *ws.Hub
}

func NewUserService(db *gorm.DB, sessions session.Store, mailer Mailer, hub *ws.Hub) *UserService {
	return &UserService{db: db, sessions: sessions, mailer: mailer, hub: hub}
}

// Register stores a new unverified user and mails the verification code. The
// caller is not logged in afterwards.
func (s *UserService) Register(ctx context.Context, email, username, password, language string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	code, err := auth.GenerateCode(auth.CodeLength)
	if err != nil {
		return err
	}
	if !contains(Languages, language) {
		language = "en"
	}
	user := models.User{
		Email:           email,
		Username:        username,
		PasswordHash:    hash,
		VerificationKey: &code,
		Language:        language,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return err
	}

	s.mailer.SendVerification(email, code)
	return nil
}

// VerifyResult reports the outcome of an email verification attempt.
type VerifyResult struct {
	AlreadyVerified bool
}

// VerifyEmail consumes the verification code. Match-and-clear happens in a
// single conditional update; a second verification attempt reports
// AlreadyVerified instead of failing.
func (s *UserService) VerifyEmail(ctx context.Context, email, code string) (*VerifyResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Verified {
		return &VerifyResult{AlreadyVerified: true}, nil
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND verification_key = ?", email, code).
		Updates(map[string]interface{}{"verified": true, "verification_key": nil})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrCodeMismatch
	}
	return &VerifyResult{}, nil
}

// LoginResult is either an established session or a pending-verification
// notice for a correct login on an unverified account.
type LoginResult struct {
	SessionID           string
	Identity            session.Identity
	VerificationPending bool
}

// Login checks the credentials and establishes a session. Unknown email and
// wrong password yield the same error so the response leaks neither.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Verified {
		return &LoginResult{VerificationPending: true}, nil
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	ident := session.Identity{UserID: user.ID, Username: user.Username, Email: user.Email}
	sid, err := s.sessions.Create(ctx, ident)
	if err != nil {
		return nil, err
	}
	return &LoginResult{SessionID: sid, Identity: ident}, nil
}

// Profile is the public view of the caller's own account.
type Profile struct {
	Username           string    `json:"username"`
	Email              string    `json:"usermail"`
	DateOfRegistration time.Time `json:"dateOfRegistration"`
	Volume             string    `json:"volume"`
	Language           string    `json:"language"`
}

func (s *UserService) CurrentUser(ctx context.Context, userID string) (*Profile, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &Profile{
		Username:           user.Username,
		Email:              user.Email,
		DateOfRegistration: user.CreatedAt,
		Volume:             user.Volume,
		Language:           user.Language,
	}, nil
}

// UpdatePassword re-hashes and stores the new password after checking the
// old one.
func (s *UserService) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !auth.VerifyPassword(user.PasswordHash, oldPassword) {
		return ErrPasswordMismatch
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("password_hash", hash).Error
}

// DeleteAccount removes the user's messages and memberships, forcibly closes
// the user's realtime connections, then deletes the identity record. The
// order keeps live connections from referencing a vanished user.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sender_id = ?", userID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.ChatroomMember{}).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.hub.DisconnectGroup(userID)

	return s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", userID).Error
}

// RequestPasswordReset stores a fresh reset code and mails it. A repeated
// request overwrites the previous code, so only the latest one is valid.
// Existing sessions stay untouched.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	code, err := auth.GenerateCode(auth.CodeLength)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).
		Update("reset_key", code).Error; err != nil {
		return err
	}

	s.mailer.SendReset(email, code)
	return nil
}

// ConfirmPasswordReset consumes the reset code and stores the new password
// hash. Match-and-clear is one conditional update, so a code is consumed
// exactly once.
func (s *UserService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND reset_key = ?", email, code).
		Updates(map[string]interface{}{"password_hash": hash, "reset_key": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCodeMismatch
	}
	return nil
}

// UpdateVolume persists the notification volume preference.
func (s *UserService) UpdateVolume(ctx context.Context, userID, volume string) error {
	if !contains(Volumes, volume) {
		return ErrInvalidPreference
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("volume", volume)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateLanguage persists the UI language preference.
func (s *UserService) UpdateLanguage(ctx context.Context, userID, language string) error {
	if !contains(Languages, language) {
		return ErrInvalidPreference
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("language", language)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
