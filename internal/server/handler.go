package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Khambazarov/realtime-chat-app/internal/service"
	"github.com/Khambazarov/realtime-chat-app/internal/session"
)

// Handler aggregates the HTTP handlers; services and the session store are
// injected at startup, never reached through globals.
type Handler struct {
	userSvc  *service.UserService
	roomSvc  *service.ChatroomService
	msgSvc   *service.MessageService
	sessions session.Store
	env      string
}

func NewHandler(userSvc *service.UserService, roomSvc *service.ChatroomService, msgSvc *service.MessageService, sessions session.Store, env string) *Handler {
	return &Handler{userSvc: userSvc, roomSvc: roomSvc, msgSvc: msgSvc, sessions: sessions, env: env}
}

// Register creates an unverified account and triggers the verification mail.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid payload"})
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid payload"})
		return
	}
	if len(req.Username) < 2 || len(req.Username) > 64 {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid username"})
		return
	}
	if len(req.Password) < 4 || len(req.Password) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid password"})
		return
	}

	err := h.userSvc.Register(c.Request.Context(), req.Email, req.Username, req.Password, req.Language)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"errorMessage": "Username already taken"})
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"errorMessage": "Email already taken"})
		default:
			log.Error().Err(err).Str("username", req.Username).Msg("register")
			c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

// VerifyEmail consumes the emailed verification code.
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		Key   string `json:"key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid payload"})
		return
	}

	result, err := h.userSvc.VerifyEmail(c.Request.Context(), strings.ToLower(req.Email), req.Key)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusConflict, gin.H{"errorMessage": "Email does not exist"})
		case errors.Is(err, service.ErrCodeMismatch):
			c.JSON(http.StatusConflict, gin.H{"message": "Verification failed", "isVerified": false})
		default:
			log.Error().Err(err).Str("email", req.Email).Msg("verify email")
			c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		}
		return
	}
	if result.AlreadyVerified {
		c.JSON(http.StatusOK, gin.H{"message": "Your email is already verified"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User verified successfully", "isVerified": true})
}

// Login establishes a session. Unknown email and wrong password produce the
// same response; a correct login on an unverified account reports pending
// verification without a session.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid payload"})
		return
	}

	result, err := h.userSvc.Login(c.Request.Context(), strings.ToLower(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusNotFound, gin.H{"errorMessage": "Invalid email or password"})
			return
		}
		log.Error().Err(err).Msg("login")
		c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		return
	}
	if result.VerificationPending {
		c.JSON(http.StatusOK, gin.H{"message": "Your email is not verified", "isVerified": false})
		return
	}

	session.SetCookie(c, result.SessionID, h.env)
	c.JSON(http.StatusOK, gin.H{
		"message": "User logged in successfully",
		"user": gin.H{
			"id":       result.Identity.UserID,
			"username": result.Identity.Username,
			"email":    result.Identity.Email,
		},
		"isVerified": true,
	})
}

// CurrentUser returns the caller's profile.
func (h *Handler) CurrentUser(c *gin.Context) {
	ident, _ := session.FromContext(c)
	profile, err := h.userSvc.CurrentUser(c.Request.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"errorMessage": "User not found"})
			return
		}
		log.Error().Err(err).Str("user_id", ident.UserID).Msg("current user")
		c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Logout destroys the session unconditionally and clears the cookie.
func (h *Handler) Logout(c *gin.Context) {
	if sid, ok := session.IDFromContext(c); ok {
		if err := h.sessions.Destroy(c.Request.Context(), sid); err != nil {
			log.Error().Err(err).Msg("destroy session")
			c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
			return
		}
	}
	session.ClearCookie(c, h.env)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// UpdatePassword changes the password after checking the old one.
func (h *Handler) UpdatePassword(c *gin.Context) {
	ident, _ := session.FromContext(c)
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "Enter your old password and new password!"})
		return
	}

	err := h.userSvc.UpdatePassword(c.Request.Context(), ident.UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"errorMessage": "User not found!"})
		case errors.Is(err, service.ErrPasswordMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "Something went wrong, please try again!"})
		default:
			log.Error().Err(err).Str("user_id", ident.UserID).Msg("update password")
			c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})
}

// DeleteAccount removes the user, their messages and live connections, then
// kills the session.
func (h *Handler) DeleteAccount(c *gin.Context) {
	ident, _ := session.FromContext(c)

	if err := h.userSvc.DeleteAccount(c.Request.Context(), ident.UserID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"errorMessage": "User not found"})
			return
		}
		log.Error().Err(err).Str("user_id", ident.UserID).Msg("delete account")
		c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		return
	}

	if sid, ok := session.IDFromContext(c); ok {
		if err := h.sessions.Destroy(c.Request.Context(), sid); err != nil {
			log.Error().Err(err).Msg("destroy session")
		}
	}
	session.ClearCookie(c, h.env)
	c.JSON(http.StatusOK, gin.H{"message": "User has been deleted successfully"})
}

// ForgotPassword generates a reset code and mails it.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid payload"})
		return
	}

	err := h.userSvc.RequestPasswordReset(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "no user found with this email"})
			return
		}
		log.Error().Err(err).Msg("request password reset")
		c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email with new password send"})
}

// ResetPassword consumes the reset code and stores the new password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		Key   string `json:"key"`
		NewPw string `json:"newPw"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Key == "" || req.NewPw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid payload"})
		return
	}

	err := h.userSvc.ConfirmPasswordReset(c.Request.Context(), strings.ToLower(req.Email), req.Key, req.NewPw)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "No user found"})
		case errors.Is(err, service.ErrCodeMismatch):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Key is not correct"})
		default:
			log.Error().Err(err).Msg("confirm password reset")
			c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password successfully changed"})
}

// UpdateVolume sets the notification volume preference.
func (h *Handler) UpdateVolume(c *gin.Context) {
	ident, _ := session.FromContext(c)
	var req struct {
		Volume string `json:"volume"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid payload"})
		return
	}

	err := h.userSvc.UpdateVolume(c.Request.Context(), ident.UserID, req.Volume)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPreference):
			c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "Invalid volume value"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"errorMessage": "User not found"})
		default:
			log.Error().Err(err).Str("user_id", ident.UserID).Msg("update volume")
			c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Volume successfully changed", "volume": req.Volume})
}

// UpdateLanguage sets the UI language preference.
func (h *Handler) UpdateLanguage(c *gin.Context) {
	ident, _ := session.FromContext(c)
	var req struct {
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "invalid payload"})
		return
	}

	err := h.userSvc.UpdateLanguage(c.Request.Context(), ident.UserID, req.Language)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPreference):
			c.JSON(http.StatusBadRequest, gin.H{"errorMessage": "Invalid language"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"errorMessage": "User not found"})
		default:
			log.Error().Err(err).Str("user_id", ident.UserID).Msg("update language")
			c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Language updated successfully", "language": req.Language})
}
