package service

import "errors"

// Business-level errors; handlers map them onto HTTP statuses with errors.Is.
var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordMismatch   = errors.New("old password does not match")
	ErrCodeMismatch       = errors.New("code does not match")
	ErrInvalidPreference  = errors.New("invalid preference value")
	ErrChatroomNotFound   = errors.New("chatroom not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrForbidden          = errors.New("not allowed")
)
