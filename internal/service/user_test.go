package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Khambazarov/realtime-chat-app/internal/models"
)

func TestRegister_DuplicateUsernameAndEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.users.Register(ctx, "a@x.com", "alice", "pw1234", "en"))

	err := env.users.Register(ctx, "other@x.com", "alice", "pw1234", "en")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	err = env.users.Register(ctx, "a@x.com", "someone", "pw1234", "en")
	assert.ErrorIs(t, err, ErrEmailTaken)

	// Failed attempts must not have created records.
	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegister_StoresUnverifiedUserWithCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.users.Register(ctx, "a@x.com", "alice", "pw1234", "de"))

	var user models.User
	require.NoError(t, env.db.Where("email = ?", "a@x.com").First(&user).Error)
	assert.False(t, user.Verified)
	require.NotNil(t, user.VerificationKey)
	assert.Equal(t, env.mailer.verificationCode("a@x.com"), *user.VerificationKey)
	assert.Equal(t, "de", user.Language)
	assert.NotEqual(t, "pw1234", user.PasswordHash)
}

func TestVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.users.Register(ctx, "a@x.com", "alice", "pw1234", "en"))
	code := env.mailer.verificationCode("a@x.com")

	_, err := env.users.VerifyEmail(ctx, "missing@x.com", code)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.users.VerifyEmail(ctx, "a@x.com", "wrongcode")
	assert.ErrorIs(t, err, ErrCodeMismatch)

	result, err := env.users.VerifyEmail(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.False(t, result.AlreadyVerified)

	// Verified flag set and the code cleared in the same update.
	var user models.User
	require.NoError(t, env.db.Where("email = ?", "a@x.com").First(&user).Error)
	assert.True(t, user.Verified)
	assert.Nil(t, user.VerificationKey)

	// Verifying twice reports already-verified instead of an error.
	result, err = env.users.VerifyEmail(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.True(t, result.AlreadyVerified)
}

func TestLogin_UnverifiedAccountGetsNoSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.users.Register(ctx, "a@x.com", "alice", "pw1234", "en"))

	result, err := env.users.Login(ctx, "a@x.com", "pw1234")
	require.NoError(t, err)
	assert.True(t, result.VerificationPending)
	assert.Empty(t, result.SessionID)
	assert.Empty(t, env.sessions.sessions)
}

func TestLogin_IdenticalErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.com", "alice", "pw1234")

	_, errUnknown := env.users.Login(ctx, "nobody@x.com", "pw1234")
	_, errWrongPw := env.users.Login(ctx, "a@x.com", "not-the-password")

	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.com", "alice", "pw1234")

	result, err := env.users.Login(ctx, "a@x.com", "pw1234")
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "alice", result.Identity.Username)

	ident, err := env.sessions.Get(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", ident.Email)
}

func TestRegistrationScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.users.Register(ctx, "a@x.com", "alice", "pw1", "en"))

	// Login before verification: pending notice, no session.
	result, err := env.users.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	assert.True(t, result.VerificationPending)

	// Wrong code fails, right code verifies.
	_, err = env.users.VerifyEmail(ctx, "a@x.com", "badbadba")
	assert.ErrorIs(t, err, ErrCodeMismatch)
	_, err = env.users.VerifyEmail(ctx, "a@x.com", env.mailer.verificationCode("a@x.com"))
	require.NoError(t, err)

	result, err = env.users.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	assert.False(t, result.VerificationPending)
	assert.NotEmpty(t, result.SessionID)
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.registerVerified(t, "a@x.com", "alice", "pw1234")

	err := env.users.UpdatePassword(ctx, userID, "wrong-old", "newpw123")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	require.NoError(t, env.users.UpdatePassword(ctx, userID, "pw1234", "newpw123"))

	_, err = env.users.Login(ctx, "a@x.com", "pw1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.users.Login(ctx, "a@x.com", "newpw123")
	assert.NoError(t, err)
}

func TestPasswordReset_OnlyLatestCodeValid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.com", "alice", "pw1234")

	assert.ErrorIs(t, env.users.RequestPasswordReset(ctx, "missing@x.com"), ErrUserNotFound)

	require.NoError(t, env.users.RequestPasswordReset(ctx, "a@x.com"))
	staleCode := env.mailer.resetCode("a@x.com")
	require.NoError(t, env.users.RequestPasswordReset(ctx, "a@x.com"))
	currentCode := env.mailer.resetCode("a@x.com")
	require.NotEqual(t, staleCode, currentCode)

	// The earlier code was overwritten and no longer works.
	err := env.users.ConfirmPasswordReset(ctx, "a@x.com", staleCode, "resetpw1")
	assert.ErrorIs(t, err, ErrCodeMismatch)

	require.NoError(t, env.users.ConfirmPasswordReset(ctx, "a@x.com", currentCode, "resetpw1"))

	// The code is consumed exactly once; replay fails.
	err = env.users.ConfirmPasswordReset(ctx, "a@x.com", currentCode, "resetpw2")
	assert.ErrorIs(t, err, ErrCodeMismatch)

	_, err = env.users.Login(ctx, "a@x.com", "resetpw1")
	assert.NoError(t, err)
}

func TestUpdatePreferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.registerVerified(t, "a@x.com", "alice", "pw1234")

	assert.ErrorIs(t, env.users.UpdateVolume(ctx, userID, "loud"), ErrInvalidPreference)
	assert.ErrorIs(t, env.users.UpdateLanguage(ctx, userID, "fr"), ErrInvalidPreference)

	// Rejected values leave the stored preferences unchanged.
	profile, err := env.users.CurrentUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "middle", profile.Volume)
	assert.Equal(t, "en", profile.Language)

	require.NoError(t, env.users.UpdateVolume(ctx, userID, "silent"))
	require.NoError(t, env.users.UpdateLanguage(ctx, userID, "de"))

	profile, err = env.users.CurrentUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "silent", profile.Volume)
	assert.Equal(t, "de", profile.Language)
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	aliceID := env.registerVerified(t, "a@x.com", "alice", "pw1234")
	env.registerVerified(t, "b@x.com", "bob", "pw1234")

	room, err := env.rooms.Create(ctx, aliceID, "general", []string{"bob"})
	require.NoError(t, err)
	_, err = env.messages.Create(ctx, aliceID, "alice", room.ID, "hello")
	require.NoError(t, err)

	require.NoError(t, env.users.DeleteAccount(ctx, aliceID))

	// No messages authored by the deleted user remain.
	var msgCount int64
	require.NoError(t, env.db.Model(&models.Message{}).Where("sender_id = ?", aliceID).Count(&msgCount).Error)
	assert.Zero(t, msgCount)

	// The identity record is gone.
	_, err = env.users.CurrentUser(ctx, aliceID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	// No realtime connections remain in the user's group.
	assert.Zero(t, env.hub.Online(aliceID))

	assert.ErrorIs(t, env.users.DeleteAccount(ctx, aliceID), ErrUserNotFound)
}
