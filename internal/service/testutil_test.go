package service

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Khambazarov/realtime-chat-app/internal/db"
	"github.com/Khambazarov/realtime-chat-app/internal/session"
	"github.com/Khambazarov/realtime-chat-app/internal/ws"
)

// testDB connects to the local test database or skips, mirroring how the
// router test handles an absent database.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=chatapp_test port=5432 sslmode=disable TimeZone=UTC"
	}
	gdb, err := db.Connect(dsn)
	if err != nil {
		t.Skipf("skip: db not available: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Skipf("skip: migrate failed: %v", err)
	}
	for _, table := range []string{"messages", "chatroom_members", "chatrooms", "users"} {
		if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("clean table %s: %v", table, err)
		}
	}
	return gdb
}

// fakeMailer records dispatched codes instead of sending mail.
type fakeMailer struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{verification: make(map[string]string), reset: make(map[string]string)}
}

func (m *fakeMailer) SendVerification(email, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[email] = code
}

func (m *fakeMailer) SendReset(email, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[email] = code
}

func (m *fakeMailer) verificationCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verification[email]
}

func (m *fakeMailer) resetCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset[email]
}

// memSessions is an in-memory session store.
type memSessions struct {
	mu       sync.Mutex
	sessions map[string]session.Identity
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]session.Identity)}
}

func (s *memSessions) Create(ctx context.Context, ident session.Identity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.sessions[id] = ident
	return id, nil
}

func (s *memSessions) Get(ctx context.Context, id string) (session.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.sessions[id]
	if !ok {
		return session.Identity{}, session.ErrNotFound
	}
	return ident, nil
}

func (s *memSessions) Destroy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

type testEnv struct {
	db       *gorm.DB
	mailer   *fakeMailer
	sessions *memSessions
	hub      *ws.Hub
	users    *UserService
	rooms    *ChatroomService
	messages *MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := testDB(t)
	mailer := newFakeMailer()
	sessions := newMemSessions()
	hub := ws.NewHub()
	return &testEnv{
		db:       gdb,
		mailer:   mailer,
		sessions: sessions,
		hub:      hub,
		users:    NewUserService(gdb, sessions, mailer, hub),
		rooms:    NewChatroomService(gdb, hub),
		messages: NewMessageService(gdb, hub),
	}
}

// registerVerified registers and verifies a user, returning the user id.
func (e *testEnv) registerVerified(t *testing.T, email, username, password string) string {
	t.Helper()
	ctx := context.Background()
	if err := e.users.Register(ctx, email, username, password, "en"); err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	code := e.mailer.verificationCode(email)
	if code == "" {
		t.Fatalf("no verification code dispatched for %s", email)
	}
	if _, err := e.users.VerifyEmail(ctx, email, code); err != nil {
		t.Fatalf("VerifyEmail(%s) error = %v", email, err)
	}
	result, err := e.users.Login(ctx, email, password)
	if err != nil {
		t.Fatalf("Login(%s) error = %v", email, err)
	}
	return result.Identity.UserID
}
