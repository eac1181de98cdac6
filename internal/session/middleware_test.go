package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// memStore is an in-memory Store for middleware tests.
type memStore struct {
	sessions map[string]Identity
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]Identity)}
}

func (s *memStore) Create(ctx context.Context, ident Identity) (string, error) {
	id := uuid.NewString()
	s.sessions[id] = ident
	return id, nil
}

func (s *memStore) Get(ctx context.Context, id string) (Identity, error) {
	ident, ok := s.sessions[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return ident, nil
}

func (s *memStore) Destroy(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func setupRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(store))
	r.GET("/open", func(c *gin.Context) {
		if ident, ok := FromContext(c); ok {
			c.JSON(http.StatusOK, gin.H{"username": ident.Username})
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": ""})
	})
	authed := r.Group("", Require())
	authed.GET("/protected", func(c *gin.Context) {
		ident, _ := FromContext(c)
		c.JSON(http.StatusOK, gin.H{"username": ident.Username})
	})
	return r
}

func TestMiddleware_NoCookie(t *testing.T) {
	r := setupRouter(newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"username":""`) {
		t.Errorf("expected anonymous identity, got %s", w.Body.String())
	}
}

func TestMiddleware_ValidSession(t *testing.T) {
	store := newMemStore()
	id, err := store.Create(context.Background(), Identity{UserID: "u1", Username: "alice", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	r := setupRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: id})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "alice") {
		t.Errorf("expected alice in body, got %s", w.Body.String())
	}
}

func TestRequire_MissingSession(t *testing.T) {
	r := setupRouter(newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequire_UnknownSessionID(t *testing.T) {
	r := setupRouter(newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "no-such-session"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequire_DestroyedSession(t *testing.T) {
	store := newMemStore()
	id, _ := store.Create(context.Background(), Identity{UserID: "u1", Username: "alice"})
	if err := store.Destroy(context.Background(), id); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	r := setupRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: id})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after destroy, got %d", w.Code)
	}
}

func TestSetCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/login", func(c *gin.Context) {
		SetCookie(c, "abc123", "dev")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	cookie := w.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, CookieName+"=abc123") {
		t.Errorf("Set-Cookie missing session id: %s", cookie)
	}
	if !strings.Contains(cookie, "HttpOnly") {
		t.Errorf("Set-Cookie not HttpOnly: %s", cookie)
	}
}

func TestClearCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/logout", func(c *gin.Context) {
		ClearCookie(c, "dev")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	cookie := w.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, CookieName+"=") {
		t.Errorf("Set-Cookie should clear the session cookie: %s", cookie)
	}
	if !strings.Contains(cookie, "Max-Age=0") {
		t.Errorf("expected expired cookie, got %s", cookie)
	}
}
