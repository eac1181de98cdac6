package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CookieName is the session cookie, HTTP-only with a one-year lifetime.
const CookieName = "sid"

const (
	ctxIdentityKey = "session_identity"
	ctxIDKey       = "session_id"
)

// SetCookie writes the session cookie. Outside dev the cookie is Secure with
// SameSite=None so the browser sends it cross-site from the frontend origin.
func SetCookie(c *gin.Context, id, env string) {
	if env == "dev" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, id, int(Lifetime.Seconds()), "/", "", false, true)
		return
	}
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(CookieName, id, int(Lifetime.Seconds()), "/", "", true, true)
}

func ClearCookie(c *gin.Context, env string) {
	secure := env != "dev"
	c.SetCookie(CookieName, "", -1, "/", "", secure, true)
}

// Middleware resolves the session cookie into the request context. It never
// fails the request; Require does the gating.
func Middleware(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || id == "" {
			c.Next()
			return
		}
		ident, err := store.Get(c.Request.Context(), id)
		if err != nil {
			c.Next()
			return
		}
		c.Set(ctxIDKey, id)
		c.Set(ctxIdentityKey, ident)
		c.Next()
	}
}

// Require aborts with 401 when no authenticated session is present.
func Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := FromContext(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errorMessage": "Not authenticated"})
			return
		}
		c.Next()
	}
}

// FromContext returns the identity resolved by Middleware.
func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return Identity{}, false
	}
	ident, ok := v.(Identity)
	return ident, ok
}

// IDFromContext returns the raw session id, needed to destroy the session.
func IDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
