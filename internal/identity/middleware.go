package identity

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CookieName is the persistent device token cookie.
	CookieName = "voter_token"
	// CookieMaxAge keeps the token for roughly a year.
	CookieMaxAge = 365 * 24 * 60 * 60
	// ContextKey is where the resolved Identity lives in the gin context.
	ContextKey = "voterIdentity"
)

// Middleware resolves the voter identity for every request and mints a
// persistent device token on first contact.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CookieName)
		if err != nil || uuid.Validate(token) != nil {
			if minted, mintErr := mintToken(); mintErr == nil {
				token = minted
				c.SetCookie(CookieName, token, CookieMaxAge, "/", "", false, true)
			} else {
				token = ""
			}
		}

		c.Set(ContextKey, Identity{
			IP:    ResolveIP(c.Request),
			Token: token,
		})
		c.Next()
	}
}

// FromContext returns the Identity resolved by Middleware. A request
// that skipped the middleware resolves on the spot.
func FromContext(c *gin.Context) Identity {
	if v, ok := c.Get(ContextKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{IP: ResolveIP(c.Request)}
}

func mintToken() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
