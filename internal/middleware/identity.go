package middleware

import (
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"campus_bus/internal/access"
	"campus_bus/internal/accounts"
)

const (
	// SessionUserKey is the session field holding the logged-in account id.
	SessionUserKey = "user_id"

	identityKey = "identity"
	cacheKey    = "identity_cache"
)

// LoadIdentity resolves the requester from the session cookie or, failing
// that, a bearer token. Anonymous requests pass through untouched.
func LoadIdentity(cache *accounts.IdentityCache, tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(cacheKey, cache)

		userID := sessionUserID(c)
		if userID == 0 {
			if raw := bearerToken(c); raw != "" {
				claims, err := tokens.ValidateToken(raw)
				if err != nil {
					logrus.WithError(err).Debug("Rejected bearer token.")
				} else {
					userID = claims.UserID
				}
			}
		}

		id := access.Anonymous()
		if userID != 0 {
			found, err := cache.Lookup(c.Request.Context(), userID)
			switch {
			case err == nil:
				id = found
			case errors.Is(err, accounts.ErrNotFound):
				logrus.WithField("user_id", userID).Debug("Identity refers to a missing or disabled account.")
			default:
				logrus.WithError(err).WithField("user_id", userID).Error("Identity lookup failed.")
			}
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func sessionUserID(c *gin.Context) uint {
	switch v := sessions.Default(c).Get(SessionUserKey).(type) {
	case uint:
		return v
	case int:
		return uint(v)
	case int64:
		return uint(v)
	case float64:
		return uint(v)
	}
	return 0
}

// CurrentIdentity returns the identity LoadIdentity stored on the context.
func CurrentIdentity(c *gin.Context) access.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(access.Identity); ok {
			return id
		}
	}
	return access.Anonymous()
}

// InvalidateIdentity drops a cached account after it was written.
func InvalidateIdentity(c *gin.Context, userID uint) {
	if v, ok := c.Get(cacheKey); ok {
		if cache, ok := v.(*accounts.IdentityCache); ok {
			cache.Invalidate(userID)
		}
	}
}
