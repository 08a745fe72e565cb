package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"campus_bus/internal/access"
	"campus_bus/internal/models"
)

// Responder renders a denied gate decision.
type Responder func(c *gin.Context, id access.Identity, d access.Decision)

// RequireRole is the single access middleware; the responder decides how a
// denial looks to the client.
func RequireRole(role models.Role, respond Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := CurrentIdentity(c)
		d := access.Check(id, role)
		if d.Allowed {
			c.Next()
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":  id.UserID,
			"required": role,
			"reason":   d.Reason,
			"path":     c.Request.URL.Path,
		}).Info("Access denied.")
		respond(c, id, d)
		c.Abort()
	}
}

// PageDenied flashes the reason into the session and sends the browser to
// the login page.
func PageDenied(c *gin.Context, _ access.Identity, d access.Decision) {
	session := sessions.Default(c)
	session.AddFlash(d.Reason)
	if err := session.Save(); err != nil {
		logrus.WithError(err).Warn("Could not save flash message.")
	}
	c.Redirect(http.StatusFound, "/")
}

// APIDenied answers 401 for anonymous callers and 403 with forbidden (or the
// gate's reason when empty) for everyone else.
func APIDenied(forbidden string) Responder {
	return func(c *gin.Context, id access.Identity, d access.Decision) {
		if !id.Authenticated {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		msg := forbidden
		if msg == "" {
			msg = d.Reason
		}
		c.JSON(http.StatusForbidden, gin.H{"error": msg})
	}
}
