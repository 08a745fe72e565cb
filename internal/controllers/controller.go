package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campus_bus/internal/accounts"
	"campus_bus/internal/config"
	"campus_bus/internal/fees"
	"campus_bus/internal/middleware"
	"campus_bus/internal/tracking"
)

// Controller carries the dependencies shared by every handler.
type Controller struct {
	DB       *gorm.DB
	Tracking *tracking.Service
	Tokens   *middleware.TokenIssuer
	Settings *config.Settings
}

func New(db *gorm.DB, svc *tracking.Service, tokens *middleware.TokenIssuer, settings *config.Settings) *Controller {
	return &Controller{DB: db, Tracking: svc, Tokens: tokens, Settings: settings}
}

var errBadID = errors.New("invalid id")

func parseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		return 0, errBadID
	}
	return uint(id), nil
}

func parseOptionalID(raw string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, errBadID
	}
	v := uint(id)
	return &v, nil
}

func parseBool(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		v := true
		return &v
	case "0", "false", "no", "off":
		v := false
		return &v
	}
	return nil
}

// actingUserID is the id recorded as updated_by on admin writes.
func actingUserID(c *gin.Context) *uint {
	id := middleware.CurrentIdentity(c)
	if !id.Authenticated {
		return nil
	}
	v := id.UserID
	return &v
}

// flashes drains pending session messages.
func flashes(c *gin.Context) []string {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return []string{}
	}
	if err := session.Save(); err != nil {
		logrus.WithError(err).Warn("Could not clear flash messages.")
	}
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func flash(c *gin.Context, msg string) {
	session := sessions.Default(c)
	session.AddFlash(msg)
	if err := session.Save(); err != nil {
		logrus.WithError(err).Warn("Could not save flash message.")
	}
}

// bulkRequest is the body of every admin bulk action.
type bulkRequest struct {
	Action string `json:"action" binding:"required"`
	IDs    []uint `json:"ids" binding:"required,min=1"`
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errBadID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, accounts.ErrNotFound),
		errors.Is(err, fees.ErrNotFound),
		errors.Is(err, fees.ErrStudentNotFound),
		errors.Is(err, tracking.ErrRouteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, accounts.ErrUsernameTaken),
		errors.Is(err, accounts.ErrProfileConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, accounts.ErrInvalidInput),
		errors.Is(err, accounts.ErrInvalidRole),
		errors.Is(err, fees.ErrInvalidInput),
		errors.Is(err, fees.ErrUnknownAction),
		errors.Is(err, tracking.ErrInvalidInput),
		errors.Is(err, tracking.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, fees.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
