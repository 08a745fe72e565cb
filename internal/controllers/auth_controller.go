package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"campus_bus/internal/accounts"
	"campus_bus/internal/middleware"
	"campus_bus/internal/models"
)

const (
	msgInvalidLogin = "Invalid username or password"
	msgNoRole       = "No role assigned to this user. Contact Admin."
	msgRoleMismatch = "Role mismatch!"
)

type loginInput struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
	Role     string `form:"role" json:"role"`
}

// landingPage is where a freshly logged-in account is sent.
func landingPage(user *models.User) string {
	if user.IsSuperuser {
		return "/admin-panel/"
	}
	switch user.Role {
	case models.RoleDriver:
		return "/driver-tracker/"
	case models.RoleAdmin:
		return "/admin-panel/"
	default:
		return "/home/"
	}
}

// checkLogin authenticates and applies the role-selection rules. The
// returned status is only meaningful when msg is not empty.
func (ctl *Controller) checkLogin(c *gin.Context, in loginInput) (*models.User, int, string) {
	user, err := accounts.Authenticate(c.Request.Context(), ctl.DB, in.Username, in.Password)
	if err != nil {
		if !errors.Is(err, accounts.ErrInvalidCredentials) && !errors.Is(err, accounts.ErrInactive) {
			logrus.WithError(err).Error("Login lookup failed.")
			return nil, http.StatusInternalServerError, "internal server error"
		}
		return nil, http.StatusUnauthorized, msgInvalidLogin
	}
	if user.IsSuperuser {
		return user, 0, ""
	}
	if user.Role == "" {
		return nil, http.StatusForbidden, msgNoRole
	}
	if models.Role(in.Role) != user.Role {
		return nil, http.StatusForbidden, msgRoleMismatch
	}
	return user, 0, ""
}

func startSession(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(middleware.SessionUserKey, user.ID)
	return session.Save()
}

// LoginPage shows the login form data and any pending messages.
func (ctl *Controller) LoginPage(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	c.JSON(http.StatusOK, gin.H{
		"page":          "login",
		"roles":         []models.Role{models.RoleStudent, models.RoleDriver, models.RoleAdmin},
		"authenticated": id.Authenticated,
		"messages":      flashes(c),
	})
}

// Login handles the login form and redirects to the account's dashboard.
func (ctl *Controller) Login(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"page": "login", "messages": []string{msgInvalidLogin}})
		return
	}

	user, status, msg := ctl.checkLogin(c, in)
	if msg != "" {
		c.JSON(status, gin.H{"page": "login", "messages": []string{msg}})
		return
	}

	if err := startSession(c, user); err != nil {
		logrus.WithError(err).Error("Could not save session.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
		return
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User logged in.")
	c.Redirect(http.StatusFound, landingPage(user))
}

// APILogin is the JSON login used by mobile clients; it returns a bearer
// token and also starts a cookie session.
func (ctl *Controller) APILogin(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, status, msg := ctl.checkLogin(c, in)
	if msg != "" {
		c.JSON(status, gin.H{"error": msg})
		return
	}

	token, err := ctl.Tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	if err := startSession(c, user); err != nil {
		logrus.WithError(err).Warn("Could not save session for API login.")
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"redirect": landingPage(user),
		"user":     prepareUserResponse(*user),
	})
}

func (ctl *Controller) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		logrus.WithError(err).Warn("Could not clear session.")
	}
	c.Redirect(http.StatusFound, "/")
}

func prepareUserResponse(user models.User) gin.H {
	resp := gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"name":         user.Name,
		"email":        user.Email,
		"role":         user.Role,
		"is_superuser": user.IsSuperuser,
		"is_active":    user.IsActive,
	}
	if user.Student != nil {
		resp["student"] = gin.H{
			"id":              user.Student.ID,
			"hall_ticket":     user.Student.HallTicket,
			"phone":           user.Student.Phone,
			"active_route_id": user.Student.ActiveRouteID,
			"is_verified":     user.Student.IsVerified,
		}
	}
	if user.Driver != nil {
		resp["driver"] = gin.H{
			"id":                user.Driver.ID,
			"license_number":    user.Driver.LicenseNumber,
			"phone":             user.Driver.Phone,
			"assigned_route_id": user.Driver.AssignedRouteID,
			"is_active":         user.Driver.IsActive,
			"is_verified":       user.Driver.IsVerified,
		}
	}
	return resp
}
