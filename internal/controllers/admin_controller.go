package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campus_bus/internal/accounts"
	"campus_bus/internal/fees"
	"campus_bus/internal/middleware"
	"campus_bus/internal/models"
)

const (
	msgUsernameExists = "Username already exists!"
	msgStudentAdded   = "Student added successfully!"
	manageStudentsURL = "/admin-panel/manage-students/"
)

// AdminDashboard summarises the directory.
func (ctl *Controller) AdminDashboard(c *gin.Context) {
	db := ctl.DB.WithContext(c.Request.Context())
	counts := gin.H{}
	for name, q := range map[string]*gorm.DB{
		"students":          db.Model(&models.Student{}),
		"drivers":           db.Model(&models.Driver{}),
		"active_drivers":    db.Model(&models.Driver{}).Where("is_active = ?", true),
		"routes":            db.Model(&models.Route{}),
		"active_routes":     db.Model(&models.Route{}).Where("is_active = ?", true),
		"active_trackers":   db.Model(&models.BusLocation{}).Where("is_active = ?", true),
		"pending_fees":      db.Model(&models.FeeRecord{}).Where("status = ?", models.FeePending),
		"overdue_fees":      db.Model(&models.FeeRecord{}).Where("status = ?", models.FeeOverdue),
		"unresolved_errors": db.Model(&models.LocationError{}).Where("resolved_at IS NULL"),
	} {
		var n int64
		if err := q.Count(&n).Error; err != nil {
			respondError(c, err)
			return
		}
		counts[name] = n
	}
	c.JSON(http.StatusOK, gin.H{"page": "admin-panel", "counts": counts, "messages": flashes(c)})
}

func (ctl *Controller) ManageStudentsPage(c *gin.Context) {
	students, err := ctl.findStudents(c)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(students))
	for _, s := range students {
		out = append(out, studentResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"page": "manage-students", "students": out, "messages": flashes(c)})
}

type addStudentForm struct {
	Username string `form:"username"`
	Name     string `form:"name"`
	Password string `form:"password"`
}

// ManageStudents handles the add-student form: the account, its student
// role and a profile with the username as hall ticket.
func (ctl *Controller) ManageStudents(c *gin.Context) {
	var form addStudentForm
	if err := c.ShouldBind(&form); err != nil || strings.TrimSpace(form.Username) == "" || form.Password == "" {
		flash(c, "Username and password are required.")
		c.Redirect(http.StatusFound, manageStudentsURL)
		return
	}

	user, err := accounts.Create(c.Request.Context(), ctl.DB, accounts.NewAccount{
		Username: form.Username,
		Name:     form.Name,
		Password: form.Password,
		Role:     string(models.RoleStudent),
	})
	switch {
	case errors.Is(err, accounts.ErrUsernameTaken), errors.Is(err, accounts.ErrProfileConflict):
		flash(c, msgUsernameExists)
	case errors.Is(err, accounts.ErrInvalidInput):
		flash(c, "Invalid student details.")
	case err != nil:
		logrus.WithError(err).Error("Could not add student.")
		flash(c, "Could not add student.")
	default:
		logrus.WithField("user_id", user.ID).Info("Student added from admin panel.")
		flash(c, msgStudentAdded)
	}
	c.Redirect(http.StatusFound, manageStudentsURL)
}

func (ctl *Controller) ManageDriversPage(c *gin.Context) {
	var drivers []models.Driver
	if err := ctl.DB.WithContext(c.Request.Context()).Preload("User").Preload("AssignedRoute").Order("id asc").Find(&drivers).Error; err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, driverResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"page": "manage-drivers", "drivers": out, "messages": flashes(c)})
}

func (ctl *Controller) ManageRoutesPage(c *gin.Context) {
	var routes []models.Route
	if err := ctl.DB.WithContext(c.Request.Context()).Preload("Stops", orderedStops).Preload("Schedules", orderedSchedules).Order("name asc").Find(&routes).Error; err != nil {
		respondError(c, err)
		return
	}
	resp, err := ctl.toRouteResponses(c.Request.Context(), routes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "manage-routes", "routes": resp, "messages": flashes(c)})
}

func (ctl *Controller) ManageFeesPage(c *gin.Context) {
	records, err := fees.List(c.Request.Context(), ctl.DB, fees.Filter{})
	if err != nil {
		respondError(c, err)
		return
	}
	today := time.Now()
	out := make([]gin.H, 0, len(records))
	for _, f := range records {
		out = append(out, feeResponse(f, today))
	}
	c.JSON(http.StatusOK, gin.H{"page": "manage-fees", "fees": out, "messages": flashes(c)})
}

func (ctl *Controller) findStudents(c *gin.Context) ([]models.Student, error) {
	q := ctl.DB.WithContext(c.Request.Context()).
		Joins("User").
		Preload("ActiveRoute").
		Order("students.id asc")
	if routeID, err := parseOptionalID(c.Query("route_id")); err != nil {
		return nil, err
	} else if routeID != nil {
		q = q.Where("students.active_route_id = ?", *routeID)
	}
	if v := parseBool(c.Query("is_verified")); v != nil {
		q = q.Where("students.is_verified = ?", *v)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		q = q.Where(`students.hall_ticket LIKE ? OR "User".username LIKE ? OR "User".name LIKE ?`, like, like, like)
	}
	var students []models.Student
	if err := q.Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (ctl *Controller) ListStudents(c *gin.Context) {
	students, err := ctl.findStudents(c)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(students))
	for _, s := range students {
		out = append(out, studentResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (ctl *Controller) GetStudent(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var student models.Student
	if err := ctl.DB.WithContext(c.Request.Context()).Preload("User").Preload("ActiveRoute").Preload("FeeRecords").First(&student, id).Error; err != nil {
		respondError(c, err)
		return
	}
	resp := studentResponse(student)
	resp["fee_records"] = student.FeeRecords
	c.JSON(http.StatusOK, resp)
}

type updateStudentInput struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	Phone      *string `json:"phone"`
	HallTicket *string `json:"hall_ticket"`
	RouteID    *uint   `json:"active_route_id"` // 0 clears
	IsVerified *bool   `json:"is_verified"`
	IsActive   *bool   `json:"is_active"`
}

func (ctl *Controller) UpdateStudent(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var input updateStudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var student models.Student
	if err := ctl.DB.WithContext(ctx).First(&student, id).Error; err != nil {
		respondError(c, err)
		return
	}

	err = ctl.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userUpdates := map[string]interface{}{}
		if input.Name != nil {
			userUpdates["name"] = *input.Name
		}
		if input.Email != nil {
			userUpdates["email"] = *input.Email
		}
		if input.IsActive != nil {
			userUpdates["is_active"] = *input.IsActive
		}
		if input.Password != nil {
			hash, err := accounts.HashPassword(*input.Password)
			if err != nil {
				return err
			}
			userUpdates["password"] = hash
		}
		if len(userUpdates) > 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", student.UserID).Updates(userUpdates).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}
		if input.Phone != nil {
			updates["phone"] = *input.Phone
		}
		if input.HallTicket != nil {
			ticket := strings.TrimSpace(*input.HallTicket)
			if ticket == "" {
				return accounts.ErrInvalidInput
			}
			var n int64
			if err := tx.Model(&models.Student{}).Where("hall_ticket = ? AND id <> ?", ticket, student.ID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return accounts.ErrProfileConflict
			}
			updates["hall_ticket"] = ticket
		}
		if input.RouteID != nil {
			if *input.RouteID == 0 {
				updates["active_route_id"] = nil
			} else {
				if err := tx.First(&models.Route{}, *input.RouteID).Error; err != nil {
					return err
				}
				updates["active_route_id"] = *input.RouteID
			}
		}
		if input.IsVerified != nil {
			updates["is_verified"] = *input.IsVerified
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&student).Updates(updates).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.InvalidateIdentity(c, student.UserID)

	var updated models.Student
	if err := ctl.DB.WithContext(ctx).Preload("User").Preload("ActiveRoute").First(&updated, id).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student updated successfully.", "student": studentResponse(updated)})
}

// DeleteStudent removes the profile, its fees and the account.
func (ctl *Controller) DeleteStudent(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	var student models.Student
	if err := ctl.DB.WithContext(ctx).First(&student, id).Error; err != nil {
		respondError(c, err)
		return
	}

	err = ctl.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var feeIDs []uint
		if err := tx.Model(&models.FeeRecord{}).Where("student_id = ?", student.ID).Pluck("id", &feeIDs).Error; err != nil {
			return err
		}
		if len(feeIDs) > 0 {
			if err := tx.Unscoped().Where("fee_record_id IN ?", feeIDs).Delete(&models.FeePayment{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("id IN ?", feeIDs).Delete(&models.FeeRecord{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Unscoped().Delete(&student).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.User{}, student.UserID).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.InvalidateIdentity(c, student.UserID)
	logrus.WithFields(logrus.Fields{"student_id": student.ID, "user_id": student.UserID}).Info("Student deleted.")
	c.JSON(http.StatusOK, gin.H{"message": "Student and associated user account deleted successfully."})
}

// StudentAction verifies or unverifies many students.
func (ctl *Controller) StudentAction(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var verified bool
	switch req.Action {
	case "verify":
		verified = true
	case "unverify":
		verified = false
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}
	res := ctl.DB.WithContext(c.Request.Context()).Model(&models.Student{}).Where("id IN ?", req.IDs).Update("is_verified", verified)
	if res.Error != nil {
		respondError(c, res.Error)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": res.RowsAffected})
}

func studentResponse(s models.Student) gin.H {
	resp := gin.H{
		"id":              s.ID,
		"user_id":         s.UserID,
		"username":        s.User.Username,
		"name":            s.User.Name,
		"email":           s.User.Email,
		"is_active":       s.User.IsActive,
		"hall_ticket":     s.HallTicket,
		"phone":           s.Phone,
		"active_route_id": s.ActiveRouteID,
		"is_verified":     s.IsVerified,
	}
	if s.ActiveRoute != nil {
		resp["active_route"] = gin.H{"id": s.ActiveRoute.ID, "name": s.ActiveRoute.Name, "bus_number": s.ActiveRoute.BusNumber}
	}
	return resp
}
