package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campus_bus/internal/accounts"
	"campus_bus/internal/middleware"
	"campus_bus/internal/models"
	"campus_bus/internal/tracking"
)

// DriverTracker is the driver's dashboard: profile, route, stops and the
// last published location.
func (ctl *Controller) DriverTracker(c *gin.Context) {
	ctx := c.Request.Context()
	driver, err := ctl.Tracking.DriverFor(ctx, middleware.CurrentIdentity(c).UserID)
	if errors.Is(err, tracking.ErrNotDriver) {
		c.JSON(http.StatusOK, gin.H{"page": "driver-tracker", "driver": nil, "can_track": false})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"page":      "driver-tracker",
		"driver":    driver,
		"can_track": driver.CanTrack(),
		"route":     nil,
		"location":  nil,
		"messages":  flashes(c),
	}
	if driver.AssignedRouteID != nil {
		var route models.Route
		if err := ctl.DB.WithContext(ctx).Preload("Stops", orderedStops).First(&route, *driver.AssignedRouteID).Error; err == nil {
			resp["route"] = route
		}
		if snap, err := ctl.Tracking.Pull(ctx, *driver.AssignedRouteID); err == nil {
			resp["location"] = snap
		}
	}
	c.JSON(http.StatusOK, resp)
}

type createDriverInput struct {
	Username      string `json:"username" binding:"required"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password" binding:"required"`
	Phone         string `json:"phone"`
	LicenseNumber string `json:"license_number" binding:"required"`
	RouteID       *uint  `json:"assigned_route_id"`
	IsVerified    bool   `json:"is_verified"`
}

func (ctl *Controller) CreateDriver(c *gin.Context) {
	var input createDriverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.RouteID != nil {
		if err := ctl.DB.WithContext(c.Request.Context()).First(&models.Route{}, *input.RouteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "assigned route does not exist"})
				return
			}
			respondError(c, err)
			return
		}
	}

	user, err := accounts.Create(c.Request.Context(), ctl.DB, accounts.NewAccount{
		Username:      input.Username,
		Name:          input.Name,
		Email:         input.Email,
		Password:      input.Password,
		Role:          string(models.RoleDriver),
		Phone:         input.Phone,
		LicenseNumber: input.LicenseNumber,
		RouteID:       input.RouteID,
		IsVerified:    input.IsVerified,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"driver_profile": prepareUserResponse(*user)})
}

func (ctl *Controller) ListDrivers(c *gin.Context) {
	q := ctl.DB.WithContext(c.Request.Context()).Preload("User").Preload("AssignedRoute").Order("id asc")
	if routeID, err := parseOptionalID(c.Query("route_id")); err != nil {
		respondError(c, err)
		return
	} else if routeID != nil {
		q = q.Where("assigned_route_id = ?", *routeID)
	}
	if v := parseBool(c.Query("is_active")); v != nil {
		q = q.Where("is_active = ?", *v)
	}
	if v := parseBool(c.Query("is_verified")); v != nil {
		q = q.Where("is_verified = ?", *v)
	}

	var drivers []models.Driver
	if err := q.Find(&drivers).Error; err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, driverResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (ctl *Controller) GetDriver(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var driver models.Driver
	if err := ctl.DB.WithContext(c.Request.Context()).Preload("User").Preload("AssignedRoute").First(&driver, id).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, driverResponse(driver))
}

type updateDriverInput struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Password      *string `json:"password"`
	Phone         *string `json:"phone"`
	LicenseNumber *string `json:"license_number"`
	RouteID       *uint   `json:"assigned_route_id"` // 0 unassigns
	IsActive      *bool   `json:"is_active"`
	IsVerified    *bool   `json:"is_verified"`
}

func (ctl *Controller) UpdateDriver(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var input updateDriverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var driver models.Driver
	if err := ctl.DB.WithContext(ctx).First(&driver, id).Error; err != nil {
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
		if input.Password != nil {
			hash, err := accounts.HashPassword(*input.Password)
			if err != nil {
				return err
			}
			userUpdates["password"] = hash
		}
		if len(userUpdates) > 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", driver.UserID).Updates(userUpdates).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}
		if input.Phone != nil {
			updates["phone"] = *input.Phone
		}
		if input.LicenseNumber != nil {
			updates["license_number"] = *input.LicenseNumber
		}
		if input.RouteID != nil {
			if *input.RouteID == 0 {
				updates["assigned_route_id"] = nil
			} else {
				if err := tx.First(&models.Route{}, *input.RouteID).Error; err != nil {
					return err
				}
				updates["assigned_route_id"] = *input.RouteID
			}
		}
		if input.IsActive != nil {
			updates["is_active"] = *input.IsActive
		}
		if input.IsVerified != nil {
			updates["is_verified"] = *input.IsVerified
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&driver).Updates(updates).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.InvalidateIdentity(c, driver.UserID)

	var updated models.Driver
	if err := ctl.DB.WithContext(ctx).Preload("User").Preload("AssignedRoute").First(&updated, id).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Driver details updated successfully.",
		"driver_profile": driverResponse(updated),
	})
}

// DeleteDriver removes the driver profile and its account.
func (ctl *Controller) DeleteDriver(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var driver models.Driver
	if err := ctl.DB.WithContext(c.Request.Context()).First(&driver, id).Error; err != nil {
		respondError(c, err)
		return
	}

	err = ctl.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&driver).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.User{}, driver.UserID).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.InvalidateIdentity(c, driver.UserID)
	logrus.WithFields(logrus.Fields{"driver_id": driver.ID, "user_id": driver.UserID}).Info("Driver deleted.")
	c.JSON(http.StatusOK, gin.H{"message": "Driver and associated user account deleted successfully."})
}

// DriverAction applies activate, deactivate, verify or unverify to many
// driver profiles at once.
func (ctl *Controller) DriverAction(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var column string
	var value bool
	switch req.Action {
	case "activate":
		column, value = "is_active", true
	case "deactivate":
		column, value = "is_active", false
	case "verify":
		column, value = "is_verified", true
	case "unverify":
		column, value = "is_verified", false
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}

	res := ctl.DB.WithContext(c.Request.Context()).Model(&models.Driver{}).Where("id IN ?", req.IDs).Update(column, value)
	if res.Error != nil {
		respondError(c, res.Error)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": res.RowsAffected})
}

func driverResponse(d models.Driver) gin.H {
	resp := gin.H{
		"id":                d.ID,
		"user_id":           d.UserID,
		"username":          d.User.Username,
		"name":              d.User.Name,
		"email":             d.User.Email,
		"license_number":    d.LicenseNumber,
		"phone":             d.Phone,
		"assigned_route_id": d.AssignedRouteID,
		"is_active":         d.IsActive,
		"is_verified":       d.IsVerified,
		"can_track":         d.CanTrack(),
	}
	if d.AssignedRoute != nil {
		resp["assigned_route"] = gin.H{"id": d.AssignedRoute.ID, "name": d.AssignedRoute.Name, "bus_number": d.AssignedRoute.BusNumber}
	}
	return resp
}
