package models

import "gorm.io/gorm"

// Driver is the driver profile of an account. Only an active, verified
// driver with an assigned route may push bus locations.
type Driver struct {
	gorm.Model
	UserID          uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	User            User   `gorm:"foreignKey:UserID" json:"-"`
	LicenseNumber   string `json:"license_number" gorm:"uniqueIndex;not null;size:25"`
	Phone           string `json:"phone" gorm:"size:15"`
	AssignedRouteID *uint  `json:"assigned_route_id" gorm:"index"`
	AssignedRoute   *Route `gorm:"foreignKey:AssignedRouteID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"assigned_route,omitempty"`
	IsActive        bool   `json:"is_active" gorm:"index"`
	IsVerified      bool   `json:"is_verified" gorm:"default:false;index"`
}

// CanTrack reports whether the profile is allowed to publish locations.
func (d Driver) CanTrack() bool {
	return d.IsActive && d.IsVerified && d.AssignedRouteID != nil
}
