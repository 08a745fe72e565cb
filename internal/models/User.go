package models

import "gorm.io/gorm"

// User is an account in the identity store. Role is always set at creation
// time by the accounts service; there are no save hooks filling it in.
type User struct {
	gorm.Model
	Username    string `json:"username" gorm:"uniqueIndex;not null;size:150"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"-"`
	Role        Role   `json:"role" gorm:"type:varchar(10);not null;default:'student';index"`
	IsSuperuser bool   `json:"is_superuser"`
	IsActive    bool   `json:"is_active"`

	Student *Student `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"student,omitempty"`
	Driver  *Driver  `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"driver,omitempty"`
}
