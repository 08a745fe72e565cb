package models

import "gorm.io/gorm"

type Student struct {
	gorm.Model
	UserID        uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	User          User   `gorm:"foreignKey:UserID" json:"-"`
	HallTicket    string `json:"hall_ticket" gorm:"uniqueIndex;not null;size:20"`
	Phone         string `json:"phone" gorm:"size:15"`
	ActiveRouteID *uint  `json:"active_route_id" gorm:"index"`
	ActiveRoute   *Route `gorm:"foreignKey:ActiveRouteID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"active_route,omitempty"`
	IsVerified    bool   `json:"is_verified" gorm:"default:false;index"`

	FeeRecords []FeeRecord `gorm:"foreignKey:StudentID" json:"fee_records,omitempty"`
}
