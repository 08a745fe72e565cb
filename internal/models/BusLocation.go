package models

import (
	"time"
)

// BusLocation is the single live state row of a route. The location API
// overwrites it in place; history goes to GPSLog.
type BusLocation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RouteID       uint      `json:"route_id" gorm:"uniqueIndex;not null"`
	DriverID      *uint     `json:"driver_id" gorm:"index"`
	CurrentStopID *uint     `json:"current_stop_id"`
	CurrentStop   *Stop     `gorm:"foreignKey:CurrentStopID;constraint:OnDelete:SET NULL;" json:"current_stop,omitempty"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Speed         *float64  `json:"speed,omitempty"`   // km/h
	Heading       *float64  `json:"heading,omitempty"` // degrees
	Geohash       string    `json:"geohash" gorm:"size:12;index"`
	IsActive      bool      `json:"is_active" gorm:"default:false;index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"index"`
}
