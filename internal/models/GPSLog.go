package models

import (
	"time"
)

// GPSLog is the append-only history of pushed coordinates.
type GPSLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RouteID   uint      `json:"route_id" gorm:"index:idx_gps_route_time"`
	DriverID  uint      `json:"driver_id" gorm:"index:idx_gps_driver_time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"` // meters
	Speed     *float64  `json:"speed,omitempty"`    // km/h
	Heading   *float64  `json:"heading,omitempty"`  // degrees
	Timestamp time.Time `json:"timestamp" gorm:"index:idx_gps_route_time;index:idx_gps_driver_time"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
