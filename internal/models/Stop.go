package models

import (
	"gorm.io/gorm"
)

// Stop is a point along a route. Order is the arrival sequence and is
// unique within the route.
type Stop struct {
	gorm.Model

	RouteID     uint    `json:"route_id" gorm:"not null;uniqueIndex:idx_route_stop_order"`
	Name        string  `json:"name" gorm:"not null"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ArrivalTime string  `json:"arrival_time,omitempty" gorm:"size:8"` // HH:MM[:SS]
	Order       int     `json:"order" gorm:"column:stop_order;not null;uniqueIndex:idx_route_stop_order"`
}
