package models

import (
	"gorm.io/gorm"
)

// Route is a campus bus line. It owns its stops (ordered by Stop.Order),
// its weekly schedules and at most one current BusLocation.
type Route struct {
	gorm.Model

	Name          string  `json:"name" gorm:"uniqueIndex;not null;size:255"`
	BusNumber     *string `json:"bus_number" gorm:"uniqueIndex;size:20"`
	StartLocation string  `json:"start_location"`
	EndLocation   string  `json:"end_location"`
	IsActive      bool    `json:"is_active" gorm:"index"`

	Stops     []Stop          `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"stops,omitempty"`
	Schedules []RouteSchedule `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"schedules,omitempty"`
	Location  *BusLocation    `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"location,omitempty"`
}
