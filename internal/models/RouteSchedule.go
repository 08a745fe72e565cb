package models

import "gorm.io/gorm"

// RouteSchedule is the recurring timing of a route for one weekday
// (0 = Monday ... 6 = Sunday).
type RouteSchedule struct {
	gorm.Model
	RouteID       uint   `json:"route_id" gorm:"not null;uniqueIndex:idx_route_day"`
	DayOfWeek     int    `json:"day_of_week" gorm:"not null;uniqueIndex:idx_route_day"`
	DepartureTime string `json:"departure_time" gorm:"size:8;not null"`
	ArrivalTime   string `json:"arrival_time" gorm:"size:8;not null"`
	IsActive      bool   `json:"is_active" gorm:"index"`
}

var weekdays = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (s RouteSchedule) DayName() string {
	if s.DayOfWeek < 0 || s.DayOfWeek >= len(weekdays) {
		return ""
	}
	return weekdays[s.DayOfWeek]
}
