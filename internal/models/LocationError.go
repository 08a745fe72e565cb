package models

import (
	"time"
)

type LocationErrorType string

const (
	ErrorSignalLost       LocationErrorType = "signal_lost"
	ErrorInvalidCoords    LocationErrorType = "invalid_coords"
	ErrorAccuracyLow      LocationErrorType = "accuracy_low"
	ErrorTimeout          LocationErrorType = "timeout"
	ErrorPermissionDenied LocationErrorType = "permission_denied"
	ErrorUnknown          LocationErrorType = "unknown"
)

func (t LocationErrorType) Valid() bool {
	switch t {
	case ErrorSignalLost, ErrorInvalidCoords, ErrorAccuracyLow, ErrorTimeout, ErrorPermissionDenied, ErrorUnknown:
		return true
	}
	return false
}

// LocationError records a GPS problem reported against a route tracker.
type LocationError struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	RouteID      uint              `json:"route_id" gorm:"index:idx_locerr_route_time"`
	DriverID     *uint             `json:"driver_id"`
	ErrorType    LocationErrorType `json:"error_type" gorm:"size:20;not null"`
	ErrorMessage string            `json:"error_message"`
	IsCritical   bool              `json:"is_critical" gorm:"default:false;index:idx_locerr_critical"`
	ResolvedAt   *time.Time        `json:"resolved_at" gorm:"index:idx_locerr_critical"`
	Timestamp    time.Time         `json:"timestamp" gorm:"autoCreateTime;index:idx_locerr_route_time"`
}
