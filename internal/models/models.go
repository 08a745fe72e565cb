package models

// All lists every table in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Route{},
		&Stop{},
		&RouteSchedule{},
		&Driver{},
		&Student{},
		&BusLocation{},
		&GPSLog{},
		&LocationError{},
		&FeeRecord{},
		&FeePayment{},
	}
}
