package tracking

import (
	"math"

	"gorm.io/gorm"

	"campus_bus/internal/models"
)

const earthRadius = 6371000 // meters

// Distance is the haversine distance between two points in meters.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Bearing is the initial compass bearing from the first point to the
// second, in degrees [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLon := toRadians(lon2 - lon1)

	y := math.Sin(deltaLon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) -
		math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon)

	return math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// NearestStop picks the closest stop within radius meters, or nil.
func NearestStop(stops []models.Stop, lat, lon, radius float64) *models.Stop {
	var best *models.Stop
	bestDist := math.Inf(1)
	for i := range stops {
		d := Distance(lat, lon, stops[i].Latitude, stops[i].Longitude)
		if d <= radius && d < bestDist {
			best = &stops[i]
			bestDist = d
		}
	}
	return best
}

func nearestStopID(tx *gorm.DB, routeID uint, lat, lon, radius float64) (*uint, error) {
	var stops []models.Stop
	if err := tx.Where("route_id = ?", routeID).Find(&stops).Error; err != nil {
		return nil, err
	}
	if stop := NearestStop(stops, lat, lon, radius); stop != nil {
		id := stop.ID
		return &id, nil
	}
	return nil, nil
}
