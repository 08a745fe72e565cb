package tracking

import (
	"context"
	"errors"
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"gorm.io/gorm"

	"campus_bus/internal/models"
)

// Shape draws a route as a GeoJSON LineString through its stops in order.
func (s *Service) Shape(ctx context.Context, routeID uint) (*geojson.Feature, error) {
	var route models.Route
	err := s.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB { return db.Order("stop_order asc") }).
		First(&route, routeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, err
	}
	return RouteFeature(route), nil
}

// RouteFeature expects route.Stops sorted by order.
func RouteFeature(route models.Route) *geojson.Feature {
	coords := make([]geom.Coord, 0, len(route.Stops))
	stops := make([]map[string]interface{}, 0, len(route.Stops))
	for _, st := range route.Stops {
		coords = append(coords, geom.Coord{st.Longitude, st.Latitude})
		stops = append(stops, map[string]interface{}{
			"id":           st.ID,
			"name":         st.Name,
			"order":        st.Order,
			"arrival_time": st.ArrivalTime,
		})
	}

	return &geojson.Feature{
		ID:       strconv.FormatUint(uint64(route.ID), 10),
		Geometry: geom.NewLineString(geom.XY).MustSetCoords(coords),
		Properties: map[string]interface{}{
			"name":           route.Name,
			"bus_number":     route.BusNumber,
			"start_location": route.StartLocation,
			"end_location":   route.EndLocation,
			"stops":          stops,
		},
	}
}
