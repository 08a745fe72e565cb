package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func form(values map[string]string) FormValue {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestParsePushForm(t *testing.T) {
	in, err := ParsePushForm(form(map[string]string{
		"latitude":  "17.40",
		"longitude": "78.47",
		"speed":     "12.5",
		"heading":   "",
		"timestamp": "2024-03-01T08:15:00",
	}))
	require.NoError(t, err)
	assert.Equal(t, 17.40, in.Latitude)
	assert.Equal(t, 78.47, in.Longitude)
	require.NotNil(t, in.Speed)
	assert.Equal(t, 12.5, *in.Speed)
	assert.Nil(t, in.Heading)
	require.NotNil(t, in.RecordedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC), *in.RecordedAt)
}

func TestParsePushFormInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"missing latitude": {"longitude": "78"},
		"empty longitude":  {"latitude": "17", "longitude": " "},
		"not a number":     {"latitude": "north", "longitude": "78"},
		"nan":              {"latitude": "NaN", "longitude": "78"},
		"infinite":         {"latitude": "17", "longitude": "Inf"},
		"out of range":     {"latitude": "-90.5", "longitude": "78"},
		"bad speed":        {"latitude": "17", "longitude": "78", "speed": "fast"},
		"bad timestamp":    {"latitude": "17", "longitude": "78", "timestamp": "yesterday"},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePushForm(form(values))
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDistanceAndBearing(t *testing.T) {
	assert.InDelta(t, 0, Distance(17.4, 78.4, 17.4, 78.4), 1e-9)
	// one degree of latitude is ~111.2 km
	assert.InDelta(t, 111195, Distance(0, 0, 1, 0), 50)
	assert.InDelta(t, 0, Bearing(0, 0, 1, 0), 1e-9)
	assert.InDelta(t, 90, Bearing(0, 0, 0, 1), 1e-9)
	assert.InDelta(t, 270, Bearing(0, 1, 0, 0), 1e-9)
}
