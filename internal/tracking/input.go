package tracking

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// PushInput is one location sample from a driver.
type PushInput struct {
	Latitude   float64    `validate:"gte=-90,lte=90"`
	Longitude  float64    `validate:"gte=-180,lte=180"`
	Speed      *float64   `validate:"omitempty,gte=0"`
	Heading    *float64   `validate:"omitempty,gte=0,lte=360"`
	Accuracy   *float64   `validate:"omitempty,gte=0"`
	RecordedAt *time.Time // device clock; server time when absent
}

// Validate reports ErrInvalidInput for out-of-range values.
func (in PushInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// FormValue looks up a submitted form field.
type FormValue func(key string) (string, bool)

// ParsePushForm reads latitude and longitude (required) plus speed, heading,
// accuracy and timestamp (optional) from a form.
func ParsePushForm(form FormValue) (PushInput, error) {
	var in PushInput
	var err error

	if in.Latitude, err = requiredFloat(form, "latitude"); err != nil {
		return in, err
	}
	if in.Longitude, err = requiredFloat(form, "longitude"); err != nil {
		return in, err
	}
	if in.Speed, err = optionalFloat(form, "speed"); err != nil {
		return in, err
	}
	if in.Heading, err = optionalFloat(form, "heading"); err != nil {
		return in, err
	}
	if in.Accuracy, err = optionalFloat(form, "accuracy"); err != nil {
		return in, err
	}
	if raw, ok := form("timestamp"); ok && strings.TrimSpace(raw) != "" {
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return in, err
		}
		in.RecordedAt = &ts
	}
	return in, in.Validate()
}

// ParseTimestamp accepts RFC3339 with or without a zone; a missing zone
// means UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	ts := strings.TrimSpace(raw)
	if len(ts) >= 6 && !(strings.HasSuffix(ts, "Z") || strings.ContainsAny(ts[len(ts)-6:], "+-")) {
		ts += "Z"
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidInput, raw)
	}
	return t, nil
}

func requiredFloat(form FormValue, key string) (float64, error) {
	raw, ok := form(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidInput, key)
	}
	return parseFloat(key, raw)
}

func optionalFloat(form FormValue, key string) (*float64, error) {
	raw, ok := form(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := parseFloat(key, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseFloat(key, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidInput, key)
	}
	return v, nil
}
