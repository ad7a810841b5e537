package pricing

import (
	"errors"
	"fmt"

	"chauffeur/internal/types"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

// ValidationError names the offending request field. It matches
// ErrBadRequest under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrBadRequest }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Validate rejects malformed requests before any computation happens.
func (r Request) Validate() error {
	if !r.TripType.Valid() {
		return invalid("tripType", fmt.Sprintf("unknown trip type %q", r.TripType))
	}
	if r.VehicleCategoryID == "" {
		return invalid("vehicleCategoryId", "required")
	}
	if !validPoint(r.Pickup) {
		return invalid("pickup", "coordinates out of range")
	}
	if r.Dropoff == nil && r.TripType != types.TripDispo {
		return invalid("dropoff", "required for "+string(r.TripType)+" trips")
	}
	if r.Dropoff != nil && !validPoint(*r.Dropoff) {
		return invalid("dropoff", "coordinates out of range")
	}
	for i, s := range r.Stops {
		if !validPoint(s) {
			return invalid(fmt.Sprintf("stops[%d]", i), "coordinates out of range")
		}
	}
	if r.TripType == types.TripDispo && (r.DurationHours == nil || *r.DurationHours <= 0) {
		return invalid("durationHours", "required and positive for dispo trips")
	}
	if r.PickupAt.IsZero() {
		return invalid("pickupAt", "required")
	}
	if r.Passengers < 1 {
		return invalid("passengers", "at least one passenger")
	}
	if r.Luggage < 0 {
		return invalid("luggage", "must not be negative")
	}
	if r.WaitingMinutes < 0 {
		return invalid("waitingMinutes", "must not be negative")
	}
	for _, f := range []struct {
		field string
		value *float64
	}{
		{"distanceKm", r.DistanceKm},
		{"durationMinutes", r.DurationMinutes},
		{"parkingCost", r.ParkingCost},
	} {
		if f.value != nil && *f.value < 0 {
			return invalid(f.field, "must not be negative")
		}
	}
	return nil
}

func validPoint(p types.Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
