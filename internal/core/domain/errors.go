package domain

import (
	"errors"
	"fmt"
)

// GeoFailure is the reason a device position request failed.
type GeoFailure string

const (
	GeoPermissionDenied GeoFailure = "permission_denied"
	GeoTimeout          GeoFailure = "timeout"
	GeoUnavailable      GeoFailure = "unavailable"
)

// GeoError is returned by device geolocators.
type GeoError struct {
	Reason GeoFailure
	Err    error
}

func (e *GeoError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("geolocation %s", e.Reason)
	}
	return fmt.Sprintf("geolocation %s: %v", e.Reason, e.Err)
}

func (e *GeoError) Unwrap() error { return e.Err }

// GeoReason extracts the failure reason from err, defaulting to unavailable.
func GeoReason(err error) GeoFailure {
	var ge *GeoError
	if errors.As(err, &ge) {
		return ge.Reason
	}
	return GeoUnavailable
}
