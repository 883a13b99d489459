// Package geo wraps geodesic distance computation on the WGS-84 ellipsoid.
package geo

import (
	"errors"
	"math"

	"github.com/pymaxion/geographiclib-go/geodesic"

	"github.com/jmfer1/go-emergency-alerts/internal/models"
)

// ErrInvalidCoordinate reports a coordinate with a non-finite component.
// Callers are expected to treat it as "not a match", not as a failure.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// DistanceKm returns the geodesic ground distance between two points in
// kilometers. Latitude/longitude ranges are deliberately not validated;
// only non-finite components are rejected.
func DistanceKm(a, b models.Coordinate) (float64, error) {
	for _, v := range [4]float64{a.Latitude, a.Longitude, b.Latitude, b.Longitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, ErrInvalidCoordinate
		}
	}

	r := geodesic.WGS84.Inverse(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	return r.S12 / 1000.0, nil
}
