package alerting

import (
	"log/slog"

	"github.com/jmfer1/go-emergency-alerts/internal/geo"
	"github.com/jmfer1/go-emergency-alerts/internal/models"
)

// DefaultAlertRadiusKm is the dispatch radius around an alert origin.
const DefaultAlertRadiusKm = 5.0

// Match scans the full directory once and returns the users whose location
// is within radiusKm of origin, in directory order. Users without a
// location, or whose coordinates fail the distance computation, are
// skipped without aborting the scan.
func Match(origin models.Coordinate, radiusKm float64, users []models.User) []models.User {
	matches := make([]models.User, 0)
	for _, u := range users {
		if u.Location == nil {
			continue
		}
		d, err := geo.DistanceKm(origin, *u.Location)
		if err != nil {
			slog.Debug("skipping user with invalid location", "user_id", u.ID, "error", err)
			continue
		}
		if d <= radiusKm {
			matches = append(matches, u)
		}
	}
	return matches
}
