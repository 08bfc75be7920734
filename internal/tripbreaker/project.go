package tripbreaker

import (
	"fmt"

	"tripbreaker/internal/utm"
)

// chooseZone returns the pinned zone, or the zone of the first point that
// is projectable and within the accuracy cutoff. When every projectable
// point is too inaccurate the first projectable one decides; nothing
// survives filtering then anyway. ok is false when no point can be
// projected.
func chooseZone(points []RawPoint, pinned utm.Zone, cutoff float64) (utm.Zone, bool) {
	if pinned.Valid() {
		return pinned, true
	}
	var fallback utm.Zone
	for _, p := range points {
		if !hasFix(p) {
			continue
		}
		z, err := utm.ZoneFor(p.Latitude, p.Longitude)
		if err != nil {
			continue
		}
		if p.HAccuracy <= cutoff {
			return z, true
		}
		if !fallback.Valid() {
			fallback = z
		}
	}
	return fallback, fallback.Valid()
}

// hasFix reports whether p carries a position. Receivers without a fix
// report exactly (0, 0).
func hasFix(p RawPoint) bool {
	return p.Latitude != 0 || p.Longitude != 0
}

// projectPoints projects every point into zone z, dropping those without a
// fix or outside the projectable range. Order is preserved.
func projectPoints(points []RawPoint, z utm.Zone) (out []ProjectedPoint, dropped int) {
	out = make([]ProjectedPoint, 0, len(points))
	for _, p := range points {
		if !hasFix(p) {
			dropped++
			continue
		}
		east, north, err := utm.Project(p.Latitude, p.Longitude, z)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, ProjectedPoint{RawPoint: p, Easting: east, Northing: north})
	}
	return out, dropped
}

// ProjectStations returns copies of stations with planar coordinates in z.
func ProjectStations(stations []Station, z utm.Zone) ([]Station, error) {
	out := make([]Station, len(stations))
	for i, s := range stations {
		east, north, err := utm.Project(s.Latitude, s.Longitude, z)
		if err != nil {
			return nil, fmt.Errorf("%w: station %q: %v", ErrProjection, s.ID, err)
		}
		s.Easting, s.Northing = east, north
		out[i] = s
	}
	return out, nil
}
