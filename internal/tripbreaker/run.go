// Package tripbreaker turns one individual's location history into trips.
//
// Run is a pure function: the caller loads points and stations and persists
// the result. Stages run in a fixed order, each returning new values:
//
//	project → filter accuracy → break by time gap → match stations →
//	connect segments → drop single points → infer missing trips →
//	assign trip ids → summarize
//
// Run is safe to call concurrently for different individuals sharing one
// station slice.
package tripbreaker

import (
	"fmt"
	"math"
)

// Run executes the full pipeline for one individual's points, which must be
// strictly ascending by timestamp.
func Run(points []RawPoint, stations []Station, p Parameters) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if err := validatePoints(points); err != nil {
		return Result{}, err
	}

	res := Result{Diagnostics: Diagnostics{InputPoints: len(points)}}
	if len(points) > 0 {
		res.UserID = points[0].UserID
	}

	zone, ok := chooseZone(points, p.Zone, p.AccuracyCutoffMeters)
	if !ok {
		res.Diagnostics.ProjectionDropped = len(points)
		return res, nil
	}
	res.Zone = zone

	projStations, err := ProjectStations(stations, zone)
	if err != nil {
		return Result{}, err
	}

	projected, dropped := projectPoints(points, zone)
	res.Diagnostics.ProjectionDropped = dropped

	filtered, dropped := filterAccuracy(projected, p.AccuracyCutoffMeters)
	res.Diagnostics.AccuracyDropped = dropped
	if len(filtered) == 0 {
		return res, nil
	}

	segments := breakByTimeGap(filtered, p.BreakInterval)
	res.Diagnostics.Segments = len(segments)

	segments = matchStations(segments, projStations, p.SubwayBufferMeters)

	cands, links, merges := connectSegments(segments, p)
	res.Diagnostics.StationLinks = links
	res.Diagnostics.VelocityMerges = merges

	cands, noise := dropSinglePoints(cands)
	res.Diagnostics.NoisePoints = noise

	plan, inferred := inferMissingTrips(cands, p)
	res.Diagnostics.InferredTrips = inferred

	res.Trips = assignTrips(plan)
	res.Summaries = summarize(res.Trips)
	return res, nil
}

func validatePoints(points []RawPoint) error {
	for i, pt := range points {
		if pt.Timestamp.IsZero() {
			return fmt.Errorf("%w: point %d has no timestamp", ErrInvalidInput, i)
		}
		if !finite(pt.Latitude) || !finite(pt.Longitude) {
			return fmt.Errorf("%w: point %d has malformed coordinate (%v, %v)", ErrInvalidInput, i, pt.Latitude, pt.Longitude)
		}
		if math.IsNaN(pt.HAccuracy) {
			return fmt.Errorf("%w: point %d has malformed accuracy", ErrInvalidInput, i)
		}
		if i == 0 {
			continue
		}
		prev := points[i-1]
		if pt.UserID != prev.UserID {
			return fmt.Errorf("%w: point %d belongs to %q, expected %q", ErrInvalidInput, i, pt.UserID, prev.UserID)
		}
		if !pt.Timestamp.After(prev.Timestamp) {
			return fmt.Errorf("%w: point %d at %s does not follow %s",
				ErrInvalidInput, i, pt.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"), prev.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
