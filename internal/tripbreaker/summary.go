package tripbreaker

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summarize computes the aggregate metrics of one trip.
func Summarize(t Trip) TripSummary {
	s := TripSummary{
		TripID:     t.ID,
		Code:       t.Code,
		MergeCodes: t.MergeCodes,
		PointCount: len(t.Points),
	}

	switch {
	case t.Inferred != nil:
		s.Start, s.End = t.Inferred.Start, t.Inferred.End
		d := planar.Distance(t.Inferred.From.XY(), t.Inferred.To.XY())
		s.DirectDistance, s.CumulativeDistance = d, d
	case len(t.Points) > 0:
		first, last := t.Points[0], t.Points[len(t.Points)-1]
		s.Start, s.End = first.Timestamp, last.Timestamp
		s.DirectDistance = planar.Distance(first.XY(), last.XY())

		path := make(orb.LineString, len(t.Points))
		speeds := make([]float64, len(t.Points))
		for i, p := range t.Points {
			path[i] = p.XY()
			speeds[i] = p.Speed
		}
		s.CumulativeDistance = planar.Length(path)
		// summing steps can land a hair under the chord on straight paths
		if s.CumulativeDistance < s.DirectDistance {
			s.CumulativeDistance = s.DirectDistance
		}
		s.MeanReportedSpeed = stat.Mean(speeds, nil)
		s.MaxReportedSpeed = floats.Max(speeds)
	}

	s.Duration = s.End.Sub(s.Start)
	if secs := s.Duration.Seconds(); secs > 0 {
		s.AverageSpeed = s.CumulativeDistance / secs
	}
	return s
}

func summarize(trips []Trip) []TripSummary {
	out := make([]TripSummary, len(trips))
	for i, t := range trips {
		out[i] = Summarize(t)
	}
	return out
}
