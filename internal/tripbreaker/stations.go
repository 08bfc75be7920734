package tripbreaker

import (
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// matchStations tags each segment's first and last point with the nearest
// station within buffer meters. Segments are copied, never merged or dropped.
func matchStations(segments []Segment, stations []Station, buffer float64) []Segment {
	tagged := make([]Segment, len(segments))
	for i, s := range segments {
		s.Start = nearestStation(s.first().XY(), stations, buffer)
		s.End = nearestStation(s.last().XY(), stations, buffer)
		tagged[i] = s
	}
	return tagged
}

func nearestStation(p orb.Point, stations []Station, buffer float64) *StationMatch {
	var best *StationMatch
	for _, st := range stations {
		d := planar.Distance(p, st.XY())
		if d > buffer {
			continue
		}
		if best == nil || d < best.Distance || (d == best.Distance && stationIDLess(st.ID, best.Station.ID)) {
			best = &StationMatch{Station: st, Distance: d}
		}
	}
	return best
}

// stationIDLess orders ids numerically when both are integers, otherwise
// lexicographically.
func stationIDLess(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}

func sameStation(a, b *StationMatch) bool {
	return a != nil && b != nil && a.Station.ID == b.Station.ID
}
