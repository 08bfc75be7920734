package tripbreaker

import (
	"github.com/paulmach/orb/planar"
)

// candidate is a chain of segments judged to belong to one trip.
type candidate struct {
	segments []Segment
	codes    []MergeCode
}

func (c candidate) first() ProjectedPoint { return c.segments[0].first() }
func (c candidate) last() ProjectedPoint  { return c.segments[len(c.segments)-1].last() }
func (c candidate) start() *StationMatch  { return c.segments[0].Start }
func (c candidate) end() *StationMatch    { return c.segments[len(c.segments)-1].End }

func (c candidate) pointCount() int {
	n := 0
	for _, s := range c.segments {
		n += len(s.Points)
	}
	return n
}

// join returns a new candidate with s appended.
func (c candidate) join(s Segment, code MergeCode) candidate {
	segs := make([]Segment, len(c.segments), len(c.segments)+1)
	copy(segs, c.segments)
	codes := make([]MergeCode, len(c.codes), len(c.codes)+1)
	copy(codes, c.codes)
	return candidate{segments: append(segs, s), codes: append(codes, code)}
}

// linkCode decides whether segment b continues candidate a. The gap between
// a's last and b's first point is bridged when both ends sit at the same
// station, or when the implied speed looks like travel rather than a stop
// or a GPS jump.
func linkCode(a candidate, b Segment, p Parameters) (MergeCode, bool) {
	if sameStation(a.end(), b.Start) {
		return MergeStationLink, true
	}
	from, to := a.last(), b.first()
	elapsed := to.Timestamp.Sub(from.Timestamp).Seconds()
	if elapsed <= 0 {
		return "", false
	}
	speed := planar.Distance(from.XY(), to.XY()) / elapsed
	if speed >= p.MinTravelSpeedMps && speed <= p.MaxPlausibleSpeedMps {
		return MergeVelocity, true
	}
	return "", false
}

// connectSegments walks segments left to right, attaching each to the
// candidate before it when linkCode allows.
func connectSegments(segments []Segment, p Parameters) (out []candidate, stationLinks, velocityMerges int) {
	if len(segments) == 0 {
		return nil, 0, 0
	}
	cur := candidate{segments: []Segment{segments[0]}}
	for _, next := range segments[1:] {
		code, ok := linkCode(cur, next, p)
		if !ok {
			out = append(out, cur)
			cur = candidate{segments: []Segment{next}}
			continue
		}
		switch code {
		case MergeStationLink:
			stationLinks++
		case MergeVelocity:
			velocityMerges++
		}
		cur = cur.join(next, code)
	}
	return append(out, cur), stationLinks, velocityMerges
}
