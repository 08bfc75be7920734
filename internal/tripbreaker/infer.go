package tripbreaker

import (
	"github.com/paulmach/orb/planar"
)

// planned is one entry of the final trip sequence before ids are assigned:
// either an observed candidate or an inferred station-to-station link.
type planned struct {
	observed *candidate
	inferred *InferredLink
}

// inferMissingTrips interleaves inferred trips between consecutive
// candidates the connector kept apart where the first ends at one station
// and the next starts at another. With Parameters.RequireFeasibleInference
// the ride between the stations must also fit in the time available.
func inferMissingTrips(cands []candidate, p Parameters) (plan []planned, inferred int) {
	plan = make([]planned, 0, len(cands))
	for i := range cands {
		if i > 0 {
			if link, ok := inferLink(cands[i-1], cands[i], p); ok {
				plan = append(plan, planned{inferred: &link})
				inferred++
			}
		}
		plan = append(plan, planned{observed: &cands[i]})
	}
	return plan, inferred
}

func inferLink(a, b candidate, p Parameters) (InferredLink, bool) {
	from, to := a.end(), b.start()
	if from == nil || to == nil || from.Station.ID == to.Station.ID {
		return InferredLink{}, false
	}
	start, end := a.last().Timestamp, b.first().Timestamp
	elapsed := end.Sub(start).Seconds()
	if elapsed <= 0 {
		return InferredLink{}, false
	}
	if p.RequireFeasibleInference && planar.Distance(from.Station.XY(), to.Station.XY())/elapsed > p.MaxPlausibleSpeedMps {
		return InferredLink{}, false
	}
	return InferredLink{From: from.Station, To: to.Station, Start: start, End: end}, true
}
