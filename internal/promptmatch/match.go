// Package promptmatch pairs travel-mode survey prompts with detected trips.
package promptmatch

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"tripbreaker/internal/timeindex"
	"tripbreaker/internal/tripbreaker"
)

// Prompt is one answer to a mode prompt shown on the device. A prompt shown
// once may produce several answers sharing a timestamp.
type Prompt struct {
	UserID     string
	Timestamp  time.Time
	RecordedAt time.Time
	Latitude   float64
	Longitude  float64
	PromptNum  int
	Response   string
}

type Params struct {
	MaxTimeDiff       time.Duration
	MaxDistanceMeters float64
}

// Match is a prompt group attributed to a trip.
type Match struct {
	TripID   int
	Prompts  []Prompt
	TimeDiff time.Duration
	Distance float64 // meters between the trip end and the prompt
}

type Outcome struct {
	Matches   []Match
	Unmatched int // prompt groups skipped over by a later trip
	Remaining int // prompt groups after the last trip
}

// MatchTrips walks trips in order. Each trip claims the first prompt group shown
// at or after its end when it is close enough in time and space; the group
// is only consumed when claimed. Groups shown before the next trip ends can
// no longer match anything and are counted as unmatched.
//
// Pruning is strict: a group shown exactly when the next trip ends stays
// available to that trip, whereas the survey notebooks also pruned it.
// Distance is geodesic between lat/lon pairs rather than planar in the
// individual's UTM zone, so values differ slightly from the notebooks'.
func MatchTrips(trips []tripbreaker.Trip, prompts []Prompt, p Params) Outcome {
	ix := timeindex.New(prompts, func(pr Prompt) time.Time { return pr.Timestamp })

	var out Outcome
	for i, trip := range trips {
		_, end := trip.Span()
		if group, ok := ix.FirstAtOrAfter(end); ok {
			lat, lon := trip.EndLocation()
			first := group.Values[0]
			diff := group.Key.Sub(end)
			dist := geo.Distance(orb.Point{lon, lat}, orb.Point{first.Longitude, first.Latitude})
			if diff <= p.MaxTimeDiff && dist <= p.MaxDistanceMeters {
				out.Matches = append(out.Matches, Match{
					TripID:   trip.ID,
					Prompts:  group.Values,
					TimeDiff: diff,
					Distance: dist,
				})
				ix = ix.Without(group.Key)
			}
		}

		if i+1 < len(trips) {
			_, nextEnd := trips[i+1].Span()
			var skipped []timeindex.Entry[Prompt]
			skipped, ix = ix.SplitBefore(nextEnd)
			out.Unmatched += len(skipped)
		}
	}
	out.Remaining = ix.Len()
	return out
}
