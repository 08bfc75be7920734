package promptmatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripbreaker/internal/tripbreaker"
)

var t0 = time.Date(2017, 11, 7, 8, 0, 0, 0, time.UTC)

func at(m int) time.Time { return t0.Add(time.Duration(m) * time.Minute) }

func observedTrip(id, startMin, endMin int, lat, lon float64) tripbreaker.Trip {
	mk := func(m int) tripbreaker.ProjectedPoint {
		return tripbreaker.ProjectedPoint{RawPoint: tripbreaker.RawPoint{Timestamp: at(m), Latitude: lat, Longitude: lon}}
	}
	return tripbreaker.Trip{
		ID:     id,
		Code:   tripbreaker.TripDirect,
		Points: []tripbreaker.ProjectedPoint{mk(startMin), mk(endMin)},
	}
}

func prompt(m, num int, lat, lon float64, response string) Prompt {
	return Prompt{Timestamp: at(m), Latitude: lat, Longitude: lon, PromptNum: num, Response: response}
}

func TestMatchTrips(t *testing.T) {
	params := Params{MaxTimeDiff: 30 * time.Minute, MaxDistanceMeters: 150}

	trips := []tripbreaker.Trip{
		observedTrip(1, 0, 20, 45.50, -73.57),
		observedTrip(2, 60, 90, 45.52, -73.60),
		observedTrip(3, 200, 230, 45.53, -73.61),
	}
	prompts := []Prompt{
		// answered 5 minutes after trip 1 ended, right where it ended
		prompt(25, 1, 45.5001, -73.5701, "bus"),
		prompt(25, 2, 45.5001, -73.5701, "work"),
		// shown while trip 2 was still underway, never usable
		prompt(70, 1, 45.51, -73.58, "walk"),
		// 2 km away from trip 2's end
		prompt(95, 1, 45.54, -73.60, "car"),
		// too late for trip 3
		prompt(300, 1, 45.53, -73.61, "bike"),
	}

	out := MatchTrips(trips, prompts, params)

	require.Len(t, out.Matches, 1)
	m := out.Matches[0]
	assert.Equal(t, 1, m.TripID)
	assert.Len(t, m.Prompts, 2)
	assert.Equal(t, 5*time.Minute, m.TimeDiff)
	assert.Less(t, m.Distance, 150.0)

	assert.Equal(t, 2, out.Unmatched)
	assert.Equal(t, 1, out.Remaining)
}

func TestMatchTripsInferredTripUsesDestinationStation(t *testing.T) {
	trip := tripbreaker.Trip{
		ID:   1,
		Code: tripbreaker.TripStationInferred,
		Inferred: &tripbreaker.InferredLink{
			From:  tripbreaker.Station{ID: "1", Latitude: 45.50, Longitude: -73.57},
			To:    tripbreaker.Station{ID: "2", Latitude: 45.51, Longitude: -73.56},
			Start: at(0),
			End:   at(10),
		},
	}

	out := MatchTrips([]tripbreaker.Trip{trip}, []Prompt{prompt(12, 1, 45.5101, -73.5601, "metro")},
		Params{MaxTimeDiff: 30 * time.Minute, MaxDistanceMeters: 150})

	require.Len(t, out.Matches, 1)
	assert.Equal(t, "metro", out.Matches[0].Prompts[0].Response)
	assert.Zero(t, out.Remaining)
}

func TestMatchTripsNoPrompts(t *testing.T) {
	out := MatchTrips([]tripbreaker.Trip{observedTrip(1, 0, 10, 45.5, -73.5)}, nil, Params{MaxTimeDiff: time.Hour, MaxDistanceMeters: 100})
	assert.Empty(t, out.Matches)
	assert.Zero(t, out.Unmatched)
}

func TestMatchTripsKeepsGroupShownAsNextTripEnds(t *testing.T) {
	trips := []tripbreaker.Trip{
		observedTrip(1, 0, 20, 45.50, -73.57),
		observedTrip(2, 60, 90, 45.52, -73.60),
	}
	// too far from trip 1, shown the moment trip 2 ends
	out := MatchTrips(trips, []Prompt{prompt(90, 1, 45.5201, -73.6001, "bus")},
		Params{MaxTimeDiff: 30 * time.Minute, MaxDistanceMeters: 150})

	require.Len(t, out.Matches, 1)
	assert.Equal(t, 2, out.Matches[0].TripID)
	assert.Zero(t, out.Matches[0].TimeDiff)
	assert.Zero(t, out.Unmatched)
}
