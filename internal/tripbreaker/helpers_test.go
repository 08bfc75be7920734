package tripbreaker

import (
	"math"
	"time"
)

const (
	originLat = 45.5017
	originLon = -73.5673
	metersLat = 111320.0
)

var t0 = time.Date(2017, 11, 7, 8, 0, 0, 0, time.UTC)

func testParams() Parameters {
	return Parameters{
		BreakInterval:        300 * time.Second,
		SubwayBufferMeters:   300,
		AccuracyCutoffMeters: 30,
		MaxPlausibleSpeedMps: 50,
		MinTravelSpeedMps:    1,
	}
}

// latLon offsets the test origin by north/east meters.
func latLon(north, east float64) (float64, float64) {
	lat := originLat + north/metersLat
	lon := originLon + east/(metersLat*math.Cos(originLat*math.Pi/180))
	return lat, lon
}

// pt builds a point sec seconds after t0 at north/east meters from origin.
func pt(sec int, north, east float64) RawPoint {
	lat, lon := latLon(north, east)
	return RawPoint{
		UserID:    "user-1",
		Timestamp: t0.Add(time.Duration(sec) * time.Second),
		Latitude:  lat,
		Longitude: lon,
		HAccuracy: 10,
		Speed:     1.5,
	}
}

func station(id string, north, east float64) Station {
	lat, lon := latLon(north, east)
	return Station{ID: id, Name: "Station " + id, Latitude: lat, Longitude: lon}
}

// cluster returns n points spaced step seconds apart starting at sec,
// walking north by stepMeters from (north, east).
func cluster(sec, n, step int, north, east, stepMeters float64) []RawPoint {
	out := make([]RawPoint, n)
	for i := range out {
		out[i] = pt(sec+i*step, north+float64(i)*stepMeters, east)
	}
	return out
}

func concat(parts ...[]RawPoint) []RawPoint {
	var out []RawPoint
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
