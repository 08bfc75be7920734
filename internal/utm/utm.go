// Package utm implements the forward Universal Transverse Mercator projection
// on the WGS84 ellipsoid.
package utm

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned for coordinates UTM does not cover.
var ErrOutOfRange = errors.New("coordinate outside UTM range")

const (
	k0 = 0.9996
	e  = 0.00669438
	e2 = e * e
	e3 = e2 * e
	ep = e / (1 - e)

	m1 = 1 - e/4 - 3*e2/64 - 5*e3/256
	m2 = 3*e/8 + 3*e2/32 + 45*e3/1024
	m3 = 15*e2/256 + 45*e3/1024
	m4 = 35 * e3 / 3072

	radius = 6378137.0

	falseEasting       = 500000.0
	falseNorthingSouth = 10000000.0

	minLat = -80.0
	maxLat = 84.0
)

// Zone identifies a UTM zone and hemisphere.
type Zone struct {
	Number int
	North  bool
}

func (z Zone) String() string {
	h := "N"
	if !z.North {
		h = "S"
	}
	return fmt.Sprintf("%d%s", z.Number, h)
}

// Valid reports whether the zone number is within 1..60.
func (z Zone) Valid() bool { return z.Number >= 1 && z.Number <= 60 }

// CentralMeridian returns the zone's central longitude in degrees.
func (z Zone) CentralMeridian() float64 {
	return float64((z.Number-1)*6-180) + 3
}

// InRange reports whether lat/lon can be projected.
func InRange(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= minLat && lat <= maxLat && lon >= -180 && lon <= 180
}

// ZoneFor returns the standard zone for a coordinate, including the
// Norway and Svalbard exceptions.
func ZoneFor(lat, lon float64) (Zone, error) {
	if !InRange(lat, lon) {
		return Zone{}, fmt.Errorf("%w: lat=%v lon=%v", ErrOutOfRange, lat, lon)
	}
	z := Zone{North: lat >= 0}

	switch {
	case lat >= 56 && lat < 64 && lon >= 3 && lon < 12:
		z.Number = 32
	case lat >= 72 && lon >= 0 && lon < 9:
		z.Number = 31
	case lat >= 72 && lon >= 9 && lon < 21:
		z.Number = 33
	case lat >= 72 && lon >= 21 && lon < 33:
		z.Number = 35
	case lat >= 72 && lon >= 33 && lon < 42:
		z.Number = 37
	default:
		z.Number = int((lon+180)/6) + 1
		if z.Number > 60 {
			z.Number = 60
		}
	}
	return z, nil
}

// Project converts lat/lon (degrees) to easting/northing (meters) in zone z.
// Points outside z are still projected against z's central meridian, so a
// whole track can share one planar frame.
func Project(lat, lon float64, z Zone) (easting, northing float64, err error) {
	if !z.Valid() {
		return 0, 0, fmt.Errorf("invalid zone number %d", z.Number)
	}
	if !InRange(lat, lon) {
		return 0, 0, fmt.Errorf("%w: lat=%v lon=%v", ErrOutOfRange, lat, lon)
	}

	latRad := lat * math.Pi / 180
	latSin := math.Sin(latRad)
	latCos := math.Cos(latRad)
	latTan := latSin / latCos
	latTan2 := latTan * latTan
	latTan4 := latTan2 * latTan2

	lonRad := lon * math.Pi / 180
	centralRad := z.CentralMeridian() * math.Pi / 180

	n := radius / math.Sqrt(1-e*latSin*latSin)
	c := ep * latCos * latCos

	a := latCos * modAngle(lonRad-centralRad)
	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	m := radius * (m1*latRad -
		m2*math.Sin(2*latRad) +
		m3*math.Sin(4*latRad) -
		m4*math.Sin(6*latRad))

	easting = k0*n*(a+
		a3/6*(1-latTan2+c)+
		a5/120*(5-18*latTan2+latTan4+72*c-58*ep)) + falseEasting

	northing = k0 * (m + n*latTan*(a2/2+
		a4/24*(5-latTan2+9*c+4*c*c)+
		a6/720*(61-58*latTan2+latTan4+600*c-330*ep)))

	if !z.North {
		northing += falseNorthingSouth
	}
	return easting, northing, nil
}

// modAngle wraps an angle into [-pi, pi).
func modAngle(v float64) float64 {
	r := math.Mod(v+math.Pi, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	return r - math.Pi
}
