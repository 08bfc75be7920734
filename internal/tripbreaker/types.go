package tripbreaker

import (
	"time"

	"github.com/paulmach/orb"

	"tripbreaker/internal/utm"
)

// RawPoint is one recorded location fix for an individual.
type RawPoint struct {
	UserID    string
	Timestamp time.Time
	Latitude  float64
	Longitude float64
	HAccuracy float64 // meters
	VAccuracy float64 // meters
	Speed     float64 // m/s as reported by the device
	Altitude  float64
}

// ProjectedPoint is a RawPoint with planar UTM coordinates.
type ProjectedPoint struct {
	RawPoint
	Easting  float64
	Northing float64
}

// XY returns the planar position.
func (p ProjectedPoint) XY() orb.Point { return orb.Point{p.Easting, p.Northing} }

// Station is a transit station used to bridge underground GPS loss.
type Station struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	Easting   float64
	Northing  float64
}

// XY returns the planar position. Only meaningful after projection.
func (s Station) XY() orb.Point { return orb.Point{s.Easting, s.Northing} }

// StationMatch tags a segment end with its nearest station.
type StationMatch struct {
	Station  Station
	Distance float64
}

// Segment is a run of points with no time gap above the break interval.
type Segment struct {
	Points []ProjectedPoint
	Start  *StationMatch
	End    *StationMatch
}

func (s Segment) first() ProjectedPoint { return s.Points[0] }
func (s Segment) last() ProjectedPoint  { return s.Points[len(s.Points)-1] }

// TripCode describes how a trip was built.
type TripCode string

const (
	TripDirect          TripCode = "direct"
	TripVelocityMerged  TripCode = "velocity-merged"
	TripStationInferred TripCode = "station-inferred"
)

// MergeCode records one pipeline step that shaped a trip.
type MergeCode string

const (
	MergeVelocity    MergeCode = "velocity-merge"
	MergeStationLink MergeCode = "station-link"
	MergeInferred    MergeCode = "inferred"
)

// InferredLink describes a trip with no observed points, reconstructed from
// consecutive segments ending and starting at different stations.
type InferredLink struct {
	From  Station
	To    Station
	Start time.Time
	End   time.Time
}

// Trip is a detected movement episode. Observed trips carry points and a nil
// Inferred; inferred trips carry no points.
type Trip struct {
	ID         int
	Code       TripCode
	MergeCodes []MergeCode
	Points     []ProjectedPoint
	Inferred   *InferredLink
}

// IsInferred reports whether the trip was synthesized without observed points.
func (t Trip) IsInferred() bool { return t.Inferred != nil }

// Span returns the first and last timestamp of the trip.
func (t Trip) Span() (start, end time.Time) {
	if t.Inferred != nil {
		return t.Inferred.Start, t.Inferred.End
	}
	if len(t.Points) == 0 {
		return time.Time{}, time.Time{}
	}
	return t.Points[0].Timestamp, t.Points[len(t.Points)-1].Timestamp
}

// StartLocation returns the latitude/longitude where the trip begins.
func (t Trip) StartLocation() (lat, lon float64) {
	if t.Inferred != nil {
		return t.Inferred.From.Latitude, t.Inferred.From.Longitude
	}
	if len(t.Points) == 0 {
		return 0, 0
	}
	return t.Points[0].Latitude, t.Points[0].Longitude
}

// EndLocation returns the latitude/longitude where the trip ends.
func (t Trip) EndLocation() (lat, lon float64) {
	if t.Inferred != nil {
		return t.Inferred.To.Latitude, t.Inferred.To.Longitude
	}
	if len(t.Points) == 0 {
		return 0, 0
	}
	p := t.Points[len(t.Points)-1]
	return p.Latitude, p.Longitude
}

// Geometry returns the trip path in lon/lat order for WKT/GeoJSON output.
// Inferred trips are drawn as the straight station-to-station line.
func (t Trip) Geometry() orb.Geometry {
	if t.Inferred != nil {
		return orb.LineString{
			{t.Inferred.From.Longitude, t.Inferred.From.Latitude},
			{t.Inferred.To.Longitude, t.Inferred.To.Latitude},
		}
	}
	if len(t.Points) == 1 {
		return orb.Point{t.Points[0].Longitude, t.Points[0].Latitude}
	}
	ls := make(orb.LineString, len(t.Points))
	for i, p := range t.Points {
		ls[i] = orb.Point{p.Longitude, p.Latitude}
	}
	return ls
}

// TripSummary holds the aggregate metrics of one trip.
type TripSummary struct {
	TripID             int
	Start              time.Time
	End                time.Time
	DirectDistance     float64 // meters
	CumulativeDistance float64 // meters
	Code               TripCode
	MergeCodes         []MergeCode

	PointCount        int
	Duration          time.Duration
	AverageSpeed      float64 // cumulative distance over duration, m/s
	MeanReportedSpeed float64 // mean device speed, m/s
	MaxReportedSpeed  float64 // m/s
}

// Diagnostics counts what happened to the input points of one run.
type Diagnostics struct {
	InputPoints       int
	ProjectionDropped int
	AccuracyDropped   int
	NoisePoints       int
	Segments          int
	StationLinks      int
	VelocityMerges    int
	InferredTrips     int
}

// Retained returns the number of points that survived accuracy filtering.
func (d Diagnostics) Retained() int {
	return d.InputPoints - d.ProjectionDropped - d.AccuracyDropped
}

// Result is the outcome of running the pipeline for one individual.
type Result struct {
	UserID      string
	Zone        utm.Zone
	Trips       []Trip        // ordered by ID, Trips[i].ID == i+1
	Summaries   []TripSummary // ordered by TripID
	Diagnostics Diagnostics
}

// Empty reports whether the run produced no trips.
func (r Result) Empty() bool { return len(r.Trips) == 0 }

// Trip returns the trip with the given id.
func (r Result) Trip(id int) (Trip, bool) {
	if id < 1 || id > len(r.Trips) {
		return Trip{}, false
	}
	return r.Trips[id-1], true
}

// Summary returns the summary of the trip with the given id.
func (r Result) Summary(id int) (TripSummary, bool) {
	if id < 1 || id > len(r.Summaries) {
		return TripSummary{}, false
	}
	return r.Summaries[id-1], true
}
