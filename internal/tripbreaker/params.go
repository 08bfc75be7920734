package tripbreaker

import (
	"fmt"
	"math"
	"time"

	"tripbreaker/internal/utm"
)

// Parameters tunes the pipeline. All thresholds must be positive.
type Parameters struct {
	BreakInterval        time.Duration // split segments at gaps longer than this
	SubwayBufferMeters   float64       // station proximity radius
	AccuracyCutoffMeters float64       // drop points less accurate than this
	MaxPlausibleSpeedMps float64       // connector speed ceiling
	MinTravelSpeedMps    float64       // below this a gap is a stationary period

	// RequireFeasibleInference only infers a station-to-station trip when
	// the station distance over the elapsed time stays within
	// MaxPlausibleSpeedMps.
	RequireFeasibleInference bool

	// Zone pins the projection. The zero value derives the zone from the
	// first accurate projectable point.
	Zone utm.Zone
}

func (p Parameters) Validate() error {
	if p.BreakInterval <= 0 {
		return fmt.Errorf("%w: break interval must be positive, got %s", ErrConfiguration, p.BreakInterval)
	}
	checks := []struct {
		name string
		v    float64
	}{
		{"subway buffer", p.SubwayBufferMeters},
		{"accuracy cutoff", p.AccuracyCutoffMeters},
		{"max plausible speed", p.MaxPlausibleSpeedMps},
		{"min travel speed", p.MinTravelSpeedMps},
	}
	for _, c := range checks {
		if !(c.v > 0) || math.IsInf(c.v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrConfiguration, c.name, c.v)
		}
	}
	if p.MinTravelSpeedMps > p.MaxPlausibleSpeedMps {
		return fmt.Errorf("%w: min travel speed %v exceeds max plausible speed %v",
			ErrConfiguration, p.MinTravelSpeedMps, p.MaxPlausibleSpeedMps)
	}
	if p.Zone != (utm.Zone{}) && !p.Zone.Valid() {
		return fmt.Errorf("%w: utm zone %d out of range", ErrConfiguration, p.Zone.Number)
	}
	return nil
}
