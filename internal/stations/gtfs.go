package stations

import (
	"fmt"

	"github.com/jamespfennell/gtfs"

	"tripbreaker/internal/tripbreaker"
)

// ParseGTFS reads a zipped GTFS static feed.
func ParseGTFS(b []byte) ([]tripbreaker.Station, error) {
	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	return fromStops(static.Stops), nil
}

// fromStops keeps parent stations when the feed defines any, and every
// located stop otherwise.
func fromStops(stops []gtfs.Stop) []tripbreaker.Station {
	hasStations := false
	for i := range stops {
		if stops[i].Type == gtfs.StopType_Station {
			hasStations = true
			break
		}
	}

	var out []tripbreaker.Station
	for i := range stops {
		s := &stops[i]
		if hasStations && s.Type != gtfs.StopType_Station {
			continue
		}
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		out = append(out, tripbreaker.Station{
			ID:        s.Id,
			Name:      s.Name,
			Latitude:  *s.Latitude,
			Longitude: *s.Longitude,
		})
	}
	return out
}
