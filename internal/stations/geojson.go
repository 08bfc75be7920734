package stations

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"tripbreaker/internal/tripbreaker"
)

// ParseGeoJSON reads a FeatureCollection. Point features become stations;
// other geometries are skipped.
func ParseGeoJSON(b []byte) ([]tripbreaker.Station, error) {
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, err
	}

	var out []tripbreaker.Station
	for _, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		id := ""
		if f.ID != nil {
			id = fmt.Sprint(f.ID)
		}
		if id == "" {
			id = f.Properties.MustString("id", "")
		}
		out = append(out, tripbreaker.Station{
			ID:        id,
			Name:      f.Properties.MustString("name", ""),
			Latitude:  p.Lat(),
			Longitude: p.Lon(),
		})
	}
	fillIDs(out)
	return out, nil
}
