// Package stations loads the transit station reference set from CSV, GeoJSON
// or GTFS static feeds.
package stations

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tripbreaker/internal/tripbreaker"
)

// Load reads stations from path, choosing the format by file extension.
// Coordinates are returned unprojected.
func Load(path string) ([]tripbreaker.Station, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}

	var out []tripbreaker.Station
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		out, err = ParseCSV(b)
	case ".geojson", ".json":
		out, err = ParseGeoJSON(b)
	case ".zip":
		out, err = ParseGTFS(b)
	default:
		return nil, fmt.Errorf("unsupported stations file %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no stations in %s", filepath.Base(path))
	}
	return out, nil
}

// fillIDs gives stations without an id their 1-based position in the file.
func fillIDs(stations []tripbreaker.Station) {
	for i := range stations {
		if stations[i].ID == "" {
			stations[i].ID = strconv.Itoa(i + 1)
		}
	}
}
