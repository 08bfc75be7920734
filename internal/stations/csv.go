package stations

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tripbreaker/internal/tripbreaker"
)

// ParseCSV reads a header row followed by one station per row. Column names
// are matched case-insensitively; X/Y stand in for Longitude/Latitude.
func ParseCSV(b []byte) ([]tripbreaker.Station, error) {
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	col := func(names ...string) int {
		for _, n := range names {
			if i, ok := cols[n]; ok {
				return i
			}
		}
		return -1
	}

	latCol, lonCol := col("latitude", "y"), col("longitude", "x")
	if latCol < 0 || lonCol < 0 {
		return nil, errors.New("missing latitude/longitude columns")
	}
	idCol, nameCol := col("osm id", "id"), col("station name", "name")

	field := func(rec []string, i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []tripbreaker.Station
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		lat, err := strconv.ParseFloat(field(rec, latCol), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid latitude %q", line, field(rec, latCol))
		}
		lon, err := strconv.ParseFloat(field(rec, lonCol), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid longitude %q", line, field(rec, lonCol))
		}
		out = append(out, tripbreaker.Station{
			ID:        field(rec, idCol),
			Name:      field(rec, nameCol),
			Latitude:  lat,
			Longitude: lon,
		})
	}
	fillIDs(out)
	return out, nil
}
