package stations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jamespfennell/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	data := "Station Name,Latitude,Longitude,OSM ID,Line\n" +
		"Berri-UQAM,45.5152,-73.5611,1234,orange\n" +
		"Mont-Royal,45.5244,-73.5817,,orange\n"

	got, err := ParseCSV([]byte(data))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "1234", got[0].ID)
	assert.Equal(t, "Berri-UQAM", got[0].Name)
	assert.InDelta(t, 45.5152, got[0].Latitude, 1e-9)
	assert.InDelta(t, -73.5611, got[0].Longitude, 1e-9)

	assert.Equal(t, "2", got[1].ID, "missing ids fall back to file position")
}

func TestParseCSVXYColumns(t *testing.T) {
	data := "x,y\n-73.5611,45.5152\n"

	got, err := ParseCSV([]byte(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 45.5152, got[0].Latitude, 1e-9)
	assert.InDelta(t, -73.5611, got[0].Longitude, 1e-9)
	assert.Equal(t, "1", got[0].ID)
}

func TestParseCSVErrors(t *testing.T) {
	_, err := ParseCSV([]byte("name,id\nfoo,1\n"))
	assert.Error(t, err)

	_, err = ParseCSV([]byte("latitude,longitude\nnorth,-73.5\n"))
	assert.ErrorContains(t, err, "line 2")

	got, err := ParseCSV(nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseGeoJSON(t *testing.T) {
	data := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "id": "node/42", "properties": {"name": "Jean-Talon"},
			 "geometry": {"type": "Point", "coordinates": [-73.6140, 45.5390]}},
			{"type": "Feature", "properties": {},
			 "geometry": {"type": "LineString", "coordinates": [[-73.6, 45.5], [-73.5, 45.6]]}},
			{"type": "Feature", "properties": {"name": "Snowdon"},
			 "geometry": {"type": "Point", "coordinates": [-73.6276, 45.4855]}}
		]
	}`

	got, err := ParseGeoJSON([]byte(data))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "node/42", got[0].ID)
	assert.Equal(t, "Jean-Talon", got[0].Name)
	assert.InDelta(t, 45.5390, got[0].Latitude, 1e-9)
	assert.InDelta(t, -73.6140, got[0].Longitude, 1e-9)
	assert.Equal(t, "2", got[1].ID)

	_, err = ParseGeoJSON([]byte("not json"))
	assert.Error(t, err)
}

func ptr(f float64) *float64 { return &f }

func TestFromStopsPrefersParentStations(t *testing.T) {
	stops := []gtfs.Stop{
		{Id: "PLATFORM-1", Name: "Lionel-Groulx quai", Type: gtfs.StopType_Stop, Latitude: ptr(45.4829), Longitude: ptr(-73.5798)},
		{Id: "STATION-1", Name: "Lionel-Groulx", Type: gtfs.StopType_Station, Latitude: ptr(45.4830), Longitude: ptr(-73.5800)},
		{Id: "STATION-2", Name: "Unlocated", Type: gtfs.StopType_Station},
	}

	got := fromStops(stops)
	require.Len(t, got, 1)
	assert.Equal(t, "STATION-1", got[0].ID)
	assert.Equal(t, "Lionel-Groulx", got[0].Name)
}

func TestFromStopsFallsBackToAllStops(t *testing.T) {
	stops := []gtfs.Stop{
		{Id: "A", Latitude: ptr(45.1), Longitude: ptr(-73.1)},
		{Id: "B", Latitude: ptr(45.2), Longitude: ptr(-73.2)},
	}
	got := fromStops(stops)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[1].ID)
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "stations.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte("latitude,longitude\n45.5,-73.5\n"), 0o644))
	got, err := Load(csvPath)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	emptyPath := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(emptyPath, []byte("latitude,longitude\n"), 0o644))
	_, err = Load(emptyPath)
	assert.ErrorContains(t, err, "no stations")

	_, err = Load(filepath.Join(dir, "stations.kml"))
	assert.Error(t, err)

	txtPath := filepath.Join(dir, "stations.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))
	_, err = Load(txtPath)
	assert.ErrorContains(t, err, "unsupported")
}
