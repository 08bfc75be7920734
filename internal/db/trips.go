package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"

	"tripbreaker/internal/promptmatch"
	"tripbreaker/internal/tripbreaker"
)

// TripWriter persists detected trips and their prompt matches. Each
// individual's rows are replaced as a whole.
type TripWriter struct {
	db     *sql.DB
	driver string
}

func NewTripWriter(db *sql.DB, driver string) *TripWriter {
	return &TripWriter{db: db, driver: driver}
}

func (w *TripWriter) EnsureSchema(ctx context.Context) error {
	id, ts, float, geom := "SERIAL PRIMARY KEY", "TIMESTAMPTZ", "DOUBLE PRECISION", "GEOMETRY(Geometry, 4326)"
	if w.driver == DriverSQLite {
		id, ts, float, geom = "INTEGER PRIMARY KEY AUTOINCREMENT", "TEXT", "REAL", "TEXT"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS detected_trips (
  id %s,
  run_id TEXT NOT NULL,
  uuid VARCHAR(36) NOT NULL,
  trip_id INTEGER NOT NULL,
  start_time %s,
  end_time %s,
  direct_distance %s,
  cumulative_distance %s,
  trip_code TEXT NOT NULL,
  merge_codes TEXT NOT NULL,
  point_count INTEGER NOT NULL,
  average_speed %s,
  geom %s
)`, id, ts, ts, float, float, float, geom),
		`CREATE INDEX IF NOT EXISTS detected_trips_uuid_idx ON detected_trips (uuid, trip_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS trip_points (
  id %s,
  run_id TEXT NOT NULL,
  uuid VARCHAR(36) NOT NULL,
  trip_id INTEGER NOT NULL,
  seq INTEGER NOT NULL,
  timestamp %s,
  latitude %s,
  longitude %s,
  h_accuracy %s,
  speed %s,
  easting %s,
  northing %s,
  distance %s,
  trip_distance %s,
  trip_code TEXT NOT NULL,
  geom %s
)`, id, ts, float, float, float, float, float, float, float, float, pointGeom(w.driver)),
		`CREATE INDEX IF NOT EXISTS trip_points_uuid_idx ON trip_points (uuid, trip_id, seq)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS trip_prompt_matches (
  id %s,
  run_id TEXT NOT NULL,
  uuid VARCHAR(36) NOT NULL,
  trip_id INTEGER NOT NULL,
  prompt_num INTEGER NOT NULL,
  response TEXT,
  prompt_time %s,
  time_diff_seconds %s,
  distance_meters %s
)`, id, ts, float, float),
		`CREATE INDEX IF NOT EXISTS trip_prompt_matches_uuid_idx ON trip_prompt_matches (uuid, trip_id)`,
	}
	for _, q := range stmts {
		if _, err := w.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// WriteResult replaces everything stored for res.UserID with res, the points
// of its observed trips and its prompt matches inside one transaction.
func (w *TripWriter) WriteResult(ctx context.Context, runID string, res tripbreaker.Result, matches []promptmatch.Match) (err error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"detected_trips", "trip_points", "trip_prompt_matches"} {
		q := rebind(w.driver, fmt.Sprintf(`DELETE FROM %s WHERE uuid = $1`, table))
		if _, err = tx.ExecContext(ctx, q, res.UserID); err != nil {
			return fmt.Errorf("clear %s for %s: %w", table, res.UserID, err)
		}
	}

	geomExpr := "ST_GeomFromText($12, 4326)"
	if w.driver == DriverSQLite {
		geomExpr = "$12"
	}
	insertTrip, err := tx.PrepareContext(ctx, rebind(w.driver, `
INSERT INTO detected_trips (run_id, uuid, trip_id, start_time, end_time, direct_distance,
  cumulative_distance, trip_code, merge_codes, point_count, average_speed, geom)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, `+geomExpr+`)`))
	if err != nil {
		return fmt.Errorf("prepare trip insert: %w", err)
	}
	defer insertTrip.Close()

	for i, trip := range res.Trips {
		s := res.Summaries[i]
		_, err = insertTrip.ExecContext(ctx,
			runID, res.UserID, trip.ID,
			w.timeArg(s.Start), w.timeArg(s.End),
			s.DirectDistance, s.CumulativeDistance,
			string(s.Code), joinMergeCodes(s.MergeCodes),
			s.PointCount, s.AverageSpeed,
			wkt.MarshalString(trip.Geometry()),
		)
		if err != nil {
			return fmt.Errorf("insert trip %d for %s: %w", trip.ID, res.UserID, err)
		}
	}

	if err = w.writePoints(ctx, tx, runID, res); err != nil {
		return err
	}

	if len(matches) > 0 {
		insertMatch, perr := tx.PrepareContext(ctx, rebind(w.driver, `
INSERT INTO trip_prompt_matches (run_id, uuid, trip_id, prompt_num, response, prompt_time,
  time_diff_seconds, distance_meters)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`))
		if perr != nil {
			return fmt.Errorf("prepare prompt match insert: %w", perr)
		}
		defer insertMatch.Close()

		for _, m := range matches {
			for _, p := range m.Prompts {
				_, err = insertMatch.ExecContext(ctx,
					runID, res.UserID, m.TripID, p.PromptNum, p.Response,
					w.timeArg(p.Timestamp), m.TimeDiff.Seconds(), m.Distance,
				)
				if err != nil {
					return fmt.Errorf("insert prompt match for trip %d of %s: %w", m.TripID, res.UserID, err)
				}
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit trips for %s: %w", res.UserID, err)
	}
	return nil
}

// writePoints stores every point of the observed trips with its distance
// from the previous point and the running distance along the trip.
func (w *TripWriter) writePoints(ctx context.Context, tx *sql.Tx, runID string, res tripbreaker.Result) error {
	geomExpr := "ST_GeomFromText($15, 4326)"
	if w.driver == DriverSQLite {
		geomExpr = "$15"
	}
	insert, err := tx.PrepareContext(ctx, rebind(w.driver, `
INSERT INTO trip_points (run_id, uuid, trip_id, seq, timestamp, latitude, longitude, h_accuracy,
  speed, easting, northing, distance, trip_distance, trip_code, geom)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, `+geomExpr+`)`))
	if err != nil {
		return fmt.Errorf("prepare trip point insert: %w", err)
	}
	defer insert.Close()

	for _, trip := range res.Trips {
		var total float64
		for i, p := range trip.Points {
			var step float64
			if i > 0 {
				step = planar.Distance(trip.Points[i-1].XY(), p.XY())
			}
			total += step
			_, err = insert.ExecContext(ctx,
				runID, res.UserID, trip.ID, i+1, w.timeArg(p.Timestamp),
				p.Latitude, p.Longitude, p.HAccuracy, p.Speed,
				p.Easting, p.Northing, step, total, string(trip.Code),
				wkt.MarshalString(orb.Point{p.Longitude, p.Latitude}),
			)
			if err != nil {
				return fmt.Errorf("insert point %d of trip %d for %s: %w", i+1, trip.ID, res.UserID, err)
			}
		}
	}
	return nil
}

func pointGeom(driver string) string {
	if driver == DriverSQLite {
		return "TEXT"
	}
	return "GEOMETRY(Point, 4326)"
}

// timeArg stores SQLite timestamps as sortable RFC 3339 text.
func (w *TripWriter) timeArg(t time.Time) any {
	if w.driver == DriverSQLite {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t
}

func joinMergeCodes(codes []tripbreaker.MergeCode) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
