package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tripbreaker/internal/log"
	"tripbreaker/internal/promptmatch"
	"tripbreaker/internal/tripbreaker"
)

// Store reads survey data: individuals, their coordinates and their mode
// prompt answers. SQLite processing databases keep every column as text, so
// values are coerced after scanning.
type Store struct {
	db     *sql.DB
	driver string
}

func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// UserIDs returns the individuals who answered the survey, falling back to
// everyone with recorded coordinates.
func (s *Store) UserIDs(ctx context.Context) ([]string, error) {
	table := "survey_responses"
	ok, err := hasTable(ctx, s.db, s.driver, table)
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	if !ok {
		table = "coordinates"
	}

	q := fmt.Sprintf(`SELECT DISTINCT uuid FROM %s WHERE uuid IS NOT NULL ORDER BY uuid`, table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// Points returns the coordinates of one individual ordered by timestamp.
// Rows without a latitude or longitude are skipped. A missing h_accuracy
// reads as +Inf so the accuracy filter drops the fix.
func (s *Store) Points(ctx context.Context, userID string) ([]tripbreaker.RawPoint, error) {
	q := rebind(s.driver, `
SELECT latitude, longitude, h_accuracy, v_accuracy, speed, altitude, timestamp
FROM coordinates
WHERE uuid = $1
ORDER BY timestamp`)
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query coordinates: %w", err)
	}
	defer rows.Close()

	var pts []tripbreaker.RawPoint
	skipped := 0
	for rows.Next() {
		var lat, lon, hAcc, vAcc, speed, alt, ts any
		if err := rows.Scan(&lat, &lon, &hAcc, &vAcc, &speed, &alt, &ts); err != nil {
			return nil, err
		}
		p, ok, err := scanPoint(userID, lat, lon, hAcc, vAcc, speed, alt, ts)
		if err != nil {
			return nil, fmt.Errorf("coordinates for %s: %w", userID, err)
		}
		if !ok {
			skipped++
			continue
		}
		pts = append(pts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warnw("skipped coordinates without a position", "uuid", userID, "rows", skipped)
	}
	return pts, nil
}

// scanPoint coerces one coordinates row. ok is false when the row has no
// position.
func scanPoint(userID string, lat, lon, hAcc, vAcc, speed, alt, ts any) (p tripbreaker.RawPoint, ok bool, err error) {
	p.UserID = userID
	if p.Timestamp, err = asTime(ts); err != nil {
		return p, false, fmt.Errorf("timestamp: %w", err)
	}

	var hasLat, hasLon, hasAcc bool
	if p.Latitude, hasLat, err = nullableFloat(lat); err != nil {
		return p, false, fmt.Errorf("latitude: %w", err)
	}
	if p.Longitude, hasLon, err = nullableFloat(lon); err != nil {
		return p, false, fmt.Errorf("longitude: %w", err)
	}
	if p.HAccuracy, hasAcc, err = nullableFloat(hAcc); err != nil {
		return p, false, fmt.Errorf("h_accuracy: %w", err)
	}
	if !hasAcc {
		p.HAccuracy = math.Inf(1)
	}
	for _, f := range []struct {
		name string
		src  any
		dst  *float64
	}{
		{"v_accuracy", vAcc, &p.VAccuracy},
		{"speed", speed, &p.Speed},
		{"altitude", alt, &p.Altitude},
	} {
		if *f.dst, err = asFloat(f.src); err != nil {
			return p, false, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return p, hasLat && hasLon, nil
}

// Prompts returns the mode prompt answers of one individual ordered by the
// time the prompt was shown. A database without prompt_responses yields none.
func (s *Store) Prompts(ctx context.Context, userID string) ([]promptmatch.Prompt, error) {
	ok, err := hasTable(ctx, s.db, s.driver, "prompt_responses")
	if err != nil {
		return nil, fmt.Errorf("introspect prompt_responses: %w", err)
	}
	if !ok {
		return nil, nil
	}

	q := rebind(s.driver, `
SELECT prompt_num, response, latitude, longitude, timestamp, recorded_at
FROM prompt_responses
WHERE uuid = $1
ORDER BY timestamp, prompt_num`)
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query prompt_responses: %w", err)
	}
	defer rows.Close()

	var out []promptmatch.Prompt
	for rows.Next() {
		var num, resp, lat, lon, ts, recorded any
		if err := rows.Scan(&num, &resp, &lat, &lon, &ts, &recorded); err != nil {
			return nil, err
		}
		p := promptmatch.Prompt{UserID: userID, Response: asString(resp)}
		n, err := asFloat(num)
		if err != nil {
			return nil, fmt.Errorf("prompt_responses for %s: prompt_num: %w", userID, err)
		}
		p.PromptNum = int(n)
		if p.Latitude, err = asFloat(lat); err != nil {
			return nil, fmt.Errorf("prompt_responses for %s: latitude: %w", userID, err)
		}
		if p.Longitude, err = asFloat(lon); err != nil {
			return nil, fmt.Errorf("prompt_responses for %s: longitude: %w", userID, err)
		}
		if p.Timestamp, err = asTime(ts); err != nil {
			return nil, fmt.Errorf("prompt_responses for %s: timestamp: %w", userID, err)
		}
		if recorded != nil {
			if p.RecordedAt, err = asTime(recorded); err != nil {
				return nil, fmt.Errorf("prompt_responses for %s: recorded_at: %w", userID, err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// asFloat accepts driver-native numbers and numeric text. NULL and empty
// text read as zero.
func asFloat(v any) (float64, error) {
	f, _, err := nullableFloat(v)
	return f, err
}

// nullableFloat is asFloat that also reports whether a value was present.
func nullableFloat(v any) (float64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return x, true, nil
	case float32:
		return float64(x), true, nil
	case int64:
		return float64(x), true, nil
	case int32:
		return float64(x), true, nil
	case int:
		return float64(x), true, nil
	case []byte:
		return nullableFloat(string(x))
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil, err
	default:
		return 0, false, fmt.Errorf("unsupported numeric type %T", v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
}

// asTime accepts driver-native timestamps and ISO-8601 text. Text without
// an offset is read as UTC.
func asTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case []byte:
		return asTime(string(x))
	case string:
		x = strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", x)
	case nil:
		return time.Time{}, fmt.Errorf("missing timestamp")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
