package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tripbreaker/internal/promptmatch"
	"tripbreaker/internal/tripbreaker"
	"tripbreaker/internal/utm"
)

type Config struct {
	DatabaseURL       string
	InputSQLitePath   string
	Survey            string
	OutputDatabaseURL string
	StationsPath      string

	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool
	MetricsAddr       string
	Workers           int
	Debug             bool

	BreakInterval        time.Duration
	SubwayBufferMeters   float64
	AccuracyCutoffMeters float64
	MaxPlausibleSpeedMps float64
	MinTravelSpeedMps    float64
	FeasibleInference    bool
	UTMZone              int
	UTMSouth             bool

	MatchPrompts            bool
	PromptMaxTimeDiff       time.Duration
	PromptMaxDistanceMeters float64
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Input store: a SQLite processing database wins over PostgreSQL settings.
	cfg.InputSQLitePath = strings.TrimSpace(os.Getenv("INPUT_SQLITE_PATH"))
	cfg.Survey = strings.TrimSpace(os.Getenv("SURVEY"))
	if cfg.InputSQLitePath == "" {
		dsn, err := postgresDSN(cfg.Survey != "")
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	}
	cfg.OutputDatabaseURL = os.Getenv("OUTPUT_DATABASE_URL")
	cfg.StationsPath = os.Getenv("STATIONS_PATH")

	// Empty NATS_URL disables publishing.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "trips")
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.Debug = parseBool(os.Getenv("DEBUG"))

	var err error
	if cfg.Workers, err = positiveInt("WORKERS", 4); err != nil {
		return nil, err
	}

	breakSec, err := positiveInt("BREAK_INTERVAL_SECONDS", 360)
	if err != nil {
		return nil, err
	}
	cfg.BreakInterval = time.Duration(breakSec) * time.Second
	if cfg.SubwayBufferMeters, err = positiveFloat("SUBWAY_BUFFER_METERS", 300); err != nil {
		return nil, err
	}
	if cfg.AccuracyCutoffMeters, err = positiveFloat("ACCURACY_CUTOFF_METERS", 30); err != nil {
		return nil, err
	}
	if cfg.MaxPlausibleSpeedMps, err = positiveFloat("MAX_PLAUSIBLE_SPEED_MPS", 50); err != nil {
		return nil, err
	}
	if cfg.MinTravelSpeedMps, err = positiveFloat("MIN_TRAVEL_SPEED_MPS", 1.0); err != nil {
		return nil, err
	}
	if cfg.MinTravelSpeedMps > cfg.MaxPlausibleSpeedMps {
		return nil, fmt.Errorf("invalid MIN_TRAVEL_SPEED_MPS: %v exceeds MAX_PLAUSIBLE_SPEED_MPS %v", cfg.MinTravelSpeedMps, cfg.MaxPlausibleSpeedMps)
	}

	// UTM zone: 0 derives the zone from each individual's first point.
	if v := os.Getenv("UTM_ZONE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 60 {
			return nil, fmt.Errorf("invalid UTM_ZONE: %q", v)
		}
		cfg.UTMZone = n
	}
	cfg.UTMSouth = parseBool(os.Getenv("UTM_SOUTH"))
	cfg.FeasibleInference = parseBool(os.Getenv("INFER_REQUIRE_FEASIBLE"))

	cfg.MatchPrompts = parseBool(os.Getenv("MATCH_PROMPTS"))
	promptSec, err := positiveInt("PROMPT_MAX_TIME_DIFF_SECONDS", 1800)
	if err != nil {
		return nil, err
	}
	cfg.PromptMaxTimeDiff = time.Duration(promptSec) * time.Second
	if cfg.PromptMaxDistanceMeters, err = positiveFloat("PROMPT_MAX_DISTANCE_METERS", 150); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parameters returns the pipeline thresholds.
func (c *Config) Parameters() tripbreaker.Parameters {
	p := tripbreaker.Parameters{
		BreakInterval:        c.BreakInterval,
		SubwayBufferMeters:   c.SubwayBufferMeters,
		AccuracyCutoffMeters: c.AccuracyCutoffMeters,
		MaxPlausibleSpeedMps: c.MaxPlausibleSpeedMps,
		MinTravelSpeedMps:    c.MinTravelSpeedMps,

		RequireFeasibleInference: c.FeasibleInference,
	}
	if c.UTMZone != 0 {
		p.Zone = utm.Zone{Number: c.UTMZone, North: !c.UTMSouth}
	}
	return p
}

func (c *Config) PromptParams() promptmatch.Params {
	return promptmatch.Params{
		MaxTimeDiff:       c.PromptMaxTimeDiff,
		MaxDistanceMeters: c.PromptMaxDistanceMeters,
	}
}

// postgresDSN prefers DATABASE_URL / PG_DSN, else builds from PG* vars.
func postgresDSN(survey bool) (string, error) {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn, nil
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	db := os.Getenv("PGDATABASE")
	// If SURVEY is provided, default base DB to 'postgres' when PGDATABASE is not set.
	if db == "" && survey {
		db = "postgres"
	}
	if db == "" {
		return "", errors.New("INPUT_SQLITE_PATH, PGDATABASE or DATABASE_URL must be set (set PGDATABASE=postgres when using SURVEY)")
	}
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func positiveInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func positiveFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
