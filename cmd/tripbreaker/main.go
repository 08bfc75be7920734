package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripbreaker/internal/batch"
	"tripbreaker/internal/config"
	"tripbreaker/internal/db"
	"tripbreaker/internal/log"
	"tripbreaker/internal/metrics"
	"tripbreaker/internal/publisher"
	"tripbreaker/internal/stations"
	"tripbreaker/internal/tripbreaker"
)

func main() {
	if err := log.Init(false); err != nil {
		panic(err)
	}
	defer log.Sync()

	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.Debug {
		if err := log.Init(true); err != nil {
			log.Fatalf("logger error: %v", err)
		}
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	inputDB, inputDriver := openInput(ctx, cfg)
	defer inputDB.Close()

	var refStations []tripbreaker.Station
	if cfg.StationsPath != "" {
		refStations, err = stations.Load(cfg.StationsPath)
		if err != nil {
			log.Fatalf("load stations: %v", err)
		}
		log.Infow("stations loaded", "path", cfg.StationsPath, "count", len(refStations))
	} else {
		log.Warnw("STATIONS_PATH not set, station linking and inference disabled")
	}

	params := cfg.Parameters()

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(params, cfg.Workers)
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			// Shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	store := db.NewStore(inputDB, inputDriver)
	runCfg := batch.Config{
		Source:       store,
		Stations:     refStations,
		Params:       params,
		PromptParams: cfg.PromptParams(),
		Workers:      cfg.Workers,
	}
	if cfg.MatchPrompts {
		runCfg.Prompts = store
	}
	if mcol != nil {
		runCfg.Metrics = mcol
	}

	if cfg.OutputDatabaseURL != "" {
		outDB, outDriver, err := db.Open(cfg.OutputDatabaseURL)
		if err != nil {
			log.Fatalf("db open (output) error: %v", err)
		}
		defer outDB.Close()
		if err := db.Ping(ctx, outDB); err != nil {
			log.Fatalf("db ping (output) error: %v", err)
		}
		w := db.NewTripWriter(outDB, outDriver)
		if err := w.EnsureSchema(ctx); err != nil {
			log.Fatalf("output schema: %v", err)
		}
		runCfg.Sink = w
	} else {
		log.Warnw("OUTPUT_DATABASE_URL not set, trips will not be stored")
	}

	// Initialize NATS publisher
	if cfg.NATSURL != "" {
		var pm publisher.PublisherMetrics
		if mcol != nil {
			pm = mcol
		}
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, pm)
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		runCfg.Publisher = pub
	}

	runner, err := batch.NewRunner(runCfg)
	if err != nil {
		log.Fatalf("runner error: %v", err)
	}

	rep, err := runner.Run(ctx)
	for _, f := range rep.Failed {
		log.Warnw("skipped individual", "uuid", f.UserID, "err", f.Err)
	}
	log.Infow("batch finished",
		"run_id", rep.RunID,
		"individuals", rep.Individuals,
		"processed", rep.Processed,
		"empty", rep.Empty,
		"failed", len(rep.Failed),
		"skipped", rep.Skipped,
		"trips", rep.Trips,
	)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Infow("shutdown complete")
			return
		}
		log.Errorw("batch error", "err", err)
		log.Sync()
		os.Exit(1)
	}
}

// openInput connects to the SQLite processing database or to PostgreSQL,
// resolving the latest import of SURVEY through the cluster's meta database.
func openInput(ctx context.Context, cfg *config.Config) (*sql.DB, string) {
	if cfg.InputSQLitePath != "" {
		sqlDB, driver, err := db.Open("sqlite://" + cfg.InputSQLitePath)
		if err != nil {
			log.Fatalf("db open (input) error: %v", err)
		}
		if err := db.Ping(ctx, sqlDB); err != nil {
			log.Fatalf("db ping (input) error: %v", err)
		}
		return sqlDB, driver
	}

	baseDSN := cfg.DatabaseURL
	finalDSN := baseDSN
	if cfg.Survey != "" {
		// Connect to the 'postgres' database to read survey_imports
		rootDSN, err := db.WithDBName(baseDSN, "postgres")
		if err != nil {
			log.Fatalf("invalid base DSN: %v", err)
		}
		metaDB, _, err := db.Open(rootDSN)
		if err != nil {
			log.Fatalf("db open (meta) error: %v", err)
		}
		defer metaDB.Close()
		if err := db.Ping(ctx, metaDB); err != nil {
			log.Fatalf("db ping (meta) error: %v", err)
		}
		name, err := db.ResolveLatestSurveyDBName(ctx, metaDB, cfg.Survey)
		if err != nil {
			log.Fatalf("resolve latest import for survey %q: %v", cfg.Survey, err)
		}
		finalDSN, err = db.WithDBName(baseDSN, name)
		if err != nil {
			log.Fatalf("compose DSN: %v", err)
		}
		log.Infow("using survey database", "db", name, "survey", cfg.Survey)
	}

	sqlDB, driver, err := db.Open(finalDSN)
	if err != nil {
		log.Fatalf("db open (input) error: %v", err)
	}
	if err := db.Ping(ctx, sqlDB); err != nil {
		log.Fatalf("db ping (input) error: %v", err)
	}
	return sqlDB, driver
}
