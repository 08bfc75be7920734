// Package batch runs trip detection over every individual of a survey with a
// fixed pool of workers. One individual failing never stops the others.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripbreaker/internal/log"
	"tripbreaker/internal/promptmatch"
	"tripbreaker/internal/tripbreaker"
)

type Source interface {
	UserIDs(ctx context.Context) ([]string, error)
	Points(ctx context.Context, userID string) ([]tripbreaker.RawPoint, error)
}

type PromptSource interface {
	Prompts(ctx context.Context, userID string) ([]promptmatch.Prompt, error)
}

type Sink interface {
	WriteResult(ctx context.Context, runID string, res tripbreaker.Result, matches []promptmatch.Match) error
}

type Publisher interface {
	PublishResult(runID string, res tripbreaker.Result) error
}

type Metrics interface {
	ObserveResult(res tripbreaker.Result, d time.Duration)
	IndividualFailed()
	WorkerBusy(busy bool)
	ObservePrompts(matched, unmatched int)
}

// Config wires a Runner. Prompts, Sink, Publisher and Metrics are optional.
type Config struct {
	Source       Source
	Prompts      PromptSource
	Sink         Sink
	Publisher    Publisher
	Metrics      Metrics
	Stations     []tripbreaker.Station
	Params       tripbreaker.Parameters
	PromptParams promptmatch.Params
	Workers      int
}

type Failure struct {
	UserID string
	Err    error
}

// Report summarizes one batch run.
type Report struct {
	RunID       string
	Individuals int
	Processed   int
	Empty       int // processed individuals with no trips
	Trips       int
	Failed      []Failure // ordered by UserID
	Skipped     int       // never started because the run was cancelled
}

type Runner struct {
	cfg   Config
	runID string

	mu     sync.Mutex
	report Report
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Source == nil {
		return nil, errors.New("batch: source is required")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{cfg: cfg, runID: uuid.NewString()}, nil
}

func (r *Runner) RunID() string { return r.runID }

// Run processes every individual. It returns ctx.Err() when cancelled,
// after in-flight individuals finish.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	ids, err := r.cfg.Source.UserIDs(ctx)
	if err != nil {
		return Report{RunID: r.runID}, fmt.Errorf("list individuals: %w", err)
	}

	r.report = Report{RunID: r.runID, Individuals: len(ids)}
	log.Infow("batch started", "run_id", r.runID, "individuals", len(ids), "workers", r.cfg.Workers)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				r.process(ctx, id)
			}
		}()
	}

	dispatched := 0
dispatch:
	for _, id := range ids {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- id:
			dispatched++
		}
	}
	close(jobs)
	wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	rep := r.report
	rep.Skipped = len(ids) - dispatched
	rep.Failed = append([]Failure(nil), rep.Failed...)
	sort.Slice(rep.Failed, func(i, j int) bool { return rep.Failed[i].UserID < rep.Failed[j].UserID })
	return rep, ctx.Err()
}

func (r *Runner) process(ctx context.Context, id string) {
	if m := r.cfg.Metrics; m != nil {
		m.WorkerBusy(true)
		defer m.WorkerBusy(false)
	}

	res, err := r.processOne(ctx, id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.report.Failed = append(r.report.Failed, Failure{UserID: id, Err: err})
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.IndividualFailed()
		}
		log.Errorw("individual failed", "uuid", id, "err", err)
		return
	}
	r.report.Processed++
	r.report.Trips += len(res.Trips)
	if res.Empty() {
		r.report.Empty++
	}
}

func (r *Runner) processOne(ctx context.Context, id string) (tripbreaker.Result, error) {
	points, err := r.cfg.Source.Points(ctx, id)
	if err != nil {
		return tripbreaker.Result{}, err
	}

	start := time.Now()
	res, err := tripbreaker.Run(points, r.cfg.Stations, r.cfg.Params)
	if err != nil {
		return tripbreaker.Result{}, err
	}
	elapsed := time.Since(start)
	if res.UserID == "" {
		res.UserID = id
	}

	var matches []promptmatch.Match
	if r.cfg.Prompts != nil && !res.Empty() {
		prompts, err := r.cfg.Prompts.Prompts(ctx, id)
		if err != nil {
			return tripbreaker.Result{}, err
		}
		out := promptmatch.MatchTrips(res.Trips, prompts, r.cfg.PromptParams)
		matches = out.Matches
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.ObservePrompts(len(out.Matches), out.Unmatched+out.Remaining)
		}
	}

	if r.cfg.Sink != nil {
		if err := r.cfg.Sink.WriteResult(ctx, r.runID, res, matches); err != nil {
			return tripbreaker.Result{}, err
		}
	}
	if r.cfg.Publisher != nil {
		if err := r.cfg.Publisher.PublishResult(r.runID, res); err != nil {
			log.Warnw("publish failed", "uuid", id, "err", err)
		}
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.ObserveResult(res, elapsed)
	}

	d := res.Diagnostics
	log.Infow("individual processed",
		"uuid", id,
		"trips", len(res.Trips),
		"points", d.InputPoints,
		"accuracy_dropped", d.AccuracyDropped,
		"projection_dropped", d.ProjectionDropped,
		"noise", d.NoisePoints,
		"inferred", d.InferredTrips,
		"prompt_matches", len(matches),
		"duration", elapsed,
	)
	return res, nil
}
