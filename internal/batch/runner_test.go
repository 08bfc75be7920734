package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripbreaker/internal/promptmatch"
	"tripbreaker/internal/tripbreaker"
)

var t0 = time.Date(2017, 12, 14, 9, 0, 0, 0, time.UTC)

func walk(user string, n int) []tripbreaker.RawPoint {
	pts := make([]tripbreaker.RawPoint, n)
	for i := range pts {
		pts[i] = tripbreaker.RawPoint{
			UserID:    user,
			Timestamp: t0.Add(time.Duration(i*20) * time.Second),
			Latitude:  45.5 + float64(i)*0.0003,
			Longitude: -73.57,
			HAccuracy: 5,
			Speed:     1.5,
		}
	}
	return pts
}

type fakeSource struct {
	points map[string][]tripbreaker.RawPoint
	idsErr error
}

func (f *fakeSource) UserIDs(context.Context) ([]string, error) {
	if f.idsErr != nil {
		return nil, f.idsErr
	}
	return []string{"bad", "empty", "good"}, nil
}

func (f *fakeSource) Points(_ context.Context, id string) ([]tripbreaker.RawPoint, error) {
	return f.points[id], nil
}

func (f *fakeSource) Prompts(_ context.Context, id string) ([]promptmatch.Prompt, error) {
	if id != "good" {
		return nil, nil
	}
	return []promptmatch.Prompt{{UserID: id, Timestamp: t0.Add(3 * time.Minute), Latitude: 45.5006, Longitude: -73.57, Response: "walk"}}, nil
}

func newSource() *fakeSource {
	bad := walk("bad", 3)
	bad[2].Timestamp = bad[1].Timestamp
	return &fakeSource{points: map[string][]tripbreaker.RawPoint{
		"good": walk("good", 3),
		"bad":  bad,
	}}
}

type fakeSink struct {
	mu      sync.Mutex
	results map[string]tripbreaker.Result
	matches map[string][]promptmatch.Match
	failFor string
}

func (f *fakeSink) WriteResult(_ context.Context, _ string, res tripbreaker.Result, m []promptmatch.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if res.UserID == f.failFor {
		return errors.New("disk full")
	}
	if f.results == nil {
		f.results = map[string]tripbreaker.Result{}
		f.matches = map[string][]promptmatch.Match{}
	}
	f.results[res.UserID] = res
	f.matches[res.UserID] = m
	return nil
}

type fakePublisher struct {
	mu    sync.Mutex
	runs  map[string]int
	fails bool
}

func (f *fakePublisher) PublishResult(runID string, res tripbreaker.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runs == nil {
		f.runs = map[string]int{}
	}
	f.runs[runID] += len(res.Trips)
	if f.fails {
		return errors.New("nats down")
	}
	return nil
}

type fakeMetrics struct {
	mu                 sync.Mutex
	processed, failed  int
	busy               int
	matched, unmatched int
}

func (f *fakeMetrics) ObserveResult(tripbreaker.Result, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed++
}

func (f *fakeMetrics) IndividualFailed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed++
}

func (f *fakeMetrics) WorkerBusy(busy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if busy {
		f.busy++
	} else {
		f.busy--
	}
}

func (f *fakeMetrics) ObservePrompts(matched, unmatched int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matched += matched
	f.unmatched += unmatched
}

func params() tripbreaker.Parameters {
	return tripbreaker.Parameters{
		BreakInterval:        360 * time.Second,
		SubwayBufferMeters:   300,
		AccuracyCutoffMeters: 30,
		MaxPlausibleSpeedMps: 50,
		MinTravelSpeedMps:    1,
	}
}

func TestRunnerIsolatesFailures(t *testing.T) {
	src := newSource()
	sink := &fakeSink{}
	pub := &fakePublisher{}
	m := &fakeMetrics{}

	r, err := NewRunner(Config{
		Source:       src,
		Prompts:      src,
		Sink:         sink,
		Publisher:    pub,
		Metrics:      m,
		Params:       params(),
		PromptParams: promptmatch.Params{MaxTimeDiff: 30 * time.Minute, MaxDistanceMeters: 150},
		Workers:      2,
	})
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, r.RunID(), rep.RunID)
	assert.Equal(t, 3, rep.Individuals)
	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 1, rep.Empty)
	assert.Equal(t, 1, rep.Trips)
	assert.Zero(t, rep.Skipped)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "bad", rep.Failed[0].UserID)
	assert.ErrorIs(t, rep.Failed[0].Err, tripbreaker.ErrInvalidInput)

	require.Contains(t, sink.results, "empty")
	assert.True(t, sink.results["empty"].Empty())
	assert.Equal(t, "empty", sink.results["empty"].UserID)
	assert.Len(t, sink.results["good"].Trips, 1)
	require.Len(t, sink.matches["good"], 1)
	assert.Equal(t, 1, sink.matches["good"][0].TripID)

	assert.Equal(t, 1, pub.runs[r.RunID()])
	assert.Equal(t, 2, m.processed)
	assert.Equal(t, 1, m.failed)
	assert.Equal(t, 1, m.matched)
	assert.Zero(t, m.busy)
}

func TestRunnerSinkErrorFailsIndividual(t *testing.T) {
	r, err := NewRunner(Config{Source: newSource(), Sink: &fakeSink{failFor: "good"}, Params: params()})
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Failed, 2)
	assert.Equal(t, "bad", rep.Failed[0].UserID)
	assert.Equal(t, "good", rep.Failed[1].UserID)
	assert.EqualError(t, rep.Failed[1].Err, "disk full")
}

func TestRunnerPublishErrorIsNotFatal(t *testing.T) {
	r, err := NewRunner(Config{Source: newSource(), Publisher: &fakePublisher{fails: true}, Params: params(), Workers: 3})
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Processed)
}

func TestRunnerSourceError(t *testing.T) {
	boom := errors.New("connection refused")
	r, err := NewRunner(Config{Source: &fakeSource{idsErr: boom}, Params: params()})
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunnerCancelled(t *testing.T) {
	r, err := NewRunner(Config{Source: newSource(), Params: params()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, rep.Individuals, rep.Processed+len(rep.Failed)+rep.Skipped)
}

func TestNewRunnerValidates(t *testing.T) {
	_, err := NewRunner(Config{Params: params()})
	assert.Error(t, err)

	p := params()
	p.BreakInterval = 0
	_, err = NewRunner(Config{Source: newSource(), Params: p})
	assert.ErrorIs(t, err, tripbreaker.ErrConfiguration)
}
