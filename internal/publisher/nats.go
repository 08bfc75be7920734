package publisher

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"tripbreaker/internal/log"
	"tripbreaker/internal/tripbreaker"
)

type conn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	nc          *nats.Conn
	conn        conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("tripbreaker"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warnw("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Infow("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Infow("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, conn: nc, prefix: prefix, logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// TripSummaryMessage is the JSON body published for every detected trip.
type TripSummaryMessage struct {
	RunID              string    `json:"runId"`
	UUID               string    `json:"uuid"`
	TripID             int       `json:"tripId"`
	TripCode           string    `json:"tripCode"`
	MergeCodes         []string  `json:"mergeCodes"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	DirectDistance     float64   `json:"directDistance"`
	CumulativeDistance float64   `json:"cumulativeDistance"`
	PointCount         int       `json:"pointCount"`
	AverageSpeedMps    float64   `json:"averageSpeedMps"`
	StartLat           float64   `json:"startLat"`
	StartLon           float64   `json:"startLon"`
	EndLat             float64   `json:"endLat"`
	EndLon             float64   `json:"endLon"`
}

func newTripSummaryMessage(runID string, res tripbreaker.Result, i int) TripSummaryMessage {
	trip, s := res.Trips[i], res.Summaries[i]
	msg := TripSummaryMessage{
		RunID:              runID,
		UUID:               res.UserID,
		TripID:             s.TripID,
		TripCode:           string(s.Code),
		MergeCodes:         make([]string, len(s.MergeCodes)),
		Start:              s.Start,
		End:                s.End,
		DirectDistance:     s.DirectDistance,
		CumulativeDistance: s.CumulativeDistance,
		PointCount:         s.PointCount,
		AverageSpeedMps:    s.AverageSpeed,
	}
	for j, c := range s.MergeCodes {
		msg.MergeCodes[j] = string(c)
	}
	msg.StartLat, msg.StartLon = trip.StartLocation()
	msg.EndLat, msg.EndLon = trip.EndLocation()
	return msg
}

// PublishResult publishes one message per trip of res. Every trip is
// attempted; the returned error joins the failures.
func (p *NATSPublisher) PublishResult(runID string, res tripbreaker.Result) error {
	var errs []error
	for i := range res.Trips {
		msg := newTripSummaryMessage(runID, res, i)
		subject := fmt.Sprintf("%s.%s.%d", subjectToken(p.prefix), subjectToken(res.UserID), msg.TripID)
		if err := p.publish(subject, msg); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", subject, err))
		}
	}
	return errors.Join(errs...)
}

func (p *NATSPublisher) publish(subject string, msg TripSummaryMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Debugw("nats publish", "subject", subject)
	}
	start := time.Now()
	err = p.conn.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
