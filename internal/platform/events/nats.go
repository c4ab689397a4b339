package events

import (
	"cadete-dispatch-service/internal/domain"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

const drainTimeout = 5 * time.Second

// NATSPublisher publishes trip events as JSON on "<prefix>.<event type>".
type NATSPublisher struct {
	nc      *nats.Conn
	prefix  string
	metrics PublisherMetrics
	closed  chan struct{}
}

func NewNATSPublisher(url, prefix string, m PublisherMetrics) (*NATSPublisher, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(url,
		nats.Name("cadete-dispatch"),
		nats.DrainTimeout(drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected err=%v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
			close(closed)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %q: %w", url, err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	if prefix == "" {
		prefix = "trips"
	}
	return &NATSPublisher{nc: nc, prefix: prefix, metrics: m, closed: closed}, nil
}

// Close flushes pending publishes. Drain is asynchronous, so Close waits
// for the connection to report closed before returning.
func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		log.Printf("nats drain failed err=%v", err)
		p.nc.Close()
		return
	}
	if !waitClosed(p.closed, drainTimeout+time.Second) {
		log.Printf("nats drain timed out")
		p.nc.Close()
	}
}

func waitClosed(done <-chan struct{}, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

func (p *NATSPublisher) Subject(typ domain.TripEventType) string {
	return p.prefix + "." + string(typ)
}

func (p *NATSPublisher) Publish(_ context.Context, ev domain.TripEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("nats publish: marshal: %w", err)
	}

	err = p.nc.Publish(p.Subject(ev.Type), b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", p.Subject(ev.Type), err)
	}
	return nil
}
