// Package router forwards dangerous driving positions from the input topic
// to the output sink. It keeps no state between messages.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"truckpos/internal/logging"
	"truckpos/internal/position"
	"truckpos/internal/telemetry"
	"truckpos/sink"
	"truckpos/source/kafka"
)

// PublishError wraps a failed downstream publish. It is fatal for the
// consuming instance.
type PublishError struct {
	TruckID string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("router: publish position of %s: %v", e.TruckID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

type Router struct {
	out     sink.Adapter
	metrics *telemetry.Metrics
	log     *slog.Logger
}

// New builds a router publishing to out. A nil log falls back to the process
// logger.
func New(out sink.Adapter, m *telemetry.Metrics, log *slog.Logger) *Router {
	if log == nil {
		log = logging.L()
	}
	return &Router{out: out, metrics: m, log: log}
}

// Handle routes one message. Malformed payloads are dropped and reported as
// success so the consumer moves on; only publish failures are returned.
func (r *Router) Handle(ctx context.Context, m *kafka.Message) error {
	r.metrics.Consumed.Inc()

	p, err := position.Decode(m.Value)
	if err != nil {
		var de *position.DecodeError
		if !errors.As(err, &de) {
			return err
		}
		r.metrics.Rejected.Inc()
		r.log.Warn("position rejected",
			"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "err", de)
		return nil
	}

	r.log.Info("position received", "truck_id", p.TruckID)

	if !p.Dangerous() {
		r.metrics.Passed.Inc()
		return nil
	}

	b, err := position.Encode(p)
	if err != nil {
		r.metrics.PublishErrors.Inc()
		return &PublishError{TruckID: p.TruckID, Err: err}
	}
	if err := r.out.Push(ctx, sink.Record{Key: m.Key, Value: b}); err != nil {
		r.metrics.PublishErrors.Inc()
		return &PublishError{TruckID: p.TruckID, Err: err}
	}
	r.metrics.Forwarded.Inc()
	return nil
}
