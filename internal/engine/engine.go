package engine

import (
	"context"
	"errors"
	"time"

	"truckpos/internal/logging"
	"truckpos/internal/router"
	"truckpos/internal/telemetry"
	"truckpos/internal/transport"
	"truckpos/sink"
	"truckpos/source/kafka"

	"github.com/sourcegraph/conc/pool"
)

const shutdownTimeout = 5 * time.Second

type Engine struct {
	source  kafka.Adapter
	sink    sink.Adapter
	router  *router.Router
	health  *transport.Server
	metrics *telemetry.Server
}

// Run consumes until ctx is cancelled or the source fails, then stops the
// listeners and closes the source before the sink so that in-flight publishes
// settle first. A clean shutdown returns nil.
func (e *Engine) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	if e.health != nil {
		p.Go(func(context.Context) error { return e.health.Serve() })
	}
	if e.metrics != nil {
		p.Go(func(context.Context) error { return e.metrics.Serve() })
	}
	p.Go(func(ctx context.Context) error {
		defer e.stopListeners()

		e.setServing(true)
		logging.L().Info("truckpos: consuming")
		err := e.source.Run(ctx, e.router.Handle)
		e.setServing(false)

		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	err := p.Wait()
	if err != nil {
		logging.L().Error("truckpos: stopped", "err", err)
	} else {
		logging.L().Info("truckpos: stopped")
	}
	return errors.Join(err, e.Close())
}

func (e *Engine) setServing(ok bool) {
	if e.health != nil {
		e.health.SetServing(ok)
	}
}

func (e *Engine) stopListeners() {
	if e.health != nil {
		e.health.Stop()
	}
	if e.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.metrics.Shutdown(ctx); err != nil {
			logging.L().Warn("truckpos: metrics shutdown", "err", err)
		}
	}
}

// Close releases the source and sink. Safe on a partially bootstrapped Engine.
func (e *Engine) Close() error {
	var errs []error
	if e.source != nil {
		errs = append(errs, e.source.Close())
		e.source = nil
	}
	if e.sink != nil {
		errs = append(errs, e.sink.Close())
		e.sink = nil
	}
	return errors.Join(errs...)
}
