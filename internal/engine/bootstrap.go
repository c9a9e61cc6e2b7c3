package engine

import (
	"errors"
	"fmt"

	"truckpos/internal/config"
	"truckpos/internal/logging"
	"truckpos/internal/router"
	"truckpos/internal/telemetry"
	"truckpos/internal/transport"
	"truckpos/sink"
	sinkkafka "truckpos/sink/kafka"
	"truckpos/sink/stdout"
	"truckpos/source/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// SourceDriver names the registered input adapter.
var SourceDriver = "sarama"

// Bootstrap opens the output sink, the input consumer and the listeners. Any
// failure closes what was already opened.
func Bootstrap(cfg config.Config) (e *Engine, err error) {
	e = &Engine{}
	defer func() {
		if err != nil {
			e.stopListeners()
			err = errors.Join(err, e.Close())
			e = nil
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := telemetry.NewMetrics(reg)

	// 1. output sink
	if e.sink, err = openSink(cfg); err != nil {
		return e, fmt.Errorf("sink: %w", err)
	}

	// 2. input source
	if e.source, err = kafka.NewAdapter(SourceDriver); err != nil {
		return e, err
	}
	if err = e.source.Configure(cfg); err != nil {
		e.source = nil
		return e, fmt.Errorf("source: %w", err)
	}

	// 3. router
	e.router = router.New(e.sink, m, logging.L())

	// 4. health + metrics
	if cfg.Health.Enabled() {
		if e.health, err = transport.Listen(cfg.Health.Addr); err != nil {
			return e, fmt.Errorf("health: %w", err)
		}
	}
	if cfg.Metrics.Enabled() {
		if e.metrics, err = telemetry.Listen(cfg.Metrics.Addr, reg); err != nil {
			return e, fmt.Errorf("metrics: %w", err)
		}
	}

	logging.L().Info("truckpos: bootstrapped",
		"brokers", cfg.Kafka.Brokers,
		"input", cfg.Topics.Input,
		"output", cfg.Topics.Output,
		"sink", cfg.Sink.Driver,
	)
	return e, nil
}

func openSink(cfg config.Config) (sink.Adapter, error) {
	s, err := sink.NewAdapter(cfg.Sink.Driver)
	if err != nil {
		return nil, err
	}
	switch cfg.Sink.Driver {
	case "kafka":
		err = s.Configure(sinkkafka.Config{Kafka: cfg.Kafka, Topic: cfg.Topics.Output})
	case "stdout":
		err = s.Configure(stdout.Config{PrintCounter: cfg.Sink.PrintCounter})
	default:
		err = fmt.Errorf("no config block for sink %q", cfg.Sink.Driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
