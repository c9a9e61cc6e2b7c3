package kafka

import (
	"context"
	"errors"
	"sync"

	"truckpos/internal/config"
	"truckpos/internal/logging"

	"github.com/IBM/sarama"
)

type SaramaDriver struct {
	brokers []string
	topic   string
	cl      sarama.Client
	group   sarama.ConsumerGroup

	mu  sync.Mutex
	err error
}

func (d *SaramaDriver) Configure(cfg config.Config) error {
	d.brokers, d.topic = cfg.Kafka.Brokers, cfg.Topics.Input

	sc, err := cfg.Kafka.Sarama()
	if err != nil {
		return err
	}
	if d.cl, err = sarama.NewClient(d.brokers, sc); err != nil {
		return &ConnectionError{Brokers: d.brokers, Err: err}
	}
	if d.group, err = sarama.NewConsumerGroupFromClient(cfg.Kafka.GroupID, d.cl); err != nil {
		_ = d.cl.Close()
		return &ConnectionError{Brokers: d.brokers, Err: err}
	}
	return nil
}

// Run blocks until ctx is cancelled or emit fails. Each claimed partition is
// served by its own goroutine, so ordering holds per partition only.
func (d *SaramaDriver) Run(ctx context.Context, emit EmitFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go d.drainErrors(ctx)

	handler := &groupHandler{driver: d, emit: emit, stop: cancel}
	for {
		err := d.group.Consume(ctx, []string{d.topic}, handler)
		if ferr := d.failure(); ferr != nil {
			return ferr
		}
		if err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return &ConnectionError{Brokers: d.brokers, Err: err}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (d *SaramaDriver) Close() error {
	var errs []error
	if d.group != nil {
		errs = append(errs, d.group.Close())
	}
	if d.cl != nil && !d.cl.Closed() {
		errs = append(errs, d.cl.Close())
	}
	return errors.Join(errs...)
}

func (d *SaramaDriver) drainErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-d.group.Errors():
			if !ok {
				return
			}
			logging.L().Warn("sarama-driver: consumer group error", "err", err)
		}
	}
}

// fail keeps the first emit error.
func (d *SaramaDriver) fail(err error) {
	d.mu.Lock()
	if d.err == nil {
		d.err = err
	}
	d.mu.Unlock()
}

func (d *SaramaDriver) failure() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

type groupHandler struct {
	driver *SaramaDriver
	emit   EmitFunc
	stop   context.CancelFunc
}

func (*groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	logging.L().Info("sarama-driver: partitions assigned", "claims", sess.Claims(), "generation", sess.GenerationID())
	return nil
}

func (*groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	logging.L().Info("sarama-driver: partitions released", "generation", sess.GenerationID())
	return nil
}

// ConsumeClaim handles one partition strictly in offset order: the next
// message is not read until emit for the previous one has returned.
func (h *groupHandler) ConsumeClaim(
	sess sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok || ctx.Err() != nil {
				return nil
			}
			m := &Message{
				Topic:     msg.Topic,
				Partition: msg.Partition,
				Offset:    msg.Offset,
				Key:       msg.Key,
				Value:     msg.Value,
				Timestamp: msg.Timestamp,
			}
			if err := h.emit(ctx, m); err != nil {
				h.driver.fail(err)
				h.stop()
				return err
			}
			sess.MarkMessage(msg, "")
		}
	}
}
