package kafka

import (
	"context"
	"fmt"

	"truckpos/internal/config"
	"truckpos/sink"
	source "truckpos/source/kafka"

	"github.com/IBM/sarama"
)

type Config struct {
	Kafka config.Kafka
	Topic string
}

type driver struct {
	topic string
	p     sarama.SyncProducer
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: expected Config, got %T", c)
	}
	sc, err := cfg.Kafka.Sarama()
	if err != nil {
		return err
	}
	p, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, sc)
	if err != nil {
		return &source.ConnectionError{Brokers: cfg.Kafka.Brokers, Err: err}
	}
	d.topic, d.p = cfg.Topic, p
	return nil
}

// Push blocks until the broker acknowledges the record. The send is not
// abandoned on ctx cancellation so an in-flight publish finishes on shutdown.
func (d *driver) Push(_ context.Context, r sink.Record) error {
	msg := &sarama.ProducerMessage{
		Topic: d.topic,
		Value: sarama.ByteEncoder(r.Value),
	}
	if r.Key != nil {
		msg.Key = sarama.ByteEncoder(r.Key)
	}
	if _, _, err := d.p.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka-sink: send to %s: %w", d.topic, err)
	}
	return nil
}

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	return d.p.Close()
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
