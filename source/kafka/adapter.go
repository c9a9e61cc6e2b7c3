package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"truckpos/internal/config"
)

// Message is one record read from the input topic.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// EmitFunc handles one message. A non-nil error stops the adapter; the
// message's offset is not marked, so it is redelivered after a restart.
type EmitFunc func(context.Context, *Message) error

type Adapter interface {
	Configure(config.Config) error
	Run(context.Context, EmitFunc) error
	Close() error
}

// ConnectionError reports that the broker could not be reached.
type ConnectionError struct {
	Brokers []string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("kafka: connect %s: %v", strings.Join(e.Brokers, ","), e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
