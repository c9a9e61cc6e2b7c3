package sink

import (
	"context"
	"fmt"
)

// Record is one forwarded message.
type Record struct {
	Key   []byte
	Value []byte
}

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error // driver-specific config struct
	// Push returns once the record is durably accepted, or the reason it was not.
	Push(context.Context, Record) error
	Close() error
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
