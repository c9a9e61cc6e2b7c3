package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"truckpos/sink"
)

/* ────────── public config ────────── */
type Config struct {
	PrintCounter bool      // prepend seq#
	Out          io.Writer // nil → os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu  sync.Mutex // serializes writes across partitions
	seq uint64
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(_ context.Context, r sink.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	var err error
	if d.cfg.PrintCounter {
		_, err = fmt.Fprintf(d.cfg.Out, "[sink %06d] %s\n", d.seq, r.Value)
	} else {
		_, err = fmt.Fprintf(d.cfg.Out, "%s\n", r.Value)
	}
	return err
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
