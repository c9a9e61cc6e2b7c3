package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"truckpos/internal/logging"
	"truckpos/internal/position"
	"truckpos/internal/telemetry"
	"truckpos/sink"
	"truckpos/source/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type captureSink struct {
	pushed []sink.Record
	err    error
}

func (c *captureSink) Configure(any) error { return nil }
func (c *captureSink) Push(_ context.Context, r sink.Record) error {
	if c.err != nil {
		return c.err
	}
	c.pushed = append(c.pushed, r)
	return nil
}
func (c *captureSink) Close() error { return nil }

func newTestRouter(t *testing.T, out sink.Adapter) (*Router, *telemetry.Metrics, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	m := telemetry.NewMetrics(prometheus.NewRegistry())
	return New(out, m, logging.New(logging.Options{Out: &logs})), m, &logs
}

func msg(offset int64, value string) *kafka.Message {
	return &kafka.Message{Topic: "truck_position_json", Partition: 0, Offset: offset, Value: []byte(value)}
}

func positionJSON(truck, event string) string {
	return fmt.Sprintf(`{"TS":"2023-01-01T00:00:00Z","TRUCKID":%q,"DRIVERID":5,"ROUTEID":9,"EVENTTYPE":%q,"LATITUDE":12.1,"LONGITUDE":77.5}`, truck, event)
}

func TestHandle_DangerousIsForwardedUnchanged(t *testing.T) {
	cs := &captureSink{}
	r, m, logs := newTestRouter(t, cs)

	in := positionJSON("T1", "Overspeed")
	if err := r.Handle(context.Background(), msg(0, in)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(cs.pushed) != 1 {
		t.Fatalf("want 1 publish, got %d", len(cs.pushed))
	}
	want, _ := position.Decode([]byte(in))
	got, err := position.Decode(cs.pushed[0].Value)
	if err != nil {
		t.Fatalf("forwarded payload does not decode: %v", err)
	}
	if got != want {
		t.Fatalf("forwarded %+v, want %+v", got, want)
	}
	if !strings.Contains(logs.String(), "truck_id=T1") {
		t.Fatalf("log line missing truck id: %q", logs.String())
	}
	if testutil.ToFloat64(m.Forwarded) != 1 || testutil.ToFloat64(m.Consumed) != 1 {
		t.Fatal("counters not updated")
	}
}

func TestHandle_NormalIsLoggedNotForwarded(t *testing.T) {
	cs := &captureSink{}
	r, m, logs := newTestRouter(t, cs)

	if err := r.Handle(context.Background(), msg(0, positionJSON("T7", "Normal"))); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(cs.pushed) != 0 {
		t.Fatalf("Normal must not be published, got %d", len(cs.pushed))
	}
	if !strings.Contains(logs.String(), "truck_id=T7") {
		t.Fatalf("log line missing truck id: %q", logs.String())
	}
	if testutil.ToFloat64(m.Passed) != 1 {
		t.Fatal("passed counter not updated")
	}
}

func TestHandle_MalformedDroppedAndLoopContinues(t *testing.T) {
	cs := &captureSink{}
	r, m, _ := newTestRouter(t, cs)

	inputs := []string{
		`{"TS":"x","DRIVERID":5,"ROUTEID":9,"EVENTTYPE":"Overspeed","LATITUDE":1,"LONGITUDE":2}`,
		`not json`,
		positionJSON("T2", "Lane Departure"),
	}
	for i, in := range inputs {
		if err := r.Handle(context.Background(), msg(int64(i), in)); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
	if len(cs.pushed) != 1 {
		t.Fatalf("only the valid message may be published, got %d", len(cs.pushed))
	}
	if testutil.ToFloat64(m.Rejected) != 2 {
		t.Fatalf("rejected = %v", testutil.ToFloat64(m.Rejected))
	}
}

func TestHandle_InvalidUTF8IsNeverForwarded(t *testing.T) {
	cs := &captureSink{}
	r, m, _ := newTestRouter(t, cs)

	in := "{\"TS\":\"t\",\"TRUCKID\":\"T\xff1\",\"DRIVERID\":1,\"ROUTEID\":2,\"EVENTTYPE\":\"Over\xfespeed\",\"LATITUDE\":1.5,\"LONGITUDE\":2.5}"
	if err := r.Handle(context.Background(), msg(0, in)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(cs.pushed) != 0 {
		t.Fatalf("invalid utf-8 was published: %q", cs.pushed[0].Value)
	}
	if testutil.ToFloat64(m.Rejected) != 1 {
		t.Fatalf("rejected = %v", testutil.ToFloat64(m.Rejected))
	}
}

func TestHandle_PreservesOrderAndKey(t *testing.T) {
	cs := &captureSink{}
	r, _, _ := newTestRouter(t, cs)

	trucks := []string{"A", "B", "C", "D"}
	for i, tr := range trucks {
		m := msg(int64(i), positionJSON(tr, "Unsafe following distance"))
		m.Key = []byte(tr)
		if err := r.Handle(context.Background(), m); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	for i, rec := range cs.pushed {
		p, _ := position.Decode(rec.Value)
		if p.TruckID != trucks[i] || string(rec.Key) != trucks[i] {
			t.Fatalf("publish %d out of order: truck=%s key=%s", i, p.TruckID, rec.Key)
		}
	}
}

func TestHandle_PublishErrorIsReturned(t *testing.T) {
	boom := errors.New("broker down")
	r, m, _ := newTestRouter(t, &captureSink{err: boom})

	err := r.Handle(context.Background(), msg(0, positionJSON("T3", "Overspeed")))
	var pe *PublishError
	if !errors.As(err, &pe) || !errors.Is(err, boom) {
		t.Fatalf("want PublishError wrapping broker error, got %v", err)
	}
	if pe.TruckID != "T3" {
		t.Fatalf("truck id: %q", pe.TruckID)
	}
	if testutil.ToFloat64(m.PublishErrors) != 1 {
		t.Fatal("publish error not counted")
	}
}
