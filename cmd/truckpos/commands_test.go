package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"truckpos/internal/config"
	"truckpos/internal/engine"
	"truckpos/source/kafka"
)

// recordingSource remembers the config it was started with and returns as soon
// as Run is called.
type recordingSource struct {
	got *config.Config
}

func (r recordingSource) Configure(cfg config.Config) error         { *r.got = cfg; return nil }
func (r recordingSource) Run(context.Context, kafka.EmitFunc) error { return nil }
func (r recordingSource) Close() error                              { return nil }

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "truckpos.yml")
	body := `schema_version: v1
topics:
  input: positions_in
  output: alerts_out
sink:
  driver: stdout
health:
  addr: "off"
metrics:
  addr: "off"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func useRecordingSource(t *testing.T) *config.Config {
	t.Helper()
	got := &config.Config{}
	kafka.Register("recording", func() kafka.Adapter { return recordingSource{got: got} })
	prev := engine.SourceDriver
	engine.SourceDriver = "recording"
	t.Cleanup(func() { engine.SourceDriver = prev })
	return got
}

func TestWorker_ReadsConfigFlag(t *testing.T) {
	got := useRecordingSource(t)
	path := writeConfig(t)

	for _, args := range [][]string{
		{"truckpos", "worker", "-c", path},
		{"truckpos", "worker", "--config", path},
	} {
		*got = config.Config{}
		if err := newApp().Run(args); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if got.Topics.Input != "positions_in" || got.Topics.Output != "alerts_out" {
			t.Fatalf("%v: config file not applied: %+v", args, got.Topics)
		}
	}
}

func TestWorker_IsDefaultCommand(t *testing.T) {
	got := useRecordingSource(t)
	t.Setenv("TRUCKPOS_CONFIG", writeConfig(t))

	if err := newApp().Run([]string{"truckpos"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Topics.Input != "positions_in" {
		t.Fatalf("worker did not run with TRUCKPOS_CONFIG: %+v", got.Topics)
	}
}

func TestConfig_PrintsEffectiveConfig(t *testing.T) {
	t.Setenv("TRUCKPOS__KAFKA__SASL_PASS", "secret")

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	if err := app.Run([]string{"truckpos", "config", "-c", writeConfig(t)}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	s := out.String()
	for _, want := range []string{"input: positions_in", "driver: stdout", "group_id: truck-pos-app"} {
		if !strings.Contains(s, want) {
			t.Fatalf("output missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "secret") {
		t.Fatalf("password leaked:\n%s", s)
	}
}

func TestConfig_RejectsUnsupportedSchema(t *testing.T) {
	t.Setenv("TRUCKPOS__SCHEMA_VERSION", "v9")

	app := newApp()
	app.Writer = &bytes.Buffer{}
	if err := app.Run([]string{"truckpos", "config", "-c", writeConfig(t)}); err == nil {
		t.Fatal("expected schema_version error")
	}
}
