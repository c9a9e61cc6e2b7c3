package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	SupportedSchema = "v1"
	// EnvPrefix marks override variables, e.g. TRUCKPOS__KAFKA__BROKERS=a:9092,b:9092.
	EnvPrefix = "TRUCKPOS__"
)

type Kafka struct {
	Brokers        []string      `koanf:"brokers" yaml:"brokers"`
	GroupID        string        `koanf:"group_id" yaml:"group_id"`
	ClientID       string        `koanf:"client_id" yaml:"client_id"`
	Version        string        `koanf:"version" yaml:"version"`
	StartFrom      string        `koanf:"start_from" yaml:"start_from"` // oldest|newest
	CommitInterval time.Duration `koanf:"commit_interval" yaml:"commit_interval"`
	Acks           string        `koanf:"acks" yaml:"acks"` // all|leader|none
	TLSEnabled     bool          `koanf:"tls_enabled" yaml:"tls_enabled"`
	SASLUser       string        `koanf:"sasl_user" yaml:"sasl_user,omitempty"`
	SASLPass       string        `koanf:"sasl_pass" yaml:"sasl_pass,omitempty"`
}

type Topics struct {
	Input  string `koanf:"input" yaml:"input"`
	Output string `koanf:"output" yaml:"output"`
}

type Sink struct {
	Driver       string `koanf:"driver" yaml:"driver"` // kafka|stdout
	PrintCounter bool   `koanf:"print_counter" yaml:"print_counter"`
}

// Off as a listen address disables the listener.
const Off = "off"

type Server struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

func (s Server) Enabled() bool { return s.Addr != Off }

type Config struct {
	SchemaVersion string `koanf:"schema_version" yaml:"schema_version"`
	Kafka         Kafka  `koanf:"kafka" yaml:"kafka"`
	Topics        Topics `koanf:"topics" yaml:"topics"`
	Sink          Sink   `koanf:"sink" yaml:"sink"`
	Health        Server `koanf:"health" yaml:"health"`
	Metrics       Server `koanf:"metrics" yaml:"metrics"`
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// Load merges YAML (if present) with env-vars (prefix `TRUCKPOS__`,
// delimiter `__`), applies defaults and validates the result.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, err
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, cfg.Validate()
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(c *Config) {
	if c.SchemaVersion == "" {
		c.SchemaVersion = SupportedSchema
	}
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:29092"}
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "truck-pos-app"
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "truckpos"
	}
	if c.Kafka.Version == "" {
		c.Kafka.Version = "2.8.0"
	}
	if c.Kafka.StartFrom == "" {
		c.Kafka.StartFrom = "oldest"
	}
	if c.Kafka.CommitInterval == 0 {
		c.Kafka.CommitInterval = time.Second
	}
	if c.Kafka.Acks == "" {
		c.Kafka.Acks = "all"
	}
	if c.Topics.Input == "" {
		c.Topics.Input = "truck_position_json"
	}
	if c.Topics.Output == "" {
		c.Topics.Output = "dangerous_driving_faust"
	}
	if c.Sink.Driver == "" {
		c.Sink.Driver = "kafka"
	}
	if c.Health.Addr == "" {
		c.Health.Addr = ":7070"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.SchemaVersion != SupportedSchema {
		errs = append(errs, fmt.Errorf("schema_version %q not supported (want %s)", c.SchemaVersion, SupportedSchema))
	}
	for _, b := range c.Kafka.Brokers {
		if strings.TrimSpace(b) == "" {
			errs = append(errs, errors.New("kafka.brokers: empty address"))
		}
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers: at least one broker required"))
	}
	switch c.Kafka.StartFrom {
	case "oldest", "newest":
	default:
		errs = append(errs, fmt.Errorf("kafka.start_from %q: want oldest or newest", c.Kafka.StartFrom))
	}
	switch c.Kafka.Acks {
	case "all", "leader", "none":
	default:
		errs = append(errs, fmt.Errorf("kafka.acks %q: want all, leader or none", c.Kafka.Acks))
	}
	if c.Topics.Input == "" || c.Topics.Output == "" {
		errs = append(errs, errors.New("topics: input and output are required"))
	} else if c.Topics.Input == c.Topics.Output {
		errs = append(errs, fmt.Errorf("topics: input and output are both %q", c.Topics.Input))
	}
	switch c.Sink.Driver {
	case "kafka", "stdout":
	default:
		errs = append(errs, fmt.Errorf("sink.driver %q: want kafka or stdout", c.Sink.Driver))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Kafka.SASLPass != "" {
		c.Kafka.SASLPass = "******"
	}
	c.Kafka.Brokers = append([]string(nil), c.Kafka.Brokers...)
	return c
}
