// Package config loads idlemon settings.
//
// Settings come from an optional YAML file at $XDG_CONFIG_HOME/idlemon/config.yaml
// (defaults to ~/.config/idlemon/config.yaml), then from IDLEMON_* environment
// variables. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rusenback/idlemon/internal/activity"
	"github.com/rusenback/idlemon/internal/docker"
	"github.com/rusenback/idlemon/internal/logging"
	"github.com/rusenback/idlemon/internal/monitor"
	"github.com/rusenback/idlemon/internal/notify"
	"github.com/rusenback/idlemon/internal/probe"
)

const (
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

var (
	// ErrMissingField marks a required setting with no value
	ErrMissingField = errors.New("required setting missing")
	// ErrInvalidValue marks a setting outside its allowed range
	ErrInvalidValue = errors.New("invalid setting")
)

// ValidationError names the setting that failed validation
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Duration is a time.Duration written as a string ("3m", "10s") in YAML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

type Docker struct {
	Host        string   `yaml:"host"`
	TLSVerify   bool     `yaml:"tls_verify,omitempty"`
	CertPath    string   `yaml:"cert_path,omitempty"`
	Timeout     Duration `yaml:"timeout"`
	StopTimeout Duration `yaml:"stop_timeout"`
}

type Server struct {
	Address   string `yaml:"address,omitempty"`
	Port      int    `yaml:"port"`
	QueryPort int    `yaml:"query_port,omitempty"` // 0 means Port
}

type Probe struct {
	PortTimeout       Duration `yaml:"port_timeout"`
	ConnectTimeout    Duration `yaml:"connect_timeout"`
	ModernReadTimeout Duration `yaml:"modern_read_timeout"`
	LegacyReadTimeout Duration `yaml:"legacy_read_timeout"`
	QueryTimeout      Duration `yaml:"query_timeout"`
	ProtocolVersion   int      `yaml:"protocol_version"`
}

type Logs struct {
	Tail               int      `yaml:"tail"`
	ActivityLookback   int      `yaml:"activity_lookback"`
	ConnectionLookback int      `yaml:"connection_lookback"`
	EstimateLookback   int      `yaml:"estimate_lookback"`
	FinalTail          int      `yaml:"final_tail"`
	FinalLookback      int      `yaml:"final_lookback"`
	FinalSince         Duration `yaml:"final_since"`
}

type Monitor struct {
	Interval         Duration `yaml:"interval"`
	EmptyThreshold   int      `yaml:"empty_threshold"`
	FailureThreshold int      `yaml:"failure_threshold"`
	StateKey         string   `yaml:"state_key"`
}

type S3 struct {
	Bucket   string `yaml:"bucket,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type State struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
	S3         S3     `yaml:"s3,omitempty"`
}

type Notify struct {
	AMQPURL    string `yaml:"amqp_url,omitempty"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full idlemon configuration
type Config struct {
	Container string  `yaml:"container"`
	Docker    Docker  `yaml:"docker"`
	Server    Server  `yaml:"server"`
	Probe     Probe   `yaml:"probe"`
	Logs      Logs    `yaml:"logs"`
	Monitor   Monitor `yaml:"monitor"`
	State     State   `yaml:"state"`
	Notify    Notify  `yaml:"notify"`
	Log       Log     `yaml:"log"`
}

// Default returns the built-in settings, taken from each component's own
// defaults
func Default() *Config {
	dc := docker.DefaultConfig()
	pc := probe.DefaultConfig()
	win := activity.DefaultWindows()
	mc := monitor.DefaultConfig()
	nc := notify.DefaultConfig()

	return &Config{
		Docker: Docker{
			Host:        dc.Host,
			Timeout:     Duration{dc.Timeout},
			StopTimeout: Duration{dc.StopTimeout},
		},
		Server: Server{Port: mc.Port},
		Probe: Probe{
			PortTimeout:       Duration{pc.PortTimeout},
			ConnectTimeout:    Duration{pc.ConnectTimeout},
			ModernReadTimeout: Duration{pc.ModernReadTimeout},
			LegacyReadTimeout: Duration{pc.LegacyReadTimeout},
			QueryTimeout:      Duration{pc.QueryTimeout},
			ProtocolVersion:   pc.ProtocolVersion,
		},
		Logs: Logs{
			Tail:               win.Tail,
			ActivityLookback:   win.ActivityLookback,
			ConnectionLookback: win.ConnectionLookback,
			EstimateLookback:   win.EstimateLookback,
			FinalTail:          mc.FinalTail,
			FinalLookback:      mc.FinalLookback,
			FinalSince:         Duration{mc.FinalSince},
		},
		Monitor: Monitor{
			Interval:         Duration{mc.Interval},
			EmptyThreshold:   mc.EmptyThreshold,
			FailureThreshold: mc.FailureThreshold,
			StateKey:         mc.StateKey,
		},
		State: State{
			Backend:    BackendSQLite,
			SQLitePath: defaultSQLitePath(),
		},
		Notify: Notify{
			Exchange:   nc.Exchange,
			RoutingKey: nc.RoutingKey,
		},
		Log: Log{Level: logging.LevelInfo, Format: logging.FormatText},
	}
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".idlemon", "state.db")
	}
	return filepath.Join(home, ".idlemon", "state.db")
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/idlemon/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "idlemon", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "idlemon", "config.yaml")
}

// Load reads the file at path (Path() when empty) over the defaults and then
// applies environment overrides. A missing file at the default location is
// not an error; an explicitly named one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = Path()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path, creating directories as needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports the first missing or out-of-range setting
func (c *Config) Validate() error {
	if c.Container == "" {
		return &ValidationError{Field: "container", Err: ErrMissingField}
	}
	if c.Monitor.StateKey == "" {
		return &ValidationError{Field: "monitor.state_key", Err: ErrMissingField}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Err: ErrInvalidValue}
	}
	if c.Server.QueryPort < 0 || c.Server.QueryPort > 65535 {
		return &ValidationError{Field: "server.query_port", Err: ErrInvalidValue}
	}
	if c.Monitor.Interval.Duration <= 0 {
		return &ValidationError{Field: "monitor.interval", Err: ErrInvalidValue}
	}
	if c.Monitor.EmptyThreshold < 1 {
		return &ValidationError{Field: "monitor.empty_threshold", Err: ErrInvalidValue}
	}
	if c.Monitor.FailureThreshold < 1 {
		return &ValidationError{Field: "monitor.failure_threshold", Err: ErrInvalidValue}
	}

	switch c.State.Backend {
	case BackendSQLite:
		if c.State.SQLitePath == "" {
			return &ValidationError{Field: "state.sqlite_path", Err: ErrMissingField}
		}
	case BackendS3:
		if c.State.S3.Bucket == "" {
			return &ValidationError{Field: "state.s3.bucket", Err: ErrMissingField}
		}
	default:
		return &ValidationError{Field: "state.backend", Err: fmt.Errorf("%w: %q", ErrInvalidValue, c.State.Backend)}
	}
	return nil
}
