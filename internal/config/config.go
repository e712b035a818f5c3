package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/reactor"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "reactor.json"

	// DefaultTickInterval is the default interval between drain passes.
	DefaultTickInterval = 16 * time.Millisecond

	// DefaultInspectAddr is the default address of the inspect server.
	DefaultInspectAddr = "localhost:7070"

	// DefaultSnapshotDir is the default directory for snapshot files.
	DefaultSnapshotDir = "snapshots"

	// DefaultS3Prefix is the default key prefix for snapshots uploaded to S3.
	DefaultS3Prefix = "reactor/snapshots/"
)

// Config represents the complete reactor.json configuration.
type Config struct {
	// Runtime contains scheduler settings.
	Runtime RuntimeConfig `json:"runtime,omitempty"`

	// Host contains tick loop settings.
	Host HostConfig `json:"host,omitempty"`

	// Inspect contains inspect server settings.
	Inspect InspectConfig `json:"inspect,omitempty"`

	// Journal contains write journal settings.
	Journal JournalConfig `json:"journal,omitempty"`

	// Snapshot contains snapshot export settings.
	Snapshot SnapshotConfig `json:"snapshot,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RuntimeConfig contains scheduler settings.
type RuntimeConfig struct {
	// MaxDrainRuns bounds the number of reaction runs in one drain pass.
	MaxDrainRuns int `json:"maxDrainRuns,omitempty" env:"REACTOR_MAX_DRAIN_RUNS"`

	// LogReactionRuns logs every reaction run at debug level.
	LogReactionRuns bool `json:"logReactionRuns,omitempty" env:"REACTOR_LOG_REACTION_RUNS"`

	// LogDestroy logs every destroyed node at debug level.
	LogDestroy bool `json:"logDestroy,omitempty" env:"REACTOR_LOG_DESTROY"`

	// LogDrains logs a line per drain pass at debug level.
	LogDrains bool `json:"logDrains,omitempty" env:"REACTOR_LOG_DRAINS"`
}

// HostConfig contains tick loop settings.
type HostConfig struct {
	// TickInterval is the interval between drain passes (e.g., "16ms").
	TickInterval string `json:"tickInterval,omitempty" env:"REACTOR_TICK_INTERVAL"`

	// QueueSize is the capacity of the host's work queue.
	QueueSize int `json:"queueSize,omitempty" env:"REACTOR_QUEUE_SIZE"`
}

// InspectConfig contains inspect server settings.
type InspectConfig struct {
	// Addr is the address to listen on.
	Addr string `json:"addr,omitempty" env:"REACTOR_INSPECT_ADDR"`
}

// JournalConfig contains write journal settings.
type JournalConfig struct {
	// Path is the SQLite database file. Empty disables the journal.
	Path string `json:"path,omitempty" env:"REACTOR_JOURNAL_PATH"`
}

// SnapshotConfig contains snapshot export settings.
type SnapshotConfig struct {
	// Dir is the directory snapshot files are written to.
	Dir string `json:"dir,omitempty" env:"REACTOR_SNAPSHOT_DIR"`

	// S3 configures uploading snapshots to S3.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config configures the S3 snapshot exporter.
type S3Config struct {
	// Bucket is the target bucket. Empty disables S3 export.
	Bucket string `json:"bucket,omitempty" env:"REACTOR_S3_BUCKET"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix,omitempty" env:"REACTOR_S3_PREFIX"`

	// Region is the AWS region.
	Region string `json:"region,omitempty" env:"REACTOR_S3_REGION"`

	// Endpoint overrides the S3 endpoint (for MinIO and similar).
	Endpoint string `json:"endpoint,omitempty" env:"REACTOR_S3_ENDPOINT"`

	// PathStyle forces path-style addressing.
	PathStyle bool `json:"pathStyle,omitempty" env:"REACTOR_S3_PATH_STYLE"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			MaxDrainRuns: reactor.DefaultMaxDrainRuns,
		},
		Host: HostConfig{
			TickInterval: DefaultTickInterval.String(),
			QueueSize:    64,
		},
		Inspect: InspectConfig{
			Addr: DefaultInspectAddr,
		},
		Snapshot: SnapshotConfig{
			Dir: DefaultSnapshotDir,
			S3: S3Config{
				Prefix: DefaultS3Prefix,
				Region: "us-east-1",
			},
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for reactor.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path, then applies
// REACTOR_* environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R101").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("R100").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("R100").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// FromEnv returns the default configuration with environment overrides
// applied. It is used when no config file is given.
func FromEnv() (*Config, error) {
	cfg := New()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// ApplyEnv overrides fields from REACTOR_* environment variables. Unset
// variables leave the current values in place.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return errors.New("R103").Wrap(err)
	}
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("R100").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("R100").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Runtime.MaxDrainRuns == 0 {
		c.Runtime.MaxDrainRuns = reactor.DefaultMaxDrainRuns
	}
	if c.Host.TickInterval == "" {
		c.Host.TickInterval = DefaultTickInterval.String()
	}
	if c.Host.QueueSize == 0 {
		c.Host.QueueSize = 64
	}
	if c.Inspect.Addr == "" {
		c.Inspect.Addr = DefaultInspectAddr
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = DefaultSnapshotDir
	}
	if c.Snapshot.S3.Prefix == "" {
		c.Snapshot.S3.Prefix = DefaultS3Prefix
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Runtime.MaxDrainRuns < 0 {
		return errors.New("R102").
			WithDetail("runtime.maxDrainRuns must not be negative")
	}
	d, err := time.ParseDuration(c.Host.TickInterval)
	if err != nil {
		return errors.New("R102").
			WithDetail("host.tickInterval is not a duration: " + c.Host.TickInterval).
			WithSuggestion(`Use a Go duration such as "16ms"`)
	}
	if d <= 0 {
		return errors.New("R102").
			WithDetail("host.tickInterval must be positive")
	}
	if c.Host.QueueSize < 0 {
		return errors.New("R102").
			WithDetail("host.queueSize must not be negative")
	}
	return nil
}

// TickInterval returns the parsed tick interval, or the default if it does
// not parse.
func (c *Config) TickInterval() time.Duration {
	d, err := time.ParseDuration(c.Host.TickInterval)
	if err != nil || d <= 0 {
		return DefaultTickInterval
	}
	return d
}

// RuntimeOptions returns the reactor options described by the runtime
// section.
func (c *Config) RuntimeOptions() []reactor.Option {
	return []reactor.Option{
		reactor.WithMaxDrainRuns(c.Runtime.MaxDrainRuns),
		reactor.WithDebug(reactor.DebugConfig{
			LogReactionRuns: c.Runtime.LogReactionRuns,
			LogDestroy:      c.Runtime.LogDestroy,
			LogDrains:       c.Runtime.LogDrains,
		}),
	}
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}
