// Package config loads runtime settings: built-in defaults, then an optional
// YAML file, then an optional .env file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ewilliams-labs/cadence/internal/core/cluster"
	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/graph"
	"github.com/ewilliams-labs/cadence/internal/core/sequence"
	"github.com/ewilliams-labs/cadence/internal/core/services"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config holds the complete runtime configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Workers WorkerConfig  `yaml:"workers"`
	Compute ComputeConfig `yaml:"compute"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects where task status records live.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	// Path is the SQLite database file.
	Path string `yaml:"path"`
	// MemorySize bounds the in-memory ledger.
	MemorySize int `yaml:"memory_size"`
}

type WorkerConfig struct {
	Count       int `yaml:"count"`
	QueueSize   int `yaml:"queue_size"`
	ResultCache int `yaml:"result_cache"`
}

// ComputeConfig supplies defaults for task parameters left unset.
type ComputeConfig struct {
	// Weights has either no entries (uniform) or one per composite dimension.
	Weights []float64  `yaml:"weights"`
	MaxK    int        `yaml:"max_k"`
	MaxIter int        `yaml:"max_iter"`
	Seed    int64      `yaml:"seed"`
	Path    PathConfig `yaml:"path"`
}

type PathConfig struct {
	MaxIterations int           `yaml:"max_iterations"`
	MaxStall      int           `yaml:"max_stall"`
	Strength      int           `yaml:"strength"`
	TimeLimit     time.Duration `yaml:"time_limit"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:     DriverSQLite,
			Path:       "cadence.db",
			MemorySize: 1024,
		},
		Workers: WorkerConfig{
			Count:       runtime.NumCPU(),
			QueueSize:   100,
			ResultCache: 256,
		},
		Compute: ComputeConfig{
			MaxK:    cluster.DefaultMaxK,
			MaxIter: cluster.DefaultMaxIter,
			Seed:    1,
			Path: PathConfig{
				MaxIterations: sequence.DefaultMaxIterations,
				MaxStall:      sequence.DefaultMaxStall,
				Strength:      sequence.DefaultStrength,
				TimeLimit:     30 * time.Second,
			},
		},
	}
}

// Load builds the configuration. A non-empty path, or CADENCE_CONFIG when
// path is empty, names a YAML file layered over the defaults. A .env file in
// the working directory is loaded if present; environment variables win
// over everything else.
func Load(path string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("CADENCE_CONFIG")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv exports the variables of a .env file. A missing file is not an
// error and variables already set are kept.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("CADENCE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := getenv("CADENCE_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"CADENCE_WORKERS", &c.Workers.Count},
		{"CADENCE_QUEUE_SIZE", &c.Workers.QueueSize},
		{"CADENCE_RESULT_CACHE", &c.Workers.ResultCache},
	}
	for _, e := range ints {
		v := getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", e.key, err)
		}
		*e.dst = n
	}
	return nil
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.Path == "" {
		return fmt.Errorf("config: sqlite storage needs a path")
	}
	if c.Workers.Count < 1 {
		return fmt.Errorf("config: workers.count must be at least 1")
	}
	if c.Workers.QueueSize < 1 || c.Workers.ResultCache < 1 {
		return fmt.Errorf("config: queue_size and result_cache must be positive")
	}
	if _, err := c.Compute.weights(); err != nil {
		return err
	}
	if c.Compute.MaxK < 0 || c.Compute.MaxK == 1 {
		return fmt.Errorf("config: compute.max_k must be 0 or at least 2")
	}
	if c.Compute.MaxIter < 0 {
		return fmt.Errorf("config: compute.max_iter must not be negative")
	}
	p := c.Compute.Path
	if p.MaxIterations < 0 || p.MaxStall < 0 || p.Strength < 0 || p.TimeLimit < 0 {
		return fmt.Errorf("config: compute.path values must not be negative")
	}
	return nil
}

func (c ComputeConfig) weights() (domain.Weights, error) {
	w, err := domain.WeightsFromSlice(c.Weights)
	if err != nil {
		return w, fmt.Errorf("config: compute.weights: %w", err)
	}
	if w.IsZero() {
		return domain.UniformWeights(), nil
	}
	if err := graph.ValidateWeights(w); err != nil {
		return w, fmt.Errorf("config: compute.weights: %w", err)
	}
	return w, nil
}

// Defaults converts the compute section into task defaults.
func (c ComputeConfig) Defaults() services.Defaults {
	w, err := c.weights()
	if err != nil {
		w = domain.UniformWeights()
	}
	return services.Defaults{
		Weights: w,
		MaxK:    c.MaxK,
		MaxIter: c.MaxIter,
		Seed:    c.Seed,
		Path: sequence.Options{
			MaxIterations: c.Path.MaxIterations,
			MaxStall:      c.Path.MaxStall,
			Strength:      c.Path.Strength,
			TimeLimit:     c.Path.TimeLimit,
			Seed:          c.Seed,
		},
	}
}
