package config

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dattu/truncated_collider/pkg/fingerprint"
	"github.com/dattu/truncated_collider/pkg/generator"
	"github.com/dattu/truncated_collider/pkg/search"
)

type Config struct {
	Search struct {
		SampleLen       int    `mapstructure:"sample_len"`
		CompareBits     uint   `mapstructure:"compare_bits"`
		Workers         int    `mapstructure:"workers"`
		BatchSize       int    `mapstructure:"batch_size"`
		ChannelCapacity int    `mapstructure:"channel_capacity"`
		ProgressStride  uint64 `mapstructure:"progress_stride"`
		EpochSize       uint64 `mapstructure:"epoch_size"`
		Positions       uint64 `mapstructure:"positions"`
		SeedHi          uint64 `mapstructure:"seed_hi"`
		SeedLo          uint64 `mapstructure:"seed_lo"`
	} `mapstructure:"search"`

	Filter struct {
		Byte int  `mapstructure:"byte"`
		Mask byte `mapstructure:"mask"`
	} `mapstructure:"filter"`

	Storage struct {
		Journal string `mapstructure:"journal"`
		Report  string `mapstructure:"report"`
	} `mapstructure:"storage"`

	Server struct {
		MetricsPort int `mapstructure:"metrics_port"`
		GRPCPort    int `mapstructure:"grpc_port"`
	} `mapstructure:"server"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"bits":         "search.compare_bits",
	"workers":      "search.workers",
	"positions":    "search.positions",
	"seed-hi":      "search.seed_hi",
	"seed-lo":      "search.seed_lo",
	"journal":      "storage.journal",
	"report":       "storage.report",
	"metrics-port": "server.metrics_port",
	"grpc-port":    "server.grpc_port",
	"log-level":    "log.level",
}

// Flags declares the command-line overrides understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.Uint("bits", 48, "fingerprint width in bits")
	fs.Int("workers", 0, "worker count (0 = one per CPU)")
	fs.Uint64("positions", 0, "size of the scanned position space (0 = unbounded)")
	fs.Uint64("seed-hi", 0, "high word of the master seed")
	fs.Uint64("seed-lo", 0, "low word of the master seed")
	fs.String("journal", "", "bbolt event journal path")
	fs.String("report", "", "JSON file receiving the verified collision")
	fs.Int("metrics-port", 9102, "HTTP port for /metrics (0 disables)")
	fs.Int("grpc-port", 0, "gRPC health port (0 disables)")
	fs.String("log-level", "info", "log level")
}

// Load reads path (optional), COLLIDER_* environment variables and the flags
// in fs that were set explicitly, in increasing priority.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// e.g. COLLIDER_SEARCH_COMPARE_BITS=32
	v.SetEnvPrefix("COLLIDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("search.sample_len", generator.DefaultLength)
	v.SetDefault("search.compare_bits", 48)
	v.SetDefault("search.workers", 0)
	v.SetDefault("search.batch_size", 1024)
	v.SetDefault("search.channel_capacity", 32)
	v.SetDefault("search.progress_stride", 2_000_000)
	v.SetDefault("search.epoch_size", generator.DefaultEpochSize)
	v.SetDefault("search.positions", 0)
	v.SetDefault("search.seed_hi", 0)
	v.SetDefault("search.seed_lo", 0)
	v.SetDefault("filter.byte", fingerprint.DefaultFilter.Byte)
	v.SetDefault("filter.mask", fingerprint.DefaultFilter.Mask)
	v.SetDefault("storage.journal", "")
	v.SetDefault("storage.report", "")
	v.SetDefault("server.metrics_port", 9102)
	v.SetDefault("server.grpc_port", 0)
	v.SetDefault("log.level", "info")

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// SearchParams converts the search section. A zero seed is replaced by a
// random one; the caller should log it.
func (c *Config) SearchParams() (search.Params, error) {
	p := search.Params{
		SampleLen:       c.Search.SampleLen,
		CompareBits:     c.Search.CompareBits,
		Workers:         c.Search.Workers,
		BatchSize:       c.Search.BatchSize,
		ChannelCapacity: c.Search.ChannelCapacity,
		ProgressStride:  c.Search.ProgressStride,
		EpochSize:       c.Search.EpochSize,
		Positions:       c.Search.Positions,
		Seed:            generator.Seed{Hi: c.Search.SeedHi, Lo: c.Search.SeedLo},
		Filter:          fingerprint.Filter{Byte: c.Filter.Byte, Mask: c.Filter.Mask},
	}
	if p.Workers == 0 {
		p.Workers = runtime.NumCPU()
	}
	if p.Positions == 0 {
		p.Positions = math.MaxUint64
	}
	if p.Seed == (generator.Seed{}) {
		seed, err := generator.RandomSeed()
		if err != nil {
			return search.Params{}, err
		}
		p.Seed = seed
	}
	return p, p.Validate()
}
