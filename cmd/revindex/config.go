package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/revindex"
	"github.com/hupe1980/revindex/codec"
	"gopkg.in/yaml.v3"
)

// defaultConfigPath is read when --config is not given. A missing file is
// not an error.
const defaultConfigPath = "revindex.yaml"

// Config is the YAML configuration of the command line tool.
type Config struct {
	Workers     int    `yaml:"workers"`
	BatchSize   int    `yaml:"batch_size"`
	Compression string `yaml:"compression"`
	// IOLimit throttles internalize, e.g. "64MiB". Empty disables it.
	IOLimit    string `yaml:"io_limit"`
	SyncWrites bool   `yaml:"sync_writes"`
	Codec      string `yaml:"codec"`

	Log LogConfig `yaml:"log"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfig() Config {
	return Config{
		BatchSize:   revindex.DefaultBatchSize,
		Compression: string(revindex.CompressionLZ4),
		Codec:       "go-json",
		Log:         LogConfig{Level: "warn", Format: "text"},
	}
}

// loadConfig reads path over the defaults. An empty path falls back to
// defaultConfigPath if it exists.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch strings.ToLower(c.Compression) {
	case "none", "lz4", "zstd":
	default:
		return fmt.Errorf("config: unknown compression %q", c.Compression)
	}
	if _, ok := codec.ByName(c.Codec); !ok {
		return fmt.Errorf("config: unknown codec %q", c.Codec)
	}
	if _, err := c.ioLimit(); err != nil {
		return err
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	return nil
}

func (c Config) ioLimit() (int64, error) {
	if c.IOLimit == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.IOLimit)
	if err != nil {
		return 0, fmt.Errorf("config: io_limit: %w", err)
	}
	return int64(n), nil
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return lvl, nil
}

func (l LogConfig) logger() *revindex.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelWarn
	}
	if strings.EqualFold(l.Format, "json") {
		return revindex.NewJSONLogger(lvl)
	}
	return revindex.NewTextLogger(lvl)
}

// options turns the configuration into index options.
func (c Config) options() []revindex.Option {
	limit, _ := c.ioLimit()
	cd, _ := codec.ByName(c.Codec)
	return []revindex.Option{
		revindex.WithWorkers(c.Workers),
		revindex.WithBatchSize(c.BatchSize),
		revindex.WithCompression(revindex.Compression(strings.ToLower(c.Compression))),
		revindex.WithIOLimit(limit),
		revindex.WithSyncWrites(c.SyncWrites),
		revindex.WithCodec(cd),
		revindex.WithLogger(c.Log.logger()),
	}
}
