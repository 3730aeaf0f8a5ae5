// Package config parses command-line flags into the settings every
// other component needs.
package config

import (
	"flag"
	"time"
)

// Config holds every tunable of the broker process.
type Config struct {
	ListenAddr    string
	AdminAddr     string
	DataDir       string
	BaseName      string
	SegmentSize   uint64
	FlushInterval time.Duration
	BufferCount   int
	BufferSize    int
}

// Defaults returns the configuration used when no flags override it.
func Defaults() Config {
	return Config{
		ListenAddr:    "0.0.0.0:12345",
		AdminAddr:     ":9091",
		DataDir:       "data",
		BaseName:      "broker_log",
		SegmentSize:   1 << 20,
		FlushInterval: time.Second,
		BufferCount:   64,
		BufferSize:    4096,
	}
}

// Parse builds a Config from args (typically os.Args[1:]), starting from
// Defaults and overriding whatever flags are present.
func Parse(args []string) (Config, error) {
	cfg := Defaults()

	fs := flag.NewFlagSet("brokerd", flag.ContinueOnError)
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "TCP address the broker protocol listens on")
	fs.StringVar(&cfg.AdminAddr, "admin", cfg.AdminAddr, "HTTP address the diagnostics server listens on")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the segmented log files")
	fs.StringVar(&cfg.BaseName, "base-name", cfg.BaseName, "base filename shared by all log segments")
	fs.Uint64Var(&cfg.SegmentSize, "segment-size", cfg.SegmentSize, "size in bytes of each log segment")
	fs.DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "interval between periodic segment flushes")
	fs.IntVar(&cfg.BufferCount, "buffer-count", cfg.BufferCount, "number of receive buffers preallocated in the pool")
	fs.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "size in bytes of each receive buffer")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
