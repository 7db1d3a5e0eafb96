package app

import (
	"flag"
	"time"
)

// flags are the CLI-level settings, mirroring the teacher's parseConfig
// split between flag-parsed process settings and the Limits actually
// threaded into the hot path.
type flags struct {
	ConfigFile  string
	MetricsAddr string

	MaxConns     int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.ConfigFile, "config", "config.json", "path to the inbox/outbox/rules JSON config")
	flag.StringVar(&f.MetricsAddr, "metrics", "", "TCP addr for Prometheus /metrics (empty disables metrics server)")
	flag.Int64Var(&f.MaxConns, "max-conns", 2000, "max concurrent sessions (0 disables the limit)")
	flag.DurationVar(&f.ReadTimeout, "read-timeout", 120*time.Second, "read timeout stored in config.Limits (not applied to sessions)")
	flag.DurationVar(&f.WriteTimeout, "write-timeout", 15*time.Second, "write timeout stored in config.Limits (not applied to sessions)")
	flag.Parse()

	return f
}
