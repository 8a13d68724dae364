// Package config resolves the flags/environment/config-file layered
// settings a crawlwave invocation runs under, ported from
// masahif-linktadoru's viper-over-cobra wiring (a CRAWLWAVE_-prefixed env
// layer on top of an optional --config file, on top of flag defaults) in
// place of the teacher's bare env.GetEnv/GetEnvAsInt helpers
// (env/env.go), which only read the process environment.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/codepr/crawlwave/internal/crawler/profile"
)

// Config is the resolved set of machine-level knobs a crawlwave
// invocation runs under: everything that is not itself part of a
// directive file.
type Config struct {
	Backend        string // "bbolt" or "sqlite"
	DBPath         string
	ImportPath     string
	Verbose        bool
	RequestTimeout time.Duration
	MaxBodySize    int64
	Profile        *profile.Profile
}

// Load builds a viper instance layered env (CRAWLWAVE_*) > file > defaults,
// and resolves it into a Config. Command-line flags are not read here; the
// root command applies explicitly set flags on top of the result.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("crawlwave")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", "sqlite")
	v.SetDefault("db-path", "crawlwave.db")
	v.SetDefault("import-path", "")
	v.SetDefault("verbose", false)
	v.SetDefault("request-timeout", "30s")
	v.SetDefault("max-body-size", 10<<20)
	v.SetDefault("workers", 4)
	v.SetDefault("max-tasks-per-worker", 8)
	v.SetDefault("backends-per-worker", 2)
	v.SetDefault("batch-size", 256)
	v.SetDefault("max-quota", 0) // 0 = unset, no machine ceiling

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	requestTimeout, err := time.ParseDuration(v.GetString("request-timeout"))
	if err != nil {
		return nil, err
	}

	p := &profile.Profile{
		Workers:           v.GetInt("workers"),
		MaxTasksPerWorker: v.GetInt("max-tasks-per-worker"),
		BackendsPerWorker: v.GetInt("backends-per-worker"),
		BatchSize:         v.GetInt("batch-size"),
		LogStatsInterval:  10 * time.Second,
	}
	if q := v.GetInt("max-quota"); q > 0 {
		p.MaxQuota = &q
	}

	return &Config{
		Backend:        v.GetString("backend"),
		DBPath:         v.GetString("db-path"),
		ImportPath:     v.GetString("import-path"),
		Verbose:        v.GetBool("verbose"),
		RequestTimeout: requestTimeout,
		MaxBodySize:    v.GetInt64("max-body-size"),
		Profile:        p,
	}, nil
}
