// Package config loads the library's tunables from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Author attributed on tracked-changes markup.
	Author string

	// CaptionMaxLen bounds extracted section captions.
	CaptionMaxLen int

	// CacheTTL bounds how long parsed models stay cached.
	CacheTTL time.Duration

	// VerifyOutput reopens rebuilt clean containers before placement.
	VerifyOutput bool
}

func Load() Config {
	cfg := Config{
		Author:        envOr("REDLINE_AUTHOR", "Contract Review Tool"),
		CaptionMaxLen: envInt("REDLINE_CAPTION_MAX", 60),
		CacheTTL:      envDuration("REDLINE_CACHE_TTL", 1*time.Hour),
		VerifyOutput:  envBool("REDLINE_VERIFY_OUTPUT", true),
	}

	if cfg.CaptionMaxLen <= 0 {
		cfg.CaptionMaxLen = 60
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 1 * time.Hour
	}
	return cfg
}

func (c Config) Validate() error {
	if c.Author == "" {
		return fmt.Errorf("REDLINE_AUTHOR must not be empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
