package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.  Only
// routes that never expose occupancy are wrapped with it.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" env-default:"true"`
	Methods      []string      `env:"CACHE_METHODS" env-default:"GET" env-separator:","`
	TTL          time.Duration `env:"CACHE_TTL" env-default:"5m"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" env-default:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX" env-default:"cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" env-default:"1048576"`
}

func (c *CacheConfig) normalize() {
	for i, m := range c.Methods {
		c.Methods[i] = strings.ToUpper(strings.TrimSpace(m))
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
}

// MethodSet returns Methods as a lookup set.
func (c CacheConfig) MethodSet() map[string]bool {
	out := make(map[string]bool, len(c.Methods))
	for _, m := range c.Methods {
		if m != "" {
			out[m] = true
		}
	}
	return out
}
