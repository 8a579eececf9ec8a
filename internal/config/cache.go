package config

import (
	"strings"
	"time"

	"github.com/urfave/cli"
)

const (
	CacheEnabledFlag      = "cache-enabled"
	CacheMethodsFlag      = "cache-methods"
	CacheTTLFlag          = "cache-ttl"
	CachePrefixFlag       = "cache-prefix"
	CacheMaxBodyBytesFlag = "cache-max-body-bytes"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  Prefix namespaces the keys and is also the
// scope purged after a successful write.  MaxBodyBytes caps stored bodies.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// RegisterCacheFlags appends the response cache flags to f.
func RegisterCacheFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.BoolFlag{
			Name:   CacheEnabledFlag,
			Usage:  "cache GET responses in redis",
			EnvVar: "CACHE_ENABLED",
		},
		cli.StringFlag{
			Name:   CacheMethodsFlag,
			Usage:  "comma separated list of cached http methods",
			Value:  "GET",
			EnvVar: "CACHE_METHODS",
		},
		cli.DurationFlag{
			Name:   CacheTTLFlag,
			Usage:  "cache entry ttl",
			Value:  30 * time.Second,
			EnvVar: "CACHE_TTL",
		},
		cli.StringFlag{
			Name:   CachePrefixFlag,
			Usage:  "cache key prefix",
			Value:  "movies-cache",
			EnvVar: "CACHE_PREFIX",
		},
		cli.IntFlag{
			Name:   CacheMaxBodyBytesFlag,
			Usage:  "largest response body stored in the cache",
			Value:  1048576,
			EnvVar: "CACHE_MAX_BODY_BYTES",
		},
	)
}

// NewCacheConfig reads the cache flags.  All methods are upper-cased.
func NewCacheConfig(c *cli.Context) CacheConfig {
	return CacheConfig{
		Enabled:      c.Bool(CacheEnabledFlag),
		Methods:      parseMethods(c.String(CacheMethodsFlag)),
		TTL:          c.Duration(CacheTTLFlag),
		Prefix:       c.String(CachePrefixFlag),
		MaxBodyBytes: c.Int(CacheMaxBodyBytesFlag),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
