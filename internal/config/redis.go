package config

// This file defines a Redis client constructor for the application.  Redis
// backs the optional response cache.  If the server cannot be reached during
// startup the constructor returns nil and callers degrade gracefully by
// disabling the cache.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const (
	RedisAddrFlag     = "redis-addr"
	RedisPasswordFlag = "redis-password"
	RedisDBFlag       = "redis-db"
	RedisTLSFlag      = "redis-tls"
)

// RedisConfig holds the connection parameters of the cache server.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// RegisterRedisFlags appends the redis client flags to f.
func RegisterRedisFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   RedisAddrFlag,
			Usage:  "redis host:port",
			Value:  "localhost:6379",
			EnvVar: "REDIS_ADDR",
		},
		cli.StringFlag{
			Name:   RedisPasswordFlag,
			Usage:  "redis password",
			EnvVar: "REDIS_PASSWORD",
		},
		cli.IntFlag{
			Name:   RedisDBFlag,
			Usage:  "redis database number",
			EnvVar: "REDIS_DB",
		},
		cli.BoolFlag{
			Name:   RedisTLSFlag,
			Usage:  "connect to redis over tls",
			EnvVar: "REDIS_TLS",
		},
	)
}

// NewRedisConfig reads the redis flags.
func NewRedisConfig(c *cli.Context) RedisConfig {
	return RedisConfig{
		Addr:     c.String(RedisAddrFlag),
		Password: c.String(RedisPasswordFlag),
		DB:       c.Int(RedisDBFlag),
		TLS:      c.Bool(RedisTLSFlag),
	}
}

// NewRedisClient instantiates a Redis client and pings it with a short
// timeout.  The returned client is nil if a connection cannot be established.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.Addr).Warn("redis unavailable, response cache disabled")
		_ = client.Close()
		return nil
	}
	return client
}
