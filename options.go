package homeswipe

import (
	"go.uber.org/zap"

	"github.com/homeswipe/homeswipe/internal/config"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs       []string
	password    string
	keyPrefix   string
	logger      *zap.Logger
	recommender config.RecommenderConfig
}

// WithRedis connects to a Redis Stack instance.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithAddrs sets the database addresses directly (cluster setups).
func WithAddrs(addrs ...string) Option {
	return func(c *clientConfig) {
		c.addrs = addrs
	}
}

// WithKeyPrefix namespaces all keys and indexes, letting several deployments
// share one database.
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.keyPrefix = prefix
	}
}

// WithMinSwipes overrides the cold-start threshold.
func WithMinSwipes(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.recommender.MinSwipes = n
		}
	}
}

// WithDefaultLimit overrides how many recommendations Recommend returns when
// the caller passes limit <= 0.
func WithDefaultLimit(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.recommender.DefaultLimit = n
		}
	}
}

// WithLogger routes internal logging through the given logger. Silent by
// default.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}
