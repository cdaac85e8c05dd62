package storage

import (
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// NewRedis builds the client used for refresh-token tracking and view
// counters. Falls back to localhost for development.
func NewRedis(addr string, log *logrus.Logger) *redis.Client {
	if addr == "" {
		addr = "localhost:6379"
		log.Warn("REDIS_URL not set, using localhost:6379 (development mode)")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})

	log.WithField("addr", addr).Info("redis initialized")
	return client
}
