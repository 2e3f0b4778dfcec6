package utils

import (
	"os"

	"github.com/go-redis/redis/v8"
)

// GetRedisClient builds a client against the instance configured by
// REDIS_ADDR, defaulting to a local instance for dev.
func GetRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if len(addr) == 0 {
		addr = "localhost:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}
