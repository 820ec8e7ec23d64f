package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis initializes and returns a Redis client instance.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("Successfully connected to Redis!")
	return rdb, nil
}

// DisconnectRedis closes the Redis client connection.
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	log.Println("Redis connection closed.")
	return nil
}

// GetJSON reads a cached JSON value into dest. Returns false on a miss or
// any cache error; the cache is an accelerator, never a source of failure.
func GetJSON(ctx context.Context, rdb *redis.Client, key string, dest interface{}) bool {
	if rdb == nil {
		return false
	}
	data, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Cache read failed for %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("Cache entry for %s is corrupt, ignoring: %v", key, err)
		return false
	}
	return true
}

// SetJSON stores a JSON value with a TTL. Errors are logged and swallowed.
func SetJSON(ctx context.Context, rdb *redis.Client, key string, value interface{}, ttl time.Duration) {
	if rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("Cache marshal failed for %s: %v", key, err)
		return
	}
	if err := rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("Cache write failed for %s: %v", key, err)
	}
}

// Invalidate removes keys after a write. Best effort.
func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Cache invalidation failed for %v: %v", keys, err)
	}
}
