package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rentalcars-watcher/models"
)

// RedisStore keeps the run history in a single capped Redis list. RPUSH plus
// LTRIM in one pipeline makes the append-and-evict atomic, so this backend
// stays correct even if a second writer ever shows up.
type RedisStore struct {
	client *redis.Client
	key    string
	limit  int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, key string, limit int) (*RedisStore, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}

	return &RedisStore{client: client, key: key, limit: limit}, nil
}

// Append pushes the record onto the tail of the list and trims the head in
// the same pipeline.
func (rs *RedisStore) Append(rec *models.RunRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal run: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pipe := rs.client.TxPipeline()
	pipe.RPush(ctx, rs.key, payload)
	pipe.LTrim(ctx, rs.key, int64(-rs.limit), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: append run: %w", err)
	}
	return nil
}

// QueryByDateRange returns all runs matching both dates exactly, in append
// order.
func (rs *RedisStore) QueryByDateRange(pickupDate, dropoffDate string) ([]*models.RunRecord, error) {
	all, err := rs.All()
	if err != nil {
		return nil, err
	}
	var matched []*models.RunRecord
	for _, rec := range all {
		if rec.PickupDate == pickupDate && rec.DropoffDate == dropoffDate {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// All returns the full history in append order.
func (rs *RedisStore) All() ([]*models.RunRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := rs.client.LRange(ctx, rs.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: lrange %s: %w", rs.key, err)
	}

	records := make([]*models.RunRecord, 0, len(entries))
	for _, entry := range entries {
		var rec models.RunRecord
		if err := json.Unmarshal([]byte(entry), &rec); err != nil {
			return nil, fmt.Errorf("redis: unmarshal run: %w", err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
