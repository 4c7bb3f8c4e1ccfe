// Package store keeps game sessions in Redis so they survive a restart.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "chess:game:"

// Record is everything needed to rebuild a session: the starting position and
// the moves played from it in coordinate notation.
type Record struct {
	ID        string   `json:"id"`
	Owner     string   `json:"owner"`
	HumanSide string   `json:"human_side"`
	StartFEN  string   `json:"start_fen"`
	Moves     []string `json:"moves"`
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redisURL and pings it. Records expire after ttl; zero
// keeps them forever.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+rec.ID, data, r.ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, keyPrefix+id).Err()
}

// LoadAll returns every stored record. Unreadable entries are skipped and
// reported together in the returned error alongside the records that loaded.
func (r *Redis) LoadAll(ctx context.Context) ([]Record, error) {
	var (
		records []Record
		errs    []error
	)
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("get %s: %w", key, err))
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", key, err))
			continue
		}
		records = append(records, rec)
	}
	if err := iter.Err(); err != nil {
		errs = append(errs, err)
	}
	return records, errors.Join(errs...)
}

func (r *Redis) Close() error {
	return r.client.Close()
}
