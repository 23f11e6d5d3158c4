package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/masmgr/commitsync/internal/record"
)

const (
	defaultRedisAddr   = "localhost:6379"
	defaultRedisPrefix = "commitsync"
	maxWatchRetries    = 10
)

// RedisStore persists records in Redis (or a protocol compatible server such
// as KeyDB). Each repository owns a hash of commit_hash → record JSON, a list
// giving ingestion order, and a marker key.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the server described by cfg.
func NewRedisStore(cfg Config) (*RedisStore, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = defaultRedisAddr
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) commitsKey(repo string) string {
	return s.prefix + ":repo:" + repo + ":commits"
}

func (s *RedisStore) orderKey(repo string) string {
	return s.prefix + ":repo:" + repo + ":order"
}

func (s *RedisStore) markerKey(repo string) string {
	return s.prefix + ":repo:" + repo + ":marker"
}

func (s *RedisStore) Marker(ctx context.Context, repo string) (string, bool, error) {
	if err := validateRepo(repo); err != nil {
		return "", false, err
	}
	marker, err := s.client.Get(ctx, s.markerKey(repo)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read marker: %w", err)
	}
	return marker, true, nil
}

func (s *RedisStore) Save(ctx context.Context, repo string, records []record.CommitRecord, marker string) (SaveResult, error) {
	if err := validate(repo, records); err != nil {
		return SaveResult{}, err
	}

	commitsKey := s.commitsKey(repo)
	orderKey := s.orderKey(repo)
	markerKey := s.markerKey(repo)

	var res SaveResult
	txf := func(tx *redis.Tx) error {
		res = SaveResult{}

		stored := map[string]bool{}
		if len(records) > 0 {
			fields := make([]string, len(records))
			for i, r := range records {
				fields[i] = r.CommitHash
			}
			values, err := tx.HMGet(ctx, commitsKey, fields...).Result()
			if err != nil {
				return err
			}
			for i, v := range values {
				if v != nil {
					stored[fields[i]] = true
				}
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, r := range records {
				if stored[r.CommitHash] {
					res.Duplicates++
					continue
				}
				payload, err := json.Marshal(r)
				if err != nil {
					return err
				}
				stored[r.CommitHash] = true
				pipe.HSet(ctx, commitsKey, r.CommitHash, payload)
				pipe.RPush(ctx, orderKey, r.CommitHash)
				res.Inserted++
			}
			if marker != "" {
				pipe.Set(ctx, markerKey, marker, 0)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := s.client.Watch(ctx, txf, commitsKey, markerKey)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return SaveResult{}, err
	}
	return SaveResult{}, fmt.Errorf("save %s: too many concurrent writers", repo)
}

func (s *RedisStore) Records(ctx context.Context, repo string, limit int) ([]record.CommitRecord, error) {
	if err := validateRepo(repo); err != nil {
		return nil, err
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	hashes, err := s.client.LRange(ctx, s.orderKey(repo), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, s.commitsKey(repo), hashes...).Result()
	if err != nil {
		return nil, fmt.Errorf("load commits: %w", err)
	}

	out := make([]record.CommitRecord, 0, len(values))
	for i, v := range values {
		payload, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("commit %s listed but not stored", hashes[i])
		}
		var r record.CommitRecord
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *RedisStore) ResetMarker(ctx context.Context, repo string) error {
	if err := validateRepo(repo); err != nil {
		return err
	}
	return s.client.Del(ctx, s.markerKey(repo)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
