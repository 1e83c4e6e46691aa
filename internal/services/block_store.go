package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BlockRecord describes why and for how long a client identity is blocked.
type BlockRecord struct {
	Reason    string    `json:"reason"`
	BlockedAt time.Time `json:"blockedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// BlockStore persists IP block records. A record past its expiry must be
// treated as absent on read. Implementations may be remote; callers decide
// what to do when the store is unreachable.
type BlockStore interface {
	Get(ctx context.Context, identity string) (*BlockRecord, error)
	Set(ctx context.Context, identity string, rec BlockRecord) error
	Delete(ctx context.Context, identity string) error
}

// RedisBlockStore keeps block records in redis with a TTL matching the block
// duration, so expiry is enforced by redis itself.
type RedisBlockStore struct {
	rdb *redis.Client
}

func NewRedisBlockStore(rdb *redis.Client) *RedisBlockStore {
	return &RedisBlockStore{rdb: rdb}
}

func blockKey(identity string) string {
	return fmt.Sprintf("blocked_ip:%s", identity)
}

func (s *RedisBlockStore) Get(ctx context.Context, identity string) (*BlockRecord, error) {
	val, err := s.rdb.Get(ctx, blockKey(identity)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec BlockRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisBlockStore) Set(ctx context.Context, identity string, rec BlockRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, blockKey(identity), payload, ttl).Err()
}

func (s *RedisBlockStore) Delete(ctx context.Context, identity string) error {
	return s.rdb.Del(ctx, blockKey(identity)).Err()
}

// MemoryBlockStore is the in-process fallback used when redis is not
// configured, and in tests. Expired records are purged on lookup.
type MemoryBlockStore struct {
	mu      sync.Mutex
	records map[string]BlockRecord
	now     func() time.Time
}

func NewMemoryBlockStore() *MemoryBlockStore {
	return &MemoryBlockStore{
		records: make(map[string]BlockRecord),
		now:     time.Now,
	}
}

func (s *MemoryBlockStore) Get(_ context.Context, identity string) (*BlockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[identity]
	if !ok {
		return nil, nil
	}
	if s.now().After(rec.ExpiresAt) {
		delete(s.records, identity)
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryBlockStore) Set(_ context.Context, identity string, rec BlockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[identity] = rec
	return nil
}

func (s *MemoryBlockStore) Delete(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identity)
	return nil
}
