package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every failure talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when a refresh token has no live record.
var ErrNotFound = errors.New("session not found")

// DefaultIndexGrace is how much longer the per-user index outlives its newest session.
const DefaultIndexGrace = time.Hour

const takeSessionScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return false
end
redis.call("DEL", KEYS[1])
local ok, rec = pcall(cjson.decode, data)
if ok and type(rec) == "table" and type(rec.user_id) == "string" then
  redis.call("SREM", ARGV[1] .. rec.user_id, ARGV[2])
end
return data
`

var takeSessionLua = redis.NewScript(takeSessionScript)

const revokeSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var revokeSessionLua = redis.NewScript(revokeSessionScript)

// Store is a Redis-backed refresh session store with a per-user index.
type Store struct {
	redis      redis.UniversalClient
	prefix     string
	indexGrace time.Duration
	now        func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the key namespace; indexGrace is added to each session TTL
// when refreshing the index expiry (zero selects [DefaultIndexGrace]).
func NewStore(redis redis.UniversalClient, prefix string, indexGrace time.Duration) *Store {
	if prefix == "" {
		prefix = "rt"
	}
	if indexGrace <= 0 {
		indexGrace = DefaultIndexGrace
	}
	return &Store{
		redis:      redis,
		prefix:     prefix,
		indexGrace: indexGrace,
		now:        time.Now,
	}
}

func (s *Store) key(token string) string {
	return s.prefix + ":" + token
}

func (s *Store) indexPrefix() string {
	return s.prefix + "u:"
}

func (s *Store) userKey(userID uuid.UUID) string {
	return s.indexPrefix() + userID.String()
}

// Create stores a new session for userID and returns its refresh token.
// The record and the index entry are written in one transaction.
//
//	Performance: 1 round trip (MULTI SET + SADD + EXPIRE).
func (s *Store) Create(ctx context.Context, userID uuid.UUID, fingerprint string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("session ttl must be positive")
	}

	data, err := Encode(Record{
		UserID:      userID,
		Fingerprint: NormalizeFingerprint(fingerprint),
		IssuedAt:    s.now().Unix(),
	})
	if err != nil {
		return "", err
	}

	token := uuid.NewString()
	userKey := s.userKey(userID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(token), data, ttl)
		pipe.SAdd(ctx, userKey, token)
		pipe.Expire(ctx, userKey, ttl+s.indexGrace)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return token, nil
}

// Fetch returns the record behind token without consuming it.
func (s *Store) Fetch(ctx context.Context, token string) (Record, error) {
	if token == "" {
		return Record{}, ErrNotFound
	}

	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return Decode(data)
}

// Take atomically reads and deletes the record behind token and drops it
// from the owner's index. Of several concurrent calls for the same token
// exactly one gets the record; the rest observe [ErrNotFound].
func (s *Store) Take(ctx context.Context, token string) (Record, error) {
	if token == "" {
		return Record{}, ErrNotFound
	}

	data, err := takeSessionLua.Run(ctx, s.redis, []string{s.key(token)}, s.indexPrefix(), token).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return Decode([]byte(data))
}

// Revoke deletes a single session and its index entry. It reports whether
// a record existed.
func (s *Store) Revoke(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	existed, err := revokeSessionLua.Run(ctx, s.redis, []string{s.key(token), s.userKey(userID)}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return existed == 1, nil
}

// RevokeAll deletes every session indexed for userID and then the index
// itself, returning how many tokens were indexed. A missing index is a no-op.
//
// A session created between the SMEMBERS read and the delete survives; it is
// not in the snapshot and expires on its own.
func (s *Store) RevokeAll(ctx context.Context, userID uuid.UUID) (int, error) {
	userKey := s.userKey(userID)

	tokens, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(tokens))
	for _, token := range tokens {
		keys = append(keys, s.key(token))
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return len(tokens), nil
}

// Active returns the refresh tokens currently indexed for userID.
func (s *Store) Active(ctx context.Context, userID uuid.UUID) ([]string, error) {
	tokens, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return tokens, nil
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
