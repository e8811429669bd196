package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"social-auth/backend/internal/session/domain"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

const defaultRedisPrefix = "sess"

// redisSession is the JSON value stored under each session key.
type redisSession struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	JtiHash          string    `json:"jti_hash"`
	RefreshTokenHash string    `json:"refresh_token_hash"`
	IsLongSession    bool      `json:"is_long_session"`
	ExpiresAt        time.Time `json:"expires_at"`
	MaxExpiry        time.Time `json:"max_expiry"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// RedisRepository stores sessions as JSON values whose key TTL tracks the rolling expiry,
// so dead sessions are evicted by Redis itself.
type RedisRepository struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRepository returns a session repository backed by the given Redis client.
// An empty prefix uses "sess".
func NewRedisRepository(client redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRepository{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + ":" + id
}

// GetByID returns the session for id, or nil if not found or already evicted.
func (r *RedisRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return decodeSession(data)
}

// Add stores a new session. Fails if a session with the same id already exists.
func (r *RedisRepository) Add(ctx context.Context, s *domain.Session) error {
	data, err := encodeSession(s)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, r.key(s.ID()), data, r.ttl(s)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", s.ID())
	}
	return nil
}

// Update rewrites the session inside a WATCH transaction so that a concurrent rotation
// of the same session makes exactly one writer fail with ErrStaleSession.
func (r *RedisRepository) Update(ctx context.Context, s *domain.Session, expectedRefreshTokenHash string) error {
	key := r.key(s.ID())
	data, err := encodeSession(s)
	if err != nil {
		return err
	}
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrStaleSession
		}
		if err != nil {
			return err
		}
		var stored redisSession
		if err := json.Unmarshal(current, &stored); err != nil {
			return err
		}
		if stored.RefreshTokenHash != expectedRefreshTokenHash {
			return ErrStaleSession
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl(s))
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleSession), errors.Is(err, redis.TxFailedErr):
		return ErrStaleSession
	default:
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
}

// Delete removes the session. Deleting a missing key is a no-op.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ttl keeps the key alive until the rolling expiry. A session that is already dead
// gets a one-second TTL rather than none, which would make it permanent.
func (r *RedisRepository) ttl(s *domain.Session) time.Duration {
	d := s.ExpiresAt().Sub(r.now())
	if d < time.Second {
		return time.Second
	}
	return d
}

func encodeSession(s *domain.Session) ([]byte, error) {
	return json.Marshal(redisSession{
		ID:               s.ID(),
		UserID:           s.UserID(),
		JtiHash:          s.JtiHash(),
		RefreshTokenHash: s.RefreshTokenHash(),
		IsLongSession:    s.IsLongSession(),
		ExpiresAt:        s.ExpiresAt(),
		MaxExpiry:        s.MaxExpiry(),
		LastSeenAt:       s.LastSeenAt(),
		CreatedAt:        s.CreatedAt(),
	})
}

func decodeSession(data []byte) (*domain.Session, error) {
	var rs redisSession
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return domain.Restore(rs.ID, rs.UserID, rs.JtiHash, rs.RefreshTokenHash, rs.IsLongSession,
		rs.ExpiresAt, rs.MaxExpiry, rs.LastSeenAt, rs.CreatedAt), nil
}
