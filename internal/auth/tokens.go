package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/shoporder/internal/redisx"
)

var ErrTokenInvalid = errors.New("invalid or expired token")

// TokenStore keeps opaque bearer tokens in redis with a TTL. Resolving a
// token refreshes its TTL, so active sessions slide.
type TokenStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func (t *TokenStore) Issue(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	key := fmt.Sprintf(redisx.KeyAuthToken, token)
	if err := t.Redis.Set(ctx, key, userID, t.TTL).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (t *TokenStore) Resolve(ctx context.Context, token string) (string, error) {
	key := fmt.Sprintf(redisx.KeyAuthToken, token)
	userID, err := t.Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}
	_ = t.Redis.Expire(ctx, key, t.TTL).Err()
	return userID, nil
}

func (t *TokenStore) Revoke(ctx context.Context, token string) error {
	return t.Redis.Del(ctx, fmt.Sprintf(redisx.KeyAuthToken, token)).Err()
}
