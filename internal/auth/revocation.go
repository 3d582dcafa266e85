package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "auth:revoked:"

// Revocations keeps logged-out token ids in Redis until they expire.
type Revocations struct {
	client *redis.Client
	now    func() time.Time
}

// NewRevocations builds a denylist on the given client.
func NewRevocations(client *redis.Client) *Revocations {
	return &Revocations{client: client, now: time.Now}
}

// Revoke records tokenID until expires. Expired tokens need no entry.
func (r *Revocations) Revoke(ctx context.Context, tokenID string, expires time.Time) error {
	if r == nil || r.client == nil {
		return errors.New("revocation store not configured")
	}
	ttl := expires.Sub(r.now())
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether tokenID was revoked.
func (r *Revocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r == nil || r.client == nil || tokenID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
