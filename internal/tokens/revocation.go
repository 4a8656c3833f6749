package tokens

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// package-level Redis client used for link revocation (optional)
var revocationClient *redis.Client

// SetRevocationClient configures the Redis client used for revocation.
// Safe to call with nil to disable revocation.
func SetRevocationClient(c *redis.Client) {
	revocationClient = c
}

func revokedKey(documentID string) string { return "revoked:document:" + documentID }

// RevokeDocumentLinks invalidates every outstanding download link for the
// document for ttl, which should be at least the link lifetime.
// If no Redis client is configured, this is a no-op and returns nil.
func RevokeDocumentLinks(ctx context.Context, documentID string, ttl time.Duration) error {
	if revocationClient == nil {
		return nil
	}
	return revocationClient.Set(ctx, revokedKey(documentID), "1", ttl).Err()
}

// IsDocumentRevoked reports whether links for the document were revoked.
// If no Redis client is configured, returns (false, nil).
func IsDocumentRevoked(ctx context.Context, documentID string) (bool, error) {
	if revocationClient == nil {
		return false, nil
	}
	exists, err := revocationClient.Exists(ctx, revokedKey(documentID)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
