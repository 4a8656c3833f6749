package tokens

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRevokeDocumentLinks(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	SetRevocationClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer SetRevocationClient(nil)

	ctx := context.Background()
	require.NoError(t, RevokeDocumentLinks(ctx, "doc-1", 2*time.Second))

	ok, err := IsDocumentRevoked(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = IsDocumentRevoked(ctx, "doc-2")
	require.NoError(t, err)
	require.False(t, ok)

	m.FastForward(3 * time.Second)

	ok, err = IsDocumentRevoked(ctx, "doc-1")
	require.NoError(t, err)
	require.False(t, ok)
}

// Revocation is a no-op when no Redis client is configured
func TestRevocation_NoClient_Noop(t *testing.T) {
	SetRevocationClient(nil)
	ctx := context.Background()
	require.NoError(t, RevokeDocumentLinks(ctx, "doc", time.Second))
	ok, err := IsDocumentRevoked(ctx, "doc")
	require.NoError(t, err)
	require.False(t, ok)
}
