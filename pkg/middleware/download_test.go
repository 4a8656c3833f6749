package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/insuredocs/docgen/internal/tokens"
)

const testSecret = "download-secret-for-tests"

func downloadRouter() *gin.Engine {
	g := gin.New()
	g.GET("/dl", DownloadLinkMiddleware(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(DocumentIDKey))
	})
	return g
}

func TestDownloadLinkMiddleware_MissingToken(t *testing.T) {
	rw := httptest.NewRecorder()
	downloadRouter().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/dl", nil))
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestDownloadLinkMiddleware_InvalidToken(t *testing.T) {
	rw := httptest.NewRecorder()
	downloadRouter().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/dl?token=garbage", nil))
	require.Equal(t, http.StatusUnauthorized, rw.Code)

	other, err := tokens.GenerateDownloadToken("another-secret", "doc-1", time.Minute)
	require.NoError(t, err)
	rw = httptest.NewRecorder()
	downloadRouter().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/dl?token="+other, nil))
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestDownloadLinkMiddleware_QueryAndHeader(t *testing.T) {
	tok, err := tokens.GenerateDownloadToken(testSecret, "doc-1", time.Minute)
	require.NoError(t, err)

	rw := httptest.NewRecorder()
	downloadRouter().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/dl?token="+tok, nil))
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "doc-1", rw.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/dl", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rw = httptest.NewRecorder()
	downloadRouter().ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
}

func TestDownloadLinkMiddleware_RejectsRevokedDocument(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	tokens.SetRevocationClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer tokens.SetRevocationClient(nil)

	tok, err := tokens.GenerateDownloadToken(testSecret, "doc-gone", time.Minute)
	require.NoError(t, err)
	require.NoError(t, tokens.RevokeDocumentLinks(context.Background(), "doc-gone", time.Minute))

	rw := httptest.NewRecorder()
	downloadRouter().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/dl?token="+tok, nil))
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Contains(t, rw.Body.String(), "revoked")
}
