package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/insuredocs/docgen/internal/tokens"
	"github.com/insuredocs/docgen/pkg/logger"
)

// DocumentIDKey is the gin context key holding the document a verified
// download link grants access to.
const DocumentIDKey = "documentID"

// linkToken reads the token from the "token" query parameter or, failing
// that, from an "Authorization: Bearer" header.
func linkToken(c *gin.Context) string {
	if tok := strings.TrimSpace(c.Query("token")); tok != "" {
		return tok
	}
	auth := c.GetHeader("Authorization")
	if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

// DownloadLinkMiddleware verifies signed download links. Links for a
// document that was deleted are rejected even before they expire.
func DownloadLinkMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := linkToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing download token"})
			return
		}
		claims, err := tokens.ParseDownloadToken(secret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid download token", "details": err.Error()})
			return
		}
		revoked, err := tokens.IsDocumentRevoked(c.Request.Context(), claims.DocumentID)
		if err != nil {
			// fail open on revocation store errors; the record lookup still gates access
			logger.With("document", claims.DocumentID).Warnf("revocation check failed: %v", err)
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "download link revoked"})
			return
		}
		c.Set(DocumentIDKey, claims.DocumentID)
		c.Next()
	}
}
