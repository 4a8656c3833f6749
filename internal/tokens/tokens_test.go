package tokens

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret-32-bytes-should-be-long-enough"

func TestGenerateDownloadToken_ValidAndClaims(t *testing.T) {
	tokenStr, err := GenerateDownloadToken(secret, "doc-123", 2*time.Minute)
	if err != nil {
		t.Fatalf("GenerateDownloadToken error: %v", err)
	}
	claims, err := ParseDownloadToken(secret, tokenStr)
	if err != nil {
		t.Fatalf("ParseDownloadToken error: %v", err)
	}
	if claims.DocumentID != "doc-123" {
		t.Fatalf("unexpected document id: got=%v", claims.DocumentID)
	}
	if claims.TokenID == "" {
		t.Fatalf("expected a token id")
	}
	if time.Until(claims.ExpiresAt) <= 0 {
		t.Fatalf("expiry should be in the future: %v", claims.ExpiresAt)
	}
}

func TestGenerateDownloadToken_NoSecret(t *testing.T) {
	if _, err := GenerateDownloadToken("", "doc", time.Minute); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
	if _, err := ParseDownloadToken("", "x"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestParseDownloadToken_Expired(t *testing.T) {
	tokenStr, err := GenerateDownloadToken(secret, "doc", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateDownloadToken error: %v", err)
	}
	if _, err := ParseDownloadToken(secret, tokenStr); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestParseDownloadToken_WrongSecretFails(t *testing.T) {
	tokenStr, err := GenerateDownloadToken(secret, "doc", 2*time.Minute)
	if err != nil {
		t.Fatalf("GenerateDownloadToken error: %v", err)
	}
	if _, err := ParseDownloadToken("different-secret-xxxxxxxxxxxxxxxx", tokenStr); err == nil {
		t.Fatalf("expected parse to fail with wrong secret")
	}
}

func TestParseDownloadToken_Malformed(t *testing.T) {
	if _, err := ParseDownloadToken(secret, "not.a.jwt"); err == nil {
		t.Fatalf("expected parse to fail for malformed token")
	}
}

// Rejected when alg=none (unsigned token)
func TestParseDownloadToken_AlgNoneRejected(t *testing.T) {
	payload := `{"sub":"doc","scope":"document:download","exp":9999999999}`
	tok := new(jwt.Token).EncodeSegment([]byte(`{"alg":"none"}`)) + "." + new(jwt.Token).EncodeSegment([]byte(payload)) + "."
	if _, err := ParseDownloadToken(secret, tok); err == nil {
		t.Fatalf("expected parse to reject alg=none token")
	}
}

func TestParseDownloadToken_WrongScope(t *testing.T) {
	claims := jwt.MapClaims{"sub": "doc", "scope": "session", "exp": time.Now().Add(time.Minute).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseDownloadToken(secret, tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected scope check to fail, got %v", err)
	}
}

// Tampering with payload must fail signature verification
func TestParseDownloadToken_TamperedPayload(t *testing.T) {
	tokenStr, err := GenerateDownloadToken(secret, "doc-t", 5*time.Minute)
	if err != nil {
		t.Fatalf("GenerateDownloadToken error: %v", err)
	}
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payloadBytes, _ := jwt.NewParser().DecodeSegment(parts[1])
	parts[1] = new(jwt.Token).EncodeSegment([]byte(strings.Replace(string(payloadBytes), "doc-t", "doc-x", 1)))
	if _, err := ParseDownloadToken(secret, strings.Join(parts, ".")); err == nil {
		t.Fatalf("expected signature verification to fail for tampered token")
	}
}
