package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const downloadScope = "document:download"

var (
	ErrNoSecret     = errors.New("download token secret not configured")
	ErrInvalidToken = errors.New("invalid download token")
)

// DownloadClaims identifies the document a signed link grants access to.
type DownloadClaims struct {
	DocumentID string
	TokenID    string
	ExpiresAt  time.Time
}

// GenerateDownloadToken creates a signed JWT granting download access to
// one generated document until ttl elapses.
func GenerateDownloadToken(secret, documentID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   documentID,
		"scope": downloadScope,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// ParseDownloadToken verifies signature, expiry and scope.
func ParseDownloadToken(secret, token string) (*DownloadClaims, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if scope, _ := claims["scope"].(string); scope != downloadScope {
		return nil, fmt.Errorf("%w: wrong scope", ErrInvalidToken)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}
	jti, _ := claims["jti"].(string)
	return &DownloadClaims{DocumentID: sub, TokenID: jti, ExpiresAt: exp.Time}, nil
}
