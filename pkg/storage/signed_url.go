package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("storage: invalid download token")
	// ErrTokenExpired is returned once the token's deadline has passed.
	ErrTokenExpired = errors.New("storage: download token expired")
)

// DownloadClaims is the payload carried by a download token.
type DownloadClaims struct {
	ExportID  string
	Key       string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token granting access to key until the signer's TTL elapses.
func (s *SignedURLSigner) Generate(exportID, key string) (string, time.Time, error) {
	if exportID == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("storage: export id and key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("storage: signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	token := strings.Join([]string{exportID, ts, encodedKey, s.sign(exportID, ts, encodedKey)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns its claims.
func (s *SignedURLSigner) Parse(token string) (DownloadClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return DownloadClaims{}, ErrInvalidToken
	}
	exportID, ts, encodedKey, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(exportID, ts, encodedKey)), []byte(signature)) {
		return DownloadClaims{}, ErrInvalidToken
	}
	rawKey, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return DownloadClaims{}, ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return DownloadClaims{}, ErrInvalidToken
	}

	claims := DownloadClaims{ExportID: exportID, Key: string(rawKey), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(claims.ExpiresAt) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

func (s *SignedURLSigner) sign(exportID, ts, encodedKey string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(exportID + "|" + ts + "|" + encodedKey))
	return hex.EncodeToString(mac.Sum(nil))
}
