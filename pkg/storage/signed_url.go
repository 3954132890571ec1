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
	// ErrInvalidToken covers malformed or tampered download tokens.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned by Parse once the token's expiry has passed.
	ErrTokenExpired = errors.New("download token expired")
)

// SignedObject is the payload carried by a download token.
type SignedObject struct {
	Subject   string
	Key       string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates HMAC-signed download tokens.
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
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token granting access to key on behalf of subject
// (an application id for admit cards).
func (s *SignedURLSigner) Generate(subject, key string) (string, time.Time, error) {
	if subject == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("subject and key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encodedSubject := base64.RawURLEncoding.EncodeToString([]byte(subject))
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{encodedSubject, ts, encodedKey, s.sign(encodedSubject, ts, encodedKey)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token. Expired tokens return the decoded object together
// with ErrTokenExpired so cleanup routines can still resolve the key.
func (s *SignedURLSigner) Parse(token string) (SignedObject, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return SignedObject{}, ErrInvalidToken
	}
	if !hmac.Equal([]byte(s.sign(parts[0], parts[1], parts[2])), []byte(parts[3])) {
		return SignedObject{}, ErrInvalidToken
	}
	subject, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return SignedObject{}, ErrInvalidToken
	}
	key, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return SignedObject{}, ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return SignedObject{}, ErrInvalidToken
	}
	obj := SignedObject{Subject: string(subject), Key: string(key), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(obj.ExpiresAt) {
		return obj, ErrTokenExpired
	}
	return obj, nil
}

func (s *SignedURLSigner) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
