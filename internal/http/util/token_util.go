package util

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrExpiredToken  = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrMissingSecret = errors.New("token secret is not configured")
	ErrEmptySubject  = errors.New("token subject is empty")
)

const (
	tokenVersion  byte = 1
	headerSize         = 1 + 8 // version + unix expiry
	signatureSize      = 16
)

var signingContext = []byte("flexqr-owner-token")

// Claims is the decoded body of a valid token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// TokenSigner issues and checks the owner bearer tokens of the management API.
// A token is base64url(payload) "." base64url(truncated HMAC-SHA256).
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenSigner(secret []byte, ttl time.Duration) *TokenSigner {
	return &TokenSigner{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a bearer token for subject (an owner id).
func (s *TokenSigner) Issue(subject string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}
	if subject == "" {
		return "", ErrEmptySubject
	}

	payload := make([]byte, headerSize, headerSize+len(subject))
	payload[0] = tokenVersion
	binary.BigEndian.PutUint64(payload[1:headerSize], uint64(s.now().Add(s.ttl).Unix()))
	payload = append(payload, subject...)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(payload) + "." + enc.EncodeToString(s.sign(payload)), nil
}

// Validate returns the subject of token if it is authentic and unexpired.
func (s *TokenSigner) Validate(token string) (string, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse authenticates token and decodes its claims.
func (s *TokenSigner) Parse(token string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrMissingSecret
	}

	payloadPart, sigPart, ok := strings.Cut(token, ".")
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil || len(payload) <= headerSize || payload[0] != tokenVersion {
		return Claims{}, ErrInvalidToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil || !hmac.Equal(sig, s.sign(payload)) {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{
		Subject:   string(payload[headerSize:]),
		ExpiresAt: time.Unix(int64(binary.BigEndian.Uint64(payload[1:headerSize])), 0),
	}
	if !s.now().Before(claims.ExpiresAt) {
		return Claims{}, ErrExpiredToken
	}
	return claims, nil
}

func (s *TokenSigner) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(bytes.Join([][]byte{signingContext, payload}, []byte{0}))
	return mac.Sum(nil)[:signatureSize]
}
