// Package auth verifies identity-provider session tokens.
//
// A session token is a compact RS256 JWT carrying the user id in "sub" and
// the session id in "sid". The identity provider holds the private key;
// huddle only needs the public key.
package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// Errors
var (
	ErrNoSession     = errors.New("no session token")
	ErrInvalidToken  = errors.New("invalid session token")
	ErrTokenExpired  = errors.New("session token expired")
	ErrMissingUserID = errors.New("session token has no subject")
)

var allowedAlgorithms = []jose.SignatureAlgorithm{jose.RS256}

// Claims is the subset of session token claims huddle reads.
type Claims struct {
	SessionID string
	UserID    string // Identity-provider user id
	ExpiresAt int64  // Unix seconds, zero when the token never expires
}

type sessionClaims struct {
	SessionID string `json:"sid,omitempty"`
}

// Verifier checks session tokens against the identity provider's public key.
type Verifier struct {
	key *rsa.PublicKey
	now func() time.Time
}

// NewVerifier creates a Verifier for the given key.
func NewVerifier(key *rsa.PublicKey) *Verifier {
	return &Verifier{key: key, now: time.Now}
}

// LoadVerifier loads the public key PEM at path and returns a Verifier.
func LoadVerifier(path string) (*Verifier, error) {
	if path == "" {
		return nil, fmt.Errorf("public key path is required")
	}
	key, err := LoadPublicKey(path)
	if err != nil {
		return nil, fmt.Errorf("load public key: %w", err)
	}
	return NewVerifier(key), nil
}

// Verify checks the signature, expiry and not-before time and returns the
// token's claims.
func (v *Verifier) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseSigned(token, allowedAlgorithms)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var std jwt.Claims
	var session sessionClaims
	if err := parsed.Claims(v.key, &std, &session); err != nil {
		return nil, ErrInvalidToken
	}

	if std.Subject == "" {
		return nil, ErrMissingUserID
	}
	if err := std.ValidateWithLeeway(jwt.Expected{Time: v.now()}, 0); err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := &Claims{SessionID: session.SessionID, UserID: std.Subject}
	if std.Expiry != nil {
		claims.ExpiresAt = std.Expiry.Time().Unix()
	}
	return claims, nil
}

// VerifyRequest extracts the session token from r and verifies it.
func (v *Verifier) VerifyRequest(r *http.Request, cookieName string) (*Claims, error) {
	token := TokenFromRequest(r, cookieName)
	if token == "" {
		return nil, ErrNoSession
	}
	return v.Verify(token)
}

// TokenFromRequest returns the session cookie value, falling back to an
// Authorization: Bearer header. Empty when neither is present.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// Signer mints session tokens. Used by development tooling and tests; in
// production the identity provider signs tokens.
type Signer struct {
	key *rsa.PrivateKey
}

// NewSigner creates an RS256 Signer for the given key.
func NewSigner(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// Sign encodes and signs claims as a compact JWT.
func (s *Signer) Sign(claims Claims) (string, error) {
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: s.key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("build signer: %w", err)
	}

	std := jwt.Claims{Subject: claims.UserID}
	if claims.ExpiresAt != 0 {
		std.Expiry = jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0))
	}

	token, err := jwt.Signed(sig).
		Claims(std).
		Claims(sessionClaims{SessionID: claims.SessionID}).
		Serialize()
	if err != nil {
		return "", fmt.Errorf("sign claims: %w", err)
	}
	return token, nil
}

// LoadPrivateKey loads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	// Try PKCS#8 first (newer format)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key is not an RSA private key")
		}
		return rsaKey, nil
	}

	// Fall back to PKCS#1 (older format)
	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return rsaKey, nil
}

// LoadPublicKey loads an RSA public key from a PEM file (PKIX or PKCS#1).
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("key is not an RSA public key")
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return rsaKey, nil
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	return block, nil
}
