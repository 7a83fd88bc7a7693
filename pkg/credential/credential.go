// Package credential stores the order API bearer token and its expiry.
//
// The stored credential is process-wide shared state. Stores do no locking across
// processes: the last writer wins, which at worst costs a redundant token exchange.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store keys. Backends that persist the two halves separately use these names.
const (
	KeyToken  = "api_token"
	KeyExpiry = "api_token_expiry"
)

var (
	// ErrCredentialNotFound indicates no credential has been stored yet.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrInvalidCredential indicates the stored credential could not be decoded.
	ErrInvalidCredential = errors.New("invalid stored credential")
)

// Credential is a bearer token with its expiry.
type Credential struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

// Valid reports whether the credential carries a token that is still usable at now.
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && c.Token != "" && now.Before(c.Expiry)
}

// TTL returns the time left until expiry, or 0 if already expired.
func (c *Credential) TTL(now time.Time) time.Duration {
	ttl := c.Expiry.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Store reads and replaces the shared credential.
type Store interface {
	// Get returns the stored credential or ErrCredentialNotFound.
	Get(ctx context.Context) (*Credential, error)

	// Set replaces the stored credential.
	Set(ctx context.Context, cred Credential) error
}

func encodeExpiry(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeExpiry(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: expiry %q: %v", ErrInvalidCredential, s, err)
	}
	return t, nil
}
