package domain

import (
	"fmt"
	"strings"
	"time"
)

// Default rate ceiling applied when a credential is issued without one.
const (
	DefaultRateLimit      = 100
	DefaultRateWindowSecs = 60
)

// Credential is an API secret presented on every call. Only the sha256
// digest of the secret is stored; the raw value is shown once at issue time.
type Credential struct {
	ID             string
	CallerID       string
	Name           string
	KeyPrefix      string
	KeyDigest      string
	IsActive       bool
	RateLimit      int
	RateWindowSecs int
	CreatedAt      time.Time
	LastUsedAt     *time.Time
}

func (c *Credential) Validate() error {
	if strings.TrimSpace(c.CallerID) == "" {
		return fmt.Errorf("%w: caller id is required", ErrValidation)
	}
	if strings.TrimSpace(c.KeyDigest) == "" {
		return fmt.Errorf("%w: key digest is required", ErrValidation)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("%w: rate limit must be positive", ErrValidation)
	}
	if c.RateWindowSecs <= 0 {
		return fmt.Errorf("%w: rate window must be positive", ErrValidation)
	}
	return nil
}
