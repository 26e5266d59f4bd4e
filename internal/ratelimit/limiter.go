package ratelimit

import (
	"context"

	"github.com/postmangpx/postmangpx/internal/domain"
)

// RateLimiter enforces the per-credential request ceiling. Implementations
// must increment the window counter atomically and only when the request is
// allowed.
type RateLimiter interface {
	Allow(ctx context.Context, credential domain.Credential) (bool, error)
}
