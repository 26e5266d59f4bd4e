package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/postmangpx/postmangpx/internal/domain"
	"github.com/postmangpx/postmangpx/internal/ratelimit"
	"github.com/postmangpx/postmangpx/internal/repository"
	"go.uber.org/zap"
)

const (
	secretPrefix    = "pmx_live_"
	secretRandBytes = 16
	prefixShown     = 12
)

// CredentialService is the credential store: it resolves presented secrets
// to active credentials and enforces the per-credential rate ceiling.
type CredentialService struct {
	credentials       repository.CredentialRepository
	limiter           ratelimit.RateLimiter
	logger            *zap.Logger
	now               func() time.Time
	defaultRateLimit  int
	defaultRateWindow int
}

// NewCredentialService builds the store. defaultRateLimit and
// defaultRateWindowSecs apply to issued credentials that don't specify their
// own; non-positive values fall back to the domain defaults.
func NewCredentialService(
	credentials repository.CredentialRepository,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
	defaultRateLimit int,
	defaultRateWindowSecs int,
) (*CredentialService, error) {
	if credentials == nil {
		return nil, fmt.Errorf("credential repository is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultRateLimit <= 0 {
		defaultRateLimit = domain.DefaultRateLimit
	}
	if defaultRateWindowSecs <= 0 {
		defaultRateWindowSecs = domain.DefaultRateWindowSecs
	}

	return &CredentialService{
		credentials:       credentials,
		limiter:           limiter,
		logger:            logger,
		now:               time.Now,
		defaultRateLimit:  defaultRateLimit,
		defaultRateWindow: defaultRateWindowSecs,
	}, nil
}

// SecretDigest computes the stored form of a presented secret. The raw
// secret itself is never persisted or compared.
func SecretDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Authenticate resolves a presented secret to an active credential and
// updates its last-used timestamp.
func (s *CredentialService) Authenticate(ctx context.Context, rawKey string) (*domain.Credential, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	trimmed := strings.TrimSpace(rawKey)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: missing api key", domain.ErrUnauthorized)
	}

	credential, err := s.credentials.GetActiveByDigest(ctx, SecretDigest(trimmed))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid api key", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}

	if err := s.credentials.TouchLastUsed(ctx, credential.ID, s.now()); err != nil {
		// Bookkeeping only; authentication itself already succeeded.
		s.logger.Warn("failed to update credential last_used_at",
			zap.String("credentialId", credential.ID),
			zap.Error(err),
		)
	}

	return credential, nil
}

// CheckRate consumes one slot of the credential's window. Counter-storage
// errors deny the request rather than failing open.
func (s *CredentialService) CheckRate(ctx context.Context, credential domain.Credential) error {
	if ctx == nil {
		ctx = context.Background()
	}

	allowed, err := s.limiter.Allow(ctx, credential)
	if err != nil {
		s.logger.Error("rate counter unavailable, denying request",
			zap.String("credentialId", credential.ID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: rate counter unavailable", domain.ErrRateExceeded)
	}
	if !allowed {
		return fmt.Errorf("%w: credential %s exceeded %d requests per %ds",
			domain.ErrRateExceeded, credential.ID, credential.RateLimit, credential.RateWindowSecs)
	}

	return nil
}

// Issue creates a credential and returns the raw secret exactly once.
func (s *CredentialService) Issue(
	ctx context.Context,
	callerID string,
	name string,
	rateLimit int,
	rateWindowSecs int,
) (string, *domain.Credential, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(callerID) == "" {
		return "", nil, fmt.Errorf("%w: caller id is required", domain.ErrValidation)
	}

	var randBytes [secretRandBytes]byte
	if _, err := rand.Read(randBytes[:]); err != nil {
		return "", nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	rawKey := secretPrefix + hex.EncodeToString(randBytes[:])

	if rateLimit <= 0 {
		rateLimit = s.defaultRateLimit
	}
	if rateWindowSecs <= 0 {
		rateWindowSecs = s.defaultRateWindow
	}

	credential := &domain.Credential{
		ID:             uuid.NewString(),
		CallerID:       strings.TrimSpace(callerID),
		Name:           strings.TrimSpace(name),
		KeyPrefix:      rawKey[:prefixShown] + "...",
		KeyDigest:      SecretDigest(rawKey),
		IsActive:       true,
		RateLimit:      rateLimit,
		RateWindowSecs: rateWindowSecs,
	}
	if err := credential.Validate(); err != nil {
		return "", nil, err
	}

	if err := s.credentials.Create(ctx, credential); err != nil {
		return "", nil, fmt.Errorf("failed to store credential: %w", err)
	}

	s.logger.Info("credential issued",
		zap.String("credentialId", credential.ID),
		zap.String("callerId", credential.CallerID),
		zap.String("keyPrefix", credential.KeyPrefix),
	)

	return rawKey, credential, nil
}

// Deactivate soft-deletes a credential; message history keeps referencing it.
func (s *CredentialService) Deactivate(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: credential id is required", domain.ErrValidation)
	}
	return s.credentials.Deactivate(ctx, strings.TrimSpace(id))
}
