package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/postmangpx/postmangpx/internal/domain"
	"github.com/postmangpx/postmangpx/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ProvisionService seeds the records a fresh deployment needs to accept
// its first request. All operations are idempotent.
type ProvisionService struct {
	callers repository.CallerRepository
	logger  *zap.Logger
}

func NewProvisionService(callers repository.CallerRepository, logger *zap.Logger) (*ProvisionService, error) {
	if callers == nil {
		return nil, fmt.Errorf("caller repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProvisionService{
		callers: callers,
		logger:  logger,
	}, nil
}

// EnsureAdminCaller creates the admin caller when it does not exist yet and
// returns it either way.
func (s *ProvisionService) EnsureAdminCaller(ctx context.Context, username string, password string) (*domain.Caller, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: admin username is required", domain.ErrValidation)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: admin password is required", domain.ErrValidation)
	}

	existing, err := s.callers.GetByUsername(ctx, username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up caller: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	caller := &domain.Caller{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         "admin",
	}
	if err := s.callers.Create(ctx, caller); err != nil {
		// Concurrent bootstrap may have won the insert.
		if winner, lookupErr := s.callers.GetByUsername(ctx, username); lookupErr == nil {
			return winner, nil
		}
		return nil, fmt.Errorf("failed to create caller: %w", err)
	}

	s.logger.Info("admin caller provisioned", zap.String("username", username))
	return caller, nil
}
