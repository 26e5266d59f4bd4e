package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/postmangpx/postmangpx/internal/domain"
	"go.uber.org/zap"
)

func TestCredentialServiceAuthenticate(t *testing.T) {
	t.Parallel()

	rawKey := "pmx_live_0123456789abcdef0123456789abcdef"
	stored := &domain.Credential{
		ID:        "cred-1",
		CallerID:  "caller-1",
		KeyDigest: SecretDigest(rawKey),
		IsActive:  true,
	}

	touched := false
	repo := &fakeCredentialRepo{
		getActiveByDigestFn: func(ctx context.Context, digest string) (*domain.Credential, error) {
			if digest != stored.KeyDigest {
				return nil, domain.ErrNotFound
			}
			return stored, nil
		},
		touchLastUsedFn: func(ctx context.Context, id string, at time.Time) error {
			touched = true
			if id != "cred-1" {
				t.Fatalf("touched id = %q, want cred-1", id)
			}
			return nil
		},
	}

	svc, err := NewCredentialService(repo, &fakeLimiter{}, zap.NewNop(), 0, 0)
	if err != nil {
		t.Fatalf("NewCredentialService() error = %v", err)
	}

	credential, err := svc.Authenticate(context.Background(), rawKey)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if credential.ID != "cred-1" {
		t.Fatalf("credential id = %q, want cred-1", credential.ID)
	}
	if !touched {
		t.Fatal("last_used_at should be updated on successful auth")
	}
}

func TestCredentialServiceAuthenticateUnknownKey(t *testing.T) {
	t.Parallel()

	repo := &fakeCredentialRepo{
		getActiveByDigestFn: func(ctx context.Context, digest string) (*domain.Credential, error) {
			return nil, domain.ErrNotFound
		},
	}

	svc, err := NewCredentialService(repo, &fakeLimiter{}, zap.NewNop(), 0, 0)
	if err != nil {
		t.Fatalf("NewCredentialService() error = %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "pmx_live_wrong"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Authenticate() error = %v, want ErrUnauthorized", err)
	}

	if _, err := svc.Authenticate(context.Background(), "  "); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Authenticate() with blank key error = %v, want ErrUnauthorized", err)
	}
}

func TestCredentialServiceCheckRate(t *testing.T) {
	t.Parallel()

	credential := domain.Credential{ID: "cred-1", RateLimit: 5, RateWindowSecs: 60}

	svc, err := NewCredentialService(&fakeCredentialRepo{}, &fakeLimiter{allowed: true}, zap.NewNop(), 0, 0)
	if err != nil {
		t.Fatalf("NewCredentialService() error = %v", err)
	}
	if err := svc.CheckRate(context.Background(), credential); err != nil {
		t.Fatalf("CheckRate() error = %v", err)
	}

	svc, err = NewCredentialService(&fakeCredentialRepo{}, &fakeLimiter{allowed: false}, zap.NewNop(), 0, 0)
	if err != nil {
		t.Fatalf("NewCredentialService() error = %v", err)
	}
	if err := svc.CheckRate(context.Background(), credential); !errors.Is(err, domain.ErrRateExceeded) {
		t.Fatalf("CheckRate() error = %v, want ErrRateExceeded", err)
	}
}

func TestCredentialServiceCheckRateFailsClosed(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{err: errors.New("redis unreachable")}
	svc, err := NewCredentialService(&fakeCredentialRepo{}, limiter, zap.NewNop(), 0, 0)
	if err != nil {
		t.Fatalf("NewCredentialService() error = %v", err)
	}

	err = svc.CheckRate(context.Background(), domain.Credential{ID: "cred-1"})
	if !errors.Is(err, domain.ErrRateExceeded) {
		t.Fatalf("CheckRate() error = %v, want ErrRateExceeded on counter failure", err)
	}
}

func TestCredentialServiceIssue(t *testing.T) {
	t.Parallel()

	var created *domain.Credential
	repo := &fakeCredentialRepo{
		createFn: func(ctx context.Context, c *domain.Credential) error {
			created = c
			return nil
		},
	}

	svc, err := NewCredentialService(repo, &fakeLimiter{}, zap.NewNop(), 0, 0)
	if err != nil {
		t.Fatalf("NewCredentialService() error = %v", err)
	}

	rawKey, credential, err := svc.Issue(context.Background(), "caller-1", "ci key", 0, 0)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if !strings.HasPrefix(rawKey, "pmx_live_") {
		t.Fatalf("raw key = %q, want pmx_live_ prefix", rawKey)
	}
	if created == nil {
		t.Fatal("credential should be persisted")
	}
	if credential.KeyDigest != SecretDigest(rawKey) {
		t.Fatal("stored digest must match the returned raw key")
	}
	if credential.KeyDigest == rawKey {
		t.Fatal("raw key must not be stored")
	}
	if !strings.HasSuffix(credential.KeyPrefix, "...") {
		t.Fatalf("key prefix = %q, want truncated form", credential.KeyPrefix)
	}
	if credential.RateLimit != domain.DefaultRateLimit {
		t.Fatalf("rate limit = %d, want default %d", credential.RateLimit, domain.DefaultRateLimit)
	}
	if credential.RateWindowSecs != domain.DefaultRateWindowSecs {
		t.Fatalf("rate window = %d, want default %d", credential.RateWindowSecs, domain.DefaultRateWindowSecs)
	}
	if !credential.IsActive {
		t.Fatal("issued credential should be active")
	}
}

func TestCredentialServiceIssueConfiguredDefaults(t *testing.T) {
	t.Parallel()

	svc, err := NewCredentialService(&fakeCredentialRepo{}, &fakeLimiter{}, zap.NewNop(), 25, 30)
	if err != nil {
		t.Fatalf("NewCredentialService() error = %v", err)
	}

	_, credential, err := svc.Issue(context.Background(), "caller-1", "ci key", 0, 0)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if credential.RateLimit != 25 {
		t.Fatalf("rate limit = %d, want configured default 25", credential.RateLimit)
	}
	if credential.RateWindowSecs != 30 {
		t.Fatalf("rate window = %d, want configured default 30", credential.RateWindowSecs)
	}

	_, credential, err = svc.Issue(context.Background(), "caller-1", "ci key", 7, 120)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if credential.RateLimit != 7 || credential.RateWindowSecs != 120 {
		t.Fatalf("limits = %d/%d, want explicit 7/120", credential.RateLimit, credential.RateWindowSecs)
	}
}

type fakeCredentialRepo struct {
	createFn            func(ctx context.Context, c *domain.Credential) error
	getActiveByDigestFn func(ctx context.Context, digest string) (*domain.Credential, error)
	touchLastUsedFn     func(ctx context.Context, id string, at time.Time) error
}

func (f *fakeCredentialRepo) Create(ctx context.Context, c *domain.Credential) error {
	if f.createFn != nil {
		return f.createFn(ctx, c)
	}
	return nil
}

func (f *fakeCredentialRepo) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeCredentialRepo) GetActiveByDigest(ctx context.Context, digest string) (*domain.Credential, error) {
	if f.getActiveByDigestFn != nil {
		return f.getActiveByDigestFn(ctx, digest)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCredentialRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	if f.touchLastUsedFn != nil {
		return f.touchLastUsedFn(ctx, id, at)
	}
	return nil
}

func (f *fakeCredentialRepo) Deactivate(ctx context.Context, id string) error { return nil }

type fakeLimiter struct {
	allowed bool
	err     error
}

func (f *fakeLimiter) Allow(ctx context.Context, credential domain.Credential) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.allowed, nil
}
