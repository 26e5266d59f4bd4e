package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/postmangpx/postmangpx/internal/domain"
	"github.com/postmangpx/postmangpx/internal/observability"
)

const (
	apiKeyHeader    = "X-API-Key"
	credentialLocal = "credential"
)

type CredentialAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*domain.Credential, error)
	CheckRate(ctx context.Context, credential domain.Credential) error
}

// APIKeyAuth authenticates the presented secret and charges the request
// against the credential's rate window before the route handler runs.
func APIKeyAuth(auth CredentialAuthenticator, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawKey := strings.TrimSpace(c.Get(apiKeyHeader))
		if rawKey == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing api key")
		}

		credential, err := auth.Authenticate(c.Context(), rawKey)
		if err != nil {
			return toHTTPError(err)
		}

		if err := auth.CheckRate(c.Context(), *credential); err != nil {
			if metrics != nil && errors.Is(err, domain.ErrRateExceeded) {
				metrics.IncRateLimited()
			}
			return toHTTPError(err)
		}

		c.Locals(credentialLocal, *credential)
		return c.Next()
	}
}

func credentialFromContext(c *fiber.Ctx) (domain.Credential, bool) {
	credential, ok := c.Locals(credentialLocal).(domain.Credential)
	return credential, ok
}
