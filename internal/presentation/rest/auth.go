package rest

import (
	"strings"

	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/infra/auth"
	"github.com/gofiber/fiber/v2"
)

const IdentityKey = "identity"

type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Authenticate reads a bearer token, or the access_token query parameter which is the
// only option browsers have for EventSource.
func Authenticate(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearer(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "missing bearer token"})
		}
		identity, err := verifier.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		c.Locals(IdentityKey, identity)
		return c.Next()
	}
}

func bearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
