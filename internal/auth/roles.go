package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/event-service/internal/domain"
)

// Require rejects requests whose principal lacks the capability.
func Require(required domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := Check(PrincipalFromContext(c), required); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireUser ensures any signed-in account is present.
func RequireUser() fiber.Handler {
	return Require(domain.CapabilityUser)
}

// RequireAdmin ensures the caller is an administrator.
func RequireAdmin() fiber.Handler {
	return Require(domain.CapabilityAdmin)
}
