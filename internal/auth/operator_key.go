package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

// OperatorKeyHeader carries the plan operator's shared key.
const OperatorKeyHeader = "X-Operator-Key"

// HashSecret hashes a plaintext secret with configured cost.
func HashSecret(secret string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareSecret verifies a secret against its hashed value.
func CompareSecret(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// RequireOperatorKey admits requests whose X-Operator-Key matches the bcrypt
// hash. With no hash configured every request is refused.
func RequireOperatorKey(hash string) fiber.Handler {
	hash = strings.TrimSpace(hash)
	return func(c *fiber.Ctx) error {
		key := c.Get(OperatorKeyHeader)
		if key == "" {
			return apperrors.NewUnauthorized("missing operator key")
		}
		if hash == "" {
			return apperrors.NewForbidden("operator access is not configured")
		}
		if err := CompareSecret(hash, key); err != nil {
			return apperrors.NewUnauthorized("invalid operator key")
		}
		return c.Next()
	}
}
