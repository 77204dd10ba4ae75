package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// RequireBearer guards a route with a shared secret passed as
// "Authorization: Bearer <secret>". An empty secret means the route was never
// configured and every call fails with 500 rather than running unauthenticated.
func RequireBearer(secret string) fiber.Handler {
	secret = strings.TrimSpace(secret)
	return func(c fiber.Ctx) error {
		if secret == "" {
			log.Error().Str("path", c.Path()).Msg("bearer secret not configured")
			return ErrorResponse(c, fiber.StatusInternalServerError, "SERVER_MISCONFIGURED", "Ingestion secret is not configured")
		}
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid bearer token")
		}
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
