// Package middleware provides authentication and request plumbing middleware for the application.
package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"decider/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// TokenIssuer is the only accepted "iss" claim.
	TokenIssuer = "decider-api"
	// TokenAudience is the only accepted "aud" claim.
	TokenAudience = "decider-client"
)

var errInvalidSigningMethod = errors.New("invalid signing method")

// BlacklistKey is the Redis key marking a revoked token id.
func BlacklistKey(jti string) string {
	return "blacklist:" + jti
}

// AuthRequired resolves the bearer token to a viewer id or rejects the request
// with a 401 envelope. Revoked tokens are looked up in Redis by jti when a
// client is available.
func AuthRequired(secret string, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header required")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return unauthorized(c, "Invalid authorization header format")
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errInvalidSigningMethod
			}
			return []byte(secret), nil
		},
			jwt.WithIssuer(TokenIssuer),
			jwt.WithAudience(TokenAudience),
			jwt.WithExpirationRequired(),
		)
		if err != nil || !token.Valid {
			return unauthorized(c, "Invalid or expired token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "Invalid token claims")
		}

		sub, ok := claims["sub"].(string)
		if !ok {
			return unauthorized(c, "Invalid subject claim")
		}
		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil || userID == 0 {
			return unauthorized(c, "Invalid user ID in token")
		}

		if jti, exists := claims["jti"].(string); exists && jti != "" && rdb != nil {
			revoked, err := rdb.Exists(c.Context(), BlacklistKey(jti)).Result()
			if err == nil && revoked > 0 {
				return unauthorized(c, "Token has been revoked")
			}
		}

		c.Locals("userID", uint(userID))
		c.SetUserContext(WithViewer(c.UserContext(), uint(userID)))

		return c.Next()
	}
}

// ViewerID returns the viewer resolved by AuthRequired.
func ViewerID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok && id != 0
}

// SignViewerToken mints a token AuthRequired accepts. Login lives outside this
// service; the helper serves the seeder and tests.
func SignViewerToken(secret string, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, models.NewAppError(models.KindInvalidToken, msg), "")
}
