// Package middleware contains HTTP middleware functions for the padel club API.
// Middleware sits between the HTTP server and route handlers. It runs on every
// request that passes through it, making it the right place for cross-cutting
// concerns like authentication, role checks and rate limiting.
package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	// fiber is the HTTP framework; fiber.Handler is the function signature for middleware
	"github.com/gofiber/fiber/v2"
	// jwt parses and verifies the JSON Web Token sent in the Authorization header
	"github.com/golang-jwt/jwt/v5"

	"github.com/padelhub/padelhub/internal/models"
)

// userKey is the c.Locals key the authenticated models.User is stored under.
const userKey = "user"

// Claims is the token payload. Subject is the player id as a decimal string;
// Role is "admin" or "player".
type Claims struct {
	jwt.RegisteredClaims        // Standard JWT fields: Subject, ExpiresAt, IssuedAt, etc.
	Role                 string `json:"role"`
}

// IssueToken signs an HS256 token for a player. The server only verifies
// tokens; issuing lives here so the CLI and the tests produce exactly what
// Auth accepts.
func IssueToken(secret string, playerID int, role models.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(playerID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Auth returns a Fiber middleware handler that:
//  1. Reads the token from "Authorization: Bearer <token>", or from ?token= for
//     EventSource clients, which cannot set headers
//  2. Verifies its HS256 signature and expiry against secret
//  3. Stores the requesting models.User in c.Locals so handlers can pass it on
//     to the service layer explicitly
func Auth(secret string) fiber.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	return func(c *fiber.Ctx) error {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid authorization header",
			})
		}

		claims := &Claims{}
		_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) { return key, nil })
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
		}

		playerID, err := strconv.Atoi(claims.Subject)
		if err != nil || playerID <= 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "token subject must be a player id",
			})
		}

		c.Locals(userKey, models.User{PlayerID: playerID, Role: roleFromClaim(claims.Role)})
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

// CurrentUser returns the user Auth stored for this request.
func CurrentUser(c *fiber.Ctx) (models.User, bool) {
	u, ok := c.Locals(userKey).(models.User)
	return u, ok
}

// roleFromClaim converts the raw role claim into a models.Role.
// Anything unrecognised becomes the least privileged role.
func roleFromClaim(s string) models.Role {
	if models.Role(strings.ToLower(s)) == models.RoleAdmin {
		return models.RoleAdmin
	}
	return models.RolePlayer
}
