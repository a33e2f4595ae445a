// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AnonymousUser owns every session when authentication is disabled.
const AnonymousUser = "anonymous"

// JwtMiddleware verifies an HS256 token (Authorization header or ?token=)
// and stores its user_id claim in ctx.Locals("user_id"). An empty secret
// disables authentication.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if secret == "" {
			ctx.Locals("user_id", AnonymousUser)
			return ctx.Next()
		}

		// Browsers cannot set headers on a websocket handshake, so the
		// query parameter is accepted as well.
		tokenStr := ctx.Query("token")
		if authHeader := ctx.Get("Authorization"); len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("Missing token", nil))
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("Invalid token", nil))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["user_id"] == nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("Invalid claims", nil))
		}

		ctx.Locals("user_id", fmt.Sprint(claims["user_id"]))
		return ctx.Next()
	}
}

// UserID reads the id stored by JwtMiddleware.
func UserID(ctx *fiber.Ctx) string {
	if id, ok := ctx.Locals("user_id").(string); ok {
		return id
	}
	return AnonymousUser
}
