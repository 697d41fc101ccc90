package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func Verified() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals("user").(*jwt.Token)
		claims := user.Claims.(jwt.MapClaims)

		if verified, ok := claims["verified"].(bool); !ok || !verified {
			return c.Status(fiber.StatusForbidden).
				JSON(fiber.Map{
					"status":  "error",
					"message": "Account isn't verified",
					"data":    nil,
				})
		}

		return c.Next()
	}
}
