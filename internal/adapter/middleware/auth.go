package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// KeyChecker answers whether a presented API key was issued.
type KeyChecker interface {
	Contains(key string) bool
}

func Protected(keys KeyChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Get Token from Header
		authHeader := c.Get("Authorization") // "Bearer gv_live_..."
		if authHeader == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing API Key"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Header Format"})
		}

		// 2. Check the hashed key ring
		if !keys.Contains(parts[1]) {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid API Key"})
		}

		return c.Next()
	}
}
