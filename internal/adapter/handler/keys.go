package handler

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/govend/internal/core/security"
)

type KeyHandler struct {
	Keys *security.KeyRing
}

func (h *KeyHandler) GenerateKey(c *fiber.Ctx) error {
	realKey, err := h.Keys.Issue()
	if err != nil {
		slog.Error("Crypto error generating key", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Crypto error"})
	}

	slog.Info("API key generated")

	// Show Key to User (ONCE ONLY)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"api_key": realKey,
		"warning": "Save this now! We won't show it again.",
	})
}
