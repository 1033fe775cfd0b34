package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/govend/internal/adapter/storage"
	"github.com/ibrahimkeyboad/govend/internal/core/domain"
)

type CardHandler struct {
	Registry *storage.Registry
}

type IssueCardRequest struct {
	AccountID string `json:"account_id"`
	Number    string `json:"number"` // optional
}

type CardResponse struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Number    string          `json:"number,omitempty"`
	Brand     domain.CardType `json:"brand"`
}

func (h *CardHandler) IssueCard(c *fiber.Ctx) error {
	var req IssueCardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Account ID"})
	}

	card, err := h.Registry.IssueCard(accountID, req.Number)
	if errors.Is(err, domain.ErrInvalidCardNumber) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return writeError(c, err)
	}

	slog.Info("Card issued", "card_id", card.ID, "account_id", accountID, "brand", card.Brand)
	return c.Status(http.StatusCreated).JSON(CardResponse{
		ID:        card.ID,
		AccountID: card.Account().ID,
		Number:    card.Number,
		Brand:     card.Brand,
	})
}
