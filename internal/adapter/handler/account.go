package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/govend/internal/adapter/storage"
	"github.com/ibrahimkeyboad/govend/internal/core/domain"
)

type AccountHandler struct {
	Registry *storage.Registry
}

// BalanceRequest is used both to open an account and to reload one
type BalanceRequest struct {
	Balance *domain.Money `json:"balance"`
}

type AccountResponse struct {
	ID        uuid.UUID    `json:"id"`
	Balance   domain.Money `json:"balance"`
	CreatedAt time.Time    `json:"created_at"`
}

func accountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Balance: a.Balance(), CreatedAt: a.CreatedAt}
}

// parseBalance rejects a missing balance and amounts finer than a cent.
func parseBalance(c *fiber.Ctx) (BalanceRequest, error) {
	var req BalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return req, err
	}
	if req.Balance == nil {
		return req, errors.New("balance is required")
	}
	return req, nil
}

func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	req, err := parseBalance(c)
	if err != nil {
		slog.Warn("Invalid account body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	account := h.Registry.CreateAccount(*req.Balance)
	slog.Info("Account created", "id", account.ID, "balance", account.Balance().String())

	return c.Status(http.StatusCreated).JSON(accountResponse(account))
}

func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Account ID"})
	}

	account, err := h.Registry.Account(id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(accountResponse(account))
}

// ReloadBalance replaces the balance wholesale.
func (h *AccountHandler) ReloadBalance(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Account ID"})
	}

	req, err := parseBalance(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	account, err := h.Registry.Account(id)
	if err != nil {
		return writeError(c, err)
	}
	account.LoadNewBalance(*req.Balance)
	slog.Info("Balance reloaded", "id", account.ID, "balance", req.Balance.String())

	return c.JSON(accountResponse(account))
}
