package handler

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/govend/internal/adapter/storage"
	"github.com/ibrahimkeyboad/govend/internal/core/domain"
	"github.com/ibrahimkeyboad/govend/internal/core/service"
	"github.com/ibrahimkeyboad/govend/internal/core/vending"
)

type MachineHandler struct {
	Registry *storage.Registry
	Journal  storage.Journal
	Service  *service.VendService
}

type VendRequest struct {
	CardID   string `json:"card_id"`
	PIN      *int   `json:"pin"`
	Quantity int    `json:"quantity"`
}

type MachineResponse struct {
	ID           uuid.UUID            `json:"id"`
	Stock        int                  `json:"stock"`
	UnitPrice    domain.Money         `json:"unit_price"`
	ChargePolicy vending.ChargePolicy `json:"charge_policy"`
}

func machineResponse(m *vending.Machine) MachineResponse {
	return MachineResponse{ID: m.ID(), Stock: m.Stock(), UnitPrice: m.UnitPrice(), ChargePolicy: m.ChargePolicy()}
}

func (h *MachineHandler) ListMachines(c *fiber.Ctx) error {
	machines := h.Registry.Machines()
	out := make([]MachineResponse, 0, len(machines))
	for _, m := range machines {
		out = append(out, machineResponse(m))
	}
	return c.JSON(fiber.Map{"machines": out})
}

func (h *MachineHandler) GetMachine(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Machine ID"})
	}
	m, err := h.Registry.Machine(id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(machineResponse(m))
}

// Vend answers 200 for an approved vend and 402 for a business rejection;
// the receipt carries the reason either way.
func (h *MachineHandler) Vend(c *fiber.Ctx) error {
	machineID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Machine ID"})
	}

	var req VendRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("Invalid vend body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Card ID"})
	}
	if req.PIN == nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "pin is required"})
	}

	receipt, err := h.Service.Vend(c.Context(), machineID, cardID, *req.PIN, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	if !receipt.Approved {
		return c.Status(http.StatusPaymentRequired).JSON(receipt)
	}
	return c.JSON(receipt)
}

func (h *MachineHandler) Receipts(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Machine ID"})
	}
	if _, err := h.Registry.Machine(id); err != nil {
		return writeError(c, err)
	}

	history, err := h.Journal.History(c.Context(), id, c.QueryInt("limit", 50))
	if err != nil {
		slog.Error("Failed to read receipts", "error", err, "machine_id", id)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch receipts"})
	}
	if history == nil {
		history = []vending.Receipt{}
	}
	return c.JSON(fiber.Map{"receipts": history})
}
