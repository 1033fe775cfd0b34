package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/govend/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/govend/internal/adapter/storage"
	"github.com/ibrahimkeyboad/govend/internal/core/domain"
	"github.com/ibrahimkeyboad/govend/internal/core/security"
	"github.com/ibrahimkeyboad/govend/internal/core/service"
)

type Deps struct {
	Registry    *storage.Registry
	Journal     storage.Journal
	Idempotency storage.IdempotencyStore
	Keys        *security.KeyRing
	Service     *service.VendService
}

// Register mounts the /v1 API on app.
func Register(app *fiber.App, d Deps) {
	accounts := &AccountHandler{Registry: d.Registry}
	cards := &CardHandler{Registry: d.Registry}
	machines := &MachineHandler{Registry: d.Registry, Journal: d.Journal, Service: d.Service}
	keys := &KeyHandler{Keys: d.Keys}

	api := app.Group("/v1")

	// Every route needs an operator key; the first one comes from ADMIN_API_KEY.
	private := api.Group("", middleware.Protected(d.Keys))
	private.Post("/keys", keys.GenerateKey)
	private.Post("/accounts", accounts.CreateAccount)
	private.Get("/accounts/:id", accounts.GetAccount)
	private.Put("/accounts/:id/balance", accounts.ReloadBalance)
	private.Post("/cards", cards.IssueCard)
	private.Get("/machines", machines.ListMachines)
	private.Get("/machines/:id", machines.GetMachine)
	private.Post("/machines/:id/vend", middleware.Idempotency(d.Idempotency), machines.Vend)
	private.Get("/machines/:id/receipts", machines.Receipts)
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		slog.Error("Unhandled error", "error", err, "path", c.Path())
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error"})
	}
}
