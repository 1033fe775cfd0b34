package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/govend/internal/adapter/storage"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	IdempotencyHitHeader = "X-Idempotency-Hit"
)

// Idempotency replays the first response recorded for an Idempotency-Key.
// The key is claimed before the handler runs, so a concurrent duplicate gets
// 409 instead of running the handler a second time. Server errors are not
// recorded so the client can retry them.
func Idempotency(store storage.IdempotencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(IdempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}
		scoped := c.Method() + " " + c.Path() + " " + key

		cached, claimed, err := store.Claim(c.Context(), scoped)
		switch {
		case errors.Is(err, storage.ErrIdempotencyInFlight):
			slog.Warn("Idempotency key in flight", "key", key)
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A request with this Idempotency-Key is in progress"})
		case err != nil:
			slog.Error("Failed to claim Idempotency Key", "error", err, "key", key)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Idempotency store unavailable"})
		case !claimed:
			slog.Info("Idempotency hit, returning cached response", "key", key)
			c.Set(IdempotencyHitHeader, "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(cached.Status).Send(cached.Body)
		}

		if err := c.Next(); err != nil {
			release(c, store, scoped, key)
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			release(c, store, scoped, key)
			return nil
		}

		body := append([]byte(nil), c.Response().Body()...)
		if err := store.Save(c.Context(), scoped, storage.CachedResponse{Status: status, Body: body}); err != nil {
			slog.Error("Failed to save Idempotency Key", "error", err, "key", key)
		}
		return nil
	}
}

func release(c *fiber.Ctx, store storage.IdempotencyStore, scoped, key string) {
	if err := store.Release(c.Context(), scoped); err != nil {
		slog.Error("Failed to release Idempotency Key", "error", err, "key", key)
	}
}
