package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/govend/internal/core/domain"
	"github.com/ibrahimkeyboad/govend/internal/core/notifications"
	"github.com/ibrahimkeyboad/govend/internal/core/vending"
)

const EventVendSucceeded = "vend.succeeded"

// Directory resolves the ids a caller presents.
type Directory interface {
	Machine(id uuid.UUID) (*vending.Machine, error)
	Card(id uuid.UUID) (*domain.Card, error)
}

type Recorder interface {
	Record(ctx context.Context, r vending.Receipt) error
}

type Notifier interface {
	Enqueue(url string, payload any) bool
}

// VendService runs vends addressed by id and fans the outcome out to the
// journal and, for approved vends, the webhook queue.
type VendService struct {
	dir        Directory
	journal    Recorder
	notifier   Notifier
	webhookURL string
	logger     *slog.Logger
}

type Option func(*VendService)

// WithWebhooks enables vend.succeeded notifications to url.
func WithWebhooks(n Notifier, url string) Option {
	return func(s *VendService) {
		if n != nil && url != "" {
			s.notifier = n
			s.webhookURL = url
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *VendService) { s.logger = l }
}

func NewVendService(dir Directory, journal Recorder, opts ...Option) *VendService {
	s := &VendService{dir: dir, journal: journal, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Vend returns domain.ErrNotFound for unknown ids. Business rejections are
// receipts with Approved false, never errors.
func (s *VendService) Vend(ctx context.Context, machineID, cardID uuid.UUID, pin, quantity int) (vending.Receipt, error) {
	machine, err := s.dir.Machine(machineID)
	if err != nil {
		return vending.Receipt{}, err
	}
	card, err := s.dir.Card(cardID)
	if err != nil {
		return vending.Receipt{}, err
	}

	receipt := machine.VendWithReceipt(card, pin, quantity)

	// The vend is already committed; a journal failure must not undo it.
	if err := s.journal.Record(ctx, receipt); err != nil {
		s.logger.Error("Failed to journal receipt", "error", err, "receipt_id", receipt.ID)
	}

	if receipt.Approved && s.notifier != nil {
		event := notifications.Event{
			Type: EventVendSucceeded,
			Data: map[string]any{
				"receipt_id":    receipt.ID,
				"machine_id":    receipt.MachineID,
				"account_id":    receipt.AccountID,
				"quantity":      receipt.Quantity,
				"charged":       receipt.Charged,
				"balance_after": receipt.BalanceAfter,
			},
			Timestamp: time.Now().UTC(),
		}
		if !s.notifier.Enqueue(s.webhookURL, event) {
			s.logger.Warn("Webhook not queued", "receipt_id", receipt.ID)
		}
	}

	return receipt, nil
}
