// Package vending implements the authorization-and-debit transaction of a
// single-resource dispensing machine.
package vending

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/govend/internal/core/domain"
)

// PinValidator is the external PIN check. It must be safe for concurrent use
// and free of side effects.
type PinValidator interface {
	IsPinValid(pin int) bool
}

// PinValidatorFunc adapts a plain function to PinValidator.
type PinValidatorFunc func(pin int) bool

func (f PinValidatorFunc) IsPinValid(pin int) bool { return f(pin) }

// Machine holds stock at a fixed unit price.
//
// Each machine owns its lock, so unrelated machines never contend. The stock
// and balance checks run under that lock together with the mutation, which
// rules out overselling on one machine. The lock does not extend to accounts:
// two machines debiting one shared account can both pass the balance check.
type Machine struct {
	id        uuid.UUID
	validator PinValidator
	unitPrice domain.Money
	policy    ChargePolicy
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	stock int
}

type Option func(*Machine)

// WithID pins the machine identifier instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(m *Machine) { m.id = id }
}

func WithChargePolicy(p ChargePolicy) Option {
	return func(m *Machine) { m.policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the receipt timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// NewMachine panics on a nil validator, negative stock or a non-positive
// price; those are wiring mistakes, not business outcomes.
func NewMachine(validator PinValidator, initialStock int, unitPrice domain.Money, opts ...Option) *Machine {
	if validator == nil {
		panic("vending: machine requires a pin validator")
	}
	if initialStock < 0 {
		panic("vending: initial stock cannot be negative")
	}
	if !unitPrice.IsPositive() {
		panic("vending: unit price must be positive")
	}

	m := &Machine{
		id:        uuid.New(),
		validator: validator,
		unitPrice: unitPrice,
		policy:    ChargeFlat,
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		now:       time.Now,
		stock:     initialStock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) ID() uuid.UUID              { return m.id }
func (m *Machine) UnitPrice() domain.Money    { return m.unitPrice }
func (m *Machine) ChargePolicy() ChargePolicy { return m.policy }

func (m *Machine) Stock() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock
}

// Vend reports whether quantity units were dispensed against card's account.
// A false result means a business rejection and guarantees no state change.
func (m *Machine) Vend(card *domain.Card, pin int, quantity int) bool {
	return m.VendWithReceipt(card, pin, quantity).Approved
}

// VendWithReceipt is Vend with the outcome and the reason for a rejection.
//
// Checks run in order: PIN, quantity, stock, balance. The first failure
// decides the reason. A nil card or an unbound card panics.
func (m *Machine) VendWithReceipt(card *domain.Card, pin int, quantity int) Receipt {
	if card == nil {
		panic("vending: nil card")
	}
	account := card.Account()
	if account == nil {
		panic("vending: card is not bound to an account")
	}

	r := Receipt{
		ID:        uuid.New(),
		MachineID: m.id,
		CardID:    card.ID,
		AccountID: account.ID,
		Quantity:  quantity,
		Charged:   domain.Zero,
		At:        m.now().UTC(),
	}

	// The validator reads no machine state, so it stays outside the lock.
	if !m.validator.IsPinValid(pin) {
		return m.reject(r, account, ReasonInvalidPIN)
	}
	if quantity <= 0 {
		return m.reject(r, account, ReasonInvalidQuantity)
	}

	charge := m.policy.Charge(m.unitPrice, quantity)

	m.mu.Lock()
	if quantity > m.stock {
		m.mu.Unlock()
		return m.reject(r, account, ReasonInsufficientStock)
	}
	if account.Balance().LessThan(charge) {
		m.mu.Unlock()
		return m.reject(r, account, ReasonInsufficientBalance)
	}
	m.stock -= quantity
	r.BalanceAfter = account.Debit(charge)
	r.StockAfter = m.stock
	m.mu.Unlock()

	r.Approved = true
	r.Reason = ReasonApproved
	r.Charged = charge

	m.logger.Info("vend.committed",
		"machine_id", m.id,
		"account_id", account.ID,
		"quantity", quantity,
		"charged", charge.String(),
		"stock_after", r.StockAfter,
	)
	return r
}

// reject fills the snapshot fields of a receipt for a refused vend. It must
// be called without the machine lock held.
func (m *Machine) reject(r Receipt, account *domain.Account, reason Reason) Receipt {
	r.Reason = reason
	r.BalanceAfter = account.Balance()
	r.StockAfter = m.Stock()
	m.logger.Debug("vend.rejected",
		"machine_id", m.id,
		"account_id", r.AccountID,
		"quantity", r.Quantity,
		"reason", string(reason),
	)
	return r
}
