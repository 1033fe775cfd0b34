package vending

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/govend/internal/core/domain"
)

// Reason explains a vend outcome.
type Reason string

const (
	ReasonApproved            Reason = "approved"
	ReasonInvalidQuantity     Reason = "invalid_quantity"
	ReasonInvalidPIN          Reason = "invalid_pin"
	ReasonInsufficientStock   Reason = "insufficient_stock"
	ReasonInsufficientBalance Reason = "insufficient_balance"
)

// Receipt records one vend attempt. BalanceAfter and StockAfter are
// snapshots taken when the attempt finished.
type Receipt struct {
	ID           uuid.UUID    `json:"id"`
	MachineID    uuid.UUID    `json:"machine_id"`
	CardID       uuid.UUID    `json:"card_id"`
	AccountID    uuid.UUID    `json:"account_id"`
	Quantity     int          `json:"quantity"`
	Approved     bool         `json:"approved"`
	Reason       Reason       `json:"reason"`
	Charged      domain.Money `json:"charged"`
	BalanceAfter domain.Money `json:"balance_after"`
	StockAfter   int          `json:"stock_after"`
	At           time.Time    `json:"at"`
}

// ChargePolicy decides how much a vend of n units costs.
type ChargePolicy string

const (
	// ChargeFlat debits one unit price whatever the quantity.
	ChargeFlat ChargePolicy = "flat"
	// ChargePerUnit debits unit price times quantity.
	ChargePerUnit ChargePolicy = "per_unit"
)

func (p ChargePolicy) Charge(unitPrice domain.Money, quantity int) domain.Money {
	if p == ChargePerUnit {
		return unitPrice.Times(quantity)
	}
	return unitPrice
}

func ParseChargePolicy(s string) (ChargePolicy, error) {
	switch ChargePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ChargeFlat:
		return ChargeFlat, nil
	case ChargePerUnit:
		return ChargePerUnit, nil
	default:
		return "", fmt.Errorf("unknown charge policy %q (use flat or per_unit)", s)
	}
}
