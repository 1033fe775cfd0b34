package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Account holds a prepaid balance that vending machines debit.
//
// The mutex only makes single reads and writes of the balance safe. It does
// not make a balance check and the following debit atomic: that guarantee
// comes from the machine's lock, so two machines sharing one account can
// still overdraw it.
type Account struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu      sync.RWMutex
	balance Money
}

// NewAccount creates an account. Negative opening balances are accepted.
func NewAccount(initialBalance Money) *Account {
	return &Account{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		balance:   initialBalance,
	}
}

func (a *Account) Balance() Money {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balance
}

// LoadNewBalance replaces the balance wholesale. It is not coordinated with
// in-flight vends.
func (a *Account) LoadNewBalance(newBalance Money) {
	a.mu.Lock()
	a.balance = newBalance
	a.mu.Unlock()
}

// Debit subtracts amount unconditionally and returns the new balance.
// Sufficiency is the caller's decision.
func (a *Account) Debit(amount Money) Money {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance = a.balance.Sub(amount)
	return a.balance
}

