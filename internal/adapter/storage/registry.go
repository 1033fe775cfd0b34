package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/govend/internal/core/domain"
	"github.com/ibrahimkeyboad/govend/internal/core/vending"
)

// Registry is the thread-safe in-memory home of accounts, cards and machines.
// It lives for the lifetime of the process.
type Registry struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
	cards    map[uuid.UUID]*domain.Card
	machines map[uuid.UUID]*vending.Machine
}

func NewRegistry() *Registry {
	return &Registry{
		accounts: make(map[uuid.UUID]*domain.Account),
		cards:    make(map[uuid.UUID]*domain.Card),
		machines: make(map[uuid.UUID]*vending.Machine),
	}
}

// CreateAccount
func (r *Registry) CreateAccount(initialBalance domain.Money) *domain.Account {
	acc := domain.NewAccount(initialBalance)
	r.mu.Lock()
	r.accounts[acc.ID] = acc
	r.mu.Unlock()
	return acc
}

// Account
func (r *Registry) Account(id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return acc, nil
}

// IssueCard binds a new card to an existing account. An empty number issues
// an anonymous vending card.
func (r *Registry) IssueCard(accountID uuid.UUID, number string) (*domain.Card, error) {
	acc, err := r.Account(accountID)
	if err != nil {
		return nil, err
	}

	var card *domain.Card
	if number == "" {
		card = domain.NewCard(acc)
	} else if card, err = domain.NewNumberedCard(acc, number); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cards[card.ID] = card
	r.mu.Unlock()
	return card, nil
}

func (r *Registry) Card(id uuid.UUID) (*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	card, ok := r.cards[id]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	return card, nil
}

// AddMachine registers m under its own id. Registering the same id twice is
// an error.
func (r *Registry) AddMachine(m *vending.Machine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.machines[m.ID()]; exists {
		return fmt.Errorf("machine %s already registered: %w", m.ID(), domain.ErrInvalidInput)
	}
	r.machines[m.ID()] = m
	return nil
}

func (r *Registry) Machine(id uuid.UUID) (*vending.Machine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.machines[id]
	if !ok {
		return nil, fmt.Errorf("machine %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

// Machines returns every machine ordered by id.
func (r *Registry) Machines() []*vending.Machine {
	r.mu.RLock()
	out := make([]*vending.Machine, 0, len(r.machines))
	for _, m := range r.machines {
		out = append(out, m)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID().String() < out[j].ID().String() })
	return out
}
