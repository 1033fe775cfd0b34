package security

import (
	"fmt"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// HashedPIN validates PINs against a single bcrypt hash. It satisfies
// vending.PinValidator.
type HashedPIN struct {
	hash []byte
}

// NewHashedPIN hashes pin at the given bcrypt cost. Use bcrypt.MinCost in
// tests; DefaultCost otherwise.
func NewHashedPIN(pin int, cost int) (*HashedPIN, error) {
	if pin < 0 {
		return nil, fmt.Errorf("pin cannot be negative")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(strconv.Itoa(pin)), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pin: %w", err)
	}
	return &HashedPIN{hash: hash}, nil
}

// NewHashedPINFromHash wraps an existing bcrypt hash.
func NewHashedPINFromHash(hash string) (*HashedPIN, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid pin hash: %w", err)
	}
	return &HashedPIN{hash: []byte(hash)}, nil
}

func (h *HashedPIN) IsPinValid(pin int) bool {
	if pin < 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(h.hash, []byte(strconv.Itoa(pin))) == nil
}
