package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

const KeyPrefix = "gv_live_"

// GenerateAPIKey creates a new key and its hash
// Returns: (realKey, hash)
// Example: ("gv_live_abc123", "a665a4592...")
func GenerateAPIKey() (string, string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	realKey := KeyPrefix + hex.EncodeToString(bytes)
	return realKey, HashKey(realKey), nil
}

// HashKey is the form a key is stored in. Plain keys are never kept.
func HashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// ValidateKey checks if the user provided key matches the hash
func ValidateKey(providedKey, storedHash string) bool {
	computed := HashKey(providedKey)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// KeyRing holds hashed operator keys in memory.
type KeyRing struct {
	mu   sync.RWMutex
	keys map[string]time.Time // hash -> issued at
}

func NewKeyRing() *KeyRing {
	return &KeyRing{keys: make(map[string]time.Time)}
}

// Issue mints a key, stores its hash and returns the plain key once.
func (k *KeyRing) Issue() (string, error) {
	realKey, hash, err := GenerateAPIKey()
	if err != nil {
		return "", err
	}
	k.mu.Lock()
	k.keys[hash] = time.Now().UTC()
	k.mu.Unlock()
	return realKey, nil
}

// MinKeyLength bounds how short a configured key may be.
const MinKeyLength = len(KeyPrefix) + 32

// Add registers a key minted elsewhere, such as the bootstrap operator key
// from configuration.
func (k *KeyRing) Add(realKey string) error {
	if !strings.HasPrefix(realKey, KeyPrefix) || len(realKey) < MinKeyLength {
		return fmt.Errorf("api key must start with %q and be at least %d characters", KeyPrefix, MinKeyLength)
	}
	k.mu.Lock()
	k.keys[HashKey(realKey)] = time.Now().UTC()
	k.mu.Unlock()
	return nil
}

// Contains reports whether providedKey was issued by this ring.
func (k *KeyRing) Contains(providedKey string) bool {
	hash := HashKey(providedKey)
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.keys[hash]
	return ok
}
