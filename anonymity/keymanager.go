package anonymity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// keySize is the HMAC secret length in bytes.
const keySize = 32

// KeyManager holds the secret behind KeyedScheme.
type KeyManager struct {
	key []byte // Keep private - anyone holding it can map suffixes back to consultants
}

// NewKeyManager creates a KeyManager with a fresh random secret.
// IDs generated with it change when the process restarts; load a stored key to keep them stable.
func NewKeyManager() (*KeyManager, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate anonymity key: %w", err)
	}
	return &KeyManager{key: key}, nil
}

// KeyManagerFromHex loads a KeyManager from a hex-encoded secret of at least 16 bytes.
func KeyManagerFromHex(encoded string) (*KeyManager, error) {
	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode anonymity key: %w", err)
	}
	if len(key) < 16 {
		return nil, fmt.Errorf("anonymity key too short: %d bytes, need at least 16", len(key))
	}
	return &KeyManager{key: key}, nil
}

// KeyHex returns the secret hex-encoded, for storing alongside other secrets.
func (km *KeyManager) KeyHex() string {
	return hex.EncodeToString(km.key)
}
