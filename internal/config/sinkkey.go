package config

import (
	"crypto/rand"
	"encoding/hex"
)

// randomSinkKey generates a fresh simlink session key when none was
// configured, mirroring VIIPER's on-first-run key generation for its own
// management protocol.
func randomSinkKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

func decodeSinkKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		return randomSinkKey()
	}
	return hex.DecodeString(hexKey)
}
