// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/owldoor/internal/cache"
)

// ErrInvalidAPIKey is returned when a key matches no configured lead source.
var ErrInvalidAPIKey = errors.New("invalid API key")

// minKeyLength rejects trivially guessable keys before hashing.
const minKeyLength = 16

// KeyAuthenticator maps X-API-Key values to lead source names. Keys are
// stored only as bcrypt hashes; verified keys are remembered (by SHA-256
// digest) for a short time so a busy source does not pay a bcrypt per request.
type KeyAuthenticator struct {
	names    []string
	hashes   map[string][]byte
	verified *cache.Cache[string]
}

// NewKeyAuthenticator creates an authenticator from source name -> bcrypt hash.
func NewKeyAuthenticator(sources map[string]string) *KeyAuthenticator {
	a := &KeyAuthenticator{
		hashes:   make(map[string][]byte, len(sources)),
		verified: cache.New[string]("lead_api_keys", 10*time.Minute),
	}
	for name, hash := range sources {
		a.names = append(a.names, name)
		a.hashes[name] = []byte(hash)
	}
	sort.Strings(a.names)
	return a
}

// Authenticate returns the source name for key.
func (a *KeyAuthenticator) Authenticate(key string) (string, error) {
	if len(key) < minKeyLength {
		return "", ErrInvalidAPIKey
	}
	digest := sha256.Sum256([]byte(key))
	fingerprint := hex.EncodeToString(digest[:])
	if name, ok := a.verified.Get(fingerprint); ok {
		return name, nil
	}

	for _, name := range a.names {
		if bcrypt.CompareHashAndPassword(a.hashes[name], []byte(key)) == nil {
			a.verified.Set(fingerprint, name)
			return name, nil
		}
	}
	return "", ErrInvalidAPIKey
}

// Sources returns the configured source names.
func (a *KeyAuthenticator) Sources() []string {
	return append([]string(nil), a.names...)
}

// Close stops the verified-key cache.
func (a *KeyAuthenticator) Close() {
	a.verified.Close()
}

// HashKey returns the bcrypt hash to configure for a new lead source key.
func HashKey(key string) (string, error) {
	if len(key) < minKeyLength {
		return "", fmt.Errorf("key must be at least %d characters", minKeyLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(hash), nil
}
