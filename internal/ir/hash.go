package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainConfig = "modlayers/config/v1"
	DomainCycle  = "modlayers/cycle/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ConfigHash identifies a compiled config. Runs record it so replay can
// refuse to re-execute against a different keymap or overlay table.
func ConfigHash(c *Config) (string, error) {
	canonical, err := MarshalCanonical(c.ToCanonicalMap())
	if err != nil {
		return "", fmt.Errorf("ConfigHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// CycleDigest fingerprints the observable outcome of a cycle. Replay compares
// digests instead of whole records.
func CycleDigest(c CycleRecord) (string, error) {
	canonical, err := MarshalCanonical(c.ToCanonicalMap())
	if err != nil {
		return "", fmt.Errorf("CycleDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCycle, canonical), nil
}

// MustConfigHash is like ConfigHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustConfigHash(c *Config) string {
	h, err := ConfigHash(c)
	if err != nil {
		panic(err)
	}
	return h
}
