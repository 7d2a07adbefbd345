package services

import (
	cryptorand "crypto/rand"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/lumenbank/backend/internal/config"
)

// PasswordHasher produces and checks stored password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) bool
}

// NewPasswordHasher selects the scheme for newly created hashes.
// Anything other than an explicit "argon2" keeps the legacy scheme.
func NewPasswordHasher(cfg *config.Config) PasswordHasher {
	if cfg.AuthHasher == "argon2" {
		return Argon2Hasher{Params: cfg.Argon2}
	}
	return LegacyHasher{}
}

// Argon2Hasher stores hashes as base64(salt)$base64(key) using
// argon2id.
type Argon2Hasher struct {
	Params config.Argon2Params
}

func (h Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.Params.SaltLength)
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.Params.Time, h.Params.Memory, h.Params.Threads, h.Params.KeyLength)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(key)), nil
}

func (h Argon2Hasher) Verify(password, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	key, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, h.Params.Time, h.Params.Memory, h.Params.Threads, h.Params.KeyLength)
	return string(key) == string(computed)
}

// LegacyHasher reproduces the unsalted-per-user scheme of the original
// deployment: three chained FNV rounds over fixed salts, hex digests
// concatenated. It stays the default so tables written by that
// deployment keep their format; opt in to argon2 via AUTH_HASHER.
type LegacyHasher struct{}

const (
	legacySalt      = "banking_salt_2024"
	legacyExtraSalt = "extra_salt"
)

func (LegacyHasher) Hash(password string) (string, error) {
	return legacyDigest(password), nil
}

func (LegacyHasher) Verify(password, stored string) bool {
	return legacyDigest(password) == stored
}

func legacyDigest(password string) string {
	h1 := fnvSum(password + legacySalt)
	h2 := fnvSum(strconv.FormatUint(h1, 16) + legacyExtraSalt)
	h3 := fnvSum(strconv.FormatUint(h2, 16))
	return fmt.Sprintf("%x%x%x", h1, h2, h3)
}

func fnvSum(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
