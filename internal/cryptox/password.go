// Package cryptox implements password hashing with Argon2id, encoded as PHC
// strings, and a bounded pool that keeps hashing from starving other work.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash is returned for stored hashes that are not Argon2id PHC strings.
var ErrInvalidHash = errors.New("invalid password hash")

// maxMemoryKiB caps the m= parameter accepted from a stored hash (1 GiB).
const maxMemoryKiB = 1 << 20

// Params are the Argon2id cost parameters. Memory is in KiB.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams: m=19456 KiB, t=2, p=1.
var DefaultParams = Params{
	Time:    2,
	Memory:  19 * 1024,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

// HashPassword hashes password with a fresh random salt and returns
// $argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>.
func HashPassword(password string, p Params) string {
	salt := common.GenerateRandByteArray(p.SaltLen)
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

// VerifyPassword reports whether password matches encoded. The parameters
// stored in encoded are used, not the current defaults.
func VerifyPassword(password, encoded string) (bool, error) {
	salt, key, p, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func decodePHC(encoded string) (salt, key []byte, p Params, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, nil, p, fmt.Errorf("%w: unexpected format", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return nil, nil, p, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, p, fmt.Errorf("%w: version: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return nil, nil, p, fmt.Errorf("%w: unsupported version %d", ErrInvalidHash, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return nil, nil, p, fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, p, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, p, fmt.Errorf("%w: hash: %v", ErrInvalidHash, err)
	}
	if len(key) == 0 {
		return nil, nil, p, fmt.Errorf("%w: empty hash", ErrInvalidHash)
	}
	if len(salt) == 0 {
		return nil, nil, p, fmt.Errorf("%w: empty salt", ErrInvalidHash)
	}

	// argon2.IDKey panics on t < 1 or p < 1 and needs m >= 8*p.
	switch {
	case p.Time == 0:
		return nil, nil, p, fmt.Errorf("%w: t must be at least 1", ErrInvalidHash)
	case p.Threads == 0:
		return nil, nil, p, fmt.Errorf("%w: p must be at least 1", ErrInvalidHash)
	case p.Memory < 8*uint32(p.Threads):
		return nil, nil, p, fmt.Errorf("%w: m must be at least 8*p", ErrInvalidHash)
	case p.Memory > maxMemoryKiB:
		return nil, nil, p, fmt.Errorf("%w: m exceeds %d KiB", ErrInvalidHash, maxMemoryKiB)
	}

	return salt, key, p, nil
}
