package codable

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Hasher performs one-way hashing of field values.
type Hasher interface {
	// Hash returns the encoded digest of plaintext. Password hashers
	// include salt and parameters in the result.
	Hash(plaintext []byte) (string, error)
}

// HasherFunc adapts a function to Hasher.
type HasherFunc func(plaintext []byte) (string, error)

// Hash implements Hasher.
func (f HasherFunc) Hash(plaintext []byte) (string, error) { return f(plaintext) }

// Hashed returns a FieldCodec that hashes string values on encode. Decoding
// reads the stored digest unchanged, so a decoded record carries the hash,
// never the plaintext.
func Hashed(h Hasher) FieldCodec {
	return Transform(nil, stringFunc(func(s string) (string, error) {
		return h.Hash([]byte(s))
	}))
}

// Argon2Params configures Argon2id hashing.
type Argon2Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params returns the OWASP-recommended Argon2id parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

// Argon2 returns an Argon2id hasher with default parameters.
func Argon2() Hasher {
	return Argon2WithParams(DefaultArgon2Params())
}

// Argon2WithParams returns an Argon2id hasher producing PHC-formatted
// strings: $argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>.
func Argon2WithParams(p Argon2Params) Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		salt := make([]byte, p.SaltLen)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
		sum := argon2.IDKey(plaintext, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
		return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
			argon2.Version, p.Memory, p.Time, p.Threads,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(sum),
		), nil
	})
}

// Bcrypt returns a bcrypt hasher with the library's default cost.
func Bcrypt() Hasher {
	return BcryptWithCost(bcrypt.DefaultCost)
}

// BcryptWithCost returns a bcrypt hasher with a specific cost factor.
func BcryptWithCost(cost int) Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		sum, err := bcrypt.GenerateFromPassword(plaintext, cost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(sum), nil
	})
}

// SHA256Hasher returns a hex-encoded SHA-256 hasher. Not for passwords.
func SHA256Hasher() Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		sum := sha256.Sum256(plaintext)
		return hex.EncodeToString(sum[:]), nil
	})
}

// SHA512Hasher returns a hex-encoded SHA-512 hasher. Not for passwords.
func SHA512Hasher() Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		sum := sha512.Sum512(plaintext)
		return hex.EncodeToString(sum[:]), nil
	})
}
