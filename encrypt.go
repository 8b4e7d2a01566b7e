package codable

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// Encryption errors.
var (
	ErrInvalidKeySize   = errors.New("invalid key size")
	ErrCiphertextShort  = errors.New("ciphertext too short")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Encryptor handles symmetric encryption of field values.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Encrypted returns a FieldCodec that stores string values as base64
// ciphertext and decrypts them on decode.
func Encrypted(e Encryptor) FieldCodec {
	decode := stringFunc(func(s string) (string, error) {
		ct, err := DecodeBase64(s)
		if err != nil {
			return "", err
		}
		pt, err := e.Decrypt(ct)
		if err != nil {
			return "", err
		}
		return string(pt), nil
	})
	encode := stringFunc(func(s string) (string, error) {
		ct, err := e.Encrypt([]byte(s))
		if err != nil {
			return "", err
		}
		return EncodeBase64(ct), nil
	})
	return Transform(decode, encode)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: must be 16, 24, or 32 bytes, got %d", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext with a fresh nonce prepended to the result.
func seal(gcm cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(gcm cipher.AEAD, ciphertext []byte) ([]byte, error) {
	n := gcm.NonceSize()
	if len(ciphertext) < n {
		return nil, ErrCiphertextShort
	}
	pt, err := gcm.Open(nil, ciphertext[:n], ciphertext[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return pt, nil
}

type aesEncryptor struct {
	gcm cipher.AEAD
}

// AES returns an AES-GCM encryptor. The key selects AES-128, AES-192 or
// AES-256 by length.
func AES(key []byte) (Encryptor, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return &aesEncryptor{gcm: gcm}, nil
}

func (e *aesEncryptor) Encrypt(plaintext []byte) ([]byte, error) { return seal(e.gcm, plaintext) }

func (e *aesEncryptor) Decrypt(ciphertext []byte) ([]byte, error) { return open(e.gcm, ciphertext) }

// envelopeEncryptor encrypts each value with a random data key which is
// itself sealed with the master key. Layout:
// [2 byte sealed key length][sealed key][sealed data].
type envelopeEncryptor struct {
	master cipher.AEAD
}

// Envelope returns an envelope encryptor using masterKey.
func Envelope(masterKey []byte) (Encryptor, error) {
	gcm, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}
	return &envelopeEncryptor{master: gcm}, nil
}

func (e *envelopeEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	dataKey := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, dataKey); err != nil {
		return nil, err
	}
	dataGCM, err := newGCM(dataKey)
	if err != nil {
		return nil, err
	}
	data, err := seal(dataGCM, plaintext)
	if err != nil {
		return nil, err
	}
	key, err := seal(e.master, dataKey)
	if err != nil {
		return nil, err
	}
	if len(key) > 0xffff {
		return nil, errors.New("sealed key exceeds maximum length")
	}
	out := make([]byte, 0, 2+len(key)+len(data))
	out = append(out, byte(len(key)>>8), byte(len(key)))
	out = append(out, key...)
	return append(out, data...), nil
}

func (e *envelopeEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 2 {
		return nil, ErrCiphertextShort
	}
	n := int(ciphertext[0])<<8 | int(ciphertext[1])
	if len(ciphertext) < 2+n {
		return nil, ErrCiphertextShort
	}
	dataKey, err := open(e.master, ciphertext[2:2+n])
	if err != nil {
		return nil, fmt.Errorf("data key: %w", err)
	}
	dataGCM, err := newGCM(dataKey)
	if err != nil {
		return nil, err
	}
	return open(dataGCM, ciphertext[2+n:])
}
