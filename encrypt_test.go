package codable

import (
	"errors"
	"testing"
)

func TestEncrypted_RoundTrip(t *testing.T) {
	aesEnc, err := AES([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("AES() error: %v", err)
	}
	envelope, err := Envelope([]byte("master-key-for-envelope-tests-32"))
	if err != nil {
		t.Fatalf("Envelope() error: %v", err)
	}
	for name, enc := range map[string]Encryptor{"aes": aesEnc, "envelope": envelope} {
		t.Run(name, func(t *testing.T) {
			fc := Encrypted(enc)
			first := encodeWith(t, fc, "card 4111")
			second := encodeWith(t, fc, "card 4111")
			s, ok := first.AsString()
			if !ok || s == "card 4111" {
				t.Fatalf("stored = %s, want base64 ciphertext", first)
			}
			if _, err := DecodeBase64(s); err != nil {
				t.Errorf("stored value is not base64: %v", err)
			}
			if first.Equal(second) {
				t.Error("repeated encodes should not produce the same ciphertext")
			}
			got, err := decodeWith(t, fc, first)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if !got.Equal(String("card 4111")) {
				t.Errorf("Decode() = %s, want plaintext", got)
			}
		})
	}
}

func TestEncryptors_KeySize(t *testing.T) {
	for _, n := range []int{16, 24, 32} {
		if _, err := AES(make([]byte, n)); err != nil {
			t.Errorf("AES(%d bytes) error: %v", n, err)
		}
	}
	if _, err := AES(make([]byte, 20)); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("AES(20 bytes) error = %v, want ErrInvalidKeySize", err)
	}
	if _, err := Envelope([]byte("short")); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("Envelope(short) error = %v, want ErrInvalidKeySize", err)
	}
}

func TestAES_DecryptFailures(t *testing.T) {
	enc, err := AES(make([]byte, 16))
	if err != nil {
		t.Fatalf("AES() error: %v", err)
	}
	ct, err := enc.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	ct[len(ct)-1] ^= 0x01
	if _, err := enc.Decrypt(ct); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt(modified) error = %v, want ErrDecryptionFailed", err)
	}
	if _, err := enc.Decrypt([]byte{7}); !errors.Is(err, ErrCiphertextShort) {
		t.Errorf("Decrypt(one byte) error = %v, want ErrCiphertextShort", err)
	}

	other, _ := AES([]byte("fedcba9876543210"))
	stored := encodeWith(t, Encrypted(enc), "x")
	if _, err := decodeWith(t, Encrypted(other), stored); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Decode() with wrong key error = %v, want ErrTypeMismatch", err)
	}
}
