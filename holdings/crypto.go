package holdings

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32 // AES-256
	iterations = 100000
)

var (
	// ErrNoPassphrase is returned when sealing is requested without a passphrase
	ErrNoPassphrase = errors.New("passphrase required")
	// ErrSealedData is returned when a sealed blob cannot be opened
	ErrSealedData = errors.New("cannot open sealed state: invalid passphrase or corrupted data")
)

// Sealer encrypts state blobs at rest with AES-256-GCM under a key derived
// from a passphrase with PBKDF2. Sealed layout: salt | nonce | ciphertext.
type Sealer struct {
	passphrase []byte
}

// NewSealer creates a Sealer for passphrase
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	return &Sealer{passphrase: []byte(passphrase)}, nil
}

func (s *Sealer) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.passphrase, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with a fresh salt and nonce
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	out := make([]byte, saltSize+gcm.NonceSize(), saltSize+gcm.NonceSize()+len(plaintext)+gcm.Overhead())
	copy(out, salt)
	nonce := out[saltSize:]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal
func (s *Sealer) Open(data []byte) ([]byte, error) {
	if len(data) < saltSize {
		return nil, ErrSealedData
	}

	gcm, err := s.aead(data[:saltSize])
	if err != nil {
		return nil, err
	}

	rest := data[saltSize:]
	if len(rest) < gcm.NonceSize() {
		return nil, ErrSealedData
	}

	plaintext, err := gcm.Open(nil, rest[:gcm.NonceSize()], rest[gcm.NonceSize():], nil)
	if err != nil {
		return nil, ErrSealedData
	}
	return plaintext, nil
}
