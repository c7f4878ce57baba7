package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/adapter"
)

var _ adapter.Encrypter = (*EncryptionService)(nil)

// EncryptionService encrypts card fields with AES-GCM. Ciphertext format is
// base64(nonce || sealed). Empty strings pass through unchanged so that
// absent card fields stay empty in storage.
type EncryptionService struct {
	gcm cipher.AEAD
}

// NewEncryptionService needs a 16, 24 or 32 byte key (AES-128/192/256).
func NewEncryptionService(key string) (*EncryptionService, error) {
	k := []byte(key)
	if n := len(k); n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes; got %d", n)
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &EncryptionService{gcm: gcm}, nil
}

func (e *EncryptionService) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	sealed := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt wraps every failure in domain.ErrDecryptFailed.
func (e *EncryptionService) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", domain.ErrDecryptFailed, err)
	}
	ns := e.gcm.NonceSize()
	if len(data) < ns {
		return "", fmt.Errorf("%w: ciphertext too short", domain.ErrDecryptFailed)
	}
	pt, err := e.gcm.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryptFailed, err)
	}
	return string(pt), nil
}

// EncryptCard builds the at-rest form of a card from plain inputs.
func EncryptCard(enc adapter.Encrypter, number, holder, code string, month, year int, cardType string) (*model.CreditCard, error) {
	var (
		c   = &model.CreditCard{ExpirationMonth: month, ExpirationYear: year, CardType: cardType}
		err error
	)
	if c.Number, err = enc.Encrypt(number); err != nil {
		return nil, fmt.Errorf("encrypt card number: %w", err)
	}
	if c.HolderName, err = enc.Encrypt(holder); err != nil {
		return nil, fmt.Errorf("encrypt card holder: %w", err)
	}
	if c.Code, err = enc.Encrypt(code); err != nil {
		return nil, fmt.Errorf("encrypt verification code: %w", err)
	}
	return c, nil
}
