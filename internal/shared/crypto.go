package shared

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	tokenKeySize   = 32
	gcmNonceSize   = 12
	gcmTagSize     = 16
	cipherTextSegs = 3
)

// TokenCipher encrypts and decrypts refresh tokens at rest using
// AES-256-GCM. The wire format is "ivHex:authTagHex:cipherHex" so the
// stored value is self-describing and the tag is checked before any
// plaintext is returned.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher builds a [TokenCipher] from a hex-encoded 256-bit key,
// typically sourced from the STONETIFY_TOKEN_KEY environment variable.
func NewTokenCipher(keyHex string) (*TokenCipher, error) {
	key, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, fmt.Errorf("%w: token key is not valid hex: %v", ErrInvalidConfig, err)
	}
	if len(key) != tokenKeySize {
		return nil, fmt.Errorf("%w: token key must be %d bytes, got %d", ErrInvalidConfig, tokenKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals the plaintext token and returns the ivHex:authTagHex:cipherHex form.
func (c *TokenCipher) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: refresh token is empty", ErrInvalidInput)
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends the auth tag to the ciphertext; split it back out so the
	// stored format keeps the tag as its own segment.
	sealed := c.aead.Seal(nil, nonce, []byte(plain), nil)
	cut := len(sealed) - gcmTagSize
	cipherText, tag := sealed[:cut], sealed[cut:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(cipherText),
	), nil
}

// Decrypt opens a stored token. Malformed input (wrong segment count,
// bad hex, wrong nonce length) and failed authentication both reject.
func (c *TokenCipher) Decrypt(encrypted string) (string, error) {
	parts := strings.Split(encrypted, ":")
	if len(parts) != cipherTextSegs {
		return "", fmt.Errorf("%w: expected %d-part encrypted token, got %d parts", ErrInvalidInput, cipherTextSegs, len(parts))
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: malformed iv segment: %v", ErrInvalidInput, err)
	}
	if len(nonce) != gcmNonceSize {
		return "", fmt.Errorf("%w: iv must be %d bytes, got %d", ErrInvalidInput, gcmNonceSize, len(nonce))
	}

	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: malformed auth tag segment: %v", ErrInvalidInput, err)
	}

	cipherText, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: malformed cipher segment: %v", ErrInvalidInput, err)
	}

	plain, err := c.aead.Open(nil, nonce, append(cipherText, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}

	return string(plain), nil
}
