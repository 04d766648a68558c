// Package crypto encrypts AI provider API keys at rest.
//
// Keys are stored as "ivhex:cipherhex" using AES-256-CBC with PKCS#7
// padding; the cipher key is the SHA-256 digest of the configured secret.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCiphertext indicates a stored value that cannot be decrypted.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Cipher encrypts and decrypts short secrets.
type Cipher struct {
	key [sha256.Size]byte
}

// New derives a Cipher from the configured secret.
func New(secret string) *Cipher {
	return &Cipher{key: sha256.Sum256([]byte(secret))}
}

// Encrypt returns the "ivhex:cipherhex" encoding of plain.
func (c *Cipher) Encrypt(plain string) (string, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(encrypted), nil
}

// Decrypt reverses Encrypt. It fails with ErrInvalidCiphertext for
// malformed input or a wrong key.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	ivHex, cipherHex, ok := strings.Cut(encoded, ":")
	if !ok {
		return "", ErrInvalidCiphertext
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrInvalidCiphertext
	}

	encrypted, err := hex.DecodeString(cipherHex)
	if err != nil || len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return "", ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", err
	}

	plain := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, encrypted)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}

	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid padding byte")
	}

	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("inconsistent padding")
		}
	}

	return data[:len(data)-padding], nil
}
