package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// KeySize is the AES-128 key length derived from a passphrase.
	KeySize = 16
	// ivSize matches the AES block size; one IV is prepended per message.
	ivSize = aes.BlockSize
)

var (
	// ErrCipher indicates the codec could not produce ciphertext.
	ErrCipher = errors.New("crypto: cipher failure")
	// ErrDecrypt indicates ciphertext could not be decrypted under the
	// supplied passphrase. Callers render a placeholder instead of the body.
	ErrDecrypt = errors.New("crypto: undecryptable ciphertext")
)

// DeriveKey maps a passphrase to an AES-128 key: SHA-256 of the UTF-8
// bytes, truncated to the first 16 bytes. No salt and no stretching; this
// exact construction is required to decrypt previously stored data.
func DeriveKey(passphrase string) []byte {
	digest := sha256.Sum256([]byte(passphrase))
	key := make([]byte, KeySize)
	copy(key, digest[:KeySize])
	return key
}

// EncryptString encrypts plaintext with AES-128-CBC under a key derived
// from passphrase and returns Base64(IV || ciphertext).
//
// A fresh random IV is generated per call, so encrypting the same
// plaintext twice yields different encodings that decrypt identically.
func EncryptString(plaintext, passphrase string) (string, error) {
	block, err := aes.NewCipher(DeriveKey(passphrase))
	if err != nil {
		return "", fmt.Errorf("%w: create AES cipher: %v", ErrCipher, err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("%w: generate IV: %v", ErrCipher, err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, ivSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[ivSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptString inverts EncryptString. It returns ErrDecrypt for malformed
// input, a wrong passphrase, or corrupted ciphertext; it never panics.
func DecryptString(encoded, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: decode base64: %v", ErrDecrypt, err)
	}
	if len(raw) < ivSize+aes.BlockSize || (len(raw)-ivSize)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", ErrDecrypt, len(raw))
	}

	block, err := aes.NewCipher(DeriveKey(passphrase))
	if err != nil {
		return "", fmt.Errorf("%w: create AES cipher: %v", ErrDecrypt, err)
	}

	iv, ct := raw[:ivSize], raw[ivSize:]
	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ct)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrDecrypt)
	}

	return string(plaintext), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
