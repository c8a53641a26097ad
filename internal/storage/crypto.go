package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Encrypted object layout: magic(8) + salt(16) + nonce(12) + ciphertext+tag.
const (
	gcmMagic         = "GCM3NCR0"
	saltSize         = 16
	nonceSize        = 12
	pbkdf2Iterations = 100000
)

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 32, sha256.New)
}

func encryptGCM(plain []byte, password string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(gcmMagic)+saltSize+nonceSize+len(plain)+gcm.Overhead())
	out = append(out, gcmMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plain, nil), nil
}

func decryptGCM(data []byte, password string) ([]byte, error) {
	head := len(gcmMagic) + saltSize + nonceSize
	if len(data) < head+16 || string(data[:len(gcmMagic)]) != gcmMagic {
		return nil, fmt.Errorf("not a GCM encrypted object (%d bytes)", len(data))
	}
	salt := data[len(gcmMagic) : len(gcmMagic)+saltSize]
	nonce := data[len(gcmMagic)+saltSize : head]
	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, data[head:], nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plain, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
