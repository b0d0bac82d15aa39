package migration

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"larder/internal/domain"
)

// Snapshot backups are encrypted with AES-256-GCM under a server-held key.
// The ciphertext is opaque to everything but this package; the nonce is
// prepended so a single string column can hold the whole artifact.

func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// EncryptSnapshot serializes and encrypts a pre-migration snapshot.
func EncryptSnapshot(secret string, snapshot domain.LocalSnapshot) (string, error) {
	plaintext, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("init gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptSnapshot reverses EncryptSnapshot. Used by recovery tooling and
// tests; the engine itself never reads backups back.
func DecryptSnapshot(secret, ciphertext string) (domain.LocalSnapshot, error) {
	var snapshot domain.LocalSnapshot
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return snapshot, fmt.Errorf("decode backup: %w", err)
	}
	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		return snapshot, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return snapshot, fmt.Errorf("init gcm: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return snapshot, fmt.Errorf("decode backup: ciphertext too short")
	}
	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return snapshot, fmt.Errorf("decrypt backup: %w", err)
	}
	if err := json.Unmarshal(plaintext, &snapshot); err != nil {
		return snapshot, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, nil
}
