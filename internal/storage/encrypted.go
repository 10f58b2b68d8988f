/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Data-at-Rest Encryption:
========================

EncryptedEngine wraps any Engine and transparently encrypts values with
AES-256-GCM before they reach the underlying store. Keys stay in
plaintext so prefix Scan still works; only values are protected.

Key Derivation:
  - The AES key is derived from a passphrase using PBKDF2 with SHA-256
  - Keys are 32 bytes (AES-256)
  - Nonce is prepended to ciphertext (12 bytes overhead per record)
  - GCM tag adds 16 bytes overhead per record
*/
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// EncryptionConfig holds the configuration for value encryption.
type EncryptionConfig struct {
	// Enabled indicates whether encryption is enabled.
	Enabled bool

	// Key is the 32-byte AES-256 encryption key.
	// If empty and Passphrase is set, the key is derived from the passphrase.
	Key []byte

	// Passphrase is used to derive the encryption key if Key is not set.
	// The key is derived using PBKDF2 with SHA-256.
	Passphrase string

	// Salt is used for key derivation from passphrase.
	// If empty, a default salt is used (not recommended for production).
	Salt []byte
}

// DefaultSalt is used when no salt is provided for key derivation.
// In production, always use a unique salt per database.
var DefaultSalt = []byte("wrendb-default-salt-v1")

// KeyDerivationIterations is the number of PBKDF2 iterations.
// Higher values are more secure but slower.
const KeyDerivationIterations = 100000

// EncryptedEngine wraps an Engine and encrypts all values.
type EncryptedEngine struct {
	inner Engine
	gcm   cipher.AEAD
}

// NewEncryptedEngine wraps inner with AES-256-GCM value encryption.
// If config.Enabled is false, inner is returned unwrapped.
func NewEncryptedEngine(inner Engine, config EncryptionConfig) (Engine, error) {
	if !config.Enabled {
		return inner, nil
	}

	key := config.Key
	if len(key) == 0 && config.Passphrase != "" {
		salt := config.Salt
		if len(salt) == 0 {
			salt = DefaultSalt
		}
		key = pbkdf2.Key([]byte(config.Passphrase), salt, KeyDerivationIterations, 32, sha256.New)
	}

	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes (256 bits)")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &EncryptedEngine{inner: inner, gcm: gcm}, nil
}

// Put encrypts the value and stores it in the wrapped engine.
func (e *EncryptedEngine) Put(key string, value []byte) error {
	ct, err := e.encrypt(value)
	if err != nil {
		return err
	}
	return e.inner.Put(key, ct)
}

// Get retrieves and decrypts the value for key.
func (e *EncryptedEngine) Get(key string) ([]byte, error) {
	ct, err := e.inner.Get(key)
	if err != nil {
		return nil, err
	}
	return e.decrypt(ct)
}

// Delete removes a key from the wrapped engine.
func (e *EncryptedEngine) Delete(key string) error {
	return e.inner.Delete(key)
}

// Scan returns all decrypted key-value pairs matching the prefix.
func (e *EncryptedEngine) Scan(prefix string) (map[string][]byte, error) {
	encrypted, err := e.inner.Scan(prefix)
	if err != nil {
		return nil, err
	}
	result := make(map[string][]byte, len(encrypted))
	for k, ct := range encrypted {
		pt, err := e.decrypt(ct)
		if err != nil {
			return nil, err
		}
		result[k] = pt
	}
	return result, nil
}

// Close closes the wrapped engine.
func (e *EncryptedEngine) Close() error {
	return e.inner.Close()
}

// encrypt seals plaintext with a random nonce prepended to the output.
func (e *EncryptedEngine) encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return e.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt opens ciphertext produced by encrypt.
func (e *EncryptedEngine) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < e.gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:e.gcm.NonceSize()]
	return e.gcm.Open(nil, nonce, ciphertext[e.gcm.NonceSize():], nil)
}
