// Package secret seals connection passwords before they are written to disk.
//
// Values are encrypted with XChaCha20-Poly1305 using a key derived from a
// passphrase with Argon2id. Each sealed value carries its own salt and nonce:
//
//	enc:v1:<base64(salt | nonce | ciphertext)>
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

const prefix = "enc:v1:"

// Argon2Params defines parameters for Argon2id key derivation
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
}

var defaultArgon2Params = Argon2Params{
	Memory:      19 * 1024, // 19 MB
	Iterations:  2,
	Parallelism: 1,
	SaltLen:     16,
}

// Sealer encrypts and decrypts secrets with a passphrase. A nil Sealer or one
// built from an empty passphrase passes values through unchanged.
type Sealer struct {
	passphrase []byte
	params     Argon2Params

	mu   sync.Mutex
	keys map[string][]byte
}

// NewSealer returns a Sealer for passphrase, or nil when it is empty.
func NewSealer(passphrase string) *Sealer {
	if passphrase == "" {
		return nil
	}
	return &Sealer{passphrase: []byte(passphrase), params: defaultArgon2Params, keys: map[string][]byte{}}
}

// IsSealed reports whether v carries the sealed-value prefix.
func IsSealed(v string) bool { return strings.HasPrefix(v, prefix) }

// Seal encrypts plain. Empty and already sealed values are returned as-is.
func (s *Sealer) Seal(plain string) (string, error) {
	if s == nil || plain == "" || IsSealed(plain) {
		return plain, nil
	}
	salt := make([]byte, s.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("op=secret.Seal: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return "", fmt.Errorf("op=secret.Seal: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("op=secret.Seal: %w", err)
	}
	out := make([]byte, 0, len(salt)+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(plain), nil)
	return prefix + base64.RawStdEncoding.EncodeToString(out), nil
}

// Open decrypts a sealed value. Values without the prefix are returned unchanged.
func (s *Sealer) Open(v string) (string, error) {
	if !IsSealed(v) {
		return v, nil
	}
	if s == nil {
		return "", fmt.Errorf("op=secret.Open: %w: sealed password but no secret key configured", domain.ErrInvalidArgument)
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(v, prefix))
	if err != nil {
		return "", fmt.Errorf("op=secret.Open: %w: %v", domain.ErrInvalidArgument, err)
	}
	saltLen := int(s.params.SaltLen)
	if len(raw) < saltLen+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return "", fmt.Errorf("op=secret.Open: %w: sealed value too short", domain.ErrInvalidArgument)
	}
	salt := raw[:saltLen]
	nonce := raw[saltLen : saltLen+chacha20poly1305.NonceSizeX]
	ct := raw[saltLen+chacha20poly1305.NonceSizeX:]
	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return "", fmt.Errorf("op=secret.Open: %w", err)
	}
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("op=secret.Open: %w: wrong secret key or corrupted value", domain.ErrInvalidArgument)
	}
	return string(plain), nil
}

// key derives (and memoizes per salt) the AEAD key.
func (s *Sealer) key(salt []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[string(salt)]; ok {
		return k
	}
	k := argon2.IDKey(s.passphrase, salt, s.params.Iterations, s.params.Memory, s.params.Parallelism, chacha20poly1305.KeySize)
	s.keys[string(salt)] = k
	return k
}
