package codec

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/kbukum/workerbridge/errors"
)

type sealedCodec struct {
	inner Codec
	aead  cipher.AEAD
}

// Sealed wraps inner so every marshaled payload is encrypted with
// ChaCha20-Poly1305. The key is hashed with SHA-256 to get a 32-byte key.
// Output layout: nonce || ciphertext.
func Sealed(inner Codec, key string) (Codec, error) {
	if key == "" {
		return nil, errors.InvalidInput("key", "sealed codec needs a non-empty key")
	}
	sum := sha256.Sum256([]byte(key))
	aead, err := chacha20poly1305.New(sum[:])
	if err != nil {
		return nil, fmt.Errorf("create chacha20: %w", err)
	}
	return &sealedCodec{inner: inner, aead: aead}, nil
}

func (s *sealedCodec) ContentType() string { return s.inner.ContentType() + "+sealed" }
func (s *sealedCodec) Binary() bool        { return true }

func (s *sealedCodec) Marshal(v any) ([]byte, error) {
	plain, err := s.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *sealedCodec) Unmarshal(data []byte, v any) error {
	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return errors.DecodeFailure("sealed payload too short")
	}
	plain, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return errors.DecodeFailure("sealed payload rejected").WithCause(err)
	}
	return s.inner.Unmarshal(plain, v)
}
