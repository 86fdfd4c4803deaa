// Copyright 2026 The JustSyncIt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cas

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/golang/snappy"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// Compress wraps a RawStore, snappy-compressing chunk bytes before
// they reach physical storage. The chunk's hash is always computed
// over the uncompressed logical content, so Compress composes
// transparently with the rest of the Store contract.
type Compress struct {
	inner RawStore
}

// NewCompress wraps inner with snappy compression.
func NewCompress(inner RawStore) *Compress {
	return &Compress{inner: inner}
}

func (c *Compress) Put(ctx context.Context, data []byte) (hash.Hash, error) {
	h := hash.Of(data)
	if err := c.inner.PutRaw(ctx, h, snappy.Encode(nil, data)); err != nil {
		return hash.Hash{}, err
	}
	return h, nil
}

func (c *Compress) Get(ctx context.Context, h hash.Hash) ([]byte, error) {
	raw, err := c.inner.GetRaw(ctx, h)
	if err != nil {
		return nil, err
	}
	data, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, &IntegrityError{Hash: h}
	}
	if hash.Of(data) != h {
		return nil, &IntegrityError{Hash: h}
	}
	return data, nil
}

func (c *Compress) Exists(ctx context.Context, h hash.Hash) (bool, error) {
	return c.inner.Exists(ctx, h)
}

func (c *Compress) Sweep(ctx context.Context, live map[hash.Hash]struct{}) (int, error) {
	return c.inner.Sweep(ctx, live)
}

func (c *Compress) Close() error { return c.inner.Close() }

// PutRaw/GetRaw let Compress itself serve as the inner RawStore for
// another transform. The outer transform processes bytes first:
// Encrypt(Compress(base), key) seals the plaintext and then compresses
// the high-entropy ciphertext, while Compress(Encrypt(base, key)) is
// the stacking that compresses plaintext before encrypting it.
// Unlike Put/Get, these do not know the
// logical content hash and so cannot verify it themselves; the
// outermost transform in the stack is responsible for that check.
func (c *Compress) PutRaw(ctx context.Context, h hash.Hash, raw []byte) error {
	return c.inner.PutRaw(ctx, h, snappy.Encode(nil, raw))
}

func (c *Compress) GetRaw(ctx context.Context, h hash.Hash) ([]byte, error) {
	raw, err := c.inner.GetRaw(ctx, h)
	if err != nil {
		return nil, err
	}
	return snappy.Decode(nil, raw)
}

// nonceSize is the XChaCha20-Poly1305 nonce size: large enough that a
// nonce derived deterministically from (key, plaintext) never needs
// a counter to avoid reuse across unrelated chunks.
const nonceSize = chacha20poly1305.NonceSizeX

// Encrypt wraps a RawStore with deterministic authenticated
// encryption: the nonce is derived from a keyed hash of the
// plaintext, so identical plaintext under the same key always
// produces identical ciphertext. That is required for deduplication
// to see through encryption at all; per spec 4.3/9 it only holds
// because no per-file associated data is bound into the seal - doing
// so would make ciphertext depend on which file a chunk came from and
// defeat cross-file dedup, so Encrypt intentionally passes nil AAD.
type Encrypt struct {
	inner RawStore
	aead  cipherAEAD
	key   []byte
}

type cipherAEAD interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// NewEncrypt wraps inner with deterministic XChaCha20-Poly1305
// encryption under key (32 bytes).
func NewEncrypt(inner RawStore, key []byte) (*Encrypt, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("cas: init aead: %w", err)
	}
	return &Encrypt{inner: inner, aead: aead, key: key}, nil
}

func (e *Encrypt) nonceFor(plaintext []byte) []byte {
	digest := hash.KeyedOf(e.key, plaintext)
	return digest.Bytes()[:nonceSize]
}

func (e *Encrypt) Put(ctx context.Context, data []byte) (hash.Hash, error) {
	h := hash.Of(data)
	nonce := e.nonceFor(data)
	sealed := e.aead.Seal(nil, nonce, data, nil)

	raw := make([]byte, 0, len(nonce)+len(sealed))
	raw = append(raw, nonce...)
	raw = append(raw, sealed...)

	if err := e.inner.PutRaw(ctx, h, raw); err != nil {
		return hash.Hash{}, err
	}
	return h, nil
}

func (e *Encrypt) Get(ctx context.Context, h hash.Hash) ([]byte, error) {
	raw, err := e.inner.GetRaw(ctx, h)
	if err != nil {
		return nil, err
	}
	if len(raw) < nonceSize {
		return nil, &IntegrityError{Hash: h}
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]

	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &IntegrityError{Hash: h}
	}
	if hash.Of(plaintext) != h {
		return nil, &IntegrityError{Hash: h}
	}
	return plaintext, nil
}

func (e *Encrypt) Exists(ctx context.Context, h hash.Hash) (bool, error) {
	return e.inner.Exists(ctx, h)
}

func (e *Encrypt) Sweep(ctx context.Context, live map[hash.Hash]struct{}) (int, error) {
	return e.inner.Sweep(ctx, live)
}

func (e *Encrypt) Close() error { return e.inner.Close() }

// PutRaw/GetRaw let Encrypt serve as the inner RawStore for another
// transform layered on top of it, sealing whatever bytes that outer
// layer hands down rather than assuming they are the original
// plaintext.
func (e *Encrypt) PutRaw(ctx context.Context, h hash.Hash, raw []byte) error {
	nonce := e.nonceFor(raw)
	sealed := e.aead.Seal(nil, nonce, raw, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return e.inner.PutRaw(ctx, h, out)
}

func (e *Encrypt) GetRaw(ctx context.Context, h hash.Hash) ([]byte, error) {
	raw, err := e.inner.GetRaw(ctx, h)
	if err != nil {
		return nil, err
	}
	if len(raw) < nonceSize {
		return nil, &IntegrityError{Hash: h}
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &IntegrityError{Hash: h}
	}
	return plaintext, nil
}

// GenerateKey returns a fresh random 32-byte key suitable for
// NewEncrypt.
func GenerateKey() ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

var (
	_ Store    = (*Compress)(nil)
	_ Store    = (*Encrypt)(nil)
	_ RawStore = (*Compress)(nil)
	_ RawStore = (*Encrypt)(nil)
)
