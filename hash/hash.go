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

// Package hash implements the 256-bit content digest used to address
// chunks and to compose Merkle nodes. The algorithm is fixed at
// blake2b-256 for the lifetime of a store; callers that need a
// different algorithm must create a new store rather than mutate this
// package's behavior in place.
package hash

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ByteLen is the length in bytes of a Hash.
const ByteLen = 32

// Hash is an opaque 256-bit content digest. The zero value is the
// "empty" hash and is never produced by Of or a State.
type Hash [ByteLen]byte

var emptyHash Hash

// Of returns the digest of data.
func Of(data []byte) Hash {
	return sum(data)
}

func sum(data []byte) Hash {
	digest := blake2b.Sum256(data)
	return Hash(digest)
}

// New starts an incremental hash computation. Identical byte
// sequences produce identical digests regardless of how the caller
// chunks its calls to Write.
func New() *State {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only possible if a key longer than 64 bytes were supplied,
		// which New never does.
		panic(err)
	}
	return &State{h: h}
}

// State is an incremental digest computation. It satisfies io.Writer.
type State struct {
	h   blake2bHash
	sum Hash
	has bool
}

type blake2bHash interface {
	Write(p []byte) (int, error)
	Sum(b []byte) []byte
}

// Write implements io.Writer.
func (s *State) Write(p []byte) (int, error) {
	if s.has {
		panic("hash.State: Write after Sum")
	}
	return s.h.Write(p)
}

// Sum finalizes the computation and returns the digest. Sum may be
// called more than once; the result is cached after the first call.
func (s *State) Sum() Hash {
	if !s.has {
		var out Hash
		copy(out[:], s.h.Sum(nil))
		s.sum = out
		s.has = true
	}
	return s.sum
}

// Parse decodes a lowercase-hex hash string and panics if s is not a
// well-formed hash. Parse mirrors the teacher's hash.Parse, which is
// used throughout tests to build well-known fixture hashes inline.
func Parse(s string) Hash {
	r, ok := MaybeParse(s)
	if !ok {
		panic(fmt.Sprintf("invalid hash: %q", s))
	}
	return r
}

// MaybeParse decodes a lowercase-hex hash string, returning ok=false
// rather than panicking on malformed input.
func MaybeParse(s string) (Hash, bool) {
	if len(s) != ByteLen*2 {
		return emptyHash, false
	}
	var out Hash
	n, err := hex.Decode(out[:], []byte(s))
	if err != nil || n != ByteLen {
		return emptyHash, false
	}
	// Reject non-canonical (uppercase) input; this package always
	// produces and expects lowercase hex.
	if hex.EncodeToString(out[:]) != s {
		return emptyHash, false
	}
	return out, true
}

// String returns the lowercase-hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns the raw digest bytes.
func (h Hash) Bytes() []byte {
	return h[:]
}

// IsEmpty reports whether h is the zero Hash.
func (h Hash) IsEmpty() bool {
	return h == emptyHash
}

// Less defines a total order over Hash values, used to produce a
// deterministic canonical ordering (e.g. of GC live sets in tests).
func (h Hash) Less(other Hash) bool {
	return bytes.Compare(h[:], other[:]) < 0
}

// Equal reports whether h and other are the same digest.
func (h Hash) Equal(other Hash) bool {
	return h == other
}

// KeyedOf computes a keyed digest of data under key (at most 64
// bytes). It is used to derive deterministic per-plaintext values
// (such as AEAD nonces) that must not leak the key and must not
// collide across unrelated keys, without weakening Of's unkeyed
// content-addressing guarantee.
func KeyedOf(key, data []byte) Hash {
	h, err := blake2b.New256(key)
	if err != nil {
		panic(err)
	}
	h.Write(data)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
