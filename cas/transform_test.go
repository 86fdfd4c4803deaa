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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewCompress(NewMemory())

	input := []byte("compress me compress me compress me")
	h, err := c.Put(ctx, input)
	require.NoError(t, err)

	got, err := c.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, input, got)
}

func TestCompressDetectsTamperedPhysicalBytes(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	c := NewCompress(inner)

	h, err := c.Put(ctx, []byte("hello world"))
	require.NoError(t, err)

	raw, err := inner.GetRaw(ctx, h)
	require.NoError(t, err)
	raw[0] ^= 0xFF
	require.NoError(t, inner.PutRaw(ctx, h, raw))

	_, err = c.Get(ctx, h)
	var integrityErr *IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

func TestEncryptRoundTrip(t *testing.T) {
	ctx := context.Background()
	key, err := GenerateKey()
	require.NoError(t, err)

	e, err := NewEncrypt(NewMemory(), key)
	require.NoError(t, err)

	input := []byte("super secret chunk bytes")
	h, err := e.Put(ctx, input)
	require.NoError(t, err)

	got, err := e.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, input, got)
}

func TestEncryptIsDeterministicAndPreservesDedup(t *testing.T) {
	ctx := context.Background()
	key, err := GenerateKey()
	require.NoError(t, err)

	inner := NewMemory()
	e, err := NewEncrypt(inner, key)
	require.NoError(t, err)

	h1, err := e.Put(ctx, []byte("identical plaintext"))
	require.NoError(t, err)
	raw1, err := inner.GetRaw(ctx, h1)
	require.NoError(t, err)

	h2, err := e.Put(ctx, []byte("identical plaintext"))
	require.NoError(t, err)
	raw2, err := inner.GetRaw(ctx, h2)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Equal(t, raw1, raw2, "same plaintext+key must yield byte-identical ciphertext")
}

func TestEncryptDifferentKeysDifferentCiphertext(t *testing.T) {
	ctx := context.Background()
	k1, _ := GenerateKey()
	k2, _ := GenerateKey()
	inner1, inner2 := NewMemory(), NewMemory()
	e1, _ := NewEncrypt(inner1, k1)
	e2, _ := NewEncrypt(inner2, k2)

	plaintext := []byte("same content, different keys")
	h1, _ := e1.Put(ctx, plaintext)
	h2, _ := e2.Put(ctx, plaintext)
	assert.Equal(t, h1, h2, "logical hash is content-addressed, independent of key")

	raw1, _ := inner1.GetRaw(ctx, h1)
	raw2, _ := inner2.GetRaw(ctx, h2)
	assert.NotEqual(t, raw1, raw2)
}

func TestEncryptTamperedCiphertextIsIntegrityError(t *testing.T) {
	ctx := context.Background()
	key, _ := GenerateKey()
	inner := NewMemory()
	e, err := NewEncrypt(inner, key)
	require.NoError(t, err)

	h, err := e.Put(ctx, []byte("authenticated data"))
	require.NoError(t, err)

	raw, err := inner.GetRaw(ctx, h)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, inner.PutRaw(ctx, h, raw))

	_, err = e.Get(ctx, h)
	var integrityErr *IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

func TestComposedCompressThenEncrypt(t *testing.T) {
	// Transform wrappers must stack: compress the plaintext, then
	// encrypt the compressed bytes, so Encrypt sits inside Compress.
	ctx := context.Background()
	key, _ := GenerateKey()

	base := NewMemory()
	encrypted, err := NewEncrypt(base, key)
	require.NoError(t, err)
	layered := NewCompress(encrypted)

	input := []byte(strings.Repeat("layer upon layer of transforms ", 50))
	h, err := layered.Put(ctx, input)
	require.NoError(t, err)

	got, err := layered.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	// The physical bytes in the base store are neither the plaintext
	// nor merely compressed - they went through both transforms.
	raw, err := base.GetRaw(ctx, h)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "layer upon layer")
}
