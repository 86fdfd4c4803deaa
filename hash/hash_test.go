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

package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseError(t *testing.T) {
	assert := assert.New(t)

	assertParseError := func(s string) {
		assert.Panics(func() {
			Parse(s)
		})
	}

	assertParseError("foo")
	// too few digits
	assertParseError("00000000000000000000000000000000000000000000000000000000000")
	// too many digits
	assertParseError("00000000000000000000000000000000000000000000000000000000000000000")
	// 'z' is not valid hex
	assertParseError("z000000000000000000000000000000000000000000000000000000000000000")
	// uppercase is not canonical
	assertParseError("000000000000000000000000000000000000000000000000000000000000000A")

	r := Parse("000000000000000000000000000000000000000000000000000000000000000a")
	assert.False(r.IsEmpty())
}

func TestMaybeParse(t *testing.T) {
	assert := assert.New(t)

	parse := func(s string, success bool) {
		r, ok := MaybeParse(s)
		assert.Equal(success, ok, "expected success=%t for %q", success, s)
		if ok {
			assert.Equal(s, r.String())
		} else {
			assert.Equal(emptyHash, r)
		}
	}

	zero := "0000000000000000000000000000000000000000000000000000000000000000"[:64]
	parse(zero, true)
	parse("", false)
	parse("not-hex!!", false)
}

func TestEquals(t *testing.T) {
	assert := assert.New(t)

	r0 := Of([]byte("a"))
	r01 := Of([]byte("a"))
	r1 := Of([]byte("b"))

	assert.Equal(r0, r01)
	assert.True(r0.Equal(r01))
	assert.NotEqual(r0, r1)
	assert.False(r0.Equal(r1))
}

func TestOfIsDeterministic(t *testing.T) {
	assert := assert.New(t)

	a := Of([]byte("abc"))
	b := Of([]byte("abc"))
	assert.Equal(a, b)
	assert.Equal(a.String(), b.String())
}

func TestOfDiffersOnDiffersInput(t *testing.T) {
	assert := assert.New(t)
	assert.NotEqual(Of([]byte("abc")), Of([]byte("abd")))
}

func TestRoundTripString(t *testing.T) {
	s := Of([]byte("round trip me")).String()
	r := Parse(s)
	assert.Equal(t, s, r.String())
}

func TestIsEmpty(t *testing.T) {
	assert := assert.New(t)

	var z Hash
	assert.True(z.IsEmpty())
	assert.False(Of([]byte("x")).IsEmpty())
}

func TestLess(t *testing.T) {
	assert := assert.New(t)

	var a, b Hash
	a[0], b[0] = 1, 2
	assert.True(a.Less(b))
	assert.False(b.Less(a))
	assert.False(a.Less(a))
}

func TestIncrementalMatchesOf(t *testing.T) {
	assert := assert.New(t)

	input := []byte("the quick brown fox jumps over the lazy dog")
	want := Of(input)

	st := New()
	st.Write(input[:10])
	st.Write(input[10:])
	assert.Equal(want, st.Sum())

	// Sum is idempotent once finalized.
	assert.Equal(want, st.Sum())
}

func TestWriteAfterSumPanics(t *testing.T) {
	st := New()
	st.Write([]byte("abc"))
	st.Sum()
	assert.Panics(t, func() { st.Write([]byte("d")) })
}

func TestKeyedOfIsDeterministicAndKeyDependent(t *testing.T) {
	assert := assert.New(t)

	data := []byte("plaintext")
	k1 := []byte("key-one")
	k2 := []byte("key-two")

	assert.Equal(KeyedOf(k1, data), KeyedOf(k1, data))
	assert.NotEqual(KeyedOf(k1, data), KeyedOf(k2, data))
	assert.NotEqual(KeyedOf(k1, data), Of(data))
}
