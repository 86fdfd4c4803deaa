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
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// storeFactory builds a fresh, empty Store for one test. Running the
// same suite against every factory is grounded on the teacher's
// ChunkStoreTestSuite, which parameterizes over a *memoryStoreFactory.
type storeFactory func(t *testing.T) Store

// ChunkStoreSuite exercises the properties every Store implementation
// must satisfy, independent of backing storage.
type ChunkStoreSuite struct {
	suite.Suite
	New storeFactory
}

func TestLocalChunkStoreSuite(t *testing.T) {
	suite.Run(t, &ChunkStoreSuite{New: func(t *testing.T) Store {
		s, err := NewLocal(t.TempDir(), TwoPrefixLayout{})
		if err != nil {
			t.Fatal(err)
		}
		return s
	}})
}

func TestMemoryChunkStoreSuite(t *testing.T) {
	suite.Run(t, &ChunkStoreSuite{New: func(t *testing.T) Store {
		return NewMemory()
	}})
}

func (s *ChunkStoreSuite) TestPutThenGet() {
	ctx := context.Background()
	store := s.New(s.T())

	h, err := store.Put(ctx, []byte("abc"))
	s.Require().NoError(err)

	got, err := store.Get(ctx, h)
	s.NoError(err)
	s.Equal([]byte("abc"), got)
}

func (s *ChunkStoreSuite) TestGetNonExisting() {
	ctx := context.Background()
	store := s.New(s.T())

	_, err := store.Get(ctx, hash.Of([]byte("never put")))
	s.ErrorIs(err, ErrNotFound)
}

func (s *ChunkStoreSuite) TestExists() {
	ctx := context.Background()
	store := s.New(s.T())

	h, err := store.Put(ctx, []byte("present"))
	s.Require().NoError(err)

	ok, err := store.Exists(ctx, h)
	s.NoError(err)
	s.True(ok)

	ok, err = store.Exists(ctx, hash.Of([]byte("absent")))
	s.NoError(err)
	s.False(ok)
}

func (s *ChunkStoreSuite) TestPutIsIdempotent() {
	ctx := context.Background()
	store := s.New(s.T())

	h1, err := store.Put(ctx, []byte("same bytes"))
	s.Require().NoError(err)
	h2, err := store.Put(ctx, []byte("same bytes"))
	s.Require().NoError(err)
	s.Equal(h1, h2)

	got, err := store.Get(ctx, h1)
	s.NoError(err)
	s.Equal([]byte("same bytes"), got)
}

func (s *ChunkStoreSuite) TestDifferentContentDifferentHash() {
	ctx := context.Background()
	store := s.New(s.T())

	h1, _ := store.Put(ctx, []byte("one"))
	h2, _ := store.Put(ctx, []byte("two"))
	s.NotEqual(h1, h2)
}

func (s *ChunkStoreSuite) TestSweepRemovesDeadKeepsLive() {
	ctx := context.Background()
	store := s.New(s.T())

	live, err := store.Put(ctx, []byte("keep me"))
	s.Require().NoError(err)
	dead, err := store.Put(ctx, []byte("delete me"))
	s.Require().NoError(err)

	n, err := store.Sweep(ctx, map[hash.Hash]struct{}{live: {}})
	s.NoError(err)
	s.Equal(1, n)

	ok, _ := store.Exists(ctx, live)
	s.True(ok)
	ok, _ = store.Exists(ctx, dead)
	s.False(ok)
}

func (s *ChunkStoreSuite) TestSweepEmptyLiveSetRemovesEverything() {
	ctx := context.Background()
	store := s.New(s.T())

	store.Put(ctx, []byte("a"))
	store.Put(ctx, []byte("b"))

	n, err := store.Sweep(ctx, map[hash.Hash]struct{}{})
	s.NoError(err)
	s.Equal(2, n)
}

func (s *ChunkStoreSuite) TestOperationsAfterCloseFail() {
	ctx := context.Background()
	store := s.New(s.T())
	s.Require().NoError(store.Close())

	_, err := store.Put(ctx, []byte("x"))
	s.ErrorIs(err, ErrClosed)
}

func (s *ChunkStoreSuite) TestConcurrentPutsOfSameHashCollapse() {
	ctx := context.Background()
	store := s.New(s.T())

	const n = 16
	hashes := make(chan hash.Hash, n)
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		go func() {
			h, err := store.Put(ctx, []byte("concurrent payload"))
			s.NoError(err)
			hashes <- h
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	close(hashes)

	var first hash.Hash
	i := 0
	for h := range hashes {
		if i == 0 {
			first = h
		} else {
			s.Equal(first, h)
		}
		i++
	}

	got, err := store.Get(ctx, first)
	s.NoError(err)
	s.Equal([]byte("concurrent payload"), got)
}
