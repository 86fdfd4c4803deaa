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

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Transforms = []string{"compress", "encrypt"}

	require.NoError(t, Save(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, cfg.HashAlgorithm, loaded.HashAlgorithm)
	require.Equal(t, cfg.ChunkerMode, loaded.ChunkerMode)
	require.Equal(t, cfg.ChunkSize, loaded.ChunkSize)
	require.Equal(t, cfg.Layout, loaded.Layout)
	require.Equal(t, cfg.Transforms, loaded.Transforms)
}

func TestSaveRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, Default()))
	require.ErrorIs(t, Save(dir, Default()), ErrAlreadyExists)
}
