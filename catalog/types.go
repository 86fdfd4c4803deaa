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

// Package catalog is the durable metadata record of snapshots, files
// and chunk references. It is backed by a single boltdb file: every
// mutating operation runs inside one bolt transaction, which is the
// ACID boundary the spec calls for.
package catalog

import (
	"time"

	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// FileType distinguishes the three kinds of directory entry a
// FileRecord can describe.
type FileType int

const (
	Regular FileType = iota
	Directory
	Symlink
)

func (t FileType) String() string {
	switch t {
	case Regular:
		return "regular"
	case Directory:
		return "dir"
	case Symlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// ChunkRef is one entry in a FileRecord's ordered chunk list.
type ChunkRef struct {
	Offset int64
	Length int64
	Hash   hash.Hash
}

// FileRecord is a snapshot-scoped record of one file (or directory,
// or symlink) and, for regular files, its ordered chunk list.
type FileRecord struct {
	SnapshotID   string
	RelativePath string
	Size         int64
	Mtime        time.Time
	Mode         uint32
	Type         FileType
	Chunks       []ChunkRef
	FileHash     hash.Hash
	// SymlinkTarget holds the link target string when Type ==
	// Symlink and the symlink_strategy is "record".
	SymlinkTarget string
	CreatedAt     time.Time
}

// Snapshot is an immutable (once committed) point-in-time backup.
type Snapshot struct {
	ID               string
	Description      string
	CreatedAt        time.Time
	SourceRoot       string
	RootMerkleHash   hash.Hash
	TotalFiles       int64
	TotalBytes       int64
	ParentSnapshotID string
	Committed        bool
}

// NodeKind distinguishes file leaves from directory nodes in the
// Merkle tree.
type NodeKind int

const (
	FileNode NodeKind = iota
	DirNode
)

// MerkleNode is a hash-addressed node in the Merkle tree. Parent
// links are by hash (an index into the merklenodes table), never by
// pointer, so the tree persists trivially and cannot form a cycle.
type MerkleNode struct {
	Hash           hash.Hash
	Kind           NodeKind
	Name           string
	Size           int64
	ChildrenHashes []hash.Hash
	// FileID is the relative path of the FileRecord this node
	// summarizes, set only for FileNode.
	FileID string
}

// Stats summarizes catalog contents for the spec's stats() operation.
type Stats struct {
	SnapshotCount int
	FileCount     int
	MerkleNodeCount int
}
