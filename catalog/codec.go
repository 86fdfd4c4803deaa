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

package catalog

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// The wire DTOs below exist only because hash.Hash is a fixed-size
// byte array and msgpack's struct codec is happiest with slices and
// strings; every public type in this package stays in terms of
// hash.Hash and FileType/NodeKind, with conversion confined here.

type chunkRefWire struct {
	Offset int64
	Length int64
	Hash   []byte
}

type fileRecordWire struct {
	SnapshotID    string
	RelativePath  string
	Size          int64
	Mtime         time.Time
	Mode          uint32
	Type          int
	Chunks        []chunkRefWire
	FileHash      []byte
	SymlinkTarget string
	CreatedAt     time.Time
}

func encodeFileRecord(r FileRecord) ([]byte, error) {
	w := fileRecordWire{
		SnapshotID:    r.SnapshotID,
		RelativePath:  r.RelativePath,
		Size:          r.Size,
		Mtime:         r.Mtime,
		Mode:          r.Mode,
		Type:          int(r.Type),
		FileHash:      r.FileHash.Bytes(),
		SymlinkTarget: r.SymlinkTarget,
		CreatedAt:     r.CreatedAt,
	}
	w.Chunks = make([]chunkRefWire, len(r.Chunks))
	for i, c := range r.Chunks {
		w.Chunks[i] = chunkRefWire{Offset: c.Offset, Length: c.Length, Hash: c.Hash.Bytes()}
	}
	return msgpack.Marshal(w)
}

func decodeFileRecord(b []byte) (FileRecord, error) {
	var w fileRecordWire
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return FileRecord{}, err
	}
	r := FileRecord{
		SnapshotID:    w.SnapshotID,
		RelativePath:  w.RelativePath,
		Size:          w.Size,
		Mtime:         w.Mtime,
		Mode:          w.Mode,
		Type:          FileType(w.Type),
		FileHash:      hashFromBytes(w.FileHash),
		SymlinkTarget: w.SymlinkTarget,
		CreatedAt:     w.CreatedAt,
	}
	r.Chunks = make([]ChunkRef, len(w.Chunks))
	for i, c := range w.Chunks {
		r.Chunks[i] = ChunkRef{Offset: c.Offset, Length: c.Length, Hash: hashFromBytes(c.Hash)}
	}
	return r, nil
}

type snapshotWire struct {
	ID               string
	Description      string
	CreatedAt        time.Time
	SourceRoot       string
	RootMerkleHash   []byte
	TotalFiles       int64
	TotalBytes       int64
	ParentSnapshotID string
	Committed        bool
}

func encodeSnapshot(s Snapshot) ([]byte, error) {
	w := snapshotWire{
		ID:               s.ID,
		Description:      s.Description,
		CreatedAt:        s.CreatedAt,
		SourceRoot:       s.SourceRoot,
		RootMerkleHash:   s.RootMerkleHash.Bytes(),
		TotalFiles:       s.TotalFiles,
		TotalBytes:       s.TotalBytes,
		ParentSnapshotID: s.ParentSnapshotID,
		Committed:        s.Committed,
	}
	return msgpack.Marshal(w)
}

func decodeSnapshot(b []byte) (Snapshot, error) {
	var w snapshotWire
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ID:               w.ID,
		Description:      w.Description,
		CreatedAt:        w.CreatedAt,
		SourceRoot:       w.SourceRoot,
		RootMerkleHash:   hashFromBytes(w.RootMerkleHash),
		TotalFiles:       w.TotalFiles,
		TotalBytes:       w.TotalBytes,
		ParentSnapshotID: w.ParentSnapshotID,
		Committed:        w.Committed,
	}, nil
}

type merkleNodeWire struct {
	Hash           []byte
	Kind           int
	Name           string
	Size           int64
	ChildrenHashes [][]byte
	FileID         string
}

func encodeMerkleNode(n MerkleNode) ([]byte, error) {
	w := merkleNodeWire{
		Hash:   n.Hash.Bytes(),
		Kind:   int(n.Kind),
		Name:   n.Name,
		Size:   n.Size,
		FileID: n.FileID,
	}
	w.ChildrenHashes = make([][]byte, len(n.ChildrenHashes))
	for i, c := range n.ChildrenHashes {
		w.ChildrenHashes[i] = c.Bytes()
	}
	return msgpack.Marshal(w)
}

func decodeMerkleNode(b []byte) (MerkleNode, error) {
	var w merkleNodeWire
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return MerkleNode{}, err
	}
	n := MerkleNode{
		Hash:   hashFromBytes(w.Hash),
		Kind:   NodeKind(w.Kind),
		Name:   w.Name,
		Size:   w.Size,
		FileID: w.FileID,
	}
	n.ChildrenHashes = make([]hash.Hash, len(w.ChildrenHashes))
	for i, c := range w.ChildrenHashes {
		n.ChildrenHashes[i] = hashFromBytes(c)
	}
	return n, nil
}

func hashFromBytes(b []byte) hash.Hash {
	var h hash.Hash
	copy(h[:], b)
	return h
}
