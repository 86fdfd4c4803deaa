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

// Package backup implements the top-level backup state machine:
// INIT -> SCAN -> PROCESS -> MERKLE -> COMMIT -> DONE, with a FAILED
// exit reachable from any state before COMMIT. Per-file errors
// accumulate in the job Result and never abort the job; only a
// catalog or store-level failure does.
package backup

import (
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"

	"github.com/carabistouflette/JustSyncIt-sub012/changedetect"
	"github.com/carabistouflette/JustSyncIt-sub012/chunker"
	"github.com/carabistouflette/JustSyncIt-sub012/eventlog"
	"github.com/carabistouflette/JustSyncIt-sub012/progress"
)

// SymlinkStrategy controls how the scanner handles symlinks
// (spec 6, symlink_strategy).
type SymlinkStrategy int

const (
	// SymlinkRecord persists the link target string only; this is
	// the default.
	SymlinkRecord SymlinkStrategy = iota
	// SymlinkFollow treats a symlink-to-regular-file's target as the
	// file's content. Symlinks to directories are recorded rather
	// than followed, to avoid cycles.
	SymlinkFollow
	// SymlinkSkip omits symlinks from the snapshot entirely.
	SymlinkSkip
)

// State names a node in the backup state machine.
type State int

const (
	StateInit State = iota
	StateScan
	StateProcess
	StateMerkle
	StateCommit
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateScan:
		return "scan"
	case StateProcess:
		return "process"
	case StateMerkle:
		return "merkle"
	case StateCommit:
		return "commit"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UnlimitedDepth is the Job.MaxDepth sentinel meaning "no limit",
// matching spec 6's "∞ by default" for max_depth.
const UnlimitedDepth = -1

// Job describes one backup run.
type Job struct {
	SnapshotID       string
	Description      string
	SourceRoot       string
	Incremental      bool
	ParentSnapshotID string

	ChunkerMode   chunker.Mode
	ChunkerParams chunker.Params

	IncludeHidden   bool
	SymlinkStrategy SymlinkStrategy
	MaxDepth        int
	SparseDetection bool

	// Concurrency bounds in-flight file processing goroutines.
	// Zero selects runtime.GOMAXPROCS(0).
	Concurrency int

	Detector changedetect.Detector
	Sink     progress.Sink
	Listener eventlog.Listener
}

func (j *Job) setDefaults() {
	if j.ChunkerParams == (chunker.Params{}) {
		j.ChunkerParams = chunker.DefaultFixedParams()
	}
	if j.Concurrency <= 0 {
		j.Concurrency = runtime.GOMAXPROCS(0)
	}
	if j.MaxDepth == 0 {
		j.MaxDepth = UnlimitedDepth
	}
}

func (j *Job) sink() progress.Sink {
	if j.Sink == nil {
		return progress.Nop{}
	}
	return j.Sink
}

func (j *Job) listener() eventlog.Listener {
	if j.Listener == nil {
		return eventlog.Nop{}
	}
	return j.Listener
}

// FileError records one per-file failure. These accumulate in
// Result.Errors and never abort the job.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Result is the outcome of one backup job.
type Result struct {
	SnapshotID string
	State      State

	TotalFiles int64
	TotalBytes int64

	// NewBytes is the volume of chunk bytes this job actually wrote
	// to the CAS (did not already exist); DedupBytes is the volume
	// that existed already and was skipped. DedupRatio is
	// TotalBytes/NewBytes, spec scenario S2's "dedup ratio reported".
	NewBytes   int64
	DedupBytes int64
	DedupRatio float64

	Errors []FileError
}

// Summary renders a one-line human-readable result, using the
// teacher's go-humanize for byte counts and file counts.
func (r Result) Summary() string {
	return fmt.Sprintf(
		"snapshot %s: %s files, %s, dedup ratio %.2f, %d errors",
		r.SnapshotID,
		humanize.Comma(r.TotalFiles),
		humanize.Bytes(uint64(r.TotalBytes)),
		r.DedupRatio,
		len(r.Errors),
	)
}
