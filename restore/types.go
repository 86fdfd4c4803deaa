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

// Package restore implements the Restore Coordinator: it reads a
// committed snapshot's file list, pulls chunks from the CAS in order,
// and writes and verifies files at a target directory.
package restore

import (
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"

	"github.com/carabistouflette/JustSyncIt-sub012/eventlog"
	"github.com/carabistouflette/JustSyncIt-sub012/progress"
)

// ExistingDirPolicy controls what happens when the target directory
// is not empty.
type ExistingDirPolicy int

const (
	// FailIfNotEmpty refuses to restore into a non-empty target. This
	// is the default.
	FailIfNotEmpty ExistingDirPolicy = iota
	// Overwrite restores over any existing files at the target.
	Overwrite
	// BackupExisting moves any pre-existing file aside (appending a
	// ".bak" suffix) before writing the restored one in its place.
	BackupExisting
)

// DefaultMaxChunkRetries bounds the backoff.Retry loop around a
// transient CAS.Get failure before the chunk is given up on.
const DefaultMaxChunkRetries = 5

// Job describes one restore run.
type Job struct {
	SnapshotID string
	TargetDir  string

	ExistingDir ExistingDirPolicy

	// Include/Exclude are doublestar glob patterns evaluated against
	// each FileRecord's relative path. A record restores only if it
	// matches Include (when non-empty) and matches none of Exclude.
	Include []string
	Exclude []string

	NoVerify             bool
	NoPreserveAttributes bool

	MaxChunkRetries int
	Concurrency     int

	Sink     progress.Sink
	Listener eventlog.Listener
}

func (j *Job) setDefaults() {
	if j.MaxChunkRetries <= 0 {
		j.MaxChunkRetries = DefaultMaxChunkRetries
	}
	if j.Concurrency <= 0 {
		j.Concurrency = runtime.GOMAXPROCS(0)
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

// FileError records one per-file failure, including a chunk integrity
// error. These accumulate in Result.Errors and never abort the
// restore; only a failed snapshot lookup, target preparation, file
// listing or directory creation, or context cancellation does.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Result is the outcome of one restore job.
type Result struct {
	SnapshotID   string
	FilesWritten int64
	BytesWritten int64
	Errors       []FileError
}

// Summary renders a one-line human-readable result.
func (r Result) Summary() string {
	return fmt.Sprintf(
		"snapshot %s: restored %s files, %s, %d errors",
		r.SnapshotID,
		humanize.Comma(r.FilesWritten),
		humanize.Bytes(uint64(r.BytesWritten)),
		len(r.Errors),
	)
}
