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

// Package progress implements the spec's "Progress sink" external
// interface. The display itself - a TUI bar, a web push, a plain log
// line - is an external collaborator out of this module's scope; this
// package only defines the narrow contract the coordinators drive.
package progress

// Sink receives per-file and aggregate progress notifications during
// a backup or restore job. All methods must return promptly:
// coordinators call them inline on the hot path, never from a
// separate goroutine.
type Sink interface {
	OnFileStart(path string)
	OnFileProcessed(path string, size int64)
	OnFileError(path string, err error)
	OnFileSkipped(path string, reason string)
	OnProgress(filesDone, filesTotal int64, bytesDone, bytesTotal int64)
}

// Nop discards every notification. It is the default Sink so callers
// that don't care about progress don't need a nil check at every call
// site.
type Nop struct{}

func (Nop) OnFileStart(string)                                {}
func (Nop) OnFileProcessed(string, int64)                      {}
func (Nop) OnFileError(string, error)                          {}
func (Nop) OnFileSkipped(string, string)                       {}
func (Nop) OnProgress(filesDone, filesTotal, bytesDone, bytesTotal int64) {}

var _ Sink = Nop{}
