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

// Package eventlog implements the spec's "Event listener" external
// interface - (event_type, level, message, optional_path) - on top of
// a logrus.FieldLogger, the teacher's own structured-logging library.
package eventlog

import (
	"github.com/sirupsen/logrus"
)

// EventType names the kind of occurrence being logged. It is a closed
// set rather than a free-form string so call sites can't typo a new
// event type into existence.
type EventType string

const (
	FileStart         EventType = "file_start"
	FileProcessed     EventType = "file_processed"
	FileError         EventType = "file_error"
	FileSkipped       EventType = "file_skipped"
	ChunkQuarantined  EventType = "chunk_quarantined"
	SnapshotCreated   EventType = "snapshot_created"
	SnapshotCommitted EventType = "snapshot_committed"
	SnapshotFailed    EventType = "snapshot_failed"
	RestoreStarted    EventType = "restore_started"
	RestoreCompleted  EventType = "restore_completed"
	GCSwept           EventType = "gc_swept"
)

// Listener is the collaborator the coordinators notify of structured
// events. It never returns an error: logging must not be able to fail
// a backup or restore job.
type Listener interface {
	Event(eventType EventType, level logrus.Level, message string, path string)
	// WithSnapshot returns a Listener that tags every subsequent
	// event with snapshotID. Coordinators call this once a snapshot
	// id has been allocated, which happens after the caller supplies
	// its Listener.
	WithSnapshot(snapshotID string) Listener
}

// Logrus adapts a logrus.FieldLogger to Listener, tagging every entry
// with the event type and, when given, a snapshot id and path.
type Logrus struct {
	log        logrus.FieldLogger
	snapshotID string
}

// NewLogrus returns a Listener that writes through log, tagging every
// entry with snapshotID (which may be empty, e.g. before a snapshot id
// has been allocated).
func NewLogrus(log logrus.FieldLogger, snapshotID string) *Logrus {
	return &Logrus{log: log, snapshotID: snapshotID}
}

func (l *Logrus) Event(eventType EventType, level logrus.Level, message string, path string) {
	entry := l.log.WithField("event", string(eventType))
	if l.snapshotID != "" {
		entry = entry.WithField("snapshot_id", l.snapshotID)
	}
	if path != "" {
		entry = entry.WithField("path", path)
	}
	entry.Log(level, message)
}

// WithSnapshot returns a Logrus listener writing through the same
// underlying logger, tagged with snapshotID.
func (l *Logrus) WithSnapshot(snapshotID string) Listener {
	return &Logrus{log: l.log, snapshotID: snapshotID}
}

// Nop discards every event. Useful for tests and for callers that
// don't want the ambient logging.
type Nop struct{}

func (Nop) Event(EventType, logrus.Level, string, string) {}

func (Nop) WithSnapshot(string) Listener { return Nop{} }

var (
	_ Listener = (*Logrus)(nil)
	_ Listener = Nop{}
)
