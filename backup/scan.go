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

package backup

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/carabistouflette/JustSyncIt-sub012/catalog"
	"github.com/carabistouflette/JustSyncIt-sub012/progress"
)

// scanEntry is one filesystem entry a SCAN pass resolves, ready for
// PROCESS to turn into a catalog.FileRecord.
type scanEntry struct {
	RelPath    string
	AbsPath    string
	Type       catalog.FileType
	Mode       uint32
	Mtime      time.Time
	LinkTarget string
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func depthOf(relPath string) int {
	if relPath == "." || relPath == "" {
		return 0
	}
	return strings.Count(relPath, string(filepath.Separator)) + 1
}

// scanFull walks the entire source root, honoring IncludeHidden,
// SymlinkStrategy and MaxDepth, and returns one scanEntry per file,
// symlink and directory encountered (the root itself excluded).
func (c *Coordinator) scanFull(job Job, sink progress.Sink) ([]scanEntry, error) {
	var entries []scanEntry
	err := filepath.WalkDir(job.SourceRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == job.SourceRoot {
			return nil
		}

		rel, err := filepath.Rel(job.SourceRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !job.IncludeHidden && isHiddenName(d.Name()) {
			sink.OnFileSkipped(rel, "hidden")
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if job.MaxDepth != UnlimitedDepth && depthOf(rel) > job.MaxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		entry, include, err := c.resolveEntry(job, p, rel, d, sink)
		if err != nil {
			return err
		}
		if include {
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("backup: scan %s: %w", job.SourceRoot, err)
	}
	return entries, nil
}

// scanPaths resolves an explicit set of relative paths (the changed
// set an incremental job's Detector returned) into scanEntry values,
// without walking the rest of the tree.
func (c *Coordinator) scanPaths(job Job, relPaths []string, sink progress.Sink) ([]scanEntry, error) {
	entries := make([]scanEntry, 0, len(relPaths))
	for _, rel := range relPaths {
		abs := filepath.Join(job.SourceRoot, filepath.FromSlash(rel))
		lst, err := os.Lstat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				// Raced with a concurrent delete between Detector.Changed
				// and here; skip it rather than fail the whole job.
				continue
			}
			return nil, fmt.Errorf("backup: stat %s: %w", abs, err)
		}
		entry, include, err := c.resolveEntry(job, abs, rel, fs.FileInfoToDirEntry(lst), sink)
		if err != nil {
			return nil, err
		}
		if include {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (c *Coordinator) resolveEntry(job Job, absPath, relPath string, d fs.DirEntry, sink progress.Sink) (scanEntry, bool, error) {
	info, err := d.Info()
	if err != nil {
		return scanEntry{}, false, err
	}

	if d.IsDir() {
		return scanEntry{
			RelPath: relPath,
			AbsPath: absPath,
			Type:    catalog.Directory,
			Mode:    uint32(info.Mode().Perm()),
			Mtime:   info.ModTime(),
		}, true, nil
	}

	if info.Mode()&os.ModeSymlink != 0 {
		switch job.SymlinkStrategy {
		case SymlinkSkip:
			sink.OnFileSkipped(relPath, "symlink")
			return scanEntry{}, false, nil
		case SymlinkFollow:
			target, err := filepath.EvalSymlinks(absPath)
			if err != nil {
				return scanEntry{}, false, err
			}
			targetInfo, err := os.Stat(target)
			if err != nil {
				return scanEntry{}, false, err
			}
			if targetInfo.IsDir() {
				// Following a symlink into a directory risks cycles;
				// record it instead of recursing.
				return c.recordSymlink(absPath, relPath, info)
			}
			return scanEntry{
				RelPath: relPath,
				AbsPath: absPath,
				Type:    catalog.Regular,
				Mode:    uint32(targetInfo.Mode().Perm()),
				Mtime:   targetInfo.ModTime(),
			}, true, nil
		default:
			return c.recordSymlink(absPath, relPath, info)
		}
	}

	return scanEntry{
		RelPath: relPath,
		AbsPath: absPath,
		Type:    catalog.Regular,
		Mode:    uint32(info.Mode().Perm()),
		Mtime:   info.ModTime(),
	}, true, nil
}

func (c *Coordinator) recordSymlink(absPath, relPath string, info fs.FileInfo) (scanEntry, bool, error) {
	target, err := os.Readlink(absPath)
	if err != nil {
		return scanEntry{}, false, err
	}
	return scanEntry{
		RelPath:    relPath,
		AbsPath:    absPath,
		Type:       catalog.Symlink,
		Mode:       uint32(info.Mode().Perm()),
		Mtime:      info.ModTime(),
		LinkTarget: target,
	}, true, nil
}
