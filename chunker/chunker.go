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

// Package chunker turns a byte stream into a sequence of
// variable-sized pieces at content-defined or fixed-size boundaries.
// A Sequence is lazy, finite and single-pass: callers drive it with
// Next until io.EOF, the same way go/store/prolly/tree drives a
// Cursor with Advance rather than materializing a whole tree at once.
package chunker

import (
	"context"
	"errors"
	"io"
)

// Mode selects how chunk boundaries are chosen. The mode is fixed per
// file and recorded alongside the file's chunk list.
type Mode int

const (
	// FixedSize cuts every Params.FixedSize bytes, except the final
	// chunk of a stream which may be shorter.
	FixedSize Mode = iota
	// ContentDefined cuts at rolling-hash boundaries (FastCDC-style),
	// giving stable boundaries under insertion/deletion edits.
	ContentDefined
)

func (m Mode) String() string {
	switch m {
	case FixedSize:
		return "fixed"
	case ContentDefined:
		return "cdc"
	default:
		return "unknown"
	}
}

// Params holds the parameters for one chunking run. Min/Target/Max
// and Mask apply only to ContentDefined mode; FixedSize applies only
// to FixedSize mode. A store fixes these once; changing them for
// existing content defeats deduplication against chunks cut under the
// old parameters.
type Params struct {
	FixedSize int

	Min    int
	Target int
	Max    int
	Mask   uint64
}

// DefaultFixedParams returns the spec's default fixed-size parameters
// (64 KiB chunks).
func DefaultFixedParams() Params {
	return Params{FixedSize: 64 * 1024}
}

// DefaultCDCParams returns FastCDC-ish defaults: an 8 KiB target with
// a 2 KiB floor and a 64 KiB ceiling.
func DefaultCDCParams() Params {
	const target = 8 * 1024
	return Params{
		Min:    2 * 1024,
		Target: target,
		Max:    64 * 1024,
		Mask:   uint64(target - 1),
	}
}

// Piece describes one chunk's position within the stream it was cut
// from. Pieces from a single Sequence form a contiguous partition of
// [0, total length).
type Piece struct {
	Offset int64
	Length int64
}

// ErrBadParams is returned by New when Params are inconsistent with
// Mode (e.g. Max < Min).
var ErrBadParams = errors.New("chunker: invalid parameters")

// Sequence is a lazy, non-restartable iterator over a stream's
// chunks. Next returns io.EOF (with a zero Piece and nil bytes) once
// the stream is exhausted. A Sequence must not be reused after EOF or
// after any error.
type Sequence interface {
	Next(ctx context.Context) (Piece, []byte, error)
}

// New returns a Sequence over r using the given mode and parameters.
func New(mode Mode, p Params, r io.Reader) (Sequence, error) {
	switch mode {
	case FixedSize:
		if p.FixedSize <= 0 {
			return nil, ErrBadParams
		}
		return &fixedSequence{r: r, size: p.FixedSize}, nil
	case ContentDefined:
		if p.Min <= 0 || p.Max < p.Min || p.Target <= 0 {
			return nil, ErrBadParams
		}
		return newCDCSequence(r, p), nil
	default:
		return nil, ErrBadParams
	}
}
