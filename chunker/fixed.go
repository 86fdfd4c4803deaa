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

package chunker

import (
	"context"
	"io"
)

type fixedSequence struct {
	r      io.Reader
	size   int
	offset int64
	done   bool
}

func (f *fixedSequence) Next(ctx context.Context) (Piece, []byte, error) {
	if f.done {
		return Piece{}, nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return Piece{}, nil, err
	}

	buf := make([]byte, f.size)
	n, err := io.ReadFull(f.r, buf)
	switch {
	case err == io.ErrUnexpectedEOF:
		// Final, short chunk.
		f.done = true
		err = nil
	case err == io.EOF:
		f.done = true
		if n == 0 {
			return Piece{}, nil, io.EOF
		}
	case err != nil:
		return Piece{}, nil, err
	}

	buf = buf[:n]
	p := Piece{Offset: f.offset, Length: int64(n)}
	f.offset += int64(n)
	return p, buf, nil
}
