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
	"bufio"
	"context"
	"io"

	"github.com/kch42/buzhash"
)

// rollingWindow is the width, in bytes, of the buzhash window used to
// pick content-defined boundaries. It is independent of Min/Target/Max
// and need not be recorded per store since it only affects where
// boundaries fall, not the chunk format.
const rollingWindow = 48

type cdcSequence struct {
	br     *bufio.Reader
	p      Params
	hasher *buzhash.BuzHash
	offset int64
	eof    bool
}

func newCDCSequence(r io.Reader, p Params) *cdcSequence {
	return &cdcSequence{
		br:     bufio.NewReaderSize(r, 64*1024),
		p:      p,
		hasher: buzhash.NewBuzHash(rollingWindow),
	}
}

func (c *cdcSequence) Next(ctx context.Context) (Piece, []byte, error) {
	if c.eof {
		return Piece{}, nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return Piece{}, nil, err
	}

	c.hasher.Reset()
	buf := make([]byte, 0, c.p.Target)

	for {
		b, err := c.br.ReadByte()
		if err == io.EOF {
			c.eof = true
			break
		}
		if err != nil {
			return Piece{}, nil, err
		}
		buf = append(buf, b)

		sum := c.hasher.HashByte(b)
		n := len(buf)
		if n >= c.p.Max {
			break
		}
		if n >= c.p.Min && (uint64(sum)&c.p.Mask) == 0 {
			break
		}
	}

	if len(buf) == 0 {
		return Piece{}, nil, io.EOF
	}

	piece := Piece{Offset: c.offset, Length: int64(len(buf))}
	c.offset += int64(len(buf))
	return piece, buf, nil
}
