// seehuhn.de/go/sfnt - a library for reading and writing font files
// Copyright (C) 2021  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package cff

import (
	"github.com/go-glyph/otfcore/parser"
)

// cffIndex is a decoded CFF INDEX structure: an ordered list of byte
// strings (Name INDEX entries, DICT blobs, CharStrings, local/global
// subroutines).
type cffIndex [][]byte

// readIndex reads a CFF1-style INDEX (a 16-bit element count) starting at
// the reader's current position.
func readIndex(r *parser.Reader) (cffIndex, error) {
	count, err := r.Uint16()
	if err != nil {
		return nil, invalid("truncated INDEX count")
	}
	return readIndexBody(r, int(count))
}

// readIndex2 reads a CFF2-style INDEX (a 32-bit element count).
func readIndex2(r *parser.Reader) (cffIndex, error) {
	count, err := r.Uint32()
	if err != nil {
		return nil, invalid("truncated INDEX count")
	}
	return readIndexBody(r, int(count))
}

func readIndexBody(r *parser.Reader, count int) (cffIndex, error) {
	if count == 0 {
		return nil, nil
	}

	offSize, err := r.Uint8()
	if err != nil || offSize < 1 || offSize > 4 {
		return nil, invalid("invalid INDEX offSize")
	}

	readOffset := func() (uint32, error) {
		var v uint32
		for i := 0; i < int(offSize); i++ {
			b, err := r.Uint8()
			if err != nil {
				return 0, err
			}
			v = v<<8 | uint32(b)
		}
		return v, nil
	}

	offsets := make([]uint32, count+1)
	for i := range offsets {
		v, err := readOffset()
		if err != nil {
			return nil, invalid("truncated INDEX offset table")
		}
		offsets[i] = v
	}
	if offsets[0] != 1 {
		return nil, invalid("invalid INDEX first offset")
	}

	dataStart := r.Pos()
	out := make(cffIndex, count)
	for i := 0; i < count; i++ {
		start := offsets[i]
		end := offsets[i+1]
		if end < start {
			return nil, invalid("invalid INDEX offset order")
		}
		sub, err := r.Slice(dataStart+int(start)-1, int(end-start))
		if err != nil {
			return nil, invalid("INDEX data out of range")
		}
		blob, _ := sub.Bytes(sub.Len())
		out[i] = blob
	}
	if err := r.Seek(dataStart + int(offsets[count]) - 1); err != nil {
		return nil, invalid("INDEX data out of range")
	}
	return out, nil
}
