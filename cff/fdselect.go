// seehuhn.de/go/sfnt - a library for reading and writing font files
// Copyright (C) 2022  Jochen Voss <voss@seehuhn.de>
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
	"sort"

	"github.com/go-glyph/otfcore/glyph"
	"github.com/go-glyph/otfcore/parser"
)

// FDSelectFn maps a glyph ID to the index of the Font DICT (and therefore
// the Private DICT / local subroutine set) that applies to it. For
// non-CID-keyed fonts this always returns 0.
type FDSelectFn func(glyph.ID) int

func readFDSelect(r *parser.Reader, nGlyphs, nPrivate int) (FDSelectFn, error) {
	format, err := r.Uint8()
	if err != nil {
		return nil, invalid("truncated FDSelect")
	}

	switch format {
	case 0:
		buf, err := r.Bytes(nGlyphs)
		if err != nil {
			return nil, invalid("truncated FDSelect format 0")
		}
		for _, fd := range buf {
			if int(fd) >= nPrivate {
				return nil, invalid("FDSelect out of range")
			}
		}
		return func(gid glyph.ID) int {
			if int(gid) >= len(buf) {
				return 0
			}
			return int(buf[gid])
		}, nil

	case 3:
		nRanges, err := r.Uint16()
		if err != nil {
			return nil, invalid("truncated FDSelect format 3")
		}
		if nGlyphs > 0 && nRanges == 0 {
			return nil, invalid("no FDSelect ranges")
		}

		var end []glyph.ID
		var fdIdx []uint8
		prev := uint16(0)
		for i := 0; i < int(nRanges); i++ {
			first, err := r.Uint16()
			if err != nil {
				return nil, invalid("truncated FDSelect range")
			}
			if i > 0 && first <= prev || i == 0 && first != 0 {
				return nil, invalid("FDSelect ranges out of order")
			}
			fd, err := r.Uint8()
			if err != nil {
				return nil, invalid("truncated FDSelect range")
			}
			if int(fd) >= nPrivate {
				return nil, invalid("FDSelect out of range")
			}
			if i > 0 {
				end = append(end, glyph.ID(first))
			}
			fdIdx = append(fdIdx, fd)
			prev = first
		}
		sentinel, err := r.Uint16()
		if err != nil {
			return nil, invalid("truncated FDSelect sentinel")
		}
		if int(sentinel) != nGlyphs {
			return nil, invalid("wrong FDSelect sentinel")
		}
		end = append(end, glyph.ID(nGlyphs))

		return func(gid glyph.ID) int {
			idx := sort.Search(len(end), func(i int) bool { return gid < end[i] })
			if idx >= len(fdIdx) {
				return 0
			}
			return int(fdIdx[idx])
		}, nil

	default:
		return nil, unsupported("FDSelect format")
	}
}
