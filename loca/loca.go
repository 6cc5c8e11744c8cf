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

// Package loca reads the "loca" table: the glyph location index mapping a
// glyph ID to its byte range within the "glyf" table.
//
// https://docs.microsoft.com/en-us/typography/opentype/spec/loca
package loca

import (
	"github.com/go-glyph/otfcore/glyph"
	"github.com/go-glyph/otfcore/parser"
)

// Index is the decoded glyph location index: off[g] and off[g+1] bound the
// byte range of glyph g within the "glyf" table.  Offsets are monotonically
// non-decreasing; a zero-length range denotes an empty glyph.
type Index struct {
	off []uint32
}

// Decode reads a "loca" table.  format is the head table's
// indexToLocFormat: 0 selects 16-bit offsets (multiplied by 2 on read), 1
// selects 32-bit offsets.  numGlyphs is the number of glyphs in the font;
// the table must contain numGlyphs+1 entries.
func Decode(data []byte, format int16, numGlyphs int) (*Index, error) {
	if numGlyphs < 0 {
		return nil, &parser.InvalidFontError{SubSystem: "loca", Reason: "negative glyph count"}
	}
	n := numGlyphs + 1
	r := parser.New(data)

	off := make([]uint32, n)
	switch format {
	case 0:
		for i := 0; i < n; i++ {
			v, err := r.Uint16()
			if err != nil {
				return nil, &parser.InvalidFontError{SubSystem: "loca", Reason: "table too short"}
			}
			off[i] = uint32(v) * 2
		}
	case 1:
		for i := 0; i < n; i++ {
			v, err := r.Uint32()
			if err != nil {
				return nil, &parser.InvalidFontError{SubSystem: "loca", Reason: "table too short"}
			}
			off[i] = v
		}
	default:
		return nil, &parser.InvalidFontError{SubSystem: "loca", Reason: "invalid indexToLocFormat"}
	}

	for i := 1; i < n; i++ {
		if off[i] < off[i-1] {
			return nil, &parser.InvalidFontError{SubSystem: "loca", Reason: "offsets not monotonic"}
		}
	}

	return &Index{off: off}, nil
}

// NumGlyphs returns the number of glyphs covered by the index.
func (ix *Index) NumGlyphs() int {
	if ix == nil || len(ix.off) == 0 {
		return 0
	}
	return len(ix.off) - 1
}

// Locate returns the byte range of glyph gid within the "glyf" table.  ok is
// false when gid is out of range or the range has zero length (an empty
// glyph).
func (ix *Index) Locate(gid glyph.ID) (offset, length uint32, ok bool) {
	g := int(gid)
	if ix == nil || g < 0 || g+1 >= len(ix.off) {
		return 0, 0, false
	}
	start, end := ix.off[g], ix.off[g+1]
	if end <= start {
		return 0, 0, false
	}
	return start, end - start, true
}
