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
	"github.com/go-glyph/otfcore/glyph"
	"github.com/go-glyph/otfcore/outline"
	"github.com/go-glyph/otfcore/parser"
	"github.com/go-glyph/otfcore/varstore"
)

// fd2Entry is the CFF2 analogue of fdEntry: CFF2 Private DICTs carry no
// nominalWidthX/defaultWidthX (CFF2 CharStrings never encode a width
// operand), so only the local subroutine index survives.
type fd2Entry struct {
	localSubrs Subrs
}

// Font2 is a decoded CFF2 table, the outline source for variable OpenType
// fonts (the "CFF2" entry of an otf collection, paired with a glyf-less
// sfnt). Unlike Font1, width is never read from the CharString: advance
// widths for variable CFF2 fonts come from hmtx/HVAR, outside this package.
type Font2 struct {
	charStrings cffIndex
	globalSubrs Subrs
	fd          []fd2Entry
	fdSelect    FDSelectFn
	fontMatrix  [6]float64
	varStore    *varstore.Store
}

// NumGlyphs returns the number of CharStrings in the font.
func (f *Font2) NumGlyphs() int { return len(f.charStrings) }

// FontMatrix returns the font's FontMatrix operand.
func (f *Font2) FontMatrix() [6]float64 { return f.fontMatrix }

// VariationStore returns the Item Variation Store embedded in the CFF2
// table, or nil if the table declared none (a CFF2 table with no variation
// data behaves as a single static instance).
func (f *Font2) VariationStore() *varstore.Store { return f.varStore }

// GlyphContours executes gid's CharString at the given normalized variation
// coordinates (nil or empty selects the font's default instance) and
// returns its outline. ok is false only if gid is out of range.
func (f *Font2) GlyphContours(gid glyph.ID, coords []float64) (contours []outline.Contour, ok bool) {
	if int(gid) >= len(f.charStrings) {
		return nil, false
	}
	fd := f.fd[f.fdSelect(gid)]
	contours, _ = RunCharString(f.charStrings[gid], &ExecContext{
		LocalSubrs:  fd.localSubrs,
		GlobalSubrs: f.globalSubrs,
		CFF2:        true,
		Variation: &VariationContext{
			Store:  f.varStore,
			Coords: coords,
		},
	})
	return contours, true
}

// ReadCFF2 parses a CFF2 table, including its embedded Variation Store
// (Top DICT operator vstore) if present. A CFF2 table with no vstore
// operand is a valid, non-variable table; "blend" in any of its
// CharStrings then contributes no deltas.
func ReadCFF2(data []byte) (*Font2, error) {
	r := parser.New(data)

	hdr, err := r.Bytes(3)
	if err != nil {
		return nil, invalid("truncated header")
	}
	major, hdrSize := hdr[0], hdr[2]
	if major != 2 {
		return nil, unsupported("major version != 2 passed to ReadCFF2")
	}

	topDictLength, err := r.Uint16()
	if err != nil {
		return nil, invalid("truncated header")
	}
	if err := r.Seek(int(hdrSize)); err != nil {
		return nil, invalid("header size out of range")
	}

	topDictData, err := r.Bytes(int(topDictLength))
	if err != nil {
		return nil, invalid("truncated Top DICT")
	}
	topDict, err := decodeDict(topDictData)
	if err != nil {
		return nil, err
	}

	globalSubrs, err := readIndex2(r)
	if err != nil {
		return nil, err
	}

	charStringsOffs := int(topDict.getInt(opCharStrings, 0))
	charStrings, err := readIndexAt2(data, charStringsOffs)
	if err != nil {
		return nil, err
	}
	nGlyphs := len(charStrings)
	if nGlyphs == 0 {
		return nil, invalid("no charstrings")
	}

	f := &Font2{
		charStrings: charStrings,
		globalSubrs: Subrs(globalSubrs),
		fontMatrix:  topDict.getFontMatrix(opFontMatrix),
	}

	if vstoreOffs := int(topDict.getInt(opVStore, 0)); vstoreOffs != 0 {
		vsr, err := parser.New(data).SliceFrom(vstoreOffs)
		if err != nil {
			return nil, invalid("Variation Store out of range")
		}
		// the Variation Store is itself prefixed by a 16-bit length, per
		// the CFF2 "vstore" operand convention (distinct from HVAR/MVAR,
		// which point directly at the ItemVariationStore sub-table).
		vsLen, err := vsr.Uint16()
		if err != nil {
			return nil, invalid("truncated Variation Store")
		}
		vsBuf, err := vsr.Bytes(int(vsLen))
		if err != nil {
			return nil, invalid("truncated Variation Store")
		}
		store, err := varstore.Decode(vsBuf)
		if err != nil {
			return nil, err
		}
		f.varStore = store
	}

	fdArrayOffs := int(topDict.getInt(opFDArray, 0))
	fdArrayIndex, err := readIndexAt2(data, fdArrayOffs)
	if err != nil {
		return nil, err
	}
	if len(fdArrayIndex) == 0 {
		return nil, invalid("no Font DICTs")
	}
	for _, fdBlob := range fdArrayIndex {
		fontDict, err := decodeDict(fdBlob)
		if err != nil {
			return nil, err
		}
		fd, err := readPrivate2(data, fontDict)
		if err != nil {
			return nil, err
		}
		f.fd = append(f.fd, fd)
	}

	if fdSelectOffs := int(topDict.getInt(opFDSelect, 0)); fdSelectOffs != 0 {
		fsr, err := r.SliceFrom(fdSelectOffs)
		if err != nil {
			return nil, invalid("FDSelect out of range")
		}
		f.fdSelect, err = readFDSelect(fsr, nGlyphs, len(f.fd))
		if err != nil {
			return nil, err
		}
	} else {
		// CFF2 permits a single Font DICT with no FDSelect at all: every
		// glyph uses Font DICT 0.
		f.fdSelect = func(glyph.ID) int { return 0 }
	}

	return f, nil
}

// readPrivate2 reads a CFF2 Private DICT: unlike CFF1, it carries no
// nominalWidthX/defaultWidthX, only an optional local Subrs INDEX.
func readPrivate2(data []byte, dict cffDict) (fd2Entry, error) {
	ops := dict[opPrivate]
	if len(ops) != 2 {
		return fd2Entry{}, nil
	}
	size, sizeOK := ops[0].(int32)
	offset, offOK := ops[1].(int32)
	if !sizeOK || !offOK || size < 0 || offset < 0 {
		return fd2Entry{}, invalid("invalid Private DICT descriptor")
	}
	if int(offset)+int(size) > len(data) {
		return fd2Entry{}, invalid("Private DICT out of range")
	}
	priv, err := decodeDict(data[offset : int(offset)+int(size)])
	if err != nil {
		return fd2Entry{}, err
	}

	var fd fd2Entry
	if subrOps := priv[opSubrs]; len(subrOps) == 1 {
		rel, ok := subrOps[0].(int32)
		if ok && rel >= 0 {
			subrs, err := readIndexAt2(data, int(offset)+int(rel))
			if err != nil {
				return fd2Entry{}, err
			}
			fd.localSubrs = Subrs(subrs)
		}
	}
	return fd, nil
}

// readIndexAt2 reads a CFF2-style (32-bit count) INDEX located at an
// absolute byte offset into data.
func readIndexAt2(data []byte, offset int) (cffIndex, error) {
	if offset <= 0 || offset > len(data) {
		return nil, invalid("INDEX offset out of range")
	}
	return readIndex2(parser.New(data[offset:]))
}
