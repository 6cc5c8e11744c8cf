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
	"github.com/go-glyph/otfcore/glyph"
	"github.com/go-glyph/otfcore/outline"
	"github.com/go-glyph/otfcore/parser"
)

// fdEntry bundles everything a glyph needs from its Font DICT / Private
// DICT to execute its CharString: the local subroutine index and the two
// width-related operands used by the "w?" convention (§4.G).
type fdEntry struct {
	localSubrs    Subrs
	nominalWidthX int32
	defaultWidthX int32
}

// Font1 is a decoded CFF (CFF1) table: CharStrings plus everything needed
// to execute them, trimmed to what the interpreter needs (no glyph names,
// no built-in encoding or charset — this module looks glyphs up by GID,
// never by name or character code).
type Font1 struct {
	charStrings cffIndex
	globalSubrs Subrs
	fd          []fdEntry
	fdSelect    FDSelectFn
	fontMatrix  [6]float64
}

// NumGlyphs returns the number of CharStrings in the font.
func (f *Font1) NumGlyphs() int { return len(f.charStrings) }

// FontMatrix returns the font's FontMatrix operand (default: the standard
// 1/1000 em scale), mapping CharString space to text space.
func (f *Font1) FontMatrix() [6]float64 { return f.fontMatrix }

// GlyphContours executes gid's CharString and returns its outline and
// advance width. ok is false only if gid is out of range; an empty
// CharString yields a zero-length (but valid) contour list, and a malformed
// one yields the contours built before the fault, per the CharString VM's
// permissive failure policy.
func (f *Font1) GlyphContours(gid glyph.ID) (contours []outline.Contour, width int32, ok bool) {
	if int(gid) >= len(f.charStrings) {
		return nil, 0, false
	}
	fd := f.fd[f.fdSelect(gid)]
	contours, width = RunCharString(f.charStrings[gid], &ExecContext{
		LocalSubrs:    fd.localSubrs,
		GlobalSubrs:   f.globalSubrs,
		NominalWidthX: fd.nominalWidthX,
		DefaultWidthX: fd.defaultWidthX,
	})
	return contours, width, true
}

// ReadCFF1 parses a CFF (Type 2 CharString, CFF version 1) table.
func ReadCFF1(data []byte) (*Font1, error) {
	r := parser.New(data)

	hdr, err := r.Uint32()
	if err != nil {
		return nil, invalid("truncated header")
	}
	major := hdr >> 24
	hdrSize := (hdr >> 8) & 0xFF
	if major == 2 {
		return nil, unsupported("CFF2 data passed to ReadCFF1")
	} else if major != 1 {
		return nil, invalid("bad CFF header")
	}

	if err := r.Seek(int(hdrSize)); err != nil {
		return nil, invalid("header size out of range")
	}

	names, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, invalid("empty Name INDEX")
	} else if len(names) > 1 {
		return nil, unsupported("CFF font sets with more than one font")
	}

	topDictIndex, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	if len(topDictIndex) != 1 {
		return nil, invalid("wrong number of top dicts")
	}

	// the String INDEX is only needed to resolve glyph names, which this
	// module never does; skip over it.
	if _, err := readIndex(r); err != nil {
		return nil, err
	}

	topDict, err := decodeDict(topDictIndex[0])
	if err != nil {
		return nil, err
	}
	if topDict.getInt(opCharstringType, 2) != 2 {
		return nil, unsupported("CharstringType != 2")
	}

	globalSubrs, err := readIndex(r)
	if err != nil {
		return nil, err
	}

	charStringsOffs := int(topDict.getInt(opCharStrings, 0))
	charStrings, err := readIndexAt(data, charStringsOffs)
	if err != nil {
		return nil, err
	}
	nGlyphs := len(charStrings)
	if nGlyphs == 0 {
		return nil, invalid("no charstrings")
	}

	f := &Font1{
		charStrings: charStrings,
		globalSubrs: Subrs(globalSubrs),
		fontMatrix:  topDict.getFontMatrix(opFontMatrix),
	}

	_, isCIDFont := topDict[opROS]
	if isCIDFont {
		fdArrayOffs := int(topDict.getInt(opFDArray, 0))
		fdArrayIndex, err := readIndexAt(data, fdArrayOffs)
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
			fd, err := readPrivate(data, fontDict)
			if err != nil {
				return nil, err
			}
			f.fd = append(f.fd, fd)
		}

		fdSelectOffs := int(topDict.getInt(opFDSelect, 0))
		if fdSelectOffs < 4 {
			return nil, invalid("missing FDSelect")
		}
		fsr, err := r.SliceFrom(fdSelectOffs)
		if err != nil {
			return nil, invalid("FDSelect out of range")
		}
		f.fdSelect, err = readFDSelect(fsr, nGlyphs, len(f.fd))
		if err != nil {
			return nil, err
		}
	} else {
		fd, err := readPrivate(data, topDict)
		if err != nil {
			return nil, err
		}
		f.fd = []fdEntry{fd}
		f.fdSelect = func(glyph.ID) int { return 0 }
	}

	return f, nil
}

// readPrivate reads the Private DICT referenced by dict's opPrivate entry
// (size, offset) and, if present, the local subroutine INDEX nested inside
// it.
func readPrivate(data []byte, dict cffDict) (fdEntry, error) {
	ops := dict[opPrivate]
	if len(ops) != 2 {
		return fdEntry{}, nil // no Private DICT: defaults apply
	}
	size, sizeOK := ops[0].(int32)
	offset, offOK := ops[1].(int32)
	if !sizeOK || !offOK || size < 0 || offset < 0 {
		return fdEntry{}, invalid("invalid Private DICT descriptor")
	}
	if int(offset)+int(size) > len(data) {
		return fdEntry{}, invalid("Private DICT out of range")
	}
	privData := data[offset : int(offset)+int(size)]
	priv, err := decodeDict(privData)
	if err != nil {
		return fdEntry{}, err
	}

	fd := fdEntry{
		nominalWidthX: priv.getInt(opNominalWidthX, 0),
		defaultWidthX: priv.getInt(opDefaultWidthX, 0),
	}

	if subrOps := priv[opSubrs]; len(subrOps) == 1 {
		rel, ok := subrOps[0].(int32)
		if ok && rel >= 0 {
			subrsOffs := int(offset) + int(rel)
			subrs, err := readIndexAt(data, subrsOffs)
			if err != nil {
				return fdEntry{}, err
			}
			fd.localSubrs = Subrs(subrs)
		}
	}
	return fd, nil
}

// readIndexAt reads an INDEX structure located at an absolute byte offset
// into data, as Top DICT operands reference CharStrings/FDArray/Subrs.
func readIndexAt(data []byte, offset int) (cffIndex, error) {
	if offset <= 0 || offset > len(data) {
		return nil, invalid("INDEX offset out of range")
	}
	return readIndex(parser.New(data[offset:]))
}
