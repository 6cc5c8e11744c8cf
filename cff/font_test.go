// seehuhn.de/go/sfnt - a library for reading and writing font files
// Copyright (C) 2025  Jochen Voss <voss@seehuhn.de>
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
	"testing"

	"github.com/go-glyph/otfcore/glyph"
)

// int16Op encodes a DICT/CharString operand via the fixed-width 3-byte
// "28 hi lo" form, so a fixture's byte layout doesn't shift when an offset
// operand's value changes.
func int16Op(v int) []byte {
	return []byte{28, byte(v >> 8), byte(v)}
}

// buildTopDict1 builds a non-CID CFF1 Top DICT: Private (size, offset),
// CharStrings (offset). opPrivate, opCharStrings, opDefaultWidthX and
// opNominalWidthX are all single-byte operators, so no two-byte escape is
// needed here.
func buildTopDict1(privateSize, privateOffset, csOffset int) []byte {
	var d []byte
	d = append(d, int16Op(privateSize)...)
	d = append(d, int16Op(privateOffset)...)
	d = append(d, byte(opPrivate))
	d = append(d, int16Op(csOffset)...)
	d = append(d, byte(opCharStrings))
	return d
}

// buildMinimalCFF1 assembles a non-CID, single-Private-DICT CFF1 table
// containing one CharString and no local subroutines.
func buildMinimalCFF1(charstring []byte) []byte {
	header := []byte{1, 0, 4, 4}
	nameIndex := encodeIndex([][]byte{[]byte("Test")})
	stringIndex := encodeIndex(nil)
	globalSubrIndex := encodeIndex(nil)
	charStringsIndex := encodeIndex([][]byte{charstring})

	var privateDict []byte
	privateDict = append(privateDict, int16Op(0)...)
	privateDict = append(privateDict, byte(opDefaultWidthX))
	privateDict = append(privateDict, int16Op(0)...)
	privateDict = append(privateDict, byte(opNominalWidthX))

	assemble := func(topDict []byte) []byte {
		topDictIndex := encodeIndex([][]byte{topDict})
		var buf []byte
		buf = append(buf, header...)
		buf = append(buf, nameIndex...)
		buf = append(buf, topDictIndex...)
		buf = append(buf, stringIndex...)
		buf = append(buf, globalSubrIndex...)
		return buf
	}

	// buildTopDict1's operands all use the fixed-width int16Op form, so the
	// placeholder and final Top DICTs are the same length and headLen does
	// not change once the real offsets are substituted.
	headLen := len(assemble(buildTopDict1(0, 0, 0)))
	csOffset := headLen
	privateOffset := headLen + len(charStringsIndex)

	data := assemble(buildTopDict1(len(privateDict), privateOffset, csOffset))
	data = append(data, charStringsIndex...)
	data = append(data, privateDict...)
	return data
}

func TestReadCFF1Minimal(t *testing.T) {
	cs := append(intOp(10), intOp(20)...)
	cs = append(cs, byte(t2rmoveto), byte(t2endchar))
	data := buildMinimalCFF1(cs)

	font, err := ReadCFF1(data)
	if err != nil {
		t.Fatalf("ReadCFF1: %v", err)
	}
	if font.NumGlyphs() != 1 {
		t.Fatalf("NumGlyphs = %d, want 1", font.NumGlyphs())
	}

	contours, _, ok := font.GlyphContours(glyph.ID(0))
	if !ok {
		t.Fatal("GlyphContours(0) = false, want true")
	}
	if len(contours) != 1 || len(contours[0]) != 1 {
		t.Fatalf("unexpected contours: %+v", contours)
	}
	if got := contours[0][0]; got.X != 10 || got.Y != 20 {
		t.Errorf("moveto target = (%d,%d), want (10,20)", got.X, got.Y)
	}

	if _, _, ok := font.GlyphContours(glyph.ID(1)); ok {
		t.Error("GlyphContours(1) = true, want false (out of range)")
	}
}

func TestReadCFF1WrongVersion(t *testing.T) {
	if _, err := ReadCFF1([]byte{2, 0, 5, 4, 0, 0, 0, 0, 0}); err == nil {
		t.Error("expected an error for a CFF2 header passed to ReadCFF1")
	}
}

func FuzzReadCFF1(f *testing.F) {
	cs := append(intOp(10), intOp(20)...)
	cs = append(cs, byte(t2rmoveto), byte(t2endchar))
	f.Add(buildMinimalCFF1(cs))

	f.Fuzz(func(t *testing.T, data []byte) {
		ReadCFF1(data)
	})
}
