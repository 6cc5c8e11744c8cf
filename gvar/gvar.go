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

// Package gvar reads the "gvar" table, the glyph outline variation data of a
// variable font.
//
// This implementation applies each tuple variation's explicit per-point
// deltas only; it does not infer deltas for points a tuple leaves untouched
// ("IUP", interpolate-untouched-points, as specified for TrueType outlines).
// An untouched point simply receives a zero delta from that tuple. Fonts
// that rely on IUP to keep curves smooth under variation will interpolate
// more coarsely around points a tuple doesn't mention; fonts that specify
// deltas for every point (common for mechanically generated variable fonts)
// are unaffected.
//
// https://learn.microsoft.com/en-us/typography/opentype/spec/gvar
package gvar

import (
	"github.com/go-glyph/otfcore/glyph"
	"github.com/go-glyph/otfcore/parser"
)

// Table is a decoded "gvar" table.
type Table struct {
	data []byte

	axisCount          int
	sharedTupleCount   int
	glyphCount         int
	longOffsets        bool
	sharedTuplesOffset uint32
	glyphVarDataOffset uint32
	glyphVarDataOffs   []uint32
}

// Decode parses a "gvar" table.
func Decode(data []byte) (*Table, error) {
	r := parser.New(data)

	version, err := r.Uint16()
	if err != nil || version != 1 {
		return nil, invalid("bad version")
	}
	if _, err := r.Uint16(); err != nil { // reserved
		return nil, invalid("truncated header")
	}
	axisCount, err := r.Uint16()
	if err != nil {
		return nil, invalid("truncated header")
	}
	sharedTupleCount, err := r.Uint16()
	if err != nil {
		return nil, invalid("truncated header")
	}
	sharedTuplesOffset, err := r.Offset32()
	if err != nil {
		return nil, invalid("truncated header")
	}
	glyphCount, err := r.Uint16()
	if err != nil {
		return nil, invalid("truncated header")
	}
	flags, err := r.Uint16()
	if err != nil {
		return nil, invalid("truncated header")
	}
	glyphVarDataOffset, err := r.Offset32()
	if err != nil {
		return nil, invalid("truncated header")
	}

	t := &Table{
		data:               data,
		axisCount:          int(axisCount),
		sharedTupleCount:   int(sharedTupleCount),
		glyphCount:         int(glyphCount),
		longOffsets:        flags&1 != 0,
		sharedTuplesOffset: sharedTuplesOffset,
		glyphVarDataOffset: glyphVarDataOffset,
	}

	n := t.glyphCount + 1
	t.glyphVarDataOffs = make([]uint32, n)
	if t.longOffsets {
		for i := 0; i < n; i++ {
			v, err := r.Uint32()
			if err != nil {
				return nil, invalid("truncated offset table")
			}
			t.glyphVarDataOffs[i] = v
		}
	} else {
		for i := 0; i < n; i++ {
			v, err := r.Uint16()
			if err != nil {
				return nil, invalid("truncated offset table")
			}
			t.glyphVarDataOffs[i] = uint32(v) * 2
		}
	}

	return t, nil
}

// AxisCount returns the number of variation axes.
func (t *Table) AxisCount() int { return t.axisCount }

// GlyphCount returns the number of glyphs covered by the table.
func (t *Table) GlyphCount() int { return t.glyphCount }

func (t *Table) sharedTuple(index int) []float64 {
	if index < 0 || index >= t.sharedTupleCount {
		return nil
	}
	size := t.axisCount * 2
	off := int(t.sharedTuplesOffset) + index*size
	if off+size > len(t.data) {
		return nil
	}
	r, err := parser.New(t.data).Slice(off, size)
	if err != nil {
		return nil
	}
	out := make([]float64, t.axisCount)
	for i := range out {
		v, err := r.F2Dot14()
		if err != nil {
			return nil
		}
		out[i] = v
	}
	return out
}

// GlyphDeltas computes the per-point (dx, dy) adjustment for glyph gid at
// the given normalized axis coordinates (each in [-1, 1], one per axis).
// numPoints is the number of outline points produced for gid, not counting
// the four TrueType phantom points; deltas computed for the phantom points
// are parsed (to keep the point/delta streams aligned) and discarded. ok is
// false if gid has no variation data, in which case dx and dy are nil and
// the caller should apply no adjustment.
func (t *Table) GlyphDeltas(gid glyph.ID, numPoints int, coords []float64) (dx, dy []float64, ok bool) {
	if t == nil || int(gid) < 0 || int(gid) >= t.glyphCount {
		return nil, nil, false
	}
	tableStart := t.glyphVarDataOffset + t.glyphVarDataOffs[gid]
	tableEnd := t.glyphVarDataOffset + t.glyphVarDataOffs[gid+1]
	if tableStart >= tableEnd || int(tableEnd) > len(t.data) {
		return nil, nil, false
	}
	glyphData := t.data[tableStart:tableEnd]
	if len(glyphData) < 4 {
		return nil, nil, false
	}

	header := uint16(glyphData[0])<<8 | uint16(glyphData[1])
	tupleCount := int(header & 0x0FFF)
	sharedPointNumbersFlag := header&0x8000 != 0
	dataOffset := int(uint16(glyphData[2])<<8 | uint16(glyphData[3]))
	if tupleCount == 0 {
		return nil, nil, false
	}

	total := numPoints + 4
	dx = make([]float64, total)
	dy = make([]float64, total)

	serializedStart := dataOffset
	var sharedPoints []int
	if sharedPointNumbersFlag {
		var consumed int
		sharedPoints, consumed = parsePointNumbersBytes(glyphData[serializedStart:])
		serializedStart += consumed
	}

	headerOffset := 4
	serializedOffset := serializedStart
	for i := 0; i < tupleCount; i++ {
		if headerOffset+4 > len(glyphData) {
			break
		}
		variationDataSize := int(uint16(glyphData[headerOffset])<<8 | uint16(glyphData[headerOffset+1]))
		tupleIndex := uint16(glyphData[headerOffset+2])<<8 | uint16(glyphData[headerOffset+3])
		headerOffset += 4

		embeddedPeak := tupleIndex&0x8000 != 0
		intermediate := tupleIndex&0x4000 != 0
		privatePoints := tupleIndex&0x2000 != 0
		sharedIdx := int(tupleIndex & 0x0FFF)

		var peak []float64
		if embeddedPeak {
			peak = make([]float64, t.axisCount)
			for a := range peak {
				if headerOffset+2 > len(glyphData) {
					return nil, nil, false
				}
				peak[a] = f2dot14(glyphData, headerOffset)
				headerOffset += 2
			}
		} else {
			peak = t.sharedTuple(sharedIdx)
		}

		var lo, hi []float64
		if intermediate {
			lo = make([]float64, t.axisCount)
			hi = make([]float64, t.axisCount)
			for a := range lo {
				if headerOffset+2 > len(glyphData) {
					return nil, nil, false
				}
				lo[a] = f2dot14(glyphData, headerOffset)
				headerOffset += 2
			}
			for a := range hi {
				if headerOffset+2 > len(glyphData) {
					return nil, nil, false
				}
				hi[a] = f2dot14(glyphData, headerOffset)
				headerOffset += 2
			}
		}

		scalar := TupleScalar(peak, lo, hi, coords)

		pointIndices := sharedPoints
		deltaStart := serializedOffset
		if privatePoints {
			if serializedOffset > len(glyphData) {
				break
			}
			var consumed int
			pointIndices, consumed = parsePointNumbersBytes(glyphData[serializedOffset:])
			deltaStart += consumed
		}

		if scalar != 0 && deltaStart <= len(glyphData) {
			n := len(pointIndices)
			if n == 0 {
				n = total
			}
			xs, ys := parsePackedDeltasBytes(glyphData[deltaStart:], n)
			applyTupleDeltas(dx, dy, pointIndices, xs, ys, scalar, total)
		}

		serializedOffset += variationDataSize
	}

	return dx[:numPoints], dy[:numPoints], true
}

func f2dot14(data []byte, off int) float64 {
	v := int16(uint16(data[off])<<8 | uint16(data[off+1]))
	return float64(v) / 16384
}

func applyTupleDeltas(dx, dy []float64, pointIndices []int, xs, ys []float64, scalar float64, total int) {
	if len(pointIndices) == 0 {
		for i := 0; i < total && i < len(xs); i++ {
			dx[i] += xs[i] * scalar
			dy[i] += ys[i] * scalar
		}
		return
	}
	for i, idx := range pointIndices {
		if idx < 0 || idx >= total || i >= len(xs) {
			continue
		}
		dx[idx] += xs[i] * scalar
		dy[idx] += ys[i] * scalar
	}
}

// parsePointNumbersBytes reads the packed point-number list format: a
// count, then runs of 1- or 2-byte deltas accumulated into ascending point
// indices. A leading count of zero means "every point" (reported as a nil
// slice). Returns the indices and the number of bytes consumed.
func parsePointNumbersBytes(data []byte) ([]int, int) {
	if len(data) == 0 {
		return nil, 0
	}
	count := int(data[0])
	pos := 1
	if count == 0 {
		return nil, pos
	}
	if count&0x80 != 0 {
		if len(data) < 2 {
			return nil, pos
		}
		count = (count&0x7F)<<8 | int(data[1])
		pos = 2
	}

	points := make([]int, 0, count)
	last := 0
	for len(points) < count && pos < len(data) {
		runHeader := data[pos]
		pos++
		wordRun := runHeader&0x80 != 0
		runCount := int(runHeader&0x7F) + 1
		for i := 0; i < runCount && len(points) < count; i++ {
			var delta int
			if wordRun {
				if pos+2 > len(data) {
					return points, pos
				}
				delta = int(uint16(data[pos])<<8 | uint16(data[pos+1]))
				pos += 2
			} else {
				if pos >= len(data) {
					return points, pos
				}
				delta = int(data[pos])
				pos++
			}
			last += delta
			points = append(points, last)
		}
	}
	return points, pos
}

// parsePackedDeltasBytes reads n run-length-encoded X deltas followed by n Y
// deltas.
func parsePackedDeltasBytes(data []byte, n int) (xs, ys []float64) {
	xs, pos := readDeltaRunBytes(data, n)
	ys, _ = readDeltaRunBytes(data[pos:], n)
	return xs, ys
}

func readDeltaRunBytes(data []byte, n int) ([]float64, int) {
	out := make([]float64, 0, n)
	pos := 0
	for len(out) < n && pos < len(data) {
		runHeader := data[pos]
		pos++
		zeroRun := runHeader&0x80 != 0
		wordRun := runHeader&0x40 != 0
		runCount := int(runHeader&0x3F) + 1
		for i := 0; i < runCount && len(out) < n; i++ {
			var v float64
			switch {
			case zeroRun:
				v = 0
			case wordRun:
				if pos+2 > len(data) {
					return out, pos
				}
				v = float64(int16(uint16(data[pos])<<8 | uint16(data[pos+1])))
				pos += 2
			default:
				if pos >= len(data) {
					return out, pos
				}
				v = float64(int8(data[pos]))
				pos++
			}
			out = append(out, v)
		}
	}
	return out, pos
}

func invalid(reason string) error {
	return &parser.InvalidFontError{SubSystem: "gvar", Reason: reason}
}
