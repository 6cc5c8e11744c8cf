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

package gvar

import (
	"testing"

	"github.com/go-glyph/otfcore/glyph"
)

func TestTupleScalar(t *testing.T) {
	tests := []struct {
		name   string
		peak   []float64
		lo, hi []float64
		coords []float64
		want   float64
	}{
		{"at peak", []float64{1}, nil, nil, []float64{1}, 1},
		{"at default origin", []float64{1}, nil, nil, []float64{0}, 0},
		{"halfway to peak", []float64{1}, nil, nil, []float64{0.5}, 0.5},
		{"past peak default region", []float64{1}, nil, nil, []float64{1.5}, 0},
		{"negative peak", []float64{-1}, nil, nil, []float64{-0.5}, 0.5},
		{"explicit intermediate region", []float64{0.5}, []float64{0}, []float64{1}, []float64{0.25}, 0.5},
		{"outside intermediate region", []float64{0.5}, []float64{0.2}, []float64{0.8}, []float64{0.1}, 0},
		{"two axes", []float64{1, 1}, nil, nil, []float64{0.5, 1}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TupleScalar(tt.peak, tt.lo, tt.hi, tt.coords)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("TupleScalar() = %v, want %v", got, tt.want)
			}
		})
	}
}

// buildGvarWithAllPointsDelta builds a minimal one-glyph, one-axis gvar
// table whose single tuple variation applies a uniform (dx, dy) delta to
// every point (the "all points" packed-point-number encoding: a leading
// count byte of zero).
func buildGvarWithAllPointsDelta(dx, dy int8) []byte {
	var buf []byte
	put16 := func(v int) { buf = append(buf, byte(v>>8), byte(v)) }
	put32 := func(v int) {
		buf = append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}

	put16(1) // version
	put16(0) // reserved
	put16(1) // axisCount
	put16(0) // sharedTupleCount
	put32(0) // sharedTuplesOffset (unused)
	put16(1) // glyphCount
	put16(0) // flags: short offsets
	const headerLen = 20
	const offsetTableLen = 2 * 2 // glyphCount+1 uint16 offsets
	glyphVarDataOffset := headerLen + offsetTableLen
	put32(glyphVarDataOffset)

	// offset table: glyph 0 data starts at 0, ends after the data below.
	put16(0)

	var glyphData []byte
	gput16 := func(v int) { glyphData = append(glyphData, byte(v>>8), byte(v)) }
	// tupleVariationCount: 1 tuple, no shared points
	gput16(1)
	dataOffsetPos := len(glyphData)
	gput16(0) // placeholder for dataOffset, filled in below
	// tuple header: variationDataSize filled below, tupleIndex: embedded peak,
	// private point numbers, no intermediate
	tupleHeaderPos := len(glyphData)
	gput16(0) // placeholder for variationDataSize
	gput16(0xA000)
	// embedded peak tuple: axis 0 at 1.0 (F2DOT14 0x4000)
	gput16(0x4000)

	tupleDataStart := len(glyphData)
	glyphData[dataOffsetPos] = byte(tupleDataStart >> 8)
	glyphData[dataOffsetPos+1] = byte(tupleDataStart)
	// packed point numbers: count=0 means "all points"
	glyphData = append(glyphData, 0x00)
	// packed deltas: one byte run of 6 x-deltas (2 points plus the 4 phantom
	// points), then the same for y
	glyphData = append(glyphData, 0x05)
	for i := 0; i < 6; i++ {
		glyphData = append(glyphData, byte(dx))
	}
	glyphData = append(glyphData, 0x05)
	for i := 0; i < 6; i++ {
		glyphData = append(glyphData, byte(dy))
	}

	variationDataSize := len(glyphData) - tupleDataStart
	glyphData[tupleHeaderPos] = byte(variationDataSize >> 8)
	glyphData[tupleHeaderPos+1] = byte(variationDataSize)

	if len(glyphData)%2 != 0 {
		// Short offsets are in 16-bit units; pad to keep the next glyph's
		// (here: the end-of-table) offset word-aligned.
		glyphData = append(glyphData, 0x00)
	}

	put16(len(glyphData) / 2) // offset table entry for glyph 1 (end of glyph 0's data)

	buf = append(buf, glyphData...)
	return buf
}

func TestGlyphDeltasAllPoints(t *testing.T) {
	data := buildGvarWithAllPointsDelta(5, -3)
	table, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if table.AxisCount() != 1 {
		t.Fatalf("AxisCount = %d, want 1", table.AxisCount())
	}

	dx, dy, ok := table.GlyphDeltas(glyph.ID(0), 2, []float64{1})
	if !ok {
		t.Fatal("GlyphDeltas reported no data")
	}
	if len(dx) != 2 || len(dy) != 2 {
		t.Fatalf("got %d/%d deltas, want 2/2", len(dx), len(dy))
	}
	for i := range dx {
		if dx[i] != 5 || dy[i] != -3 {
			t.Errorf("point %d delta = (%v,%v), want (5,-3)", i, dx[i], dy[i])
		}
	}
}

func TestGlyphDeltasUnknownGlyphIsNotOK(t *testing.T) {
	data := buildGvarWithAllPointsDelta(1, 1)
	table, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, _, ok := table.GlyphDeltas(glyph.ID(5), 2, []float64{1}); ok {
		t.Error("expected ok=false for an out-of-range glyph")
	}
}
