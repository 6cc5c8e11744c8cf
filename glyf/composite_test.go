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

package glyf

import (
	"testing"

	"github.com/go-glyph/otfcore/glyph"
	"github.com/go-glyph/otfcore/outline"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in   float64
		want int32
	}{
		{0.4, 0},
		{0.5, 1},
		{0.6, 1},
		{-0.4, 0},
		{-0.5, -1},
		{-0.6, -1},
		{2.5, 3},
		{-2.5, -3},
	}
	for _, tt := range tests {
		if got := roundHalfAwayFromZero(tt.in); got != tt.want {
			t.Errorf("roundHalfAwayFromZero(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTransformPointTranslate(t *testing.T) {
	m := outline.IdentityMatrix
	m[4], m[5] = 150, -20
	p := transformPoint(outline.Point{X: 10, Y: 10, OnCurve: true}, m)
	if p.X != 160 || p.Y != -10 {
		t.Errorf("transformPoint = (%d,%d), want (160,-10)", p.X, p.Y)
	}
	if !p.OnCurve {
		t.Error("OnCurve flag lost in transform")
	}
}

// buildFlatSquare is a 4-point on-curve square at the origin, used as the
// leaf glyph of the composite-flattening tests below.
func buildFlatSquare() []outline.Point {
	return []outline.Point{
		{X: 0, Y: 0, OnCurve: true},
		{X: 10, Y: 0, OnCurve: true},
		{X: 10, Y: 10, OnCurve: true},
		{X: 0, Y: 10, OnCurve: true},
	}
}

func newTestFont(t *testing.T, bodies [][]byte) *Font {
	t.Helper()
	var glyfData []byte
	locaOff := []int{0}
	for _, b := range bodies {
		glyfData = append(glyfData, b...)
		locaOff = append(locaOff, len(glyfData))
	}
	loca := make([]byte, 0, 2*len(locaOff))
	for _, off := range locaOff {
		loca = append(loca, byte((off/2)>>8), byte(off/2))
	}
	idx, err := decodeLocaForTest(loca, len(bodies))
	if err != nil {
		t.Fatal(err)
	}
	return New(glyfData, idx)
}

func buildSimpleGlyphBody(points []outline.Point) []byte {
	return buildSimpleBody(points)
}

func buildCompositeGlyphBody(components []outline.Component) []byte {
	var buf []byte
	put16 := func(v int) { buf = append(buf, byte(v>>8), byte(v)) }
	put16(-1) // numberOfContours: composite marker
	put16(0)
	put16(0)
	put16(10)
	put16(10)
	for i, c := range components {
		flags := c.Flags | outline.FlagArg1And2AreWords | outline.FlagArgsAreXYValues
		if i < len(components)-1 {
			flags |= outline.FlagMoreComponents
		}
		put16(int(flags))
		put16(int(c.GlyphIndex))
		put16(int(int16(c.Dx)))
		put16(int(int16(c.Dy)))
	}
	return buf
}

func TestFlattenSimpleGlyphIsIdentity(t *testing.T) {
	square := buildFlatSquare()
	font := newTestFont(t, [][]byte{buildSimpleGlyphBody(square)})

	contours, err := font.Contours(glyph.ID(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(contours) != 1 || len(contours[0]) != len(square) {
		t.Fatalf("got %d contours, want 1 of length %d", len(contours), len(square))
	}
}

func TestFlattenCompositeTranslatesComponent(t *testing.T) {
	square := buildFlatSquare()
	leaf := buildSimpleGlyphBody(square)
	comp := buildCompositeGlyphBody([]outline.Component{
		{GlyphIndex: 0, Flags: outline.FlagArgsAreXYValues, Dx: 100, Dy: 0},
	})
	font := newTestFont(t, [][]byte{leaf, comp})

	contours, err := font.Contours(glyph.ID(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(contours) != 1 || len(contours[0]) != len(square) {
		t.Fatalf("got %d contours", len(contours))
	}
	for i, p := range contours[0] {
		if p.X != square[i].X+100 || p.Y != square[i].Y {
			t.Errorf("point %d = (%d,%d), want (%d,%d)", i, p.X, p.Y, square[i].X+100, square[i].Y)
		}
	}
}

func TestFlattenCompositeCycleStopsAtDepthLimit(t *testing.T) {
	// glyph 0 is a composite that references itself.
	self := buildCompositeGlyphBody([]outline.Component{
		{GlyphIndex: 0, Flags: outline.FlagArgsAreXYValues},
	})
	font := newTestFont(t, [][]byte{self})

	done := make(chan struct{})
	var contours []outline.Contour
	var err error
	go func() {
		contours, err = font.Contours(glyph.ID(0))
		close(done)
	}()
	select {
	case <-done:
	case <-timeoutChan():
		t.Fatal("Contours did not terminate on a self-referential composite glyph")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contours) != 0 {
		t.Errorf("expected no contours from an unbroken cycle, got %d", len(contours))
	}
}
