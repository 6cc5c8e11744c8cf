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

	"github.com/google/go-cmp/cmp"

	"github.com/go-glyph/otfcore/outline"
	"github.com/go-glyph/otfcore/varstore"
)

// intOp encodes a CharString integer operand in the -107..107 short form.
func intOp(v int) []byte {
	return []byte{byte(v + 139)}
}

func TestSimpleTriangle(t *testing.T) {
	var code []byte
	code = append(code, intOp(100)...)
	code = append(code, intOp(100)...)
	code = append(code, byte(t2rmoveto))
	code = append(code, intOp(100)...)
	code = append(code, byte(t2hlineto))
	code = append(code, intOp(100)...)
	code = append(code, byte(t2vlineto))
	code = append(code, byte(t2endchar))

	contours, _ := RunCharString(code, &ExecContext{})
	want := []outline.Contour{{
		{X: 100, Y: 100, OnCurve: true},
		{X: 200, Y: 100, OnCurve: true},
		{X: 200, Y: 200, OnCurve: true},
	}}
	if diff := cmp.Diff(want, contours); diff != "" {
		t.Errorf("contours mismatch (-want +got):\n%s", diff)
	}
}

func TestWidthStripped(t *testing.T) {
	// a leading width argument before the first rmoveto's two arguments
	// must be consumed as a width, not as part of the move.
	var code []byte
	code = append(code, intOp(50)...)  // width delta
	code = append(code, intOp(10)...)  // dx
	code = append(code, intOp(20)...)  // dy
	code = append(code, byte(t2rmoveto))
	code = append(code, byte(t2endchar))

	contours, width := RunCharString(code, &ExecContext{NominalWidthX: 500})
	if len(contours) != 1 || len(contours[0]) != 1 {
		t.Fatalf("unexpected contours: %+v", contours)
	}
	if got := contours[0][0]; got.X != 10 || got.Y != 20 {
		t.Errorf("moveto target = (%d,%d), want (10,20)", got.X, got.Y)
	}
	if width != 550 {
		t.Errorf("width = %d, want 550", width)
	}
}

func TestCFF2NoWidthStripping(t *testing.T) {
	// the same bytes as above, but as a CFF2 CharString: there is no width
	// operand at all, so all three arguments belong to rmoveto and the VM
	// must not strip one off as a width.
	var code []byte
	code = append(code, intOp(50)...)
	code = append(code, intOp(10)...)
	code = append(code, intOp(20)...)
	code = append(code, byte(t2rmoveto))
	code = append(code, byte(t2endchar))

	contours, _ := RunCharString(code, &ExecContext{CFF2: true})
	if len(contours) != 1 || len(contours[0]) != 1 {
		t.Fatalf("unexpected contours: %+v", contours)
	}
	// three stack args for an rmoveto that wants two: the VM should still
	// take the bottom two per the FIFO path-operator contract.
	got := contours[0][0]
	if got.X != 50 || got.Y != 10 {
		t.Errorf("moveto target = (%d,%d), want (50,10)", got.X, got.Y)
	}
}

func TestSubroutineCall(t *testing.T) {
	// global subroutine 0 (bias 107 applied to index -107) draws a line.
	sub := append(intOp(10), byte(t2hlineto))
	globals := Subrs{sub}

	var code []byte
	code = append(code, intOp(0)...)
	code = append(code, intOp(0)...)
	code = append(code, byte(t2rmoveto))
	code = append(code, intOp(-107)...) // biased index 0
	code = append(code, byte(t2callgsubr))
	code = append(code, byte(t2endchar))

	contours, _ := RunCharString(code, &ExecContext{GlobalSubrs: globals})
	if len(contours) != 1 || len(contours[0]) != 2 {
		t.Fatalf("unexpected contours: %+v", contours)
	}
	if got := contours[0][1]; got.X != 10 || got.Y != 0 {
		t.Errorf("line target = (%d,%d), want (10,0)", got.X, got.Y)
	}
}

func TestArithmeticIsLIFO(t *testing.T) {
	// "sub" must consume its two operands from the top of the stack: 30 20
	// sub leaves 10, and 10 is then used as the single dx of hmoveto.
	var code []byte
	code = append(code, intOp(30)...)
	code = append(code, intOp(20)...)
	code = append(code, byte(0x0c), byte(t2sub&0xff))
	code = append(code, byte(t2hmoveto))
	code = append(code, byte(t2endchar))

	contours, _ := RunCharString(code, &ExecContext{})
	if len(contours) != 1 || len(contours[0]) != 1 {
		t.Fatalf("unexpected contours: %+v", contours)
	}
	if got := contours[0][0]; got.X != 10 || got.Y != 0 {
		t.Errorf("moveto target = (%d,%d), want (10,0)", got.X, got.Y)
	}
}

func TestFlexOperator(t *testing.T) {
	// flex draws two curves from 13 stack arguments (the 13th, fd, is a
	// flex-height hint ignored by the outline itself).
	var code []byte
	code = append(code, intOp(10)...)
	code = append(code, intOp(20)...)
	code = append(code, byte(t2rmoveto))
	args := []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 50}
	for _, v := range args {
		code = append(code, intOp(v)...)
	}
	code = append(code, byte(0x0c), byte(t2flex&0xff))
	code = append(code, byte(t2endchar))

	contours, _ := RunCharString(code, &ExecContext{})
	if len(contours) != 1 || len(contours[0]) != 7 {
		t.Fatalf("unexpected contours: %+v", contours)
	}
	// start + 2 curves of 3 points each = 7 points; final point is the sum
	// of all six (dx,dy) pairs added to the start.
	want := outline.Point{X: 16, Y: 26, OnCurve: true}
	if got := contours[0][6]; got != want {
		t.Errorf("flex end point = %+v, want %+v", got, want)
	}
}

func TestHflexOperator(t *testing.T) {
	// hflex: dx1 dx2 dy2 dx3 dx4 dx5 dx6 hflex (7 args); y only moves on
	// the middle argument (dy2) and must return to the start y.
	var code []byte
	code = append(code, intOp(0)...)
	code = append(code, intOp(0)...)
	code = append(code, byte(t2rmoveto))
	for _, v := range []int{10, 20, 5, 30, 10, 15, 20} {
		code = append(code, intOp(v)...)
	}
	code = append(code, byte(0x0c), byte(t2hflex&0xff))
	code = append(code, byte(t2endchar))

	contours, _ := RunCharString(code, &ExecContext{})
	if len(contours) != 1 || len(contours[0]) != 7 {
		t.Fatalf("unexpected contours: %+v", contours)
	}
	if got := contours[0][6]; got.Y != 0 {
		t.Errorf("hflex end y = %d, want 0 (must return to start y)", got.Y)
	}
}

func TestHflex1Operator(t *testing.T) {
	// hflex1: dx1 dy1 dx2 dy2 dx3 dx4 dx5 dy5 dx6 hflex1 (9 args); dy6 is
	// implicit and must equal -(dy1+dy2+dy5) so the path returns to the
	// start y.
	var code []byte
	code = append(code, intOp(0)...)
	code = append(code, intOp(0)...)
	code = append(code, byte(t2rmoveto))
	for _, v := range []int{10, 5, 20, -3, 30, 10, 15, 7, 20} {
		code = append(code, intOp(v)...)
	}
	code = append(code, byte(0x0c), byte(t2hflex1&0xff))
	code = append(code, byte(t2endchar))

	contours, _ := RunCharString(code, &ExecContext{})
	if len(contours) != 1 || len(contours[0]) != 7 {
		t.Fatalf("unexpected contours: %+v", contours)
	}
	if got := contours[0][6]; got.Y != 0 {
		t.Errorf("hflex1 end y = %d, want 0 (must return to start y)", got.Y)
	}
}

func TestFlex1Operator(t *testing.T) {
	// flex1: dx1 dy1 dx2 dy2 dx3 dy3 dx4 dy4 dx5 dy5 d6 flex1 (11 args).
	// The dominant axis (here y, since the accumulated |dy| > |dx|) takes
	// d6 as its last delta and the other axis must return to the start:
	// dx6 = -(dx1+dx2+dx3+dx4+dx5). This is exactly the case the
	// literal-0 regression would get wrong.
	var code []byte
	code = append(code, intOp(100)...)
	code = append(code, intOp(100)...)
	code = append(code, byte(t2rmoveto))
	dxs := []int{1, 2, -1, 3, 1} // sum = 6
	dys := []int{10, -4, 8, -2, 6}
	for i := range dxs {
		code = append(code, intOp(dxs[i])...)
		code = append(code, intOp(dys[i])...)
	}
	code = append(code, intOp(40)...) // d6
	code = append(code, byte(0x0c), byte(t2flex1&0xff))
	code = append(code, byte(t2endchar))

	contours, _ := RunCharString(code, &ExecContext{})
	if len(contours) != 1 || len(contours[0]) != 7 {
		t.Fatalf("unexpected contours: %+v", contours)
	}
	start := contours[0][0]
	end := contours[0][6]
	if end.X != start.X {
		t.Errorf("flex1 end x = %d, want %d (non-dominant axis must return to start)", end.X, start.X)
	}
}

func TestBlendOperator(t *testing.T) {
	// a single-axis, single-region variation store where the test
	// coordinate sits exactly at the region's peak, so the region scalar
	// is 1 and blend(default, delta) = default+delta.
	buf := buildTestVarStore(t)
	store, err := varstore.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	// 100 (default) 7 (delta) 1 (numBlends) blend -> 107, then used as the
	// single hmoveto argument.
	var code []byte
	code = append(code, intOp(100)...)
	code = append(code, intOp(7)...)
	code = append(code, intOp(1)...)
	code = append(code, byte(t2blend)) // single-byte operator 16 = blend
	code = append(code, byte(t2hmoveto))
	code = append(code, byte(t2endchar))

	contours, _ := RunCharString(code, &ExecContext{
		CFF2: true,
		Variation: &VariationContext{
			Store:  store,
			Coords: []float64{1},
		},
	})
	if len(contours) != 1 || len(contours[0]) != 1 {
		t.Fatalf("unexpected contours: %+v", contours)
	}
	if got := contours[0][0]; got.X != 107 {
		t.Errorf("moveto x = %d, want 107", got.X)
	}
}

// buildTestVarStore builds a minimal Item Variation Store: one axis, one
// region peaking at coordinate 1.0, one item variation data subtable with
// one region index and itemCount irrelevant to blend (blend only needs
// RegionIndexCount/RegionScalar, not the per-item delta sets).
func buildTestVarStore(t *testing.T) []byte {
	t.Helper()
	f2dot14 := func(v float64) []byte {
		x := int16(v * 16384)
		return []byte{byte(x >> 8), byte(x)}
	}
	var regionList []byte
	regionList = append(regionList, 0, 1) // axisCount = 1
	regionList = append(regionList, 0, 1) // regionCount = 1
	regionList = append(regionList, f2dot14(0)...)
	regionList = append(regionList, f2dot14(1)...)
	regionList = append(regionList, f2dot14(1)...)

	var data []byte
	data = append(data, 0, 0) // itemCount = 0
	data = append(data, 0, 0) // shortDeltaCount = 0
	data = append(data, 0, 1) // regionIndexCount = 1
	data = append(data, 0, 0) // regionIndexes[0] = 0

	var buf []byte
	buf = append(buf, 0, 1) // format = 1
	regionListOffset := 2 + 4 + 2 + 4 // header + offset32 + dataCount + one offset32
	buf = append(buf, byte(regionListOffset>>24), byte(regionListOffset>>16), byte(regionListOffset>>8), byte(regionListOffset))
	buf = append(buf, 0, 1) // itemVariationDataCount = 1
	dataOffset := regionListOffset + len(regionList)
	buf = append(buf, byte(dataOffset>>24), byte(dataOffset>>16), byte(dataOffset>>8), byte(dataOffset))
	buf = append(buf, regionList...)
	buf = append(buf, data...)
	return buf
}

func FuzzRunCharString(f *testing.F) {
	f.Add([]byte{byte(t2endchar)})
	f.Add(append(intOp(1), byte(t2callsubr)))
	f.Add([]byte{28, 0, 1, byte(t2hstem)})

	f.Fuzz(func(t *testing.T, code []byte) {
		// the VM must never panic on arbitrary input; maxCallDepth bounds
		// recursion so this always returns, even when code calls itself.
		RunCharString(code, &ExecContext{
			LocalSubrs:  Subrs{code},
			GlobalSubrs: Subrs{code},
		})
	})
}
