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

package glyf

import (
	"math"

	"seehuhn.de/go/geom/matrix"

	"github.com/go-glyph/otfcore/glyph"
	"github.com/go-glyph/otfcore/outline"
	"github.com/go-glyph/otfcore/parser"
)

// decodeComposite reads the component list of a composite glyph body. Like
// decodeSimple, it never fails outright: a component description that runs
// past the end of the body stops the scan and returns the components
// decoded so far.
func decodeComposite(r *parser.Reader) ([]outline.Component, []byte) {
	var components []outline.Component
	weHaveInstructions := false
	for {
		flagsRaw, err := r.Uint16()
		if err != nil {
			break
		}
		flags := outline.ComponentFlag(flagsRaw)
		gidRaw, err := r.Uint16()
		if err != nil {
			break
		}

		var arg1, arg2 int32
		if flags&outline.FlagArg1And2AreWords != 0 {
			v1, e1 := r.Int16()
			v2, e2 := r.Int16()
			if e1 != nil || e2 != nil {
				break
			}
			arg1, arg2 = int32(v1), int32(v2)
		} else {
			v1, e1 := r.Int8()
			v2, e2 := r.Int8()
			if e1 != nil || e2 != nil {
				break
			}
			arg1, arg2 = int32(v1), int32(v2)
		}

		m := outline.IdentityMatrix
		var readErr error
		switch {
		case flags&outline.FlagWeHaveAScale != 0:
			s, err := r.F2Dot14()
			readErr = err
			m[0], m[3] = s, s
		case flags&outline.FlagWeHaveAnXAndYScale != 0:
			sx, e1 := r.F2Dot14()
			sy, e2 := r.F2Dot14()
			if e1 != nil {
				readErr = e1
			} else {
				readErr = e2
			}
			m[0], m[3] = sx, sy
		case flags&outline.FlagWeHaveATwoByTwo != 0:
			a, e1 := r.F2Dot14()
			b, e2 := r.F2Dot14()
			c, e3 := r.F2Dot14()
			d, e4 := r.F2Dot14()
			for _, e := range []error{e1, e2, e3, e4} {
				if e != nil {
					readErr = e
				}
			}
			m[0], m[1], m[2], m[3] = a, b, c, d
		}
		if readErr != nil {
			break
		}

		comp := outline.Component{
			GlyphIndex: glyph.ID(gidRaw),
			Flags:      flags,
			Matrix:     m,
		}
		if flags&outline.FlagArgsAreXYValues != 0 {
			comp.Dx, comp.Dy = arg1, arg2
			comp.Matrix[4], comp.Matrix[5] = float64(arg1), float64(arg2)
		} else {
			// Point-matching anchoring: see outline.Component's doc on
			// OurPoint/TheirPoint. (dx,dy) stays zero.
			comp.OurPoint, comp.TheirPoint = int16(arg1), int16(arg2)
		}

		components = append(components, comp)
		if flags&outline.FlagWeHaveInstructions != 0 {
			weHaveInstructions = true
		}
		if flags&outline.FlagMoreComponents == 0 {
			break
		}
	}

	var instructions []byte
	if weHaveInstructions {
		if instrLen, err := r.Uint16(); err == nil {
			instructions, _ = r.Bytes(int(instrLen))
		}
	}
	return components, instructions
}

// roundHalfAwayFromZero implements the rounding rule composite transforms
// use to bring floating-point results back to integer design units.
func roundHalfAwayFromZero(v float64) int32 {
	if v >= 0 {
		return int32(math.Floor(v + 0.5))
	}
	return int32(math.Ceil(v - 0.5))
}

func transformPoint(p outline.Point, m matrix.Matrix) outline.Point {
	x := m[0]*float64(p.X) + m[2]*float64(p.Y) + m[4]
	y := m[1]*float64(p.X) + m[3]*float64(p.Y) + m[5]
	return outline.Point{
		X:       roundHalfAwayFromZero(x),
		Y:       roundHalfAwayFromZero(y),
		OnCurve: p.OnCurve,
		Cubic:   p.Cubic,
	}
}

// flatten resolves gid to absolute-coordinate contours, recursing into
// component glyphs up to maxComponentDepth levels deep. A cycle or
// excessively deep nesting yields no contours for the offending component,
// rather than an error.
func (f *Font) flatten(gid glyph.ID, depth int) ([]outline.Contour, error) {
	if depth > maxComponentDepth {
		return nil, nil
	}
	g, err := f.ParseGlyph(gid)
	if err != nil {
		return nil, err
	}
	switch g.Kind {
	case outline.KindSimple:
		out := make([]outline.Contour, len(g.Contours))
		copy(out, g.Contours)
		return out, nil
	case outline.KindComposite:
		var result []outline.Contour
		for _, comp := range g.Components {
			sub, err := f.flatten(comp.GlyphIndex, depth+1)
			if err != nil {
				return nil, err
			}
			for _, c := range sub {
				tc := make(outline.Contour, len(c))
				for i, p := range c {
					tc[i] = transformPoint(p, comp.Matrix)
				}
				result = append(result, tc)
			}
		}
		return result, nil
	default:
		return nil, nil
	}
}

// flattenVar is flatten with variation deltas applied to each simple
// glyph's points before any composite transform composes them.
func (f *Font) flattenVar(gid glyph.ID, depth int, deltas DeltaSource, coords []float64) ([]outline.Contour, error) {
	if depth > maxComponentDepth {
		return nil, nil
	}
	g, err := f.ParseGlyph(gid)
	if err != nil {
		return nil, err
	}
	switch g.Kind {
	case outline.KindSimple:
		numPoints := 0
		for _, c := range g.Contours {
			numPoints += len(c)
		}
		var dx, dy []float64
		var ok bool
		if deltas != nil {
			dx, dy, ok = deltas.GlyphDeltas(gid, numPoints, coords)
		}
		out := make([]outline.Contour, len(g.Contours))
		idx := 0
		for ci, c := range g.Contours {
			tc := make(outline.Contour, len(c))
			for i, p := range c {
				if ok && idx < len(dx) {
					p.X += roundHalfAwayFromZero(dx[idx])
					p.Y += roundHalfAwayFromZero(dy[idx])
				}
				tc[i] = p
				idx++
			}
			out[ci] = tc
		}
		return out, nil
	case outline.KindComposite:
		var result []outline.Contour
		for _, comp := range g.Components {
			sub, err := f.flattenVar(comp.GlyphIndex, depth+1, deltas, coords)
			if err != nil {
				return nil, err
			}
			for _, c := range sub {
				tc := make(outline.Contour, len(c))
				for i, p := range c {
					tc[i] = transformPoint(p, comp.Matrix)
				}
				result = append(result, tc)
			}
		}
		return result, nil
	default:
		return nil, nil
	}
}
