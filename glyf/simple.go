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
	"github.com/go-glyph/otfcore/outline"
	"github.com/go-glyph/otfcore/parser"
)

// simple glyph point flags.
// https://learn.microsoft.com/en-us/typography/opentype/spec/glyf#simpleGlyphFlags
const (
	flagOnCurve    = 0x01
	flagXShortVec  = 0x02
	flagYShortVec  = 0x04
	flagRepeat     = 0x08
	flagXSameOrPos = 0x10
	flagYSameOrPos = 0x20
)

// decodeSimple implements the simple-glyph half of the glyf body format. It
// never fails outright: a body truncated partway through the flag or
// coordinate streams simply yields fewer points than the last endpoint
// claims, and any contour left with no points is dropped.
func decodeSimple(r *parser.Reader, numContours int) ([]outline.Contour, []byte) {
	endPts := make([]int, numContours)
	for i := range endPts {
		v, err := r.Uint16()
		if err != nil {
			return nil, nil
		}
		endPts[i] = int(v)
	}
	if numContours == 0 {
		instrLen, err := r.Uint16()
		if err != nil {
			return nil, nil
		}
		instr, _ := r.Bytes(int(instrLen))
		return nil, instr
	}

	numPoints := endPts[numContours-1] + 1

	instrLen, err := r.Uint16()
	if err != nil {
		return nil, nil
	}
	instructions, _ := r.Bytes(int(instrLen))

	flags := make([]byte, 0, numPoints)
	for len(flags) < numPoints {
		flag, err := r.Uint8()
		if err != nil {
			break
		}
		flags = append(flags, flag)
		if flag&flagRepeat != 0 {
			count, err := r.Uint8()
			if err != nil {
				break
			}
			for i := 0; i < int(count) && len(flags) < numPoints; i++ {
				flags = append(flags, flag)
			}
		}
	}

	xs := make([]int32, 0, len(flags))
	var x int32
	for _, flag := range flags {
		if flag&flagXShortVec != 0 {
			v, err := r.Uint8()
			if err != nil {
				break
			}
			if flag&flagXSameOrPos != 0 {
				x += int32(v)
			} else {
				x -= int32(v)
			}
		} else if flag&flagXSameOrPos == 0 {
			v, err := r.Int16()
			if err != nil {
				break
			}
			x += int32(v)
		}
		xs = append(xs, x)
	}
	flags = flags[:len(xs)]

	ys := make([]int32, 0, len(flags))
	var y int32
	for _, flag := range flags {
		if flag&flagYShortVec != 0 {
			v, err := r.Uint8()
			if err != nil {
				break
			}
			if flag&flagYSameOrPos != 0 {
				y += int32(v)
			} else {
				y -= int32(v)
			}
		} else if flag&flagYSameOrPos == 0 {
			v, err := r.Int16()
			if err != nil {
				break
			}
			y += int32(v)
		}
		ys = append(ys, y)
	}
	flags = flags[:len(ys)]

	n := len(flags)
	var contours []outline.Contour
	start := 0
	for _, endRaw := range endPts {
		end := endRaw + 1
		if start >= n {
			break
		}
		if end > n {
			end = n
		}
		if end <= start {
			continue
		}
		c := make(outline.Contour, end-start)
		for j := start; j < end; j++ {
			c[j-start] = outline.Point{
				X:       xs[j],
				Y:       ys[j],
				OnCurve: flags[j]&flagOnCurve != 0,
			}
		}
		contours = append(contours, c)
		start = end
	}

	return contours, instructions
}
