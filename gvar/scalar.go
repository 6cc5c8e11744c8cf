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

package gvar

// TupleScalar computes the piecewise-linear interpolation scalar for one
// tuple variation region, following the OpenType font variations algorithm:
// each axis contributes a factor of 1 at its peak, 0 outside [start, end],
// and linear interpolation in between; the region's scalar is the product
// over all axes. peak is required; lo and hi (the intermediate start/end
// tuples) may be nil, in which case the default region implied by peak's
// sign is used.
func TupleScalar(peak, lo, hi []float64, coords []float64) float64 {
	if len(peak) == 0 {
		return 0
	}
	scalar := 1.0
	for i, p := range peak {
		if p == 0 {
			continue
		}
		var coord float64
		if i < len(coords) {
			coord = coords[i]
		}
		if coord == p {
			continue
		}

		var start, end float64
		if lo != nil && hi != nil && i < len(lo) && i < len(hi) {
			start, end = lo[i], hi[i]
		} else if p > 0 {
			start, end = 0, p
		} else {
			start, end = p, 0
		}

		if coord < start || coord > end {
			return 0
		}
		if coord < p {
			if p == start {
				continue
			}
			scalar *= (coord - start) / (p - start)
		} else {
			if p == end {
				continue
			}
			scalar *= (end - coord) / (end - p)
		}
	}
	return scalar
}
