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

import "math"

// Fixed16 is a 16.16-bit fixed point number, the numeric type CharString
// operands and arithmetic operators are specified in terms of.
type Fixed16 int32

func f16FromInt16(v int16) Fixed16 {
	return Fixed16(v) << 16
}

func f16FromInt(v int) Fixed16 {
	return Fixed16(v) << 16
}

func f16(v float64) Fixed16 {
	return Fixed16(math.Round(v * 65536))
}

// Int16 converts the operand to an int16, rounding towards negative infinity.
func (x Fixed16) Int16() int16 {
	return int16(x >> 16)
}

// Int converts the operand to an int, rounding towards negative infinity.
func (x Fixed16) Int() int {
	return int(x >> 16)
}

// Float64 converts the operand to a float64.
func (x Fixed16) Float64() float64 {
	return float64(x) / 65536
}

// Round converts the operand to the nearest int32, rounding halves away
// from zero, matching the rounding rule used elsewhere for converting
// design-space coordinates to integers.
func (x Fixed16) Round() int32 {
	v := x.Float64()
	if v >= 0 {
		return int32(math.Floor(v + 0.5))
	}
	return int32(math.Ceil(v - 0.5))
}

// Abs returns the absolute value of the operand.
func (x Fixed16) Abs() Fixed16 {
	if x < 0 {
		return -x
	}
	return x
}
