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

import "strconv"

// dictOp identifies a Top DICT / Private DICT / Font DICT operator. Two-byte
// operators (12 n) are folded into the range above 0x0c00, mirroring the
// CharString operator encoding in charstring.go.
type dictOp uint16

const (
	opCharstringType dictOp = 0x0c06
	opFontMatrix     dictOp = 0x0c07
	opROS            dictOp = 0x0c1e
	opCIDCount       dictOp = 0x0c22
	opFDArray        dictOp = 0x0c24
	opFDSelect       dictOp = 0x0c25
	opCharStrings    dictOp = 17
	opPrivate        dictOp = 18
	opSubrs          dictOp = 19
	opDefaultWidthX  dictOp = 20
	opNominalWidthX  dictOp = 21
	opVStore         dictOp = 24 // CFF2 Top DICT only
)

// cffDict is a decoded DICT: operator -> operand list. Operands are either
// int32 or float64.
type cffDict map[dictOp][]interface{}

func decodeDict(data []byte) (cffDict, error) {
	d := make(cffDict)
	var operands []interface{}

	i := 0
	for i < len(data) {
		b0 := data[i]
		switch {
		case b0 <= 21 || b0 == 24: // 24: CFF2's single-byte "vstore" operator
			op := dictOp(b0)
			i++
			if b0 == 12 {
				if i >= len(data) {
					return nil, invalid("truncated DICT operator")
				}
				op = 0x0c00 | dictOp(data[i])
				i++
			}
			d[op] = operands
			operands = nil

		case b0 == 28:
			if i+3 > len(data) {
				return nil, invalid("truncated DICT operand")
			}
			v := int16(data[i+1])<<8 | int16(data[i+2])
			operands = append(operands, int32(v))
			i += 3

		case b0 == 29:
			if i+5 > len(data) {
				return nil, invalid("truncated DICT operand")
			}
			v := int32(data[i+1])<<24 | int32(data[i+2])<<16 |
				int32(data[i+3])<<8 | int32(data[i+4])
			operands = append(operands, v)
			i += 5

		case b0 == 30:
			val, n, err := decodeReal(data[i+1:])
			if err != nil {
				return nil, err
			}
			operands = append(operands, val)
			i += 1 + n

		case b0 >= 32 && b0 <= 246:
			operands = append(operands, int32(b0)-139)
			i++

		case b0 >= 247 && b0 <= 250:
			if i+2 > len(data) {
				return nil, invalid("truncated DICT operand")
			}
			v := (int32(b0)-247)*256 + int32(data[i+1]) + 108
			operands = append(operands, v)
			i += 2

		case b0 >= 251 && b0 <= 254:
			if i+2 > len(data) {
				return nil, invalid("truncated DICT operand")
			}
			v := -(int32(b0)-251)*256 - int32(data[i+1]) - 108
			operands = append(operands, v)
			i += 2

		default: // 255 and any other reserved value
			return nil, invalid("invalid DICT operand byte")
		}
	}
	return d, nil
}

// decodeReal decodes a nibble-packed real number (DICT operand 30) starting
// at data[0], returning the value and the number of bytes consumed
// (excluding the leading 30 byte).
func decodeReal(data []byte) (float64, int, error) {
	var s []byte
	n := 0
loop:
	for {
		if n >= len(data) {
			return 0, 0, invalid("truncated DICT real number")
		}
		b := data[n]
		n++
		for _, nib := range [2]byte{b >> 4, b & 0x0f} {
			switch nib {
			case 0, 1, 2, 3, 4, 5, 6, 7, 8, 9:
				s = append(s, '0'+nib)
			case 0xa:
				s = append(s, '.')
			case 0xb:
				s = append(s, 'E')
			case 0xc:
				s = append(s, 'E', '-')
			case 0xe:
				s = append(s, '-')
			case 0xf:
				break loop
			}
		}
	}
	val, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0, n, nil // malformed real: treat as 0, permissively
	}
	return val, n, nil
}

func (d cffDict) getInt(op dictOp, dflt int32) int32 {
	ops, ok := d[op]
	if !ok || len(ops) == 0 {
		return dflt
	}
	switch v := ops[len(ops)-1].(type) {
	case int32:
		return v
	case float64:
		return int32(v)
	}
	return dflt
}

func (d cffDict) getFloat(op dictOp, dflt float64) float64 {
	ops, ok := d[op]
	if !ok || len(ops) == 0 {
		return dflt
	}
	switch v := ops[len(ops)-1].(type) {
	case int32:
		return float64(v)
	case float64:
		return v
	}
	return dflt
}

// getFontMatrix reads a FontMatrix operand (six reals), falling back to the
// standard 0.001 scale matrix CFF fonts almost always use.
func (d cffDict) getFontMatrix(op dictOp) [6]float64 {
	ops, ok := d[op]
	if !ok || len(ops) != 6 {
		return [6]float64{0.001, 0, 0, 0.001, 0, 0}
	}
	var m [6]float64
	for i, v := range ops {
		switch x := v.(type) {
		case int32:
			m[i] = float64(x)
		case float64:
			m[i] = x
		}
	}
	return m
}
