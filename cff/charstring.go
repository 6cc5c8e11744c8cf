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

// Package cff interprets Type 2 (CFF) and CFF2 CharStrings, turning the
// compact stack-machine program stored per-glyph in a CFF or CFF2 table
// into glyph outlines.
//
// The interpreter never reports errors: a malformed or truncated
// CharString yields whatever contours were built before the program ran
// out of usable instructions, the same policy the glyf package uses for
// TrueType glyph bodies. A glyph index outside a font's glyph count is
// reported through GlyphContours' ok result; only a structurally broken
// top-level table makes ReadCFF1 or ReadCFF2 return an error.
//
// Two distinct operand conventions are in play throughout the
// interpreter, and mixing them up is the most common source of bugs when
// porting a Type 2 decoder: arithmetic and stack-manipulation operators
// (add, sub, index, roll, ...) address the operand stack LIFO, from the
// top down — "the top two numbers" means the two most recently pushed.
// Path-building operators (rmoveto, rlineto, hvcurveto, ...) and the
// hint operators instead consume the stack FIFO, from the bottom up —
// "dx1 dy1 dx2 dy2 ... rlineto" takes the arguments in the order they
// were pushed. The code below keeps that split explicit: arithmetic
// operators index from len(stack)-1 downward, path operators slice from
// the front.
package cff

import (
	"math"

	"github.com/go-glyph/otfcore/outline"
	"github.com/go-glyph/otfcore/varstore"
)

const (
	maxStack     = 48
	maxCallDepth = 10
)

// Subrs is a local or global subroutine index: Type 2 CharStrings call into
// these by a biased index (see getSubr).
type Subrs [][]byte

// VariationContext supplies the Item Variation Store and normalized design
// coordinates a CFF2 CharString needs to evaluate its "blend" operator. A
// nil VariationContext (or a CharString that never uses vsindex/blend)
// leaves every blended value at its default.
type VariationContext struct {
	Store   *varstore.Store
	VSIndex int // default outer index, used until a vsindex operator changes it
	Coords  []float64
}

// ExecContext bundles everything RunCharString needs beyond the CharString
// bytes themselves: the subroutine indexes it may call into, the glyph
// width defaults from the Private DICT, and (for CFF2) a VariationContext.
type ExecContext struct {
	LocalSubrs  Subrs
	GlobalSubrs Subrs

	NominalWidthX int32
	DefaultWidthX int32

	// CFF2 is true when code is a CFF2 CharString. CFF2 CharStrings never
	// encode a width operand (haveWidth is permanently true), so the VM
	// must not mistake a glyph's first path/stem argument for a width.
	CFF2 bool

	// Variation is nil for CFF1 CharStrings and for CFF2 CharStrings that
	// should be evaluated at the font's default instance.
	Variation *VariationContext
}

// RunCharString interprets a Type 2 or CFF2 CharString and returns the
// glyph outline it draws, together with the glyph's advance width (only
// meaningful for CFF1; CFF2 CharStrings carry no width operand and the
// returned width always equals ctx.DefaultWidthX).
func RunCharString(code []byte, ctx *ExecContext) ([]outline.Contour, int32) {
	vm := &vm{ctx: ctx}
	if ctx.Variation != nil {
		vm.vsIndex = ctx.Variation.VSIndex
		vm.refreshScalars()
	}
	vm.width = ctx.DefaultWidthX
	vm.widthIsSet = ctx.CFF2
	vm.run(code, 0)
	vm.flushContour()
	return vm.contours, vm.width
}

type ccStage int

const (
	stageStart ccStage = iota
	stageStems
	stageHintMask
)

type vm struct {
	ctx *ExecContext

	stack   []Fixed16
	storage [32]Fixed16

	contours []outline.Contour
	current  outline.Contour

	posX, posY Fixed16
	hasMoved   bool

	width       int32
	widthIsSet  bool
	nStemHints  int
	stage       ccStage

	vsIndex int
	scalars []float64

	aborted bool
}

func (m *vm) refreshScalars() {
	v := m.ctx.Variation
	if v == nil || v.Store == nil {
		m.scalars = nil
		return
	}
	n := v.Store.RegionIndexCount(m.vsIndex)
	scalars := make([]float64, n)
	for i := range scalars {
		scalars[i] = v.Store.RegionScalar(m.vsIndex, i, v.Coords)
	}
	m.scalars = scalars
}

func (m *vm) clearStack() { m.stack = m.stack[:0] }

func (m *vm) setWidth(isPresent bool) {
	if m.widthIsSet {
		return
	}
	if isPresent && len(m.stack) > 0 {
		m.width = int32(m.stack[0].Int()) + m.ctx.NominalWidthX
		copy(m.stack, m.stack[1:])
		m.stack = m.stack[:len(m.stack)-1]
	}
	m.widthIsSet = true
}

func (m *vm) flushContour() {
	if len(m.current) > 0 {
		m.contours = append(m.contours, m.current)
		m.current = nil
	}
}

func (m *vm) moveTo(dx, dy Fixed16) {
	m.flushContour()
	m.hasMoved = true
	m.posX += dx
	m.posY += dy
	m.current = append(m.current, outline.Point{
		X: m.posX.Round(), Y: m.posY.Round(), OnCurve: true,
	})
}

func (m *vm) lineTo(dx, dy Fixed16) {
	if !m.hasMoved {
		m.aborted = true
		return
	}
	m.posX += dx
	m.posY += dy
	m.current = append(m.current, outline.Point{
		X: m.posX.Round(), Y: m.posY.Round(), OnCurve: true,
	})
}

func (m *vm) curveTo(dxa, dya, dxb, dyb, dxc, dyc Fixed16) {
	if !m.hasMoved {
		m.aborted = true
		return
	}
	xa := m.posX + dxa
	ya := m.posY + dya
	xb := xa + dxb
	yb := ya + dyb
	m.posX = xb + dxc
	m.posY = yb + dyc
	m.current = append(m.current,
		outline.Point{X: xa.Round(), Y: ya.Round(), Cubic: true},
		outline.Point{X: xb.Round(), Y: yb.Round(), Cubic: true},
		outline.Point{X: m.posX.Round(), Y: m.posY.Round(), OnCurve: true},
	)
}

// run interprets code, recursing into subroutines via callsubr/callgsubr.
// depth counts the current subroutine call nesting, bounded by
// maxCallDepth as the Type 2 specification requires.
func (m *vm) run(code []byte, depth int) {
	if depth > maxCallDepth {
		m.aborted = true
		return
	}

	for len(code) > 0 {
		if m.aborted || len(m.stack) > maxStack {
			return
		}

		op := t2op(code[0])

		if op >= 32 && op <= 246 {
			m.stack = append(m.stack, f16FromInt16(int16(op)-139))
			code = code[1:]
			continue
		} else if op >= 247 && op <= 250 {
			if len(code) < 2 {
				return
			}
			val := (int16(op)-247)*256 + int16(code[1]) + 108
			m.stack = append(m.stack, f16FromInt16(val))
			code = code[2:]
			continue
		} else if op >= 251 && op <= 254 {
			if len(code) < 2 {
				return
			}
			val := (251-int16(op))*256 - int16(code[1]) - 108
			m.stack = append(m.stack, f16FromInt16(val))
			code = code[2:]
			continue
		} else if op == 28 {
			if len(code) < 3 {
				return
			}
			val := int16(code[1])<<8 | int16(code[2])
			m.stack = append(m.stack, f16FromInt16(val))
			code = code[3:]
			continue
		} else if op == 255 {
			if len(code) < 5 {
				return
			}
			val := Fixed16(code[1])<<24 | Fixed16(code[2])<<16 |
				Fixed16(code[3])<<8 | Fixed16(code[4])
			m.stack = append(m.stack, val)
			code = code[5:]
			continue
		}

		if op == 12 {
			if len(code) < 2 {
				return
			}
			op = op<<8 | t2op(code[1])
			code = code[2:]
		} else {
			code = code[1:]
		}

		switch op {
		case t2rmoveto:
			m.setWidth(len(m.stack) > 2)
			if len(m.stack) >= 2 {
				m.moveTo(m.stack[0], m.stack[1])
			}
			m.clearStack()

		case t2hmoveto:
			m.setWidth(len(m.stack) > 1)
			if len(m.stack) >= 1 {
				m.moveTo(m.stack[0], 0)
			}
			m.clearStack()

		case t2vmoveto:
			m.setWidth(len(m.stack) > 1)
			if len(m.stack) >= 1 {
				m.moveTo(0, m.stack[0])
			}
			m.clearStack()

		case t2rlineto:
			pos := 0
			for pos+1 < len(m.stack) {
				m.lineTo(m.stack[pos], m.stack[pos+1])
				pos += 2
			}
			m.clearStack()

		case t2hlineto, t2vlineto:
			horizontal := op == t2hlineto
			for _, z := range m.stack {
				if horizontal {
					m.lineTo(z, 0)
				} else {
					m.lineTo(0, z)
				}
				horizontal = !horizontal
			}
			m.clearStack()

		case t2rrcurveto, t2rcurveline, t2rlinecurve:
			tmp := m.stack
			for op == t2rlinecurve && len(tmp) >= 8 {
				m.lineTo(tmp[0], tmp[1])
				tmp = tmp[2:]
			}
			for len(tmp) >= 6 {
				m.curveTo(tmp[0], tmp[1], tmp[2], tmp[3], tmp[4], tmp[5])
				tmp = tmp[6:]
			}
			if op == t2rcurveline && len(tmp) >= 2 {
				m.lineTo(tmp[0], tmp[1])
			}
			m.clearStack()

		case t2hhcurveto:
			tmp := m.stack
			var dy1 Fixed16
			if len(tmp)%4 != 0 {
				dy1, tmp = tmp[0], tmp[1:]
			}
			for len(tmp) >= 4 {
				m.curveTo(tmp[0], dy1, tmp[1], tmp[2], tmp[3], 0)
				tmp = tmp[4:]
				dy1 = 0
			}
			m.clearStack()

		case t2vvcurveto:
			tmp := m.stack
			var dx1 Fixed16
			if len(tmp)%4 != 0 {
				dx1, tmp = tmp[0], tmp[1:]
			}
			for len(tmp) >= 4 {
				m.curveTo(dx1, tmp[0], tmp[1], tmp[2], 0, tmp[3])
				tmp = tmp[4:]
				dx1 = 0
			}
			m.clearStack()

		case t2hvcurveto, t2vhcurveto:
			tmp := m.stack
			horizontal := op == t2hvcurveto
			for len(tmp) >= 4 {
				var extra Fixed16
				if len(tmp) == 5 {
					extra = tmp[4]
				}
				if horizontal {
					m.curveTo(tmp[0], 0, tmp[1], tmp[2], extra, tmp[3])
				} else {
					m.curveTo(0, tmp[0], tmp[1], tmp[2], tmp[3], extra)
				}
				tmp = tmp[4:]
				horizontal = !horizontal
			}
			m.clearStack()

		case t2flex:
			if len(m.stack) >= 13 {
				m.curveTo(m.stack[0], m.stack[1], m.stack[2], m.stack[3], m.stack[4], m.stack[5])
				m.curveTo(m.stack[6], m.stack[7], m.stack[8], m.stack[9], m.stack[10], m.stack[11])
			}
			m.clearStack()

		case t2flex1:
			if len(m.stack) >= 11 {
				m.curveTo(m.stack[0], m.stack[1], m.stack[2], m.stack[3], m.stack[4], m.stack[5])
				extra := m.stack[10]
				dx := m.stack[0] + m.stack[2] + m.stack[4] + m.stack[6] + m.stack[8]
				dy := m.stack[1] + m.stack[3] + m.stack[5] + m.stack[7] + m.stack[9]
				if dx.Abs() > dy.Abs() {
					m.curveTo(m.stack[6], m.stack[7], m.stack[8], m.stack[9], extra, -dy)
				} else {
					m.curveTo(m.stack[6], m.stack[7], m.stack[8], m.stack[9], -dx, extra)
				}
			}
			m.clearStack()

		case t2hflex:
			if len(m.stack) >= 7 {
				m.curveTo(m.stack[0], 0, m.stack[1], m.stack[2], m.stack[3], 0)
				m.curveTo(m.stack[4], 0, m.stack[5], -m.stack[2], m.stack[6], 0)
			}
			m.clearStack()

		case t2hflex1:
			if len(m.stack) >= 9 {
				m.curveTo(m.stack[0], m.stack[1], m.stack[2], m.stack[3], m.stack[4], 0)
				dy := m.stack[1] + m.stack[3] + m.stack[7]
				m.curveTo(m.stack[5], 0, m.stack[6], m.stack[7], m.stack[8], -dy)
			}
			m.clearStack()

		case t2dotsection: // deprecated, no-op
			m.clearStack()

		case t2hstem, t2hstemhm, t2vstem, t2vstemhm:
			if m.stage > stageStems || len(m.stack) < 2 {
				m.aborted = true
				return
			}
			m.stage = stageStems
			m.setWidth(len(m.stack)%2 == 1)
			m.nStemHints += len(m.stack) / 2
			m.clearStack()

		case t2hintmask, t2cntrmask:
			if len(m.stack) >= 2 {
				if m.stage > stageStems {
					m.aborted = true
					return
				}
				m.stage = stageStems
			}
			m.setWidth(len(m.stack)%2 == 1)
			m.nStemHints += len(m.stack) / 2
			if m.stage < stageStems {
				m.aborted = true
				return
			}
			m.stage = stageHintMask

			if m.nStemHints == 0 {
				return
			}
			k := (m.nStemHints + 7) / 8
			if k > len(code) {
				return
			}
			code = code[k:]
			m.clearStack()

		case t2vsindex:
			k := len(m.stack) - 1
			if k < 0 {
				m.aborted = true
				return
			}
			m.vsIndex = m.stack[k].Int()
			m.stack = m.stack[:k]
			m.refreshScalars()

		case t2blend:
			k := len(m.stack) - 1
			if k < 0 {
				m.aborted = true
				return
			}
			numBlends := m.stack[k].Int()
			m.stack = m.stack[:k]
			regionCount := len(m.scalars)
			needed := numBlends * (1 + regionCount)
			if numBlends < 0 || needed > len(m.stack) {
				m.aborted = true
				return
			}
			base := len(m.stack) - needed
			deltaStart := base + numBlends
			for i := 0; i < numBlends; i++ {
				var sum float64
				for j := 0; j < regionCount; j++ {
					sum += m.stack[deltaStart+i*regionCount+j].Float64() * m.scalars[j]
				}
				m.stack[base+i] += f16(sum)
			}
			m.stack = m.stack[:base+numBlends]

		case t2abs:
			k := len(m.stack) - 1
			if k < 0 {
				m.aborted = true
				return
			}
			if m.stack[k] < 0 {
				m.stack[k] = -m.stack[k]
			}
		case t2add:
			k := len(m.stack) - 2
			if k < 0 {
				m.aborted = true
				return
			}
			m.stack[k] += m.stack[k+1]
			m.stack = m.stack[:k+1]
		case t2sub:
			k := len(m.stack) - 2
			if k < 0 {
				m.aborted = true
				return
			}
			m.stack[k] -= m.stack[k+1]
			m.stack = m.stack[:k+1]
		case t2div:
			k := len(m.stack) - 2
			if k < 0 {
				m.aborted = true
				return
			}
			var x Fixed16
			if m.stack[k+1] != 0 {
				x = f16(m.stack[k].Float64() / m.stack[k+1].Float64())
			}
			m.stack[k] = x
			m.stack = m.stack[:k+1]
		case t2neg:
			k := len(m.stack) - 1
			if k < 0 {
				m.aborted = true
				return
			}
			m.stack[k] = -m.stack[k]
		case t2random:
			m.stack = append(m.stack, 40501) // a fixed constant in (0, 1]
		case t2mul:
			k := len(m.stack) - 2
			if k < 0 {
				m.aborted = true
				return
			}
			m.stack[k] = Fixed16(int64(m.stack[k]) * int64(m.stack[k+1]) >> 16)
			m.stack = m.stack[:k+1]
		case t2sqrt:
			k := len(m.stack) - 1
			if k < 0 {
				m.aborted = true
				return
			}
			var x Fixed16
			if m.stack[k] > 0 {
				x = f16(math.Sqrt(m.stack[k].Float64()))
			}
			m.stack[k] = x
		case t2drop:
			k := len(m.stack) - 1
			if k < 0 {
				m.aborted = true
				return
			}
			m.stack = m.stack[:k]
		case t2exch:
			k := len(m.stack) - 2
			if k < 0 {
				m.aborted = true
				return
			}
			m.stack[k], m.stack[k+1] = m.stack[k+1], m.stack[k]
		case t2index:
			k := len(m.stack) - 1
			if k < 0 {
				m.aborted = true
				return
			}
			idx := m.stack[k].Int()
			if idx < 0 {
				idx = 0
			}
			if k-idx-1 < 0 {
				m.aborted = true
				return
			}
			m.stack[k] = m.stack[k-idx-1]
		case t2roll:
			k := len(m.stack) - 2
			if k < 0 {
				m.aborted = true
				return
			}
			n := m.stack[k].Int()
			j := m.stack[k+1].Int()
			if n <= 0 || n > k {
				m.aborted = true
				return
			}
			rollStack(m.stack[k-n:k], j)
			m.stack = m.stack[:k]
		case t2dup:
			k := len(m.stack) - 1
			if k < 0 {
				m.aborted = true
				return
			}
			m.stack = append(m.stack, m.stack[k])

		case t2put:
			k := len(m.stack) - 2
			if k < 0 {
				m.aborted = true
				return
			}
			idx := m.stack[k+1].Int()
			if idx < 0 || idx >= len(m.storage) {
				m.aborted = true
				return
			}
			m.storage[idx] = m.stack[k]
			m.stack = m.stack[:k]
		case t2get:
			k := len(m.stack) - 1
			if k < 0 {
				m.aborted = true
				return
			}
			idx := m.stack[k].Int()
			if idx < 0 || idx >= len(m.storage) {
				m.aborted = true
				return
			}
			m.stack[k] = m.storage[idx]

		case t2and:
			k := len(m.stack) - 2
			if k < 0 {
				m.aborted = true
				return
			}
			var val Fixed16
			if m.stack[k] != 0 && m.stack[k+1] != 0 {
				val = f16FromInt16(1)
			}
			m.stack = append(m.stack[:k], val)
		case t2or:
			k := len(m.stack) - 2
			if k < 0 {
				m.aborted = true
				return
			}
			var val Fixed16
			if m.stack[k] != 0 || m.stack[k+1] != 0 {
				val = f16FromInt16(1)
			}
			m.stack = append(m.stack[:k], val)
		case t2not:
			k := len(m.stack) - 1
			if k < 0 {
				m.aborted = true
				return
			}
			if m.stack[k] == 0 {
				m.stack[k] = f16FromInt16(1)
			} else {
				m.stack[k] = 0
			}
		case t2eq:
			k := len(m.stack) - 2
			if k < 0 {
				m.aborted = true
				return
			}
			if m.stack[k] == m.stack[k+1] {
				m.stack[k] = f16FromInt16(1)
			} else {
				m.stack[k] = 0
			}
			m.stack = m.stack[:k+1]
		case t2ifelse:
			k := len(m.stack) - 4
			if k < 0 {
				m.aborted = true
				return
			}
			var val Fixed16
			if m.stack[k+2] <= m.stack[k+3] {
				val = m.stack[k]
			} else {
				val = m.stack[k+1]
			}
			m.stack = append(m.stack[:k], val)

		case t2callsubr, t2callgsubr:
			k := len(m.stack) - 1
			if k < 0 {
				m.aborted = true
				return
			}
			biased := m.stack[k].Int()
			m.stack = m.stack[:k]

			var subrs Subrs
			if op == t2callsubr {
				subrs = m.ctx.LocalSubrs
			} else {
				subrs = m.ctx.GlobalSubrs
			}
			sub, ok := getSubr(subrs, biased)
			if !ok {
				m.aborted = true
				return
			}
			m.run(sub, depth+1)
			if m.aborted {
				return
			}

		case t2return:
			return

		case t2endchar:
			m.setWidth(len(m.stack) == 1 || len(m.stack) > 4)
			return

		default:
			m.aborted = true
			return
		}

		if m.aborted {
			return
		}
	}
}

// getSubr resolves a CharString-encoded (biased) subroutine index to the
// actual subroutine bytes, per the Type 2 bias convention.
func getSubr(subrs Subrs, biased int) ([]byte, bool) {
	var offset int
	n := len(subrs)
	if n < 1240 {
		offset = 107
	} else if n < 33900 {
		offset = 1131
	} else {
		offset = 32768
	}
	idx := biased + offset
	if idx < 0 || idx >= n {
		return nil, false
	}
	return subrs[idx], true
}

func rollStack(data []Fixed16, j int) {
	n := len(data)
	if n == 0 {
		return
	}
	j = j % n
	if j < 0 {
		j += n
	}
	tmp := make([]Fixed16, j)
	copy(tmp, data[n-j:])
	copy(data[j:], data[:n-j])
	copy(data[:j], tmp)
}

type t2op uint16

const (
	t2hstem      t2op = 0x0001
	t2vstem      t2op = 0x0003
	t2vmoveto    t2op = 0x0004
	t2rlineto    t2op = 0x0005
	t2hlineto    t2op = 0x0006
	t2vlineto    t2op = 0x0007
	t2rrcurveto  t2op = 0x0008
	t2callsubr   t2op = 0x000a
	t2return     t2op = 0x000b
	t2endchar    t2op = 0x000e
	t2vsindex    t2op = 0x000f
	t2blend      t2op = 0x0010
	t2hstemhm    t2op = 0x0012
	t2hintmask   t2op = 0x0013
	t2cntrmask   t2op = 0x0014
	t2rmoveto    t2op = 0x0015
	t2hmoveto    t2op = 0x0016
	t2vstemhm    t2op = 0x0017
	t2rcurveline t2op = 0x0018
	t2rlinecurve t2op = 0x0019
	t2vvcurveto  t2op = 0x001a
	t2hhcurveto  t2op = 0x001b
	t2callgsubr  t2op = 0x001d
	t2vhcurveto  t2op = 0x001e
	t2hvcurveto  t2op = 0x001f

	t2dotsection t2op = 0x0c00
	t2and        t2op = 0x0c03
	t2or         t2op = 0x0c04
	t2not        t2op = 0x0c05
	t2abs        t2op = 0x0c09
	t2add        t2op = 0x0c0a
	t2sub        t2op = 0x0c0b
	t2div        t2op = 0x0c0c
	t2neg        t2op = 0x0c0e
	t2eq         t2op = 0x0c0f
	t2drop       t2op = 0x0c12
	t2put        t2op = 0x0c14
	t2get        t2op = 0x0c15
	t2ifelse     t2op = 0x0c16
	t2random     t2op = 0x0c17
	t2mul        t2op = 0x0c18
	t2sqrt       t2op = 0x0c1a
	t2dup        t2op = 0x0c1b
	t2exch       t2op = 0x0c1c
	t2index      t2op = 0x0c1d
	t2roll       t2op = 0x0c1e
	t2hflex      t2op = 0x0c22
	t2flex       t2op = 0x0c23
	t2hflex1     t2op = 0x0c24
	t2flex1      t2op = 0x0c25
)
