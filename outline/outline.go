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

// Package outline contains the glyph outline data model shared by the glyf
// and cff packages: points, contours, and the composite-glyph component
// description.  Both outline producers (the TrueType glyph parser and the
// Type 2 CharString VM) build their result in these types, so a caller never
// needs to know which table a glyph outline came from.
package outline

import (
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/postscript/funit"

	"github.com/go-glyph/otfcore/glyph"
)

// Point is a single point of a glyph outline, in font design units.
//
// Cubic is only meaningful when OnCurve is false: it distinguishes CFF
// cubic Bézier control points from TrueType quadratic control points.
// Cubic is never true while OnCurve is true.
type Point struct {
	X, Y    int32
	OnCurve bool
	Cubic   bool
}

// Contour is an ordered sequence of points describing one closed sub-path.
// Contours produced by this module are never empty. CFF contours start with
// the on-curve point placed by the *moveto that opened them; TrueType
// contours keep the point order of the glyph data, so their first point may
// be off-curve.
type Contour []Point

// Kind discriminates the variants of Glyph.
type Kind byte

const (
	// KindEmpty is a glyph with no outline (space, etc.).
	KindEmpty Kind = iota
	// KindSimple is a glyph described directly by contours.
	KindSimple
	// KindComposite is a glyph assembled from component glyphs.
	KindComposite
)

// Glyph is a tagged union of the three TrueType glyph variants.  The cff
// package does not build Glyph values; it returns CFF outlines directly as
// contour lists.
type Glyph struct {
	Kind Kind

	// Bounds is the glyph's bounding box, as stored in the glyph header.
	Bounds funit.Rect16

	// Contours holds the outline for KindSimple glyphs.
	Contours []Contour

	// Components holds the component list for KindComposite glyphs.
	Components []Component

	// Instructions is the hinting byte-code program, preserved verbatim
	// and never executed (see spec.md §1 Non-goals).
	Instructions []byte
}

// ComponentFlag mirrors the TrueType composite-glyph component flags.
//
// https://learn.microsoft.com/en-us/typography/opentype/spec/glyf#compositeGlyphFlags
type ComponentFlag uint16

const (
	FlagArg1And2AreWords        ComponentFlag = 0x0001
	FlagArgsAreXYValues         ComponentFlag = 0x0002
	FlagRoundXYToGrid           ComponentFlag = 0x0004
	FlagWeHaveAScale            ComponentFlag = 0x0008
	FlagMoreComponents          ComponentFlag = 0x0020
	FlagWeHaveAnXAndYScale      ComponentFlag = 0x0040
	FlagWeHaveATwoByTwo         ComponentFlag = 0x0080
	FlagWeHaveInstructions      ComponentFlag = 0x0100
	FlagUseMyMetrics            ComponentFlag = 0x0200
	FlagOverlapCompound         ComponentFlag = 0x0400
	FlagScaledComponentOffset   ComponentFlag = 0x0800
	FlagUnscaledComponentOffset ComponentFlag = 0x1000
)

// Component records one entry of a composite glyph: a reference to another
// glyph, a 2×2 transform, and the two component arguments, whose meaning
// depends on FlagArgsAreXYValues.
type Component struct {
	GlyphIndex glyph.ID
	Flags      ComponentFlag

	// Matrix is the [a b c d dx dy] affine transform ([xx xy yx yy dx dy] in
	// seehuhn.de/go/geom/matrix's convention), defaulting to identity with a
	// zero offset.  Dx/Dy are also mirrored into Matrix[4]/Matrix[5] when
	// FlagArgsAreXYValues is set, so callers that only want the matrix don't
	// need to special-case point-matching components (which instead carry
	// OurPoint/TheirPoint and leave Matrix's offset at zero).
	Matrix matrix.Matrix

	// Dx, Dy are the integer offsets in design units when
	// FlagArgsAreXYValues is set.
	Dx, Dy int32

	// OurPoint, TheirPoint are point indices into the host and the
	// referenced glyph respectively, used for point-matching alignment when
	// FlagArgsAreXYValues is clear.  See spec.md §9 Open Question 1: this
	// module records these indices but does not resolve point-matching
	// anchoring, matching the reference behavior of leaving (dx,dy)=(0,0).
	OurPoint, TheirPoint int16
}

// IdentityMatrix is the default composite transform.
var IdentityMatrix = matrix.Matrix{1, 0, 0, 1, 0, 0}
