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

// Package glyf reads the "glyf" table, the TrueType outline format.  Unlike
// the table-reading collaborators in loca and parser, the functions here
// never return an error for malformed glyph bodies: they degrade to the
// largest partial result that could be recovered, matching the permissive
// failure policy used by rasterizers that have to cope with fonts found in
// the wild. Only a request for a glyph ID outside of the font's range is
// reported as an error, since that is a caller bug rather than bad font
// data.
package glyf

import (
	"container/list"
	"sync"

	"seehuhn.de/go/postscript/funit"

	"github.com/go-glyph/otfcore/glyph"
	"github.com/go-glyph/otfcore/loca"
	"github.com/go-glyph/otfcore/outline"
	"github.com/go-glyph/otfcore/parser"
)

// maxComponentDepth bounds composite-glyph recursion. A composite whose
// component chain is nested this deep is almost certainly a corrupt or
// malicious font describing a cycle; flattening stops and treats the
// offending component as empty rather than looping or overflowing the
// stack.
const maxComponentDepth = 32

// cacheCapacity is the number of flattened glyphs kept in the cache.
const cacheCapacity = 256

// DeltaSource supplies per-glyph point deltas for variable fonts, applied to
// a simple glyph's points before composite components are transformed. The
// gvar package implements this interface; glyf does not import gvar so that
// a non-variable caller pays nothing for the feature.
type DeltaSource interface {
	// GlyphDeltas returns the (dx, dy) adjustment for each of a glyph's
	// numPoints outline points, in the same order as decodeSimple produces
	// them; no deltas for the four phantom points are returned. ok is false
	// if gid carries no variation data, in which case the caller applies no
	// deltas.
	GlyphDeltas(gid glyph.ID, numPoints int, coords []float64) (dx, dy []float64, ok bool)
}

// Font is a decoded view over a font's "glyf" and "loca" tables.  A Font is
// safe for concurrent use: the only mutable state is the flattening cache,
// which is guarded by a mutex.
type Font struct {
	glyfData []byte
	index    *loca.Index

	cacheMu sync.Mutex
	cache   map[glyph.ID]*list.Element
	order   *list.List // insertion order, oldest at the back; FIFO eviction
}

type cacheEntry struct {
	gid      glyph.ID
	contours []outline.Contour
}

// New returns a Font reading glyph outlines from glyfData, located by index.
func New(glyfData []byte, index *loca.Index) *Font {
	return &Font{
		glyfData: glyfData,
		index:    index,
		cache:    make(map[glyph.ID]*list.Element),
		order:    list.New(),
	}
}

// NumGlyphs returns the number of glyphs covered by the font's loca index.
func (f *Font) NumGlyphs() int {
	return f.index.NumGlyphs()
}

// ParseGlyph reads the header and outline of a single glyph, without
// resolving composite components to absolute point positions.  It returns
// an error only when gid is outside of the font's glyph range; a glyph body
// that cannot be parsed degrades to outline.KindEmpty.
func (f *Font) ParseGlyph(gid glyph.ID) (outline.Glyph, error) {
	off, length, ok := f.index.Locate(gid)
	if !ok {
		if int(gid) < 0 || int(gid) >= f.index.NumGlyphs() {
			return outline.Glyph{}, &parser.InvalidFontError{
				SubSystem: "glyf",
				Reason:    "glyph ID out of range",
			}
		}
		// In-range but zero-length: a valid empty glyph (e.g. space).
		return outline.Glyph{Kind: outline.KindEmpty}, nil
	}

	r, err := parser.New(f.glyfData).Slice(int(off), int(length))
	if err != nil {
		// loca points past the glyf data: bad font data, not a caller bug.
		return outline.Glyph{Kind: outline.KindEmpty}, nil
	}
	return parseGlyphBody(r)
}

func parseGlyphBody(r *parser.Reader) (outline.Glyph, error) {
	if r.Len() < 10 {
		return outline.Glyph{Kind: outline.KindEmpty}, nil
	}
	numContours, err := r.Int16()
	if err != nil {
		return outline.Glyph{Kind: outline.KindEmpty}, nil
	}
	xMin, e1 := r.Int16()
	yMin, e2 := r.Int16()
	xMax, e3 := r.Int16()
	yMax, e4 := r.Int16()
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
		return outline.Glyph{Kind: outline.KindEmpty}, nil
	}
	bounds := funit.Rect16{LLx: funit.Int16(xMin), LLy: funit.Int16(yMin), URx: funit.Int16(xMax), URy: funit.Int16(yMax)}

	if numContours >= 0 {
		contours, instr := decodeSimple(r, int(numContours))
		kind := outline.KindSimple
		if len(contours) == 0 {
			kind = outline.KindEmpty
		}
		return outline.Glyph{
			Kind:         kind,
			Bounds:       bounds,
			Contours:     contours,
			Instructions: instr,
		}, nil
	}

	components, instr := decodeComposite(r)
	kind := outline.KindComposite
	if len(components) == 0 {
		kind = outline.KindEmpty
	}
	return outline.Glyph{
		Kind:         kind,
		Bounds:       bounds,
		Components:   components,
		Instructions: instr,
	}, nil
}

// Contours returns the fully flattened, absolute-coordinate outline of gid:
// for a simple glyph, its own contours; for a composite glyph, the
// concatenation of its (recursively flattened and transformed) component
// outlines. Results are cached with FIFO eviction in insertion order,
// bounded by cacheCapacity; the cache is safe for concurrent use.
func (f *Font) Contours(gid glyph.ID) ([]outline.Contour, error) {
	if c, ok := f.cacheGet(gid); ok {
		return c, nil
	}
	contours, err := f.flatten(gid, 0)
	if err != nil {
		return nil, err
	}
	f.cachePut(gid, contours)
	return contours, nil
}

// ContoursWithVariation is Contours, with gvar (or another DeltaSource)
// deltas applied to each simple glyph's points before transforms are
// composed. The flattening cache is bypassed: a font's variation
// coordinates change per call, so a cached result for one set of axis
// coordinates would be wrong for another.
func (f *Font) ContoursWithVariation(gid glyph.ID, deltas DeltaSource, coords []float64) ([]outline.Contour, error) {
	return f.flattenVar(gid, 0, deltas, coords)
}

// Bounds returns a glyph's header bounding box, without flattening its
// outline.
func (f *Font) Bounds(gid glyph.ID) (funit.Rect16, error) {
	g, err := f.ParseGlyph(gid)
	if err != nil {
		return funit.Rect16{}, err
	}
	return g.Bounds, nil
}

// ContoursAndBounds returns a glyph's flattened outline together with its
// header bounding box in a single call. It is equivalent to calling Contours
// and Bounds separately, except that ok reports whether the bounding box can
// be trusted: it is false for an empty glyph and for any glyph whose header
// box is all zero, so callers can fall back to computing bounds from the
// returned contours instead of trusting a zero rectangle.
func (f *Font) ContoursAndBounds(gid glyph.ID) (contours []outline.Contour, bounds funit.Rect16, ok bool, err error) {
	g, err := f.ParseGlyph(gid)
	if err != nil {
		return nil, funit.Rect16{}, false, err
	}
	contours, err = f.Contours(gid)
	if err != nil {
		return nil, funit.Rect16{}, false, err
	}
	hasBounds := g.Kind != outline.KindEmpty && !g.Bounds.IsZero()
	return contours, g.Bounds, hasBounds, nil
}

func (f *Font) cacheGet(gid glyph.ID) ([]outline.Contour, bool) {
	f.cacheMu.Lock()
	defer f.cacheMu.Unlock()
	el, ok := f.cache[gid]
	if !ok {
		return nil, false
	}
	// FIFO: a read never changes an entry's position in the eviction order.
	return el.Value.(*cacheEntry).contours, true
}

func (f *Font) cachePut(gid glyph.ID, contours []outline.Contour) {
	f.cacheMu.Lock()
	defer f.cacheMu.Unlock()
	if el, ok := f.cache[gid]; ok {
		el.Value.(*cacheEntry).contours = contours
		return
	}
	el := f.order.PushFront(&cacheEntry{gid: gid, contours: contours})
	f.cache[gid] = el
	for f.order.Len() > cacheCapacity {
		back := f.order.Back()
		if back == nil {
			break
		}
		f.order.Remove(back)
		delete(f.cache, back.Value.(*cacheEntry).gid)
	}
}
