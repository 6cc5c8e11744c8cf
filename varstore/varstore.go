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

// Package varstore reads the Item Variation Store, the shared table format
// used by HVAR, MVAR, and (embedded in the top-level CFF2 table) the CFF2
// CharString interpreter's "blend" operator.
//
// https://learn.microsoft.com/en-us/typography/opentype/spec/otvaroverview#item-variation-store
package varstore

import (
	"github.com/go-glyph/otfcore/parser"
)

type axisTriple struct {
	start, peak, end float64
}

type itemVariationData struct {
	regionIndexes  []uint16
	shortDeltaSets [][]int16
	byteDeltaSets  [][]int8
}

// Store is a decoded Item Variation Store.
type Store struct {
	axisCount int
	regions   [][]axisTriple // regions[i][axis] = {start, peak, end}
	data      []itemVariationData
}

// Decode parses an Item Variation Store from its byte range (the caller has
// already sliced out the ItemVariationStore sub-table, e.g. from inside
// HVAR, MVAR, or the CFF2 table's Variation Store offset).
func Decode(buf []byte) (*Store, error) {
	r := parser.New(buf)

	format, err := r.Uint16()
	if err != nil || format != 1 {
		return nil, invalid("bad format")
	}
	regionListOffset, err := r.Offset32()
	if err != nil {
		return nil, invalid("truncated header")
	}
	dataCount, err := r.Uint16()
	if err != nil {
		return nil, invalid("truncated header")
	}
	dataOffsets := make([]uint32, dataCount)
	for i := range dataOffsets {
		v, err := r.Offset32()
		if err != nil {
			return nil, invalid("truncated offset table")
		}
		dataOffsets[i] = v
	}

	regions, axisCount, err := decodeRegionList(buf, int(regionListOffset))
	if err != nil {
		return nil, err
	}

	s := &Store{axisCount: axisCount, regions: regions}
	s.data = make([]itemVariationData, dataCount)
	for i, off := range dataOffsets {
		d, err := decodeItemVariationData(buf, int(off))
		if err != nil {
			return nil, err
		}
		s.data[i] = d
	}
	return s, nil
}

func decodeRegionList(buf []byte, off int) ([][]axisTriple, int, error) {
	r, err := parser.New(buf).SliceFrom(off)
	if err != nil {
		return nil, 0, invalid("region list out of range")
	}
	axisCount, err := r.Uint16()
	if err != nil {
		return nil, 0, invalid("truncated region list")
	}
	regionCount, err := r.Uint16()
	if err != nil {
		return nil, 0, invalid("truncated region list")
	}
	regions := make([][]axisTriple, regionCount)
	for i := range regions {
		axes := make([]axisTriple, axisCount)
		for a := range axes {
			start, e1 := r.F2Dot14()
			peak, e2 := r.F2Dot14()
			end, e3 := r.F2Dot14()
			if e1 != nil || e2 != nil || e3 != nil {
				return nil, 0, invalid("truncated region")
			}
			axes[a] = axisTriple{start: start, peak: peak, end: end}
		}
		regions[i] = axes
	}
	return regions, int(axisCount), nil
}

func decodeItemVariationData(buf []byte, off int) (itemVariationData, error) {
	r, err := parser.New(buf).SliceFrom(off)
	if err != nil {
		return itemVariationData{}, invalid("item variation data out of range")
	}
	itemCount, err := r.Uint16()
	if err != nil {
		return itemVariationData{}, invalid("truncated item variation data")
	}
	shortDeltaCount, err := r.Uint16()
	if err != nil {
		return itemVariationData{}, invalid("truncated item variation data")
	}
	regionIndexCount, err := r.Uint16()
	if err != nil {
		return itemVariationData{}, invalid("truncated item variation data")
	}
	regionIndexes := make([]uint16, regionIndexCount)
	for i := range regionIndexes {
		v, err := r.Uint16()
		if err != nil {
			return itemVariationData{}, invalid("truncated region index list")
		}
		regionIndexes[i] = v
	}

	d := itemVariationData{
		regionIndexes:  regionIndexes,
		shortDeltaSets: make([][]int16, itemCount),
		byteDeltaSets:  make([][]int8, itemCount),
	}
	byteCount := int(regionIndexCount) - int(shortDeltaCount)
	if byteCount < 0 {
		return itemVariationData{}, invalid("shortDeltaCount exceeds regionIndexCount")
	}
	for i := 0; i < int(itemCount); i++ {
		shorts := make([]int16, shortDeltaCount)
		for j := range shorts {
			v, err := r.Int16()
			if err != nil {
				return itemVariationData{}, invalid("truncated delta set")
			}
			shorts[j] = v
		}
		bytes := make([]int8, byteCount)
		for j := range bytes {
			v, err := r.Int8()
			if err != nil {
				return itemVariationData{}, invalid("truncated delta set")
			}
			bytes[j] = v
		}
		d.shortDeltaSets[i] = shorts
		d.byteDeltaSets[i] = bytes
	}
	return d, nil
}

// RegionIndexCount returns the number of variation regions that
// itemVariationData[outer] references, i.e. the number of blend values the
// CFF2 "blend" operator must pop per value for that vsindex.
func (s *Store) RegionIndexCount(outer int) int {
	if s == nil || outer < 0 || outer >= len(s.data) {
		return 0
	}
	return len(s.data[outer].regionIndexes)
}

// RegionScalar returns the interpolation scalar for the regionPos-th region
// referenced by itemVariationData[outer], at the given normalized
// coordinates.
func (s *Store) RegionScalar(outer, regionPos int, coords []float64) float64 {
	if s == nil || outer < 0 || outer >= len(s.data) {
		return 0
	}
	d := s.data[outer]
	if regionPos < 0 || regionPos >= len(d.regionIndexes) {
		return 0
	}
	regionIdx := int(d.regionIndexes[regionPos])
	if regionIdx < 0 || regionIdx >= len(s.regions) {
		return 0
	}
	return regionScalar(s.regions[regionIdx], coords)
}

func regionScalar(axes []axisTriple, coords []float64) float64 {
	scalar := 1.0
	for i, ax := range axes {
		if ax.peak == 0 {
			continue
		}
		var coord float64
		if i < len(coords) {
			coord = coords[i]
		}
		if coord == ax.peak {
			continue
		}
		if coord < ax.start || coord > ax.end {
			return 0
		}
		if coord < ax.peak {
			if ax.peak == ax.start {
				continue
			}
			scalar *= (coord - ax.start) / (ax.peak - ax.start)
		} else {
			if ax.peak == ax.end {
				continue
			}
			scalar *= (ax.end - coord) / (ax.end - ax.peak)
		}
	}
	return scalar
}

// GetDelta returns the accumulated scaled delta for item (outer, inner) —
// the packed variation index used by HVAR, MVAR, and other consumers of an
// Item Variation Store outside of CFF2 — at the given normalized
// coordinates.
func (s *Store) GetDelta(outer, inner int, coords []float64) float64 {
	if s == nil || outer < 0 || outer >= len(s.data) {
		return 0
	}
	d := s.data[outer]
	if inner < 0 || inner >= len(d.shortDeltaSets) {
		return 0
	}
	var total float64
	shorts := d.shortDeltaSets[inner]
	bytes := d.byteDeltaSets[inner]
	for i := range d.regionIndexes {
		var delta float64
		if i < len(shorts) {
			delta = float64(shorts[i])
		} else {
			delta = float64(bytes[i-len(shorts)])
		}
		total += delta * s.RegionScalar(outer, i, coords)
	}
	return total
}

// AxisCount returns the number of variation axes in the region list.
func (s *Store) AxisCount() int { return s.axisCount }

func invalid(reason string) error {
	return &parser.InvalidFontError{SubSystem: "varstore", Reason: reason}
}
