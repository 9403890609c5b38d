// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package integrity

import (
	"fmt"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// Region is a contiguous block range where the checker found the same error on
// the same set of positions.
type Region struct {
	LBA       core.LBA
	Blocks    uint32
	Positions core.PositionMask
	Error     Code
}

// End returns the last block of the region.
func (r Region) End() core.LBA {
	return r.LBA + core.LBA(r.Blocks) - 1
}

func (r Region) String() string {
	return fmt.Sprintf("lba 0x%x blocks 0x%x pos %s err %s", r.LBA, r.Blocks, r.Positions, r.Error)
}

// RegionList is the region list of a verify context. The checker appends to it
// in LBA order.
type RegionList struct {
	Regions []Region
}

// Empty returns true if no region was recorded.
func (l *RegionList) Empty() bool {
	return l == nil || len(l.Regions) == 0
}

// Len returns the number of regions.
func (l *RegionList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Regions)
}

// Append adds a region.
func (l *RegionList) Append(r Region) {
	l.Regions = append(l.Regions, r)
}

// Check verifies that every region is well formed for an array of the given
// width.
func (l *RegionList) Check(width int) error {
	if l == nil {
		return nil
	}
	for i, r := range l.Regions {
		if r.Blocks == 0 || r.Positions == 0 || r.Positions&^core.Full(width) != 0 {
			return fmt.Errorf("region %d (%s): %w", i, r, core.ErrMalformedRegion.Error())
		}
	}
	return nil
}

// MarkUnmatched flags region i as not matching the expected errors.
func (l *RegionList) MarkUnmatched(i int) {
	l.Regions[i].Error = l.Regions[i].Error.With(FlagUnmatched)
}

// Unmatched returns the first region flagged as unmatched.
func (l *RegionList) Unmatched() (int, bool) {
	if l == nil {
		return -1, false
	}
	for i, r := range l.Regions {
		if r.Error.Has(FlagUnmatched) {
			return i, true
		}
	}
	return -1, false
}

// LowestLBA returns the lowest LBA of any region touching pos, or def when no
// region does.
func (l *RegionList) LowestLBA(pos core.Position, def core.LBA) core.LBA {
	lba := core.InvalidLBA
	if l != nil {
		for _, r := range l.Regions {
			if r.Positions.Has(pos) && r.LBA < lba {
				lba = r.LBA
			}
		}
	}
	if lba == core.InvalidLBA {
		return def
	}
	return lba
}
