// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package integrity

import (
	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// Category is an error category the checker tracks per position.
type Category int

const (
	CategoryCRC Category = iota
	CategoryCoherency
	CategoryTimeStamp
	CategoryWriteStamp
	CategoryShedStamp
	CategoryNPOCCoherency
	CategoryPOCCoherency
	CategoryUnknownCoherency
	CategoryRawMirrorMagic
	CategoryRawMirrorSeq

	NumCategories
)

// CategorySet is a set of categories, one bit each.
type CategorySet uint32

// AllCategories contains every category.
const AllCategories = CategorySet(1<<uint(NumCategories) - 1)

// SetOf builds a set.
func SetOf(cats ...Category) CategorySet {
	var s CategorySet
	for _, c := range cats {
		s |= 1 << uint(c)
	}
	return s
}

// Has checks membership.
func (s CategorySet) Has(c Category) bool {
	return s&(1<<uint(c)) != 0
}

// Cause is the root cause recorded for a checksum error. The first block of
// causes is in reporting priority order: when a position carries several, the
// earliest one wins.
type Cause int

const (
	CauseLBAStamp Cause = iota
	CauseMedia
	CauseKlondike
	CauseCorruptCRC
	CauseDH
	CauseRAID
	CauseInvalid
	CauseBad
	CauseCorruptData
	CauseCopy
	CausePVDMetadata

	// Causes below do not take part in the priority chain.
	CauseSingleBit
	CauseMultiBit
	CauseMultiBitAndLBAStamp
	CauseUnknown

	NumCauses
)

// PriorityCauses is the number of causes in the priority chain.
const PriorityCauses = int(CauseSingleBit)

// Board is the error board: per-position masks of what the checker found.
type Board struct {
	Correctable   [NumCategories]core.PositionMask
	Uncorrectable [NumCategories]core.PositionMask

	// Cause holds checksum sub-causes, valid for positions that have a
	// checksum error in either mask.
	Cause [NumCauses]core.PositionMask

	Zeroed    core.PositionMask
	HardMedia core.PositionMask

	// Write, Uncorrectable and Modified positions as decided by the checker.
	WriteMask         core.PositionMask
	UncorrectableMask core.PositionMask
	ModifiedMask      core.PositionMask
}

// Mark records a correctable or uncorrectable category error on pos.
func (b *Board) Mark(c Category, pos core.Position, uncorrectable bool) {
	if uncorrectable {
		b.Uncorrectable[c] = b.Uncorrectable[c].Set(pos)
	} else {
		b.Correctable[c] = b.Correctable[c].Set(pos)
	}
}

// MarkCause records a checksum cause on pos.
func (b *Board) MarkCause(c Cause, pos core.Position) {
	b.Cause[c] = b.Cause[c].Set(pos)
}

// HasCorrectable returns true if any correctable category mask is set.
func (b *Board) HasCorrectable() bool {
	for _, m := range b.Correctable {
		if m != 0 {
			return true
		}
	}
	return false
}

// HasUncorrectable returns true if any uncorrectable category mask is set.
func (b *Board) HasUncorrectable() bool {
	for _, m := range b.Uncorrectable {
		if m != 0 {
			return true
		}
	}
	return false
}

// CorrectableAny returns every position with a correctable error.
func (b *Board) CorrectableAny() core.PositionMask {
	var m core.PositionMask
	for _, c := range b.Correctable {
		m |= c
	}
	return m
}

// UncorrectableAny returns every position with an uncorrectable error.
func (b *Board) UncorrectableAny() core.PositionMask {
	var m core.PositionMask
	for _, c := range b.Uncorrectable {
		m |= c
	}
	return m
}

// Keep clears every category not in keep. Checksum causes go with the
// checksum category.
func (b *Board) Keep(keep CategorySet) {
	for c := Category(0); c < NumCategories; c++ {
		if !keep.Has(c) {
			b.Correctable[c] = 0
			b.Uncorrectable[c] = 0
		}
	}
	if !keep.Has(CategoryCRC) {
		b.Cause = [NumCauses]core.PositionMask{}
	}
}

// Merge ORs other into b.
func (b *Board) Merge(other *Board) {
	for c := range b.Correctable {
		b.Correctable[c] |= other.Correctable[c]
		b.Uncorrectable[c] |= other.Uncorrectable[c]
	}
	for c := range b.Cause {
		b.Cause[c] |= other.Cause[c]
	}
	b.Zeroed |= other.Zeroed
	b.HardMedia |= other.HardMedia
	b.WriteMask |= other.WriteMask
	b.UncorrectableMask |= other.UncorrectableMask
	b.ModifiedMask |= other.ModifiedMask
}

// Reset clears the board.
func (b *Board) Reset() {
	*b = Board{}
}
