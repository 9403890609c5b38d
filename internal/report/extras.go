// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"github.com/westerndigitalcorporation/mirrorvr/internal/classify"
	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
	"github.com/westerndigitalcorporation/mirrorvr/internal/planner"
)

// RecordBadCRCOnWrite logs the blocks a write found with a bad checksum
// already in place.
func (r *Reporter) RecordBadCRCOnWrite(ctx *Context, regions *integrity.RegionList) error {
	if regions == nil {
		return nil
	}
	injected := ctx.Flags.Has(planner.FlagErrorInjected)
	for _, reg := range regions.Regions {
		if reg.Error.Type() != integrity.TypeBadCRC {
			continue
		}
		for _, pos := range reg.Positions.Positions(ctx.Width) {
			ev := Event{
				Code:     EventDataChecksumError,
				Group:    ctx.Group,
				Position: pos,
				LBA:      reg.LBA,
				Blocks:   reg.Blocks,
				Info:     classify.UnexpectedCRC | classify.ReasonBad.Bits(),
				Extra:    ctx.Extra(),
			}
			if err := r.send(ctx, ev, injected); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnlyInvalidated returns true when every error region is an invalidated one,
// so a read can complete without reporting a media error.
func OnlyInvalidated(regions *integrity.RegionList) bool {
	if regions.Empty() {
		return false
	}
	for _, reg := range regions.Regions {
		if reg.Error.Type() != integrity.TypeInvalidated {
			return false
		}
	}
	return true
}

// RegionLBAForPosition returns the first LBA with an error on pos, or def if
// no region touches pos.
func RegionLBAForPosition(regions *integrity.RegionList, pos core.Position, def core.LBA) core.LBA {
	return regions.LowestLBA(pos, def)
}

// BlockStatus is the status returned to the host for a raw mirror request.
type BlockStatus int

const (
	BlockSuccess BlockStatus = iota
	BlockMediaError
)

// Qualifier adds detail to a BlockStatus.
type Qualifier int

const (
	QualifierNone Qualifier = iota
	QualifierRawMirrorMismatch
	QualifierDataLost
)

// RawMirrorStatus maps a checker status to the status of a raw mirror
// request. It returns false when the status needs no translation.
func RawMirrorStatus(status integrity.Status, b *integrity.Board) (BlockStatus, Qualifier, bool) {
	switch status {
	case integrity.StatusNoError:
		if b != nil && (b.Correctable[integrity.CategoryRawMirrorMagic]|b.Correctable[integrity.CategoryRawMirrorSeq]) != 0 {
			return BlockSuccess, QualifierRawMirrorMismatch, true
		}
		return BlockSuccess, QualifierNone, true
	case integrity.StatusChecksumError:
		return BlockMediaError, QualifierDataLost, true
	}
	return BlockSuccess, QualifierNone, false
}

// WriteBitmap returns the positions to write back. A plain verify also
// rewrites blocks the drive asked to remap. Dead positions are never written.
func WriteBitmap(ctx *Context, b *integrity.Board, softMedia core.PositionMask) core.PositionMask {
	m := b.WriteMask
	if ctx.is(core.AlgMirrorVerify) {
		m |= softMedia
	}
	return m &^ ctx.Degraded
}
