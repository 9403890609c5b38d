// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"github.com/westerndigitalcorporation/mirrorvr/internal/classify"
	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/eboard"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
	"github.com/westerndigitalcorporation/mirrorvr/internal/planner"
)

// reportBoard logs the accumulated error board when no region list is kept.
// The board has no extents, so every event points at the lowest known LBA of
// the position and covers a single block.
func (r *Reporter) reportBoard(ctx *Context, acc *eboard.Accumulator, regions *integrity.RegionList) error {
	injected := ctx.Flags.Has(planner.FlagErrorInjected)
	for p := 0; p < ctx.Width; p++ {
		pos := core.Position(p)
		lba := RegionLBAForPosition(regions, pos, ctx.ParityStart)

		if c := classify.CorrectableBits(&acc.Board, acc.RetriedCRC, pos); c != 0 {
			ev := Event{
				Code:     r.correctableFromBits(ctx, acc, pos, c),
				Group:    ctx.Group,
				Position: pos,
				LBA:      lba,
				Blocks:   core.MinErrorBlocks,
				Info:     c,
				Extra:    ctx.Extra(),
			}
			if err := r.send(ctx, ev, injected); err != nil {
				return err
			}
		}
		if u := classify.UncorrectableBits(&acc.Board, pos); u != 0 {
			if err := r.logUncorrectable(ctx, -1, pos, lba, core.MinErrorBlocks, u, injected); err != nil {
				return err
			}
		}
	}
	return nil
}

// reportRetried logs positions whose checksum errors went away on retry.
// They never made it into a region.
func (r *Reporter) reportRetried(ctx *Context, acc *eboard.Accumulator) error {
	injected := ctx.Flags.Has(planner.FlagErrorInjected)
	for _, pos := range acc.RetriedOnly().Positions(core.MaxArrayWidth) {
		ev := Event{
			Code:     EventSectorReconstructed,
			Group:    ctx.Group,
			Position: pos,
			LBA:      ctx.ParityStart,
			Blocks:   uint32(ctx.ParityCount),
			Info:     classify.CRCRetry,
			Extra:    ctx.Extra(),
		}
		if err := r.send(ctx, ev, injected); err != nil {
			return err
		}
	}
	return nil
}
