// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/google/btree"

	"github.com/westerndigitalcorporation/mirrorvr/internal/classify"
	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/eboard"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
	"github.com/westerndigitalcorporation/mirrorvr/internal/planner"
)

// reportRegions logs every region not yet reported, position by position,
// then chains uncorrectable errors onto the dead positions. A region only
// counts as reported once all of it went out; the events sent before an
// error are remembered one by one.
func (r *Reporter) reportRegions(ctx *Context, acc *eboard.Accumulator, regions *integrity.RegionList) error {
	done := ctx.reportedSet()
	injectedOp := ctx.Flags.Has(planner.FlagErrorInjected)

	for p := 0; p < ctx.Width; p++ {
		pos := core.Position(p)
		if ctx.Dead(pos) {
			continue
		}
		for i, reg := range regions.Regions {
			if done.Test(uint(i)) || reg.Error == 0 {
				continue
			}
			c, err := classify.RegionBits(reg, false, pos, true)
			if err != nil {
				return err
			}
			u, err := classify.RegionBits(reg, false, pos, false)
			if err != nil {
				return err
			}
			if !reg.Positions.Has(pos) || c|u == 0 {
				continue
			}
			injected := injectedOp || injectedType(reg.Error.Type())
			if u != 0 && reg.Error.Uncorrectable() {
				if err := r.logUncorrectable(ctx, i, pos, reg.LBA, reg.Blocks, u, injected); err != nil {
					return err
				}
			}
			if c != 0 {
				ev := Event{
					Code:     r.correctableFromRegion(ctx, acc, pos, reg.Error.Type()),
					Group:    ctx.Group,
					Position: pos,
					LBA:      reg.LBA,
					Blocks:   reg.Blocks,
					Info:     c,
					Extra:    ctx.Extra(),
				}
				if err := r.sendRegion(ctx, i, ev, injected); err != nil {
					return err
				}
			}
		}
	}

	if err := r.chainDead(ctx, regions, done); err != nil {
		return err
	}
	for i := range regions.Regions {
		done.Set(uint(i))
	}
	return nil
}

// regionItem orders regions by extent so that regions sharing a start LBA
// are adjacent.
type regionItem struct {
	lba    core.LBA
	blocks uint32
	idx    int
}

func (a regionItem) Less(than btree.Item) bool {
	b := than.(regionItem)
	if a.lba != b.lba {
		return a.lba < b.lba
	}
	if a.blocks != b.blocks {
		return a.blocks < b.blocks
	}
	return a.idx < b.idx
}

// chainDead logs every uncorrectable extent once against each dead position.
// Regions starting at the same LBA and at least as long are folded into the
// first one seen, so an extent found on several live positions is logged once.
func (r *Reporter) chainDead(ctx *Context, regions *integrity.RegionList, reported *bitset.BitSet) error {
	if ctx.Degraded == 0 {
		return nil
	}
	index := btree.New(8)
	for i, reg := range regions.Regions {
		index.ReplaceOrInsert(regionItem{lba: reg.LBA, blocks: reg.Blocks, idx: i})
	}

	traversed := reported.Clone()
	injectedOp := ctx.Flags.Has(planner.FlagErrorInjected)
	for i, reg := range regions.Regions {
		if ctx.readClass() {
			switch reg.Error.Type() {
			case integrity.TypeCorruptCRC, integrity.TypeCorruptData, integrity.TypeRAIDCRC, integrity.TypeInvalidated:
				traversed.Set(uint(i))
			}
		}
		if traversed.Test(uint(i)) {
			continue
		}
		var uc core.PositionMask
		if reg.Error.Uncorrectable() {
			uc = reg.Positions
		}
		index.AscendRange(
			regionItem{lba: reg.LBA, blocks: reg.Blocks},
			regionItem{lba: reg.LBA + 1},
			func(it btree.Item) bool {
				j := it.(regionItem).idx
				if j == i || traversed.Test(uint(j)) {
					return true
				}
				if partner := regions.Regions[j]; partner.Error.Uncorrectable() {
					uc |= partner.Positions
					traversed.Set(uint(j))
				}
				return true
			})
		traversed.Set(uint(i))
		if uc == 0 {
			continue
		}
		for _, dead := range ctx.Degraded.Positions(ctx.Width) {
			ev := Event{
				Group:    ctx.Group,
				Position: dead,
				LBA:      reg.LBA,
				Blocks:   reg.Blocks,
				Extra:    ctx.Extra(),
			}
			injected := injectedOp || injectedType(reg.Error.Type())
			for _, code := range []EventCode{EventUncorrectableSector, EventSectorInvalidated} {
				ev.Code = code
				if err := r.sendRegion(ctx, i, ev, injected); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// reportCorruptOp logs the blocks a corrupting operation invalidated.
func (r *Reporter) reportCorruptOp(ctx *Context, regions *integrity.RegionList) error {
	done := ctx.reportedSet()
	for p := 0; p < ctx.Width; p++ {
		pos := core.Position(p)
		for i, reg := range regions.Regions {
			if done.Test(uint(i)) || reg.Error == 0 || !reg.Positions.Has(pos) {
				continue
			}
			info := classify.ReasonCorruptData.Bits()
			switch reg.Error.Type() {
			case integrity.TypeCorruptCRC, integrity.TypeCorruptCRCInjected:
				info = classify.ReasonCorruptCRC.Bits()
			}
			ev := Event{
				Code:     EventSectorInvalidated,
				Group:    ctx.Group,
				Position: pos,
				LBA:      reg.LBA,
				Blocks:   reg.Blocks,
				Info:     info,
				Extra:    ctx.Extra(),
			}
			if err := r.sendRegion(ctx, i, ev, injectedType(reg.Error.Type())); err != nil {
				return err
			}
		}
	}
	for i := range regions.Regions {
		done.Set(uint(i))
	}
	return nil
}
