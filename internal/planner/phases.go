// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package planner

import (
	"fmt"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// Source says where the buffers of a phase come from.
type Source int

const (
	// Fresh buffers come from newly allocated pages.
	Fresh Source = iota
	// Borrowed buffers are the parent read's.
	Borrowed
)

func (s Source) String() string {
	if s == Borrowed {
		return "parent"
	}
	return "fresh"
}

// Phase is a piece of a position range with a single buffer source.
type Phase struct {
	Source Source
	LBA    core.LBA
	Blocks uint64

	// ParentOffset is the byte offset into the parent list, for Borrowed.
	ParentOffset uint64
}

// OverlayPhases splits [start, start+blocks) into a fresh prefix before the
// parent range, a borrowed middle where it overlaps the parent range, and a
// fresh suffix after it. Each phase is present only when non-empty.
func OverlayPhases(start core.LBA, blocks uint64, parentStart core.LBA, parentBlocks uint64) ([]Phase, error) {
	if blocks == 0 || parentBlocks == 0 {
		return nil, fmt.Errorf("empty range: %w", core.ErrStitchCoverage.Error())
	}
	end := start + core.LBA(blocks) - 1
	parentEnd := parentStart + core.LBA(parentBlocks) - 1
	cur := start
	var assigned uint64
	var phases []Phase

	if parentStart > cur {
		last := parentStart - 1
		if end < last {
			last = end
		}
		n := uint64(last-cur) + 1
		phases = append(phases, Phase{Source: Fresh, LBA: cur, Blocks: n})
		assigned += n
		cur += core.LBA(n)
	}

	if assigned < blocks && !(end < parentStart || cur > parentEnd) {
		if parentStart > cur {
			return nil, fmt.Errorf("parent start 0x%x after cursor 0x%x: %w", parentStart, cur, core.ErrStitchCoverage.Error())
		}
		last := parentEnd
		if end < last {
			last = end
		}
		n := uint64(last-cur) + 1
		phases = append(phases, Phase{
			Source:       Borrowed,
			LBA:          cur,
			Blocks:       n,
			ParentOffset: uint64(cur-parentStart) * core.BytesPerBlock,
		})
		assigned += n
		cur += core.LBA(n)
	}

	if assigned < blocks {
		if parentStart >= cur || parentEnd >= end {
			return nil, fmt.Errorf("parent 0x%x-0x%x inside remaining 0x%x-0x%x: %w",
				parentStart, parentEnd, cur, end, core.ErrStitchCoverage.Error())
		}
		n := uint64(end-cur) + 1
		phases = append(phases, Phase{Source: Fresh, LBA: cur, Blocks: n})
		assigned += n
		cur += core.LBA(n)
	}

	if assigned != blocks || cur-1 != end {
		return nil, fmt.Errorf("assigned 0x%x of 0x%x, end 0x%x want 0x%x: %w",
			assigned, blocks, cur-1, end, core.ErrStitchCoverage.Error())
	}
	return phases, nil
}
