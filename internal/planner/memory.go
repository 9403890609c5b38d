// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package planner

import (
	"fmt"

	"github.com/dustin/go-humanize"
	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sizer"
)

// MemoryPlan is everything the scheduler needs to ask the allocator for.
type MemoryPlan struct {
	// TotalBlocks is the number of blocks that need fresh buffers.
	TotalBlocks  uint64
	ParentBlocks uint64

	DataPageBlocks uint64
	CtrlPageBlocks uint64

	*Plan
	Pages sizer.Pages
}

// PageBytes returns the size of a data page.
func (m *MemoryPlan) PageBytes() uint32 {
	return uint32(m.DataPageBlocks * core.BytesPerBlock)
}

// DataPageSize picks the data page size of a request of total fresh blocks.
// A nested request shares its parent's pages so it uses the parent's size.
func DataPageSize(total uint64, parent *ParentRead) uint64 {
	if parent != nil && sizer.ValidPageSize(parent.PageBlocks) {
		return parent.PageBlocks
	}
	if total <= core.PageBlocksStd {
		return core.PageBlocksStd
	}
	return core.PageBlocksMax
}

// Memory sizes s. The chosen page sizes are stored back into s.
func Memory(s *SubRequest, parent *ParentRead, layout sizer.Layout) (*MemoryPlan, error) {
	if s.Algorithm == nil {
		return nil, fmt.Errorf("no algorithm: %w", core.ErrInvalidArgument.Error())
	}
	parentBlocks, err := ParentBlocks(s, parent)
	if err != nil {
		return nil, err
	}

	total := uint64(s.Width) * s.ParityCount
	switch s.Algorithm.BufferPolicy() {
	case core.BuffersOverlay:
		total -= parentBlocks
	case core.BuffersUniform:
		if parentBlocks > 0 {
			log.Errorf("mirror: %s: %s can't use 0x%x parent blocks", s.ID, s.Algorithm, parentBlocks)
			return nil, fmt.Errorf("%s with parent blocks: %w", s.Algorithm, core.ErrParentRange.Error())
		}
	default:
		return nil, fmt.Errorf("%s: %w", s.Algorithm, core.ErrUnsupportedAlgorithm.Error())
	}

	s.DataPageBlocks = DataPageSize(total, parent)
	s.CtrlPageBlocks = core.PageBlocksMax

	plan, err := PlanPositions(s, parent, s.DataPageBlocks)
	if err != nil {
		return nil, err
	}
	pages, err := sizer.NumPages(sizer.Request{
		TotalBlocks:    total,
		DataPageBlocks: s.DataPageBlocks,
		CtrlPageBlocks: s.CtrlPageBlocks,
		Fruts:          s.Width,
		Lists:          plan.Histogram,
	}, layout)
	if err != nil {
		return nil, err
	}

	log.V(1).Infof("mirror: %s: %s fresh, %d data + %d ctrl pages", s.ID,
		humanize.IBytes(total*core.BytesPerBlock), pages.Data, pages.Control)
	return &MemoryPlan{
		TotalBlocks:    total,
		ParentBlocks:   parentBlocks,
		DataPageBlocks: s.DataPageBlocks,
		CtrlPageBlocks: s.CtrlPageBlocks,
		Plan:           plan,
		Pages:          pages,
	}, nil
}
