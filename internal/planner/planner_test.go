// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sgl"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sizer"
)

func verifyReq(width int, start core.LBA, blocks uint64) *SubRequest {
	s := &SubRequest{
		Algorithm:        core.MirrorVerify{},
		Opcode:           core.OpVerify,
		StartLBA:         start,
		XferCount:        blocks,
		ParityStart:      start,
		ParityCount:      blocks,
		Width:            width,
		DataDisks:        width,
		OptimalBlockSize: 0x10,
	}
	s.EnsureID()
	return s
}

// parentList builds a parent read list with one fragment per page.
func parentList(blocks, pageBlocks uint64) sgl.View {
	l := sgl.NewList(int((blocks + pageBlocks - 1) / pageBlocks))
	for addr := uint64(0x100000); blocks > 0; addr += 0x100000 {
		n := pageBlocks
		if n > blocks {
			n = blocks
		}
		if err := l.Append(sgl.Fragment{Addr: addr, Len: uint32(n * core.BytesPerBlock)}); err != nil {
			panic(err)
		}
		blocks -= n
	}
	return l.View()
}

type parents map[int]ParentRead

func (p parents) ParentRead(h ParentHandle) (ParentRead, bool) {
	r, ok := p[h.Index()]
	return r, ok
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(verifyReq(2, 0x40, 0x40)))

	s := verifyReq(2, 0x40, 0x40)
	s.StartLBA = 0x50
	require.True(t, core.ErrRangeMismatch.Is(Validate(s)))

	// Region mode verifies a piece of the host range.
	s.SingleRegionMode = true
	require.NoError(t, Validate(s))

	s = verifyReq(2, 0x40, 0x48)
	s.XferCount = 0x48
	require.True(t, core.ErrUnaligned.Is(Validate(s)))

	s = verifyReq(2, 0x40, 0x40)
	s.Degraded = core.MaskOf(1)
	require.True(t, core.ErrDataDiskMismatch.Is(Validate(s)))
	s.DataDisks = 1
	require.NoError(t, Validate(s))

	s = verifyReq(2, 0, 0x40)
	s.Algorithm = core.MirrorRebuild{}
	require.True(t, core.ErrUnsupportedAlgorithm.Is(Validate(s)))

	// The first problem wins when there are several.
	s = verifyReq(4, 0x8, 0x40)
	err := Validate(s)
	require.True(t, core.ErrInvalidArgument.Is(err))
	require.Equal(t, core.KindValidation, core.ErrInvalidArgument.Kind())
}

func TestOverlayPhasesPrefixMiddleSuffix(t *testing.T) {
	phases, err := OverlayPhases(0x00, 0x40, 0x10, 0x20)
	require.NoError(t, err)
	require.Equal(t, []Phase{
		{Source: Fresh, LBA: 0x00, Blocks: 0x10},
		{Source: Borrowed, LBA: 0x10, Blocks: 0x20, ParentOffset: 0},
		{Source: Fresh, LBA: 0x30, Blocks: 0x10},
	}, phases)

	var total uint64
	for _, p := range phases {
		total += p.Blocks
	}
	require.Equal(t, uint64(64), total)
}

func TestOverlayPhasesShapes(t *testing.T) {
	// Parent covers the whole range.
	phases, err := OverlayPhases(0x10, 0x20, 0x00, 0x40)
	require.NoError(t, err)
	require.Equal(t, []Phase{{Source: Borrowed, LBA: 0x10, Blocks: 0x20, ParentOffset: 0x10 * core.BytesPerBlock}}, phases)

	// Parent runs past the end.
	phases, err = OverlayPhases(0x00, 0x40, 0x20, 0x40)
	require.NoError(t, err)
	require.Equal(t, []Phase{
		{Source: Fresh, LBA: 0x00, Blocks: 0x20},
		{Source: Borrowed, LBA: 0x20, Blocks: 0x20},
	}, phases)

	// Parent entirely after.
	phases, err = OverlayPhases(0x00, 0x10, 0x20, 0x10)
	require.NoError(t, err)
	require.Equal(t, []Phase{{Source: Fresh, LBA: 0x00, Blocks: 0x10}}, phases)

	// Parent entirely before.
	phases, err = OverlayPhases(0x20, 0x10, 0x00, 0x10)
	require.NoError(t, err)
	require.Equal(t, []Phase{{Source: Fresh, LBA: 0x20, Blocks: 0x10}}, phases)

	_, err = OverlayPhases(0x20, 0, 0x00, 0x10)
	require.True(t, core.ErrStitchCoverage.Is(err))
}

func TestPlanPositionsUniform(t *testing.T) {
	s := verifyReq(4, 0, 0x100)
	p, err := PlanPositions(s, nil, 0x40)
	require.NoError(t, err)
	require.Len(t, p.Reads, 4)
	for i, rd := range p.Reads {
		require.Equal(t, core.Position(i), rd.Position)
		require.Equal(t, 5, rd.Fragments)
		require.Equal(t, sizer.SG8, rd.Class)
		require.Equal(t, uint64(0x100), rd.Blocks)
		require.True(t, p.Writes[i].Idle())
		require.Equal(t, sizer.Invalid, p.Writes[i].Class)
	}
	require.Equal(t, 4, p.Histogram[sizer.SG8])
	require.Equal(t, 4, p.Histogram.Lists())
}

func TestPlanPositionsOverlay(t *testing.T) {
	s := verifyReq(2, 0, 0x40)
	s.Algorithm = core.MirrorRecoveryVerify{}
	parent := &ParentRead{Position: 1, LBA: 0x10, Blocks: 0x20, PageBlocks: 0x40, SG: parentList(0x20, 0x40)}

	p, err := PlanPositions(s, parent, 0x40)
	require.NoError(t, err)
	// Position 0 fits one page, plus the margin.
	require.Equal(t, 2, p.Reads[0].Fragments)
	// Prefix, borrowed middle, suffix in the prefix's page, plus the margin.
	require.Equal(t, 4, p.Reads[1].Fragments)
	require.Equal(t, 2, p.Histogram[sizer.SG8])

	_, err = PlanPositions(s, nil, 0x40)
	require.True(t, core.ErrInvalidArgument.Is(err))
}

// Every position of a shrinking request keeps or lowers its class, whatever
// the position before it left over.
func TestPlanPositionsShrinkMonotonic(t *testing.T) {
	const page = 0x40
	for _, width := range []int{2, 3, 4} {
		prev := make([]sizer.Class, width)
		for blocks := uint64(0x400); blocks > 0; blocks -= 0x10 {
			p, err := PlanPositions(verifyReq(width, 0, blocks), nil, page)
			require.NoError(t, err)
			for i, rd := range p.Reads {
				if blocks < 0x400 && rd.Class > prev[i] {
					t.Fatalf("width %d blocks 0x%x position %d: class %s after %s", width, blocks, i, rd.Class, prev[i])
				}
				prev[i] = rd.Class
			}
		}
	}

	// 0x1c0 blocks are seven full pages, 0x1b0 leave slack in the last one.
	// Neither may push the second position past sg_8.
	for _, blocks := range []uint64{0x1c0, 0x1b0} {
		p, err := PlanPositions(verifyReq(2, 0, blocks), nil, page)
		require.NoError(t, err)
		for _, rd := range p.Reads {
			require.Equal(t, 8, rd.Fragments, "blocks 0x%x position %d", blocks, rd.Position)
			require.Equal(t, sizer.SG8, rd.Class)
		}
		require.Equal(t, 2, p.Histogram[sizer.SG8])
	}
}

func TestParentBlocks(t *testing.T) {
	s := verifyReq(2, 0, 0x40)
	n, err := ParentBlocks(s, &ParentRead{LBA: 0x10, Blocks: 0x20})
	require.NoError(t, err)
	require.Equal(t, uint64(0x20), n)

	// Only a parent inside the range counts.
	n, err = ParentBlocks(s, &ParentRead{LBA: 0x30, Blocks: 0x20})
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = ParentBlocks(s, &ParentRead{LBA: 0x10, Blocks: 0x20, HasSecondRead: true})
	require.True(t, core.ErrParentRange.Is(err))
}

func TestResolveParent(t *testing.T) {
	table := parents{3: {Position: 1, LBA: 0x10, Blocks: 0x20}}

	s := verifyReq(2, 0, 0x40)
	p, err := ResolveParent(s, table)
	require.NoError(t, err)
	require.Nil(t, p)

	s.Algorithm = core.MirrorRecoveryVerify{}
	_, err = ResolveParent(s, table)
	require.True(t, core.ErrInvalidArgument.Is(err))

	s.Parent = ParentAt(3)
	p, err = ResolveParent(s, table)
	require.NoError(t, err)
	require.Equal(t, core.Position(1), p.Position)

	s.Parent = ParentAt(4)
	_, err = ResolveParent(s, table)
	require.True(t, core.ErrInvalidArgument.Is(err))
}

func TestMemory(t *testing.T) {
	s := verifyReq(2, 0, 0x10)
	m, err := Memory(s, nil, sizer.DefaultLayout)
	require.NoError(t, err)
	require.Equal(t, uint64(0x20), m.TotalBlocks)
	require.Equal(t, uint64(core.PageBlocksStd), s.DataPageBlocks)
	require.Equal(t, uint64(core.PageBlocksMax), s.CtrlPageBlocks)
	require.Equal(t, 1, m.Pages.Data)

	s = verifyReq(2, 0, 0x40)
	m, err = Memory(s, nil, sizer.DefaultLayout)
	require.NoError(t, err)
	require.Equal(t, uint64(core.PageBlocksMax), m.DataPageBlocks)
	require.Equal(t, 2, m.Pages.Data)
	require.Equal(t, uint32(0x40*core.BytesPerBlock), m.PageBytes())

	// A nested request borrows the parent's blocks and page size.
	s = verifyReq(2, 0, 0x40)
	s.Algorithm = core.MirrorRecoveryVerify{}
	parent := &ParentRead{Position: 0, LBA: 0x10, Blocks: 0x20, PageBlocks: core.PageBlocksStd, SG: parentList(0x20, core.PageBlocksStd)}
	m, err = Memory(s, parent, sizer.DefaultLayout)
	require.NoError(t, err)
	require.Equal(t, uint64(0x60), m.TotalBlocks)
	require.Equal(t, uint64(0x20), m.ParentBlocks)
	require.Equal(t, uint64(core.PageBlocksStd), m.DataPageBlocks)
	require.Equal(t, 3, m.Pages.Data)

	// Uniform algorithms never borrow.
	s = verifyReq(2, 0, 0x40)
	_, err = Memory(s, parent, sizer.DefaultLayout)
	require.True(t, core.ErrParentRange.Is(err))
}

func TestSetupReads(t *testing.T) {
	s := verifyReq(2, 0x40, 0x40)
	p, err := PlanPositions(s, nil, 0x40)
	require.NoError(t, err)

	reqs, err := SetupReads(s, p)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	for i, r := range reqs {
		require.Equal(t, core.OpRead, r.Opcode)
		require.Equal(t, core.Position(i), r.Position)
		require.Equal(t, core.LBA(0x40), r.LBA)
	}

	s.Degraded = core.MaskOf(0)
	_, err = SetupReads(s, p)
	require.True(t, core.ErrDataDiskMismatch.Is(err))

	s.Degraded = 0
	p.Writes[1].Blocks = 1
	_, err = SetupReads(s, p)
	require.True(t, core.ErrDescriptorMismatch.Is(err))
}

func TestReduce(t *testing.T) {
	s := verifyReq(2, 0, 0x40)
	require.NoError(t, Reduce(s))
	require.Equal(t, uint64(0x20), s.ParityCount)
	require.Equal(t, uint64(0x20), s.XferCount)
	require.NoError(t, Reduce(s))
	err := Reduce(s)
	require.True(t, core.ErrCannotReduce.Is(err))
	require.True(t, core.IsFatal(err))
	require.Equal(t, uint64(0x10), s.ParityCount)
}

func TestFit(t *testing.T) {
	s := verifyReq(2, 0, 0x40000)
	s.OptimalBlockSize = 0x40

	err := CheckLimit(s, nil)
	require.True(t, core.IsSplitRequired(err))
	require.False(t, core.IsFatal(err))

	require.NoError(t, Fit(s, nil))
	require.Equal(t, uint64(0x10000), s.ParityCount)
	require.NoError(t, CheckLimit(s, nil))
}
