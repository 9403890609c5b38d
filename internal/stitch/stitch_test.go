// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package stitch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/planner"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sgl"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sizer"
)

const parentAddr = 0xa000000

func dataPages(n int, blocks uint64) []sgl.Page {
	out := make([]sgl.Page, n)
	for i := range out {
		out[i] = sgl.Page{Addr: uint64(0x100000 * (i + 1)), Bytes: uint32(blocks * core.BytesPerBlock)}
	}
	return out
}

func request(alg core.Algorithm, width int, start core.LBA, blocks uint64) *planner.SubRequest {
	s := &planner.SubRequest{
		Algorithm:        alg,
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

func parentRead(pos core.Position, lba core.LBA, blocks uint64) *planner.ParentRead {
	l := sgl.NewList(1)
	if err := l.Append(sgl.Fragment{Addr: parentAddr, Len: uint32(blocks * core.BytesPerBlock)}); err != nil {
		panic(err)
	}
	return &planner.ParentRead{Position: pos, LBA: lba, Blocks: blocks, PageBlocks: core.PageBlocksMax, SG: l.View()}
}

func TestStitchRecoveryVerify(t *testing.T) {
	s := request(core.MirrorRecoveryVerify{}, 2, 0, 0x40)
	parent := parentRead(1, 0x10, 0x20)

	m, err := planner.Memory(s, parent, sizer.DefaultLayout)
	require.NoError(t, err)
	require.Equal(t, uint64(0x60), m.TotalBlocks)
	require.Equal(t, 2, m.Pages.Data)

	mem := sgl.NewMemory(dataPages(m.Pages.Data, m.DataPageBlocks))
	lists, results, err := Stitch(s, m.Reads, parent, mem)
	require.NoError(t, err)
	require.Len(t, lists, 2)

	require.Equal(t, []planner.Phase{
		{Source: planner.Fresh, LBA: 0x00, Blocks: 0x10},
		{Source: planner.Borrowed, LBA: 0x10, Blocks: 0x20, ParentOffset: 0},
		{Source: planner.Fresh, LBA: 0x30, Blocks: 0x10},
	}, results[1].Phases)

	var assigned uint64
	for _, ph := range results[1].Phases {
		assigned += ph.Blocks
	}
	require.Equal(t, uint64(64), assigned)

	require.Equal(t, []sgl.Fragment{{Addr: 0x100000, Len: 0x40 * core.BytesPerBlock}}, lists[0].Fragments())
	require.Equal(t, []sgl.Fragment{
		{Addr: 0x200000, Len: 0x10 * core.BytesPerBlock},
		{Addr: parentAddr, Len: 0x20 * core.BytesPerBlock},
		{Addr: 0x200000 + 0x10*core.BytesPerBlock, Len: 0x10 * core.BytesPerBlock},
	}, lists[1].Fragments())
	require.Equal(t, 3, results[1].Fragments)
	require.LessOrEqual(t, lists[1].Len(), m.Reads[1].Fragments)
}

func TestStitchUniform(t *testing.T) {
	s := request(core.MirrorVerify{}, 2, 0x20, 0x10)
	m, err := planner.Memory(s, nil, sizer.DefaultLayout)
	require.NoError(t, err)

	mem := sgl.NewMemory(dataPages(m.Pages.Data, m.DataPageBlocks))
	lists, results, err := Stitch(s, m.Reads, nil, mem)
	require.NoError(t, err)
	require.Equal(t, []sgl.Fragment{{Addr: 0x100000, Len: 0x10 * core.BytesPerBlock}}, lists[0].Fragments())
	require.Equal(t, []sgl.Fragment{{Addr: 0x100000 + 0x10*core.BytesPerBlock, Len: 0x10 * core.BytesPerBlock}}, lists[1].Fragments())
	require.Equal(t, core.Position(1), results[1].Position)
	require.Zero(t, mem.BytesRemaining())
}

func TestStitchOutOfMemory(t *testing.T) {
	s := request(core.MirrorVerify{}, 2, 0, 0x40)
	m, err := planner.Memory(s, nil, sizer.DefaultLayout)
	require.NoError(t, err)

	mem := sgl.NewMemory(dataPages(1, m.DataPageBlocks))
	_, _, err = Stitch(s, m.Reads, nil, mem)
	require.True(t, core.ErrOutOfMemory.Is(err))
	require.True(t, core.IsFatal(err))
}

func TestOverlayFragmentCount(t *testing.T) {
	parent := parentRead(0, 0x10, 0x20)
	mem := sgl.NewMemory(dataPages(2, core.PageBlocksMax))

	// Room for the prefix and the parent's fragment only.
	dst := sgl.NewList(2)
	_, err := Overlay(parent, dst, mem, core.PageBlocksMax, 0, 0x40)
	require.True(t, core.ErrFragmentOverrun.Is(err))
	require.Equal(t, 2, dst.Len())
}

func TestOverlayShortParent(t *testing.T) {
	parent := parentRead(0, 0x10, 0x20)
	// The parent claims more blocks than its list holds.
	parent.Blocks = 0x30
	mem := sgl.NewMemory(dataPages(2, core.PageBlocksMax))

	_, err := Overlay(parent, sgl.NewList(8), mem, core.PageBlocksMax, 0, 0x40)
	require.True(t, core.ErrParentRange.Is(err))
}

func TestValidate(t *testing.T) {
	reads := []planner.Descriptor{{Position: 0, Blocks: 2}}
	l := sgl.NewList(2)
	require.NoError(t, l.Append(sgl.Fragment{Addr: 1, Len: core.BytesPerBlock}))
	require.True(t, core.ErrStitchCoverage.Is(Validate([]*sgl.List{l}, reads)))

	require.NoError(t, l.Append(sgl.Fragment{Addr: 2, Len: core.BytesPerBlock}))
	require.True(t, core.ErrFragmentOverrun.Is(l.Append(sgl.Fragment{})))
	require.NoError(t, Validate([]*sgl.List{l}, reads))
	require.True(t, core.ErrDescriptorMismatch.Is(Validate(nil, reads)))
}
