// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package sizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// A 0x100 block, width 4 verify with 0x40 block pages needs 4 fragments per
// position plus the margin.
func TestFragmentsPerPosition(t *testing.T) {
	remaining := uint64(0x40)
	for pos := 0; pos < 4; pos++ {
		var n int
		var err error
		remaining, n, err = FragmentsFor(0x100, 0x40, remaining)
		require.NoError(t, err)
		require.Equal(t, 5, n, "position %d", pos)
		require.Equal(t, uint64(0), remaining)
	}
}

func TestCountUniformBlocks(t *testing.T) {
	cases := []struct {
		blocks, perPage, remaining uint64
		wantRemaining              uint64
		wantFragments              int
	}{
		{0, 0x40, 0x10, 0x10, 0},
		{0x8, 0x40, 0x10, 0x8, 1},
		{0x10, 0x40, 0x10, 0, 1},
		{0x11, 0x40, 0x10, 0x3f, 2},
		{0x40, 0x40, 0, 0, 1},
		{0x41, 0x40, 0, 0x3f, 2},
		{0x100, 0x20, 0x8, 0x8, 9},
	}
	for _, c := range cases {
		rem, n, err := CountUniformBlocks(c.blocks, c.perPage, c.remaining)
		require.NoError(t, err)
		require.Equal(t, c.wantRemaining, rem, "%+v", c)
		require.Equal(t, c.wantFragments, n, "%+v", c)
	}
	_, _, err := CountUniformBlocks(1, 0, 0)
	require.True(t, core.ErrBadPageSize.Is(err))
}

func TestClassFor(t *testing.T) {
	cases := map[int]Class{0: SG1, 1: SG1, 2: SG8, 8: SG8, 9: SG32, 128: SG128, 129: SGMax, 2048: SGMax}
	for n, want := range cases {
		c, err := ClassFor(n)
		require.NoError(t, err)
		require.Equal(t, want, c, "n=%d", n)
	}
	c, err := ClassFor(2049)
	require.Equal(t, Invalid, c)
	require.True(t, core.ErrMustSplit.Is(err))
	require.True(t, core.IsSplitRequired(err))
	require.Equal(t, 0, Invalid.MaxEntries())
	require.Equal(t, "sg_32", SG32.String())
}

// Shrinking a request never moves it to a larger class.
func TestClassMonotonic(t *testing.T) {
	for _, perPage := range []uint64{core.PageBlocksStd, core.PageBlocksMax} {
		prev := Class(-1)
		for blocks := uint64(4096 * perPage); blocks > 0; blocks -= perPage / 2 {
			_, n, err := FragmentsFor(blocks, perPage, 0)
			require.NoError(t, err)
			c, err := ClassFor(n)
			if err != nil {
				require.True(t, core.ErrMustSplit.Is(err))
				c = Invalid
			}
			if prev >= 0 && c > prev {
				t.Fatalf("blocks 0x%x page 0x%x: class %s after %s", blocks, perPage, c, prev)
			}
			prev = c
		}
	}
}

func TestNumPages(t *testing.T) {
	r := Request{
		TotalBlocks:    0x400,
		DataPageBlocks: core.PageBlocksMax,
		CtrlPageBlocks: core.PageBlocksMax,
		Fruts:          4,
	}
	r.Lists[SG8] = 4
	p, err := NumPages(r, DefaultLayout)
	require.NoError(t, err)
	require.Equal(t, Pages{Data: 16, Control: 1}, p)
	require.Equal(t, 17, p.Total())

	// A partial data page still costs a page.
	r.TotalBlocks = 0x401
	p, err = NumPages(r, DefaultLayout)
	require.NoError(t, err)
	require.Equal(t, 17, p.Data)

	// Structures that do not fit the leftover start a new control page.
	l := DefaultLayout
	l.VerifyContextBytes = 33000
	p, err = NumPages(r, l)
	require.NoError(t, err)
	require.Equal(t, 3, p.Control)
}

func TestNumPagesErrors(t *testing.T) {
	r := Request{TotalBlocks: 1, DataPageBlocks: 0x30, CtrlPageBlocks: core.PageBlocksMax}
	_, err := NumPages(r, DefaultLayout)
	require.True(t, core.ErrBadPageSize.Is(err))

	r.DataPageBlocks = core.PageBlocksMax
	r.TotalBlocks = 1 << 40
	_, err = NumPages(r, DefaultLayout)
	require.True(t, core.ErrTooBig.Is(err))

	// The largest list does not fit a standard control page.
	r.TotalBlocks = 1
	r.CtrlPageBlocks = core.PageBlocksStd
	r.Lists[SGMax] = 1
	_, err = NumPages(r, DefaultLayout)
	require.True(t, core.ErrTooBig.Is(err))
}
