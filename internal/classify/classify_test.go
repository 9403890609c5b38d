// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
)

// Every cause set together must resolve to the highest priority one, and
// removing causes one at a time walks down the chain.
func TestChecksumPriority(t *testing.T) {
	want := []Reason{
		ReasonLBAStamp, ReasonMedia, ReasonKlondike, ReasonCorruptCRC, ReasonDH, ReasonRAID,
		ReasonInvalid, ReasonBad, ReasonCorruptData, ReasonCopy, ReasonPVDMetadata,
	}
	var b integrity.Board
	for c := 0; c < integrity.PriorityCauses; c++ {
		b.MarkCause(integrity.Cause(c), 1)
	}
	for c := 0; c < integrity.PriorityCauses; c++ {
		got := ChecksumBits(&b, 1)
		if got != want[c].Bits() {
			t.Fatalf("step %d: got %s (%#x), want %s", c, got, uint32(got), want[c].Bits())
		}
		b.Cause[c] = 0
	}
	// Nothing left: unknown cause.
	if got := ChecksumBits(&b, 1); got != UnexpectedCRC {
		t.Fatalf("no cause: got %s", got)
	}
}

func TestChecksumBitFlips(t *testing.T) {
	var b integrity.Board
	b.MarkCause(integrity.CauseSingleBit, 0)
	require.Equal(t, UnexpectedCRC|ReasonSingleBit.Bits(), ChecksumBits(&b, 0))

	b.MarkCause(integrity.CauseMultiBit, 0)
	require.Equal(t, UnexpectedCRC|ReasonMultiBit.Bits(), ChecksumBits(&b, 0))

	// A known cause keeps the reason field, the bit flip only adds the
	// unexpected marker.
	b.MarkCause(integrity.CauseRAID, 0)
	require.Equal(t, UnexpectedCRC|ReasonRAID.Bits(), ChecksumBits(&b, 0))

	b.MarkCause(integrity.CauseMedia, 2)
	b.MarkCause(integrity.CauseMultiBit, 2)
	require.Equal(t, UnexpectedCRC|ReasonMedia.Bits(), ChecksumBits(&b, 2))

	b.MarkCause(integrity.CauseLBAStamp, 3)
	b.MarkCause(integrity.CauseSingleBit, 3)
	require.Equal(t, UnexpectedCRC|ReasonLBAStamp.Bits(), ChecksumBits(&b, 3))

	// Other positions are unaffected.
	require.Equal(t, UnexpectedCRC, ChecksumBits(&b, 1))
}

func TestCorrectableBits(t *testing.T) {
	var b integrity.Board
	b.Mark(integrity.CategoryCRC, 0, false)
	b.MarkCause(integrity.CauseDH, 0)
	b.Mark(integrity.CategoryTimeStamp, 0, false)
	b.Mark(integrity.CategoryNPOCCoherency, 0, false)
	b.Mark(integrity.CategoryRawMirrorSeq, 0, false)
	b.Zeroed = core.MaskOf(0)

	got := CorrectableBits(&b, core.MaskOf(0), 0)
	require.Equal(t, ReasonDH.Bits()|TimeStamp|NPOC|Zeroed|CRCRetry|RawMirrorSeq, got)
	require.Equal(t, Bits(0), CorrectableBits(&b, 0, 1))
}

func TestUncorrectableBitsCrossMapPOC(t *testing.T) {
	var b integrity.Board
	b.Mark(integrity.CategoryNPOCCoherency, 1, true)
	require.Equal(t, POC, UncorrectableBits(&b, 1))

	b.Reset()
	b.Mark(integrity.CategoryPOCCoherency, 1, true)
	b.Mark(integrity.CategoryUnknownCoherency, 1, true)
	require.Equal(t, NPOC|UnknownCoherency, UncorrectableBits(&b, 1))
}

func TestRegionBits(t *testing.T) {
	region := func(ty integrity.ErrorType, flags ...integrity.Flag) integrity.Region {
		return integrity.Region{LBA: 0x100, Blocks: 1, Positions: core.MaskOf(1), Error: integrity.NewCode(ty, flags...)}
	}
	cases := []struct {
		r           integrity.Region
		retried     bool
		correctable bool
		want        Bits
	}{
		{region(integrity.TypeRAIDCRC), false, true, ReasonRAID.Bits()},
		{region(integrity.TypeHardMedia, integrity.FlagUncorrectable), false, false, ReasonMedia.Bits()},
		{region(integrity.TypeMultiBitCRC), true, true, UnexpectedCRC | ReasonMultiBit.Bits() | CRCRetry},
		{region(integrity.TypeCorruptDataInjected, integrity.FlagUncorrectable), false, false, ReasonCorruptData.Bits()},
		{region(integrity.TypeCoherency, integrity.FlagZeroed), false, true, Coherency | Zeroed},
		{region(integrity.TypePOCCoherency), false, true, POC},
		{region(integrity.TypeRebuildFailed, integrity.FlagUncorrectable), false, false, 0},
		// Correctability mismatch contributes nothing.
		{region(integrity.TypeRAIDCRC, integrity.FlagUncorrectable), false, true, 0},
		{region(integrity.TypeRAIDCRC), false, false, 0},
	}
	for i, c := range cases {
		got, err := RegionBits(c.r, c.retried, 1, c.correctable)
		require.NoError(t, err, "case %d", i)
		require.Equal(t, c.want, got, "case %d: %s", i, got)
	}

	// Position not covered.
	got, err := RegionBits(region(integrity.TypeRAIDCRC), false, 0, true)
	require.NoError(t, err)
	require.Equal(t, Bits(0), got)

	for _, ty := range []integrity.ErrorType{
		integrity.TypeCRC, integrity.TypeRndMedia, integrity.TypeBogusTimeStamp,
		integrity.Type1POC, integrity.TypeTimeout,
	} {
		_, err := RegionBits(region(ty), false, 1, true)
		require.True(t, core.ErrMalformedRegion.Is(err), "%s: %v", ty, err)
	}
}

func TestFixCRCReason(t *testing.T) {
	single := UnexpectedCRC | ReasonSingleBit.Bits()
	multi := UnexpectedCRC | ReasonMultiBit.Bits()
	require.Equal(t, multi, FixCRCReason(integrity.TypeMultiBitCRC, single))
	require.Equal(t, single, FixCRCReason(integrity.TypeSingleBitCRC, multi))
	require.Equal(t, single, FixCRCReason(integrity.TypeRAIDCRC, single))
	require.Equal(t, ReasonRAID.Bits(), FixCRCReason(integrity.TypeMultiBitCRC, ReasonRAID.Bits()))
}

func TestLabels(t *testing.T) {
	b := UnexpectedCRC | Coherency | CRCRetry | ReasonInvalid.Bits()
	labels := Labels(b)
	require.Len(t, labels, 4)
	require.Equal(t, ReasonLabel, labels[3].Kind)
	require.Equal(t, "CRC COH RET INVALIDATED", Format(labels))

	require.Equal(t, "BAD CRC", ReasonBad.Bits().String())
	require.Equal(t, "RM_MAGIC RM_SEQ", (RawMirrorMagic | RawMirrorSeq).String())
	require.Empty(t, Labels(0))
}
