// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package classify

import (
	"fmt"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
)

// causeReasons maps the priority causes to their reason, in priority order.
var causeReasons = [integrity.PriorityCauses]Reason{
	integrity.CauseLBAStamp:    ReasonLBAStamp,
	integrity.CauseMedia:       ReasonMedia,
	integrity.CauseKlondike:    ReasonKlondike,
	integrity.CauseCorruptCRC:  ReasonCorruptCRC,
	integrity.CauseDH:          ReasonDH,
	integrity.CauseRAID:        ReasonRAID,
	integrity.CauseInvalid:     ReasonInvalid,
	integrity.CauseBad:         ReasonBad,
	integrity.CauseCorruptData: ReasonCorruptData,
	integrity.CauseCopy:        ReasonCopy,
	integrity.CausePVDMetadata: ReasonPVDMetadata,
}

// ChecksumBits returns the checksum bits for pos. The highest priority cause
// present wins. A bit flip, or no known cause at all, also marks the error as
// unexpected. The bit flip only names the reason when no priority cause did,
// multi-bit taking precedence over single-bit.
func ChecksumBits(b *integrity.Board, pos core.Position) Bits {
	var out Bits
	for c := 0; c < integrity.PriorityCauses; c++ {
		if b.Cause[c].Has(pos) {
			out = causeReasons[c].Bits()
			break
		}
	}
	ranked := out != 0
	multi := b.Cause[integrity.CauseMultiBit].Has(pos)
	single := b.Cause[integrity.CauseSingleBit].Has(pos)
	if multi || single || !ranked {
		out |= UnexpectedCRC
		switch {
		case ranked:
		case multi:
			out = out.WithReason(ReasonMultiBit)
		case single:
			out = out.WithReason(ReasonSingleBit)
		}
	}
	return out
}

// CorrectableBits returns the bits for the correctable errors of pos. retried
// holds the positions whose checksum errors went away on retry.
func CorrectableBits(b *integrity.Board, retried core.PositionMask, pos core.Position) Bits {
	var out Bits
	c := &b.Correctable
	if c[integrity.CategoryCRC].Has(pos) {
		out |= ChecksumBits(b, pos)
	}
	if c[integrity.CategoryCoherency].Has(pos) {
		out |= Coherency
	}
	if c[integrity.CategoryTimeStamp].Has(pos) {
		out |= TimeStamp
	}
	if c[integrity.CategoryWriteStamp].Has(pos) {
		out |= WriteStamp
	}
	if c[integrity.CategoryShedStamp].Has(pos) {
		out |= ShedStamp
	}
	if c[integrity.CategoryNPOCCoherency].Has(pos) {
		out |= NPOC
	}
	if c[integrity.CategoryPOCCoherency].Has(pos) {
		out |= POC
	}
	if b.Zeroed.Has(pos) {
		out |= Zeroed
	}
	if retried.Has(pos) {
		out |= CRCRetry
	}
	if c[integrity.CategoryRawMirrorMagic].Has(pos) {
		out |= RawMirrorMagic
	}
	if c[integrity.CategoryRawMirrorSeq].Has(pos) {
		out |= RawMirrorSeq
	}
	return out
}

// UncorrectableBits returns the bits for the uncorrectable errors of pos.
// Uncorrectable parity-of-checksum errors are reported crosswise: an NPOC
// coherency error raises POC and the reverse, matching what the event
// consumers have always decoded.
func UncorrectableBits(b *integrity.Board, pos core.Position) Bits {
	var out Bits
	u := &b.Uncorrectable
	if u[integrity.CategoryCRC].Has(pos) {
		out |= ChecksumBits(b, pos)
	}
	if u[integrity.CategoryCoherency].Has(pos) {
		out |= Coherency
	}
	if u[integrity.CategoryTimeStamp].Has(pos) {
		out |= TimeStamp
	}
	if u[integrity.CategoryWriteStamp].Has(pos) {
		out |= WriteStamp
	}
	if u[integrity.CategoryShedStamp].Has(pos) {
		out |= ShedStamp
	}
	if u[integrity.CategoryUnknownCoherency].Has(pos) {
		out |= UnknownCoherency
	}
	if u[integrity.CategoryNPOCCoherency].Has(pos) {
		out |= POC
	}
	if u[integrity.CategoryPOCCoherency].Has(pos) {
		out |= NPOC
	}
	if u[integrity.CategoryRawMirrorMagic].Has(pos) {
		out |= RawMirrorMagic
	}
	return out
}

func regionChecksumBits(t integrity.ErrorType) (Bits, bool) {
	switch t {
	case integrity.TypeSoftMedia, integrity.TypeHardMedia:
		return ReasonMedia.Bits(), true
	case integrity.TypeKlondikeCRC:
		return ReasonKlondike.Bits(), true
	case integrity.TypeDHCRC:
		return ReasonDH.Bits(), true
	case integrity.TypeRAIDCRC:
		return ReasonRAID.Bits(), true
	case integrity.TypeCorruptCRC, integrity.TypeCorruptCRCInjected:
		return ReasonCorruptCRC.Bits(), true
	case integrity.TypeCorruptData, integrity.TypeCorruptDataInjected:
		return ReasonCorruptData.Bits(), true
	case integrity.TypeInvalidated:
		return ReasonInvalid.Bits(), true
	case integrity.TypeBadCRC:
		return ReasonBad.Bits(), true
	case integrity.TypeLBAStamp:
		return ReasonLBAStamp.Bits(), true
	case integrity.TypeSingleBitCRC:
		return UnexpectedCRC | ReasonSingleBit.Bits(), true
	case integrity.TypeMultiBitCRC:
		return UnexpectedCRC | ReasonMultiBit.Bits(), true
	case integrity.TypeCopyCRC:
		return ReasonCopy.Bits(), true
	case integrity.TypePVDMetadata:
		return ReasonPVDMetadata.Bits(), true
	case integrity.TypeCRC, integrity.TypeRndMedia:
		// A region always carries a resolved cause.
		return 0, false
	}
	return 0, true
}

// RegionBits returns the bits region r contributes to pos. A region only
// contributes when it covers pos and its correctability matches correctable.
// Error types the checker never puts in a region are malformed.
func RegionBits(r integrity.Region, retried bool, pos core.Position, correctable bool) (Bits, error) {
	if r.Error.Uncorrectable() == correctable || !r.Positions.Has(pos) {
		return 0, nil
	}
	var out Bits
	t := r.Error.Type()
	switch t {
	case integrity.TypeSoftMedia, integrity.TypeRndMedia, integrity.TypeHardMedia,
		integrity.TypeCRC, integrity.TypeKlondikeCRC, integrity.TypeDHCRC,
		integrity.TypeInvalidated, integrity.TypeRAIDCRC, integrity.TypeCorruptCRC,
		integrity.TypeCorruptData, integrity.TypeSingleBitCRC, integrity.TypeMultiBitCRC,
		integrity.TypeCorruptCRCInjected, integrity.TypeCorruptDataInjected,
		integrity.TypeLBAStamp, integrity.TypeCopyCRC, integrity.TypePVDMetadata:
		b, ok := regionChecksumBits(t)
		if !ok {
			return 0, malformed(r, pos)
		}
		out |= b
	case integrity.TypeWriteStamp:
		out |= WriteStamp
	case integrity.TypeTimeStamp:
		out |= TimeStamp
	case integrity.TypeShedStamp:
		out |= ShedStamp
	case integrity.TypeCoherency:
		out |= Coherency
	case integrity.TypeUnknownCoherency:
		out |= UnknownCoherency
	case integrity.TypeNPOCCoherency:
		out |= NPOC
	case integrity.TypePOCCoherency:
		out |= POC
	case integrity.TypeRebuildFailed:
	case integrity.TypeBogusTimeStamp, integrity.TypeBogusWriteStamp, integrity.TypeBogusShedStamp,
		integrity.Type1POC, integrity.Type1NS, integrity.Type1S, integrity.Type1R,
		integrity.Type1D, integrity.Type1COD, integrity.Type1COP, integrity.TypeTimeout:
		return 0, malformed(r, pos)
	}
	if r.Error.Has(integrity.FlagZeroed) {
		out |= Zeroed
	}
	if retried {
		out |= CRCRetry
	}
	return out, nil
}

func malformed(r integrity.Region, pos core.Position) error {
	return fmt.Errorf("pos %d %s: %w", pos, r, core.ErrMalformedRegion.Error())
}

// FixCRCReason makes a single-bit or multi-bit reason agree with the region
// error type, which is more precise than the board.
func FixCRCReason(t integrity.ErrorType, b Bits) Bits {
	switch {
	case t == integrity.TypeMultiBitCRC && b.Reason() == ReasonSingleBit:
		return b.WithReason(ReasonMultiBit)
	case t == integrity.TypeSingleBitCRC && b.Reason() == ReasonMultiBit:
		return b.WithReason(ReasonSingleBit)
	}
	return b
}
