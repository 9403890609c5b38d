// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package eboard

import (
	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
)

func count(m core.PositionMask) uint32 { return uint32(m.Count()) }

// CountBoard turns a pass board into counters, one per position and category.
func CountBoard(b *integrity.Board) integrity.Counts {
	c := b.Correctable
	u := b.Uncorrectable
	multi := b.Cause[integrity.CauseMultiBit] | b.Cause[integrity.CauseMultiBitAndLBAStamp]
	single := b.Cause[integrity.CauseSingleBit] &^ multi
	stamp := b.Cause[integrity.CauseLBAStamp]
	media := b.Cause[integrity.CauseMedia] | b.HardMedia

	coh := func(m *[integrity.NumCategories]core.PositionMask) core.PositionMask {
		return m[integrity.CategoryCoherency] | m[integrity.CategoryNPOCCoherency] |
			m[integrity.CategoryPOCCoherency] | m[integrity.CategoryUnknownCoherency]
	}

	return integrity.Counts{
		UncorrectableCRC:         count(u[integrity.CategoryCRC]),
		CorrectableCRC:           count(c[integrity.CategoryCRC]),
		UncorrectableCRCMulti:    count(u[integrity.CategoryCRC] & multi),
		CorrectableCRCMulti:      count(c[integrity.CategoryCRC] & multi),
		UncorrectableCRCSingle:   count(u[integrity.CategoryCRC] & single),
		CorrectableCRCSingle:     count(c[integrity.CategoryCRC] & single),
		UncorrectableCoherency:   count(coh(&u)),
		CorrectableCoherency:     count(coh(&c)),
		UncorrectableTimeStamp:   count(u[integrity.CategoryTimeStamp]),
		CorrectableTimeStamp:     count(c[integrity.CategoryTimeStamp]),
		UncorrectableWriteStamp:  count(u[integrity.CategoryWriteStamp]),
		CorrectableWriteStamp:    count(c[integrity.CategoryWriteStamp]),
		UncorrectableShedStamp:   count(u[integrity.CategoryShedStamp]),
		CorrectableShedStamp:     count(c[integrity.CategoryShedStamp]),
		UncorrectableLBAStamp:    count(u[integrity.CategoryCRC] & stamp),
		CorrectableLBAStamp:      count(c[integrity.CategoryCRC] & stamp),
		UncorrectableMedia:       count(u[integrity.CategoryCRC] & media),
		CorrectableMedia:         count(c[integrity.CategoryCRC] & media),
		UncorrectableRawMirMagic: count(u[integrity.CategoryRawMirrorMagic]),
		CorrectableRawMirMagic:   count(c[integrity.CategoryRawMirrorMagic]),
		CorrectableRawMirSeq:     count(c[integrity.CategoryRawMirrorSeq]),
		Invalidated:              count(u[integrity.CategoryCRC] & (b.Cause[integrity.CauseInvalid] | b.Cause[integrity.CauseCorruptCRC])),
	}
}
