// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package integrity

import (
	"math"
	"reflect"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// Counts are the verify error counters for one pass or a whole request.
// Every field is a uint32 counter.
type Counts struct {
	UncorrectableCRC         uint32
	CorrectableCRC           uint32
	UncorrectableCRCMulti    uint32
	CorrectableCRCMulti      uint32
	UncorrectableCRCSingle   uint32
	CorrectableCRCSingle     uint32
	UncorrectableCoherency   uint32
	CorrectableCoherency     uint32
	UncorrectableTimeStamp   uint32
	CorrectableTimeStamp     uint32
	UncorrectableWriteStamp  uint32
	CorrectableWriteStamp    uint32
	UncorrectableShedStamp   uint32
	CorrectableShedStamp     uint32
	UncorrectableLBAStamp    uint32
	CorrectableLBAStamp      uint32
	UncorrectableMedia       uint32
	CorrectableMedia         uint32
	CorrectableSoftMedia     uint32
	RetryableErrors          uint32
	NonRetryableErrors       uint32
	ShutdownErrors           uint32
	UncorrectableRawMirMagic uint32
	CorrectableRawMirMagic   uint32
	CorrectableRawMirSeq     uint32
	Invalidated              uint32
}

// Add adds every counter of other into c, saturating at the counter maximum.
func (c *Counts) Add(other *Counts) {
	dst := reflect.ValueOf(c).Elem()
	src := reflect.ValueOf(other).Elem()
	for i := 0; i < dst.NumField(); i++ {
		f := dst.Field(i)
		f.SetUint(uint64(satAdd(uint32(f.Uint()), uint32(src.Field(i).Uint()))))
	}
}

// Total returns the sum of every counter.
func (c *Counts) Total() uint64 {
	v := reflect.ValueOf(c).Elem()
	var total uint64
	for i := 0; i < v.NumField(); i++ {
		total += v.Field(i).Uint()
	}
	return total
}

func satAdd(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}

// RawMirrorErrors is what a raw mirror reports on top of the counters.
type RawMirrorErrors struct {
	Counts
	MagicMask    core.PositionMask
	SequenceMask core.PositionMask
}
