// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package classify turns error board masks and error regions into the status
// bits carried by every logged event.
package classify

// Bits is the error info word of an event: independent category bits plus one
// reason in the reason field.
type Bits uint32

const (
	UnexpectedCRC Bits = 1 << iota
	Coherency
	TimeStamp
	WriteStamp
	ShedStamp
	POC
	NPOC
	UnknownCoherency
	Zeroed
	LBA
	CRCRetry
	RawMirrorMagic
	RawMirrorSeq

	numCategoryBits = iota
)

const (
	reasonShift = 16

	// ReasonMask covers the reason field.
	ReasonMask Bits = 0xf << reasonShift
)

// Reason is the root cause of a checksum error.
type Reason uint32

const (
	ReasonNone Reason = iota
	ReasonRAID
	ReasonKlondike
	ReasonDH
	ReasonMedia
	ReasonCorruptCRC
	ReasonCorruptData
	ReasonSingleBit
	ReasonMultiBit
	ReasonInvalid
	ReasonBad
	ReasonCopy
	ReasonPVDMetadata
	ReasonLBAStamp

	numReasons
)

// Bits returns the reason placed in the reason field.
func (r Reason) Bits() Bits {
	return Bits(r) << reasonShift
}

// Reason extracts the reason field.
func (b Bits) Reason() Reason {
	return Reason((b & ReasonMask) >> reasonShift)
}

// WithReason replaces the reason field.
func (b Bits) WithReason(r Reason) Bits {
	return b&^ReasonMask | r.Bits()
}

// Has checks for a category bit.
func (b Bits) Has(c Bits) bool {
	return b&c != 0
}

// Categories drops the reason field.
func (b Bits) Categories() Bits {
	return b &^ ReasonMask
}
