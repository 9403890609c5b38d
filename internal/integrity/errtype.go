// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package integrity

import (
	"fmt"
	"strings"
)

// ErrorType is the kind of error the checker found in a region. The values are
// stored in error tables and must not change.
type ErrorType uint8

const (
	TypeNone ErrorType = iota
	TypeSoftMedia
	TypeHardMedia
	TypeRndMedia
	TypeCRC
	TypeKlondikeCRC
	TypeDHCRC
	TypeRAIDCRC
	TypeCorruptCRC
	TypeWriteStamp
	TypeTimeStamp
	TypeShedStamp
	TypeBogusWriteStamp
	TypeBogusTimeStamp
	TypeBogusShedStamp
	Type1NS
	Type1S
	Type1R
	Type1D
	Type1COD
	Type1COP
	Type1POC
	TypeCoherency
	TypeCorruptData
	TypeNPOCCoherency
	TypePOCCoherency
	TypeUnknownCoherency
	TypeRebuildFailed
	TypeLBAStamp
	TypeSingleBitCRC
	TypeMultiBitCRC
	TypeTimeout
	TypeCorruptCRCInjected
	TypeCorruptDataInjected
	TypeRawMirrorBadMagic
	TypeRawMirrorBadSeq
	TypeSilentDrop
	TypeInvalidated
	TypeBadCRC
	TypeDelayDown
	TypeDelayUp
	TypeCopyCRC
	TypePVDMetadata
	TypeIOUnexpected
	TypeIncompleteWrite
	TypeKeyError
	TypeKeyNotFound
	TypeEncryptionNotEnabled
	TypeMultiBitWithLBAStamp
	TypeUnknown
)

var typeNames = [...]string{
	"none", "soft_media", "hard_media", "rnd_media", "crc", "klondike_crc", "dh_crc",
	"raid_crc", "corrupt_crc", "ws", "ts", "ss", "bogus_ws", "bogus_ts", "bogus_ss",
	"1ns", "1s", "1r", "1d", "1cod", "1cop", "1poc", "coh", "corrupt_data",
	"n_poc_coh", "poc_coh", "coh_unknown", "rb_failed", "lba_stamp", "single_bit_crc",
	"multi_bit_crc", "timeout", "corrupt_crc_injected", "corrupt_data_injected",
	"rm_bad_magic", "rm_bad_seq", "silent_drop", "invalidated", "bad_crc",
	"delay_down", "delay_up", "copy_crc", "pvd_metadata", "io_unexpected",
	"incomplete_write", "key_error", "key_not_found", "encryption_not_enabled",
	"multi_bit_with_lba_stamp", "unknown",
}

func (t ErrorType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(0x%x)", uint8(t))
}

// TypeByName is the inverse of String.
func TypeByName(name string) (ErrorType, bool) {
	for t := TypeNone; t <= TypeUnknown; t++ {
		if typeNames[t] == name {
			return t, true
		}
	}
	return TypeNone, false
}

// IsUnknownCRC is true for checksum errors whose cause was not determined.
func (t ErrorType) IsUnknownCRC() bool {
	return t == TypeCRC || t == TypeSingleBitCRC || t == TypeMultiBitCRC
}

// Flag qualifies an ErrorType inside a Code.
type Flag uint16

const (
	FlagOthersInvalidated Flag = 0x0100
	FlagUnmatched         Flag = 0x0200
	FlagRebuildInvalid    Flag = 0x1000
	FlagInitialTS         Flag = 0x2000
	FlagZeroed            Flag = 0x4000
	FlagUncorrectable     Flag = 0x8000
)

const typeMask = 0xff

// Code is an ErrorType plus flags, as stored in a region.
type Code uint16

// NewCode builds a code out of a type and flags.
func NewCode(t ErrorType, flags ...Flag) Code {
	c := Code(t)
	for _, f := range flags {
		c |= Code(f)
	}
	return c
}

// Type strips the flags.
func (c Code) Type() ErrorType { return ErrorType(c & typeMask) }

// Has checks a flag.
func (c Code) Has(f Flag) bool { return c&Code(f) != 0 }

// With returns the code with f added.
func (c Code) With(f Flag) Code { return c | Code(f) }

// Uncorrectable is true when the checker could not repair the region.
func (c Code) Uncorrectable() bool { return c.Has(FlagUncorrectable) }

func (c Code) String() string {
	parts := []string{c.Type().String()}
	for _, f := range []struct {
		flag Flag
		name string
	}{
		{FlagOthersInvalidated, "others_invalidated"},
		{FlagUnmatched, "unmatched"},
		{FlagRebuildInvalid, "rb_inv_data"},
		{FlagInitialTS, "initial_ts"},
		{FlagZeroed, "zeroed"},
		{FlagUncorrectable, "uncorrectable"},
	} {
		if c.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// Status is the completion status of a checker pass. Values are bit flags.
type Status uint32

const (
	StatusInvalid          Status = 0
	StatusNoError          Status = 0x01
	StatusChecksumError    Status = 0x02
	StatusConsistencyError Status = 0x04
	StatusBadMemory        Status = 0x08
	StatusBadMetadata      Status = 0x10
	StatusBadShedStamp     Status = 0x20
	StatusUnexpectedError  Status = 0x40
)
