// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package core

import (
	"errors"
)

// Error is our own defined error type for failures surfaced to the sub-request
// scheduler.
type Error int

const (
	// NoError means no error.
	NoError = Error(iota)

	//------ Validation errors: the request can never be planned ------//

	// ErrInvalidArgument is returned if a request field is bad or confusing.
	ErrInvalidArgument

	// ErrUnsupportedAlgorithm is returned if the algorithm has no buffer policy.
	ErrUnsupportedAlgorithm

	// ErrRangeMismatch is returned when the verify range and the transfer
	// range differ outside single-region mode.
	ErrRangeMismatch

	// ErrDataDiskMismatch is returned when the data disk count disagrees with
	// the positions that are fully accessible.
	ErrDataDiskMismatch

	// ErrUnaligned is returned when a range is not a multiple of the optimal
	// block size.
	ErrUnaligned

	// ErrBadPageSize is returned for a page size that is neither standard nor max.
	ErrBadPageSize

	// ErrParentRange is returned when the parent read does not fit the verify range.
	ErrParentRange

	//------ Capacity errors: retry with a smaller request ------//

	// ErrMustSplit is returned when a position needs more fragments than the
	// largest scatter-gather class holds.
	ErrMustSplit

	// ErrTooBig is returned when the byte count of a request overflows.
	ErrTooBig

	//------ Invariant errors: internal bookkeeping broke ------//

	// ErrCannotReduce is returned when a request cannot be halved on an
	// aligned boundary.
	ErrCannotReduce

	// ErrStitchCoverage is returned when a stitched buffer does not cover the
	// requested range exactly.
	ErrStitchCoverage

	// ErrFragmentOverrun is returned when more fragments are needed than were
	// planned.
	ErrFragmentOverrun

	// ErrDescriptorMismatch is returned when read and write descriptors disagree.
	ErrDescriptorMismatch

	// ErrCorrectableNotAllowed is returned when correctable errors show up in
	// a pass that forbids them.
	ErrCorrectableNotAllowed

	// ErrOutOfMemory is returned when the page pool runs dry.
	ErrOutOfMemory

	//------ Reporting errors: bad input from the integrity layer ------//

	// ErrMalformedRegion is returned for a region carrying an error type that
	// can never be reported.
	ErrMalformedRegion

	// ErrBadPosition is returned for a position beyond the array width.
	ErrBadPosition

	// ErrMissingContext is returned when reporting lacks required state.
	ErrMissingContext

	//------ Diagnostic errors ------//

	// ErrValidationMismatch is returned when detected regions do not match
	// the expected regions.
	ErrValidationMismatch

	// ErrNoRetryPossible is returned when a mismatch needs a diagnostic
	// re-read but no reads are outstanding.
	ErrNoRetryPossible

	//------ Meta-error ------//

	// ErrUnknown is an error that we're not really sure about.
	ErrUnknown
)

var description = map[Error]string{
	NoError: "no error",

	ErrInvalidArgument:      "invalid argument",
	ErrUnsupportedAlgorithm: "algorithm not supported",
	ErrRangeMismatch:        "verify range does not match transfer range",
	ErrDataDiskMismatch:     "data disk count does not match accessible positions",
	ErrUnaligned:            "range not aligned to optimal block size",
	ErrBadPageSize:          "invalid page size",
	ErrParentRange:          "parent read does not fit verify range",

	ErrMustSplit: "request needs more fragments than any sg class holds, split it",
	ErrTooBig:    "request is too large",

	ErrCannotReduce:          "request cannot be reduced on an aligned boundary",
	ErrStitchCoverage:        "stitched buffer does not cover the range",
	ErrFragmentOverrun:       "sg list overrun",
	ErrDescriptorMismatch:    "read and write descriptors disagree",
	ErrCorrectableNotAllowed: "correctable errors found where none are allowed",
	ErrOutOfMemory:           "page pool exhausted",

	ErrMalformedRegion: "malformed error region",
	ErrBadPosition:     "position out of range",
	ErrMissingContext:  "missing reporting context",

	ErrValidationMismatch: "error regions do not match expected regions",
	ErrNoRetryPossible:    "no reads outstanding to retry",

	ErrUnknown: "unknown error!!!! contact a programming professional to diagnose",
}

// Kind groups errors by how the scheduler must react to them.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindCapacity
	KindInvariant
	KindReporting
	KindDiagnostic
)

var kindNames = []string{"none", "validation", "capacity", "invariant", "reporting", "diagnostic"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// String returns a human readable error message.
func (e Error) String() string {
	if s, ok := description[e]; ok {
		return s
	}
	return "NO DESCRIPTION FOR ERROR FIX THIS"
}

// Known reports whether e is one of the codes defined above.
func (e Error) Known() bool {
	_, ok := description[e]
	return ok
}

// Error returns a golang error object with an error message corresponding to
// this core.Error.
func (e Error) Error() error {
	if e == NoError {
		return nil
	}
	return goError(e)
}

// Is checks whether the generic Go error 'g' is actually the receiver error
// underneath, looking through wrapping.
func (e Error) Is(g error) bool {
	b, ok := FromError(g)
	return ok && b == e
}

// Kind returns the class of the error.
func (e Error) Kind() Kind {
	switch {
	case e == NoError:
		return KindNone
	case e >= ErrInvalidArgument && e <= ErrParentRange:
		return KindValidation
	case e == ErrMustSplit || e == ErrTooBig:
		return KindCapacity
	case e >= ErrCannotReduce && e <= ErrOutOfMemory:
		return KindInvariant
	case e >= ErrMalformedRegion && e <= ErrMissingContext:
		return KindReporting
	case e == ErrValidationMismatch || e == ErrNoRetryPossible:
		return KindDiagnostic
	}
	return KindInvariant
}

// goError is a wrapper type to make our Error act like Go's 'error'
type goError Error

// Error implements the 'error' interface.
func (g goError) Error() string {
	return (Error)(g).String()
}

// FromError gets the underlying core.Error from an error, possibly wrapped.
func FromError(err error) (Error, bool) {
	var g goError
	if errors.As(err, &g) {
		return Error(g), true
	}
	return NoError, false
}

// IsFatal reports whether err must abort the sub-request. Capacity errors are
// the only ones the scheduler recovers from, by splitting the request.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	e, ok := FromError(err)
	if !ok {
		return true
	}
	return e.Kind() != KindCapacity
}

// IsSplitRequired checks whether err asks the scheduler to retry with a
// smaller request.
func IsSplitRequired(err error) bool {
	e, ok := FromError(err)
	return ok && e.Kind() == KindCapacity
}
