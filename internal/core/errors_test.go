// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package core

import (
	"fmt"
	"testing"
)

func TestErrorDescriptions(t *testing.T) {
	for e := NoError; e <= ErrUnknown; e++ {
		if !e.Known() {
			t.Errorf("error %d has no description", e)
		}
	}
	if (ErrUnknown + 1).Known() || Error(-1).Known() {
		t.Errorf("codes outside the table must not be known")
	}
}

func TestErrorWrapping(t *testing.T) {
	err := fmt.Errorf("position 2: %w", ErrMustSplit.Error())
	if !ErrMustSplit.Is(err) {
		t.Fatalf("wrapped error lost its code: %v", err)
	}
	if ErrUnaligned.Is(err) {
		t.Fatalf("wrong code matched")
	}
	if !IsSplitRequired(err) || IsFatal(err) {
		t.Fatalf("capacity error must not be fatal")
	}
	if !IsFatal(ErrStitchCoverage.Error()) {
		t.Fatalf("invariant error must be fatal")
	}
	if !IsFatal(fmt.Errorf("plain")) {
		t.Fatalf("foreign errors are fatal")
	}
	if NoError.Error() != nil || IsFatal(nil) {
		t.Fatalf("NoError must map to nil")
	}
}

func TestErrorKinds(t *testing.T) {
	cases := map[Error]Kind{
		ErrInvalidArgument:       KindValidation,
		ErrParentRange:           KindValidation,
		ErrMustSplit:             KindCapacity,
		ErrCannotReduce:          KindInvariant,
		ErrCorrectableNotAllowed: KindInvariant,
		ErrMalformedRegion:       KindReporting,
		ErrBadPosition:           KindReporting,
		ErrValidationMismatch:    KindDiagnostic,
		ErrNoRetryPossible:       KindDiagnostic,
	}
	for e, k := range cases {
		if e.Kind() != k {
			t.Errorf("%s: kind %s, want %s", e, e.Kind(), k)
		}
	}
}
