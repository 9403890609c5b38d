// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package eboard accumulates the errors found by each verify pass of a
// sub-request, and rolls them up into the parent request.
package eboard

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
)

// Outcome is the result of recording a pass.
type Outcome int

const (
	// Done means the pass was recorded and reporting may go ahead.
	Done Outcome = iota
	// Waiting means a validation mismatch was found and the caller has to
	// run the diagnostic re-read before anything else.
	Waiting
)

func (o Outcome) String() string {
	if o == Waiting {
		return "waiting"
	}
	return "done"
}

// Validator compares the regions found against what a test staged. It
// returns the index of the first region that doesn't match, or -1, and
// whether there was a mismatch at all.
type Validator interface {
	Check(regions *integrity.RegionList) (int, bool)
}

// Input is one pass to record.
type Input struct {
	// Pass is the checker's board for this pass. Record trims it in place.
	Pass *integrity.Board
	// Keep lists the categories this algorithm may persist.
	Keep integrity.CategorySet
	// AllowCorrectable is false for operations that can't legitimately see
	// correctable checksum or shed stamp errors.
	AllowCorrectable bool

	Validator Validator
	Regions   *integrity.RegionList

	// SoftMedia holds the reads that succeeded but asked for a remap.
	SoftMedia core.PositionMask
}

// Result describes a recorded pass.
type Result struct {
	Outcome       Outcome
	Unmatched     int
	Correctable   bool
	Uncorrectable bool
}

// Accumulator is the error state of one sub-request.
type Accumulator struct {
	// Board is the union of every recorded pass.
	Board integrity.Board
	// RetriedCRC holds positions whose checksum errors went away on retry.
	RetriedCRC core.PositionMask

	CurrentPass integrity.Counts
	Overall     integrity.Counts
}

// BeginPass starts a new verify pass.
func (a *Accumulator) BeginPass() {
	a.CurrentPass = integrity.Counts{}
}

// MarkRetried records that the reads of positions in m were retried because
// of a checksum error and then succeeded.
func (a *Accumulator) MarkRetried(m core.PositionMask) {
	a.RetriedCRC |= m
}

// RetriedOnly returns positions whose checksum errors were all resolved by a
// retry.
func (a *Accumulator) RetriedOnly() core.PositionMask {
	crc := a.Board.Correctable[integrity.CategoryCRC] | a.Board.Uncorrectable[integrity.CategoryCRC]
	return a.RetriedCRC &^ crc
}

// Merge adds the counters of cur into overall.
func Merge(cur, overall *integrity.Counts) {
	overall.Add(cur)
}

// Record adds one pass to the accumulator.
func (a *Accumulator) Record(in Input) (Result, error) {
	if in.Pass == nil {
		return Result{}, fmt.Errorf("no pass board: %w", core.ErrMissingContext.Error())
	}
	res := Result{
		Outcome:       Done,
		Unmatched:     -1,
		Correctable:   in.Pass.HasCorrectable(),
		Uncorrectable: in.Pass.HasUncorrectable(),
	}

	if !in.AllowCorrectable && res.Correctable {
		bad := in.Pass.Correctable[integrity.CategoryShedStamp] | in.Pass.Correctable[integrity.CategoryCRC]
		if bad != 0 {
			log.Errorf("mirror: correctable errors on %s where none are allowed", bad)
			return res, fmt.Errorf("positions %s: %w", bad, core.ErrCorrectableNotAllowed.Error())
		}
	}

	if in.Validator != nil {
		if idx, mismatch := in.Validator.Check(in.Regions); mismatch {
			if idx >= 0 && idx < in.Regions.Len() {
				in.Regions.MarkUnmatched(idx)
			}
			log.Warningf("mirror: region %d doesn't match the expected errors", idx)
			res.Outcome = Waiting
			res.Unmatched = idx
			return res, nil
		}
	}

	in.Pass.Keep(in.Keep)
	a.Board.Merge(in.Pass)

	pass := CountBoard(in.Pass)
	if in.SoftMedia != 0 {
		pass.CorrectableSoftMedia++
	}
	a.CurrentPass.Add(&pass)
	Merge(&a.CurrentPass, &a.Overall)
	return res, nil
}

// UpdateParent adds this sub-request's totals into the parent request. Raw
// mirrors also report which positions carried bad magic numbers or sequence
// numbers.
func (a *Accumulator) UpdateParent(parent *integrity.RawMirrorErrors, rawMirror bool) {
	if parent == nil {
		return
	}
	parent.Counts.Add(&a.Overall)
	if rawMirror {
		parent.MagicMask |= a.Board.Correctable[integrity.CategoryRawMirrorMagic] |
			a.Board.Uncorrectable[integrity.CategoryRawMirrorMagic]
		parent.SequenceMask |= a.Board.Correctable[integrity.CategoryRawMirrorSeq]
	}
}
