// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/eboard"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
)

// State is where a Scanner is in its completion.
type State int

const (
	// Scanning accepts the next pass.
	Scanning State = iota
	// AwaitingRetryDisplay waits for diagnostic re-reads to finish.
	AwaitingRetryDisplay
	// Done means everything was reported.
	Done
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case AwaitingRetryDisplay:
		return "awaiting_retry_display"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Dispatcher is the part of the I/O layer a Scanner drives.
type Dispatcher interface {
	// DisplayBlocks dumps the blocks at lba on every position for diagnosis.
	DisplayBlocks(lba core.LBA) error
	// ActiveReads returns positions with reads that can be reissued.
	ActiveReads() core.PositionMask
	// RetryReads reissues the reads of positions in m.
	RetryReads(m core.PositionMask) error
}

// Pass is what the checker produced for one verify pass.
type Pass struct {
	Board     *integrity.Board
	Regions   *integrity.RegionList
	Keep      integrity.CategorySet
	Validator eboard.Validator
	SoftMedia core.PositionMask
	Parent    *integrity.RawMirrorErrors
}

// Scanner completes a sub-request: it records each pass, handles regions that
// don't match the expected errors, and reports once the errors are final.
type Scanner struct {
	r     *Reporter
	ctx   *Context
	acc   *eboard.Accumulator
	d     Dispatcher
	state State
	last  Pass
	shown core.LBA
}

// NewScanner returns a scanner in the Scanning state.
func NewScanner(r *Reporter, ctx *Context, acc *eboard.Accumulator, d Dispatcher) *Scanner {
	return &Scanner{r: r, ctx: ctx, acc: acc, d: d}
}

// State returns the current state.
func (s *Scanner) State() State { return s.state }

// Run records p and reports it unless a mismatch needs a re-read first.
func (s *Scanner) Run(p Pass) (State, error) {
	if s.state != Scanning {
		return s.state, fmt.Errorf("run in state %s: %w", s.state, core.ErrInvalidArgument.Error())
	}
	if err := p.Regions.Check(s.ctx.Width); err != nil {
		return s.state, err
	}
	res, err := s.acc.Record(eboard.Input{
		Pass:             p.Board,
		Keep:             p.Keep,
		AllowCorrectable: s.ctx.allowCorrectable(),
		Validator:        p.Validator,
		Regions:          p.Regions,
		SoftMedia:        p.SoftMedia,
	})
	if err != nil {
		return s.state, err
	}
	s.last = p

	if res.Outcome == eboard.Waiting {
		// A validator may point outside the list; show the whole range then.
		lba := s.ctx.ParityStart
		if res.Unmatched >= 0 && res.Unmatched < p.Regions.Len() {
			lba = p.Regions.Regions[res.Unmatched].LBA
		}
		s.shown = lba
		if err := s.d.DisplayBlocks(lba); err != nil {
			return s.state, err
		}
		active := s.d.ActiveReads()
		if active == 0 {
			return s.state, fmt.Errorf("region at lba 0x%x: %w", lba, core.ErrNoRetryPossible.Error())
		}
		if err := s.d.RetryReads(active); err != nil {
			return s.state, err
		}
		s.state = AwaitingRetryDisplay
		return s.state, nil
	}

	if err := s.r.Report(s.ctx, s.acc, p.Regions, p.Parent); err != nil {
		return s.state, err
	}
	s.state = Done
	return s.state, nil
}

// RetryComplete is called when the diagnostic re-reads finish. The blocks are
// displayed again so both reads can be compared; the mismatch itself is not
// reported.
func (s *Scanner) RetryComplete() (State, error) {
	if s.state != AwaitingRetryDisplay {
		return s.state, fmt.Errorf("retry complete in state %s: %w", s.state, core.ErrInvalidArgument.Error())
	}
	if err := s.d.DisplayBlocks(s.shown); err != nil {
		return s.state, err
	}
	if idx, ok := s.last.Regions.Unmatched(); ok {
		log.Errorf("mirror: grp %d region %s doesn't match the expected errors", s.ctx.Group, s.last.Regions.Regions[idx])
	} else {
		log.Errorf("mirror: grp %d regions at lba 0x%x don't match the expected errors", s.ctx.Group, s.shown)
	}
	s.state = Done
	return s.state, nil
}
