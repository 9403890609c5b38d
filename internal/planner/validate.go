// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package planner

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// Validate checks that s can be planned. Every problem is logged; the returned
// error carries the first one.
func Validate(s *SubRequest) error {
	var first error
	fail := func(code core.Error, format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		log.Errorf("mirror: %s: %s", s.ID, msg)
		if first == nil {
			first = fmt.Errorf("%s: %w", msg, code.Error())
		}
	}

	if s.Algorithm == nil {
		fail(core.ErrInvalidArgument, "no algorithm")
	} else if s.Algorithm.BufferPolicy() == core.BuffersUnsupported {
		fail(core.ErrUnsupportedAlgorithm, "unsupported algorithm %s", s.Algorithm)
	}
	if s.Width < 1 || s.Width > core.MaxMirrorWidth {
		fail(core.ErrInvalidArgument, "width %d out of range", s.Width)
	}
	if s.OptimalBlockSize == 0 {
		fail(core.ErrInvalidArgument, "zero optimal block size")
		return first
	}
	if s.ParityCount == 0 {
		fail(core.ErrInvalidArgument, "zero parity count")
	}
	if !s.SingleRegionMode {
		if s.StartLBA != s.ParityStart {
			fail(core.ErrRangeMismatch, "start_lba 0x%x and parity_start 0x%x don't agree", s.StartLBA, s.ParityStart)
		}
		if s.XferCount != s.ParityCount {
			fail(core.ErrRangeMismatch, "xfer_count 0x%x and parity_count 0x%x don't agree", s.XferCount, s.ParityCount)
		}
		if full := s.FullAccess().Count(); s.DataDisks != full {
			fail(core.ErrDataDiskMismatch, "data_disks %d and full access count %d don't agree", s.DataDisks, full)
		}
	}
	if s.ParityCount%s.OptimalBlockSize != 0 {
		fail(core.ErrUnaligned, "parity_count 0x%x isn't a multiple of optimal block size 0x%x", s.ParityCount, s.OptimalBlockSize)
	}
	if uint64(s.ParityStart)%s.OptimalBlockSize != 0 {
		fail(core.ErrUnaligned, "parity_start 0x%x isn't a multiple of optimal block size 0x%x", s.ParityStart, s.OptimalBlockSize)
	}
	return first
}

// ParentBlocks returns how many verify blocks the parent read already holds.
// Only a parent read entirely inside the verify range counts.
func ParentBlocks(s *SubRequest, p *ParentRead) (uint64, error) {
	if p == nil {
		return 0, nil
	}
	var n uint64
	if p.LBA >= s.ParityStart && p.End() <= s.End() {
		n = p.Blocks
	}
	if n > s.ParityCount {
		log.Errorf("mirror: %s: parent holds 0x%x blocks, more than verify 0x%x", s.ID, n, s.ParityCount)
		return 0, fmt.Errorf("parent blocks 0x%x: %w", n, core.ErrParentRange.Error())
	}
	if p.HasSecondRead {
		log.Errorf("mirror: %s: second parent read not expected for %s", s.ID, s.Algorithm)
		return 0, fmt.Errorf("second parent read: %w", core.ErrParentRange.Error())
	}
	return n, nil
}
