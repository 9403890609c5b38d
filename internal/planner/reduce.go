// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package planner

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// Reduce halves the verified range of s. The half must stay a non-zero
// multiple of the optimal block size.
func Reduce(s *SubRequest) error {
	half := s.ParityCount / 2
	if half == 0 || s.OptimalBlockSize == 0 || half%s.OptimalBlockSize != 0 {
		log.Errorf("mirror: %s: can't reduce 0x%x blocks (optimal 0x%x)", s.ID, s.ParityCount, s.OptimalBlockSize)
		return fmt.Errorf("0x%x blocks: %w", s.ParityCount, core.ErrCannotReduce.Error())
	}
	log.V(1).Infof("mirror: %s: reduced 0x%x to 0x%x blocks", s.ID, s.ParityCount, half)
	s.ParityCount = half
	if !s.SingleRegionMode {
		s.XferCount = half
	}
	return nil
}

// CheckLimit reports whether s fits in a single request. It returns
// core.ErrMustSplit when the caller should Reduce and try again.
func CheckLimit(s *SubRequest, parent *ParentRead) error {
	total := uint64(s.Width) * s.ParityCount
	if total*core.BytesPerBlock > uint64(^uint32(0)) {
		return fmt.Errorf("0x%x blocks: %w", total, core.ErrMustSplit.Error())
	}
	_, err := PlanPositions(s, parent, DataPageSize(total, parent))
	return err
}

// Fit reduces s until it passes CheckLimit.
func Fit(s *SubRequest, parent *ParentRead) error {
	for {
		err := CheckLimit(s, parent)
		if !core.IsSplitRequired(err) {
			return err
		}
		if err := Reduce(s); err != nil {
			return err
		}
	}
}
