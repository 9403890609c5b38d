// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package sizer computes how many scatter-gather fragments and buffer pages a
// sub-request needs before anything is allocated.
package sizer

import (
	"fmt"
	"math"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// Class is a scatter-gather list size class.
type Class int

const (
	SG1 Class = iota
	SG8
	SG32
	SG128
	SGMax

	// NumClasses is the number of valid classes.
	NumClasses

	// Invalid is the class of a descriptor that needs no list.
	Invalid = NumClasses
)

var classEntries = [NumClasses]int{1, 8, 32, 128, 2048}

// MaxEntries returns how many fragments a list of class c holds. It returns
// 0 for Invalid.
func (c Class) MaxEntries() int {
	if c < 0 || c >= NumClasses {
		return 0
	}
	return classEntries[c]
}

func (c Class) String() string {
	if c < 0 || c >= NumClasses {
		return "sg_invalid"
	}
	if c == SGMax {
		return "sg_max"
	}
	return fmt.Sprintf("sg_%d", classEntries[c])
}

// ClassFor returns the smallest class able to hold n fragments. It fails with
// ErrMustSplit when no class can.
func ClassFor(n int) (Class, error) {
	for c := SG1; c < NumClasses; c++ {
		if n <= classEntries[c] {
			return c, nil
		}
	}
	return Invalid, fmt.Errorf("%d fragments: %w", n, core.ErrMustSplit.Error())
}

// Histogram counts descriptors per class.
type Histogram [NumClasses]int

// Add counts one list of class c.
func (h *Histogram) Add(c Class) {
	if c >= 0 && c < NumClasses {
		h[c]++
	}
}

// Lists returns the number of lists counted.
func (h *Histogram) Lists() int {
	n := 0
	for _, v := range h {
		n += v
	}
	return n
}

// CountUniformBlocks returns how many fragments are needed to add blocks to a
// list whose pages hold perPage blocks, when remaining blocks are still free
// in the page used last. It also returns the blocks left free in the last page
// afterwards. A partly used page always costs one fragment.
func CountUniformBlocks(blocks, perPage, remaining uint64) (newRemaining uint64, fragments int, err error) {
	if blocks == 0 {
		return remaining, 0, nil
	}
	if perPage == 0 {
		return remaining, 0, fmt.Errorf("zero page size: %w", core.ErrBadPageSize.Error())
	}
	if remaining > 0 {
		fragments = 1
	}
	if blocks <= remaining {
		return remaining - blocks, fragments, nil
	}
	blocks -= remaining
	remaining = 0
	if rem := blocks % perPage; rem != 0 {
		remaining = perPage - rem
	}
	pages := (blocks + remaining) / perPage
	if pages > math.MaxUint32 {
		return remaining, 0, fmt.Errorf("0x%x pages: %w", pages, core.ErrTooBig.Error())
	}
	return remaining, fragments + int(pages), nil
}

// FragmentsFor returns the fragment count of a position read of blocks fresh
// blocks, margin included, and the page slack left afterwards.
func FragmentsFor(blocks, perPage, remaining uint64) (uint64, int, error) {
	remaining, n, err := CountUniformBlocks(blocks, perPage, remaining)
	if err != nil {
		return remaining, 0, err
	}
	// One spare entry absorbs a later region-mode alignment split.
	return remaining, n + 1, nil
}

// ValidPageSize returns true for the page sizes the allocator hands out.
func ValidPageSize(blocks uint64) bool {
	return blocks == core.PageBlocksStd || blocks == core.PageBlocksMax
}
