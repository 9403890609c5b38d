// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package core

import (
	"fmt"
	"math"
	"math/bits"
)

// LBA is a logical block address on a position.
type LBA uint64

// InvalidLBA marks a descriptor that does not take part in the operation.
const InvalidLBA = LBA(math.MaxUint64)

// Position is a member index inside an array.
type Position int

// PositionMask has one bit per position.
type PositionMask uint16

// MaskOf returns a mask with the given positions set.
func MaskOf(positions ...Position) PositionMask {
	var m PositionMask
	for _, p := range positions {
		m = m.Set(p)
	}
	return m
}

// Has returns true if p is in the mask.
func (m PositionMask) Has(p Position) bool {
	return p >= 0 && p < MaxArrayWidth && m&(1<<uint(p)) != 0
}

// Set returns the mask with p added.
func (m PositionMask) Set(p Position) PositionMask {
	return m | 1<<uint(p)
}

// Clear returns the mask with p removed.
func (m PositionMask) Clear(p Position) PositionMask {
	return m &^ (1 << uint(p))
}

// Count returns the number of positions in the mask.
func (m PositionMask) Count() int {
	return bits.OnesCount16(uint16(m))
}

// Lowest returns the lowest position in the mask, or -1 if it is empty.
func (m PositionMask) Lowest() Position {
	if m == 0 {
		return -1
	}
	return Position(bits.TrailingZeros16(uint16(m)))
}

// Positions lists the positions of the mask below width in ascending order.
func (m PositionMask) Positions(width int) []Position {
	var out []Position
	for p := Position(0); int(p) < width; p++ {
		if m.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Full returns a mask with positions [0, width) set.
func Full(width int) PositionMask {
	return PositionMask(uint32(1)<<uint(width) - 1)
}

func (m PositionMask) String() string {
	return fmt.Sprintf("0x%04x", uint16(m))
}
