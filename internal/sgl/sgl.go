// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package sgl implements scatter-gather lists and the page cursor used to fill
// them from allocated memory.
package sgl

import (
	"fmt"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// Fragment is one contiguous piece of a buffer.
type Fragment struct {
	Addr uint64
	Len  uint32
}

// List is a scatter-gather list with a fixed capacity.
type List struct {
	frags    []Fragment
	capacity int
}

// NewList returns an empty list that can hold capacity fragments.
func NewList(capacity int) *List {
	return &List{frags: make([]Fragment, 0, capacity), capacity: capacity}
}

// Append adds a fragment. It fails when the list is full.
func (l *List) Append(f Fragment) error {
	if len(l.frags) >= l.capacity {
		return fmt.Errorf("list of %d entries full: %w", l.capacity, core.ErrFragmentOverrun.Error())
	}
	l.frags = append(l.frags, f)
	return nil
}

// Len returns the number of fragments.
func (l *List) Len() int { return len(l.frags) }

// Cap returns the capacity.
func (l *List) Cap() int { return l.capacity }

// Free returns how many fragments can still be appended.
func (l *List) Free() int { return l.capacity - len(l.frags) }

// Bytes returns the sum of fragment lengths.
func (l *List) Bytes() uint64 {
	var n uint64
	for _, f := range l.frags {
		n += uint64(f.Len)
	}
	return n
}

// Fragments returns a copy of the fragments.
func (l *List) Fragments() []Fragment {
	return append([]Fragment(nil), l.frags...)
}

// View returns a read-only view of the list.
func (l *List) View() View {
	return View{frags: l.frags}
}

// View is a read-only look at a list owned by someone else. It is how a
// recovery verify borrows the buffers of its parent read.
type View struct {
	frags []Fragment
}

// Len returns the number of fragments.
func (v View) Len() int { return len(v.frags) }

// At returns fragment i.
func (v View) At(i int) Fragment { return v.frags[i] }

// Bytes returns the sum of fragment lengths.
func (v View) Bytes() uint64 {
	var n uint64
	for _, f := range v.frags {
		n += uint64(f.Len)
	}
	return n
}

// seek finds the fragment holding byte offset off and the offset inside it.
func (v View) seek(off uint64) (int, uint64, bool) {
	for i, f := range v.frags {
		if off < uint64(f.Len) {
			return i, off, true
		}
		off -= uint64(f.Len)
	}
	return 0, 0, false
}

// Clip appends to dst the fragments covering bytes [off, off+n) of v. It
// returns the number of fragments appended.
func Clip(v View, off, n uint64, dst *List) (int, error) {
	if n == 0 {
		return 0, nil
	}
	i, inner, ok := v.seek(off)
	if !ok {
		return 0, fmt.Errorf("offset 0x%x beyond 0x%x bytes: %w", off, v.Bytes(), core.ErrStitchCoverage.Error())
	}
	used := 0
	for ; n > 0; i++ {
		if i >= len(v.frags) {
			return used, fmt.Errorf("parent list short by 0x%x bytes: %w", n, core.ErrStitchCoverage.Error())
		}
		f := v.frags[i]
		take := uint64(f.Len) - inner
		if take > n {
			take = n
		}
		if err := dst.Append(Fragment{Addr: f.Addr + inner, Len: uint32(take)}); err != nil {
			return used, err
		}
		used++
		n -= take
		inner = 0
	}
	return used, nil
}

// CountClip returns how many fragments Clip would append for the same range
// without touching any list.
func CountClip(v View, off, n uint64) (int, error) {
	if n == 0 {
		return 0, nil
	}
	i, inner, ok := v.seek(off)
	if !ok {
		return 0, fmt.Errorf("offset 0x%x beyond 0x%x bytes: %w", off, v.Bytes(), core.ErrParentRange.Error())
	}
	count := 0
	for ; n > 0; i++ {
		if i >= len(v.frags) {
			return count, fmt.Errorf("parent list short by 0x%x bytes: %w", n, core.ErrParentRange.Error())
		}
		take := uint64(v.frags[i].Len) - inner
		if take > n {
			take = n
		}
		count++
		n -= take
		inner = 0
	}
	return count, nil
}
