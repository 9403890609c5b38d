// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package sgl

import (
	"fmt"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// Page is one allocated buffer page.
type Page struct {
	Addr  uint64
	Bytes uint32
}

//go:generate mockgen -source=memory.go -destination=allocator_mock.go -package=sgl

// Allocator hands out buffer pages.
type Allocator interface {
	// AllocatePages returns count pages of pageBytes each.
	AllocatePages(count int, pageBytes uint32) ([]Page, error)
	// Release gives pages back.
	Release(pages []Page)
}

// Memory is a cursor over allocated data pages. Lists are filled from it in
// order, so consecutive lists share the tail of a page.
type Memory struct {
	pages  []Page
	cur    int
	offset uint32
}

// NewMemory returns a cursor at the start of pages.
func NewMemory(pages []Page) *Memory {
	return &Memory{pages: pages}
}

// Pages returns the underlying pages.
func (m *Memory) Pages() []Page { return m.pages }

// BytesRemainingInPage returns what is left in the current page.
func (m *Memory) BytesRemainingInPage() uint32 {
	if m.cur >= len(m.pages) {
		return 0
	}
	return m.pages[m.cur].Bytes - m.offset
}

// BytesRemaining returns everything left in the cursor.
func (m *Memory) BytesRemaining() uint64 {
	n := uint64(m.BytesRemainingInPage())
	for i := m.cur + 1; i < len(m.pages); i++ {
		n += uint64(m.pages[i].Bytes)
	}
	return n
}

// Populate appends n bytes of fresh memory to dst, one fragment per page
// touched. It returns the number of fragments appended.
func (m *Memory) Populate(dst *List, n uint64) (int, error) {
	used := 0
	for n > 0 {
		if m.cur >= len(m.pages) {
			return used, fmt.Errorf("short by 0x%x bytes: %w", n, core.ErrOutOfMemory.Error())
		}
		left := m.pages[m.cur].Bytes - m.offset
		take := uint64(left)
		if take > n {
			take = n
		}
		if err := dst.Append(Fragment{Addr: m.pages[m.cur].Addr + uint64(m.offset), Len: uint32(take)}); err != nil {
			return used, err
		}
		used++
		n -= take
		m.offset += uint32(take)
		if m.offset == m.pages[m.cur].Bytes {
			m.cur++
			m.offset = 0
		}
	}
	return used, nil
}
