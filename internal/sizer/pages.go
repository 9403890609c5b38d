// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package sizer

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// Layout holds the byte sizes of the control structures carved out of control
// pages.
type Layout struct {
	// FrutsBytes is the size of one per-position request descriptor.
	FrutsBytes int
	// VerifyContextBytes is the size of the verify context (error regions and
	// pass counters).
	VerifyContextBytes int
	// VerifyTrackingBytes is the size of the verify tracking structure that
	// holds the error board.
	VerifyTrackingBytes int
	// SGEntryBytes is the size of one scatter-gather entry.
	SGEntryBytes int
}

// DefaultLayout is the layout used in production.
var DefaultLayout = Layout{
	FrutsBytes:          256,
	VerifyContextBytes:  2048,
	VerifyTrackingBytes: 512,
	SGEntryBytes:        16,
}

// Validate checks that every size is positive.
func (l Layout) Validate() error {
	if l.FrutsBytes <= 0 || l.VerifyContextBytes <= 0 || l.VerifyTrackingBytes <= 0 || l.SGEntryBytes <= 0 {
		return fmt.Errorf("bad layout %+v: %w", l, core.ErrInvalidArgument.Error())
	}
	return nil
}

// SGListBytes is the size of a list of class c, terminator included.
func (l Layout) SGListBytes(c Class) int {
	return (c.MaxEntries() + 1) * l.SGEntryBytes
}

// Pages is the number of pages to request from the allocator.
type Pages struct {
	Data    int
	Control int
}

// Total returns data plus control pages.
func (p Pages) Total() int { return p.Data + p.Control }

// Request describes what has to fit in the pages.
type Request struct {
	// TotalBlocks is the number of fresh data blocks.
	TotalBlocks uint64
	// DataPageBlocks and CtrlPageBlocks are page sizes in blocks.
	DataPageBlocks uint64
	CtrlPageBlocks uint64
	// Fruts is the number of per-position request descriptors.
	Fruts int
	// Lists is the histogram of scatter-gather lists.
	Lists Histogram
}

// NumPages computes data and control pages for r.
func NumPages(r Request, l Layout) (Pages, error) {
	if !ValidPageSize(r.DataPageBlocks) || !ValidPageSize(r.CtrlPageBlocks) {
		return Pages{}, fmt.Errorf("data %d ctrl %d blocks: %w", r.DataPageBlocks, r.CtrlPageBlocks, core.ErrBadPageSize.Error())
	}
	dataPageBytes := r.DataPageBlocks * core.BytesPerBlock
	if r.TotalBlocks > math.MaxUint32/core.BytesPerBlock {
		return Pages{}, fmt.Errorf("0x%x blocks: %w", r.TotalBlocks, core.ErrTooBig.Error())
	}
	dataBytes := r.TotalBlocks * core.BytesPerBlock
	p := Pages{Data: int((dataBytes + dataPageBytes - 1) / dataPageBytes)}

	var c ctrlPacker
	c.pageBytes = int(r.CtrlPageBlocks * core.BytesPerBlock)
	if err := c.add(l.FrutsBytes, r.Fruts); err != nil {
		return Pages{}, err
	}
	if err := c.add(l.VerifyContextBytes, 1); err != nil {
		return Pages{}, err
	}
	if err := c.add(l.VerifyTrackingBytes, 1); err != nil {
		return Pages{}, err
	}
	for cl := SG1; cl < NumClasses; cl++ {
		if err := c.add(l.SGListBytes(cl), r.Lists[cl]); err != nil {
			return Pages{}, err
		}
	}
	p.Control = c.pages

	log.V(2).Infof("sizer: %d data pages (%s) %d ctrl pages for %d fruts, lists %v",
		p.Data, humanize.IBytes(dataBytes), p.Control, r.Fruts, r.Lists)
	return p, nil
}

// ctrlPacker places structures into control pages in order, carrying the
// leftover of the current page between structures. A structure never spans
// pages.
type ctrlPacker struct {
	pageBytes int
	left      int
	pages     int
}

func (c *ctrlPacker) add(size, count int) error {
	if count == 0 {
		return nil
	}
	if size > c.pageBytes {
		return fmt.Errorf("%d byte structure in %d byte page: %w", size, c.pageBytes, core.ErrTooBig.Error())
	}
	for i := 0; i < count; i++ {
		if c.left < size {
			c.pages++
			c.left = c.pageBytes
		}
		c.left -= size
	}
	return nil
}
