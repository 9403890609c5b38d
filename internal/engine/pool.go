// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"fmt"
	"sync"

	sigar "github.com/cloudfoundry/gosigar"
	"github.com/dustin/go-humanize"
	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sgl"
)

// poolBase is the first address handed out by a Pool.
const poolBase = 0x10000000

// Pool is an sgl.Allocator over a fixed budget of bytes. Released pages are
// kept per size and handed out again before new addresses are carved.
type Pool struct {
	lock  sync.Mutex
	limit uint64
	used  uint64
	next  uint64
	free  map[uint32][]uint64
}

// NewPool returns a pool of limit bytes.
func NewPool(limit uint64) *Pool {
	return &Pool{limit: limit, next: poolBase, free: make(map[uint32][]uint64)}
}

// PoolBytesFromSystem returns 1/share of the memory the system reports free.
func PoolBytesFromSystem(share int) (uint64, error) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		return 0, fmt.Errorf("failed to get memory info: %s", err)
	}
	if share <= 0 {
		share = 1
	}
	n := mem.ActualFree / uint64(share)
	log.Infof("engine: %s free, pool gets %s", humanize.IBytes(mem.ActualFree), humanize.IBytes(n))
	return n, nil
}

// AllocatePages implements sgl.Allocator. It hands out all count pages or
// none.
func (p *Pool) AllocatePages(count int, pageBytes uint32) ([]sgl.Page, error) {
	if count < 0 || pageBytes == 0 {
		return nil, fmt.Errorf("%d pages of %d bytes: %w", count, pageBytes, core.ErrInvalidArgument.Error())
	}
	p.lock.Lock()
	defer p.lock.Unlock()

	need := uint64(count) * uint64(pageBytes)
	if p.used+need > p.limit {
		return nil, fmt.Errorf("need %s, %s of %s in use: %w", humanize.IBytes(need),
			humanize.IBytes(p.used), humanize.IBytes(p.limit), core.ErrOutOfMemory.Error())
	}
	pages := make([]sgl.Page, count)
	for i := range pages {
		var addr uint64
		if free := p.free[pageBytes]; len(free) > 0 {
			addr = free[len(free)-1]
			p.free[pageBytes] = free[:len(free)-1]
		} else {
			addr = p.next
			p.next += uint64(pageBytes)
		}
		pages[i] = sgl.Page{Addr: addr, Bytes: pageBytes}
	}
	p.used += need
	return pages, nil
}

// Release implements sgl.Allocator.
func (p *Pool) Release(pages []sgl.Page) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, pg := range pages {
		p.free[pg.Bytes] = append(p.free[pg.Bytes], pg.Addr)
		p.used -= uint64(pg.Bytes)
	}
}

// Used returns the bytes handed out and not released.
func (p *Pool) Used() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.used
}

// Limit returns the size of the pool.
func (p *Pool) Limit() uint64 {
	return p.limit
}
