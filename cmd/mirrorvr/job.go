// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/fixture"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
	"github.com/westerndigitalcorporation/mirrorvr/internal/planner"
	"github.com/westerndigitalcorporation/mirrorvr/internal/report"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sgl"
)

// job is a verify described in a JSON file: the sub-request, and the regions
// the checker is supposed to have found.
type job struct {
	Algorithm        string `json:"algorithm"`
	Opcode           string `json:"opcode"`
	LBA              uint64 `json:"lba"`
	Blocks           uint64 `json:"blocks"`
	Width            int    `json:"width"`
	Degraded         []int  `json:"degraded"`
	OptimalBlockSize uint64 `json:"optimal_block_size"`

	AllowCorrectable bool `json:"allow_correctable"`
	HotSpare         bool `json:"hot_spare"`
	RawMirror        bool `json:"raw_mirror"`
	ErrorInjected    bool `json:"error_injected"`

	// Parent is the read a recovery verify overlays.
	Parent *jobParent `json:"parent"`

	Regions   []jobRegion `json:"regions"`
	SoftMedia []int       `json:"soft_media"`
}

type jobParent struct {
	Position int    `json:"position"`
	LBA      uint64 `json:"lba"`
	Blocks   uint64 `json:"blocks"`
}

type jobRegion struct {
	fixture.Record
	Uncorrectable bool `json:"uncorrectable"`
}

func loadJob(path string) (*job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	j := &job{}
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(j); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %s", path, err)
	}
	return j, nil
}

func algorithmByName(name string) (core.Algorithm, bool) {
	for _, a := range core.Algorithms() {
		if a.String() == name {
			return a, true
		}
	}
	return nil, false
}

func opcodeByName(name string) (core.Opcode, bool) {
	for op := core.OpInvalid; op <= core.OpRebuild; op++ {
		if op.String() == name {
			return op, true
		}
	}
	return core.OpInvalid, false
}

func maskOf(positions []int) (core.PositionMask, error) {
	var m core.PositionMask
	for _, p := range positions {
		if p < 0 || p >= core.MaxArrayWidth {
			return 0, fmt.Errorf("position %d out of range", p)
		}
		m = m.Set(core.Position(p))
	}
	return m, nil
}

// subRequest builds the sub-request. A job with a parent refers to entry 0
// of the table built by parentTable.
func (j *job) subRequest() (*planner.SubRequest, error) {
	alg, ok := algorithmByName(j.Algorithm)
	if !ok {
		return nil, fmt.Errorf("unknown algorithm %q", j.Algorithm)
	}
	op, ok := opcodeByName(j.Opcode)
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q", j.Opcode)
	}
	degraded, err := maskOf(j.Degraded)
	if err != nil {
		return nil, err
	}
	sub := &planner.SubRequest{
		Algorithm:        alg,
		Opcode:           op,
		StartLBA:         core.LBA(j.LBA),
		XferCount:        j.Blocks,
		ParityStart:      core.LBA(j.LBA),
		ParityCount:      j.Blocks,
		Width:            j.Width,
		DataDisks:        j.Width - (degraded & core.Full(j.Width)).Count(),
		Degraded:         degraded,
		OptimalBlockSize: j.OptimalBlockSize,
	}
	for _, f := range []struct {
		set  bool
		flag planner.Flags
	}{
		{j.AllowCorrectable, planner.FlagAllowCorrectable},
		{j.HotSpare, planner.FlagHotSpare},
		{j.RawMirror, planner.FlagRawMirror},
		{j.ErrorInjected, planner.FlagErrorInjected},
	} {
		if f.set {
			sub.Flags |= f.flag
		}
	}
	if j.Parent != nil {
		sub.Parent = planner.ParentAt(0)
	}
	return sub, nil
}

// parentTable allocates the parent's buffers from alloc. The returned func
// gives them back.
func (j *job) parentTable(alloc sgl.Allocator) (planner.ParentTable, func(), error) {
	if j.Parent == nil {
		return nil, func() {}, nil
	}
	pageBytes := uint32(core.PageBlocksMax * core.BytesPerBlock)
	bytes := j.Parent.Blocks * core.BytesPerBlock
	count := int((bytes + uint64(pageBytes) - 1) / uint64(pageBytes))
	pages, err := alloc.AllocatePages(count, pageBytes)
	if err != nil {
		return nil, nil, err
	}
	release := func() { alloc.Release(pages) }
	list := sgl.NewList(count)
	if _, err := sgl.NewMemory(pages).Populate(list, bytes); err != nil {
		release()
		return nil, nil, err
	}
	return singleParent{
		Position:   core.Position(j.Parent.Position),
		LBA:        core.LBA(j.Parent.LBA),
		Blocks:     j.Parent.Blocks,
		PageBlocks: core.PageBlocksMax,
		SG:         list.View(),
	}, release, nil
}

type singleParent planner.ParentRead

func (p singleParent) ParentRead(h planner.ParentHandle) (planner.ParentRead, bool) {
	if h.Index() != 0 {
		return planner.ParentRead{}, false
	}
	return planner.ParentRead(p), true
}

// pass builds what the checker would hand back for the job's regions.
func (j *job) pass() (report.Pass, error) {
	soft, err := maskOf(j.SoftMedia)
	if err != nil {
		return report.Pass{}, err
	}
	regions := &integrity.RegionList{}
	for i, r := range j.Regions {
		t, ok := integrity.TypeByName(r.Type)
		if !ok {
			return report.Pass{}, fmt.Errorf("region %d: unknown error type %q", i, r.Type)
		}
		mask, err := maskOf(r.Positions)
		if err != nil {
			return report.Pass{}, fmt.Errorf("region %d: %s", i, err)
		}
		code := integrity.NewCode(t)
		if r.Uncorrectable {
			code = code.With(integrity.FlagUncorrectable)
		}
		regions.Append(integrity.Region{LBA: core.LBA(r.LBA), Blocks: r.Blocks, Positions: mask, Error: code})
	}
	return report.Pass{
		Board:     &integrity.Board{},
		Regions:   regions,
		Keep:      integrity.AllCategories,
		SoftMedia: soft,
	}, nil
}
