// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package stitch fills the SG lists of a planned sub-request, from fresh
// pages and, for recovery verifies, from the parent read's buffers.
package stitch

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/planner"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sgl"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sizer"
)

// Result records how one position's list was built.
type Result struct {
	Position  core.Position
	Phases    []planner.Phase
	Fragments int
}

// Stitch builds one list per read descriptor. Fresh memory is taken from mem
// in position order, the same order the lists were sized in.
func Stitch(s *planner.SubRequest, reads []planner.Descriptor, parent *planner.ParentRead, mem *sgl.Memory) ([]*sgl.List, []Result, error) {
	if s.Algorithm == nil {
		return nil, nil, fmt.Errorf("no algorithm: %w", core.ErrInvalidArgument.Error())
	}
	overlay := false
	switch s.Algorithm.BufferPolicy() {
	case core.BuffersOverlay:
		if parent == nil {
			return nil, nil, fmt.Errorf("%s without parent: %w", s.Algorithm, core.ErrInvalidArgument.Error())
		}
		overlay = true
	case core.BuffersUniform:
	default:
		return nil, nil, fmt.Errorf("%s: %w", s.Algorithm, core.ErrUnsupportedAlgorithm.Error())
	}

	lists := make([]*sgl.List, len(reads))
	results := make([]Result, len(reads))
	for i, rd := range reads {
		if rd.Class < sizer.SG1 || rd.Class >= sizer.NumClasses {
			return nil, nil, fmt.Errorf("position %d class %s: %w", rd.Position, rd.Class, core.ErrDescriptorMismatch.Error())
		}
		list := sgl.NewList(rd.Class.MaxEntries())
		var res Result
		var err error
		if overlay && rd.Position == parent.Position {
			res, err = Overlay(parent, list, mem, s.DataPageBlocks, rd.LBA, rd.Blocks)
		} else {
			res, err = uniform(list, mem, rd)
		}
		if err != nil {
			log.Errorf("mirror: %s: stitching %s: %s", s.ID, rd, err)
			return nil, nil, err
		}
		res.Position = rd.Position
		lists[i] = list
		results[i] = res
		log.V(2).Infof("mirror: %s: position %d stitched with %d fragments", s.ID, rd.Position, res.Fragments)
	}
	if err := Validate(lists, reads); err != nil {
		return nil, nil, err
	}
	return lists, results, nil
}

func uniform(dst *sgl.List, mem *sgl.Memory, rd planner.Descriptor) (Result, error) {
	n, err := mem.Populate(dst, rd.Blocks*core.BytesPerBlock)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Phases:    []planner.Phase{{Source: planner.Fresh, LBA: rd.LBA, Blocks: rd.Blocks}},
		Fragments: n,
	}, nil
}

// Overlay builds dst for the position that shares the parent's reads. The
// range [start, start+count) is split into phases by planner.OverlayPhases;
// fresh phases come from mem, the borrowed phase is clipped out of the
// parent's list. Every phase checks the remaining fragment budget of dst
// before touching it.
func Overlay(parent *planner.ParentRead, dst *sgl.List, mem *sgl.Memory, pageBlocks uint64, start core.LBA, count uint64) (Result, error) {
	phases, err := planner.OverlayPhases(start, count, parent.LBA, parent.Blocks)
	if err != nil {
		return Result{}, err
	}
	res := Result{Phases: phases}
	cur := start
	var assigned uint64
	for _, ph := range phases {
		if ph.LBA != cur {
			return res, fmt.Errorf("phase at 0x%x, cursor at 0x%x: %w", ph.LBA, cur, core.ErrStitchCoverage.Error())
		}
		bytes := ph.Blocks * core.BytesPerBlock
		var need, used int
		if ph.Source == planner.Borrowed {
			if need, err = sgl.CountClip(parent.SG, ph.ParentOffset, bytes); err != nil {
				return res, err
			}
			if need > dst.Free() {
				return res, overrun(ph, need, dst)
			}
			used, err = sgl.Clip(parent.SG, ph.ParentOffset, bytes, dst)
		} else {
			remaining := uint64(mem.BytesRemainingInPage()) / core.BytesPerBlock
			if _, need, err = sizer.CountUniformBlocks(ph.Blocks, pageBlocks, remaining); err != nil {
				return res, err
			}
			if need > dst.Free() {
				return res, overrun(ph, need, dst)
			}
			used, err = mem.Populate(dst, bytes)
		}
		if err != nil {
			return res, err
		}
		res.Fragments += used
		assigned += ph.Blocks
		cur += core.LBA(ph.Blocks)
	}

	end := start + core.LBA(count) - 1
	if assigned != count || cur-1 != end {
		return res, fmt.Errorf("assigned 0x%x of 0x%x blocks, ended at 0x%x not 0x%x: %w",
			assigned, count, cur-1, end, core.ErrStitchCoverage.Error())
	}
	return res, nil
}

func overrun(ph planner.Phase, need int, dst *sgl.List) error {
	return fmt.Errorf("%s phase at 0x%x needs %d fragments, %d left: %w",
		ph.Source, ph.LBA, need, dst.Free(), core.ErrFragmentOverrun.Error())
}

// Validate checks that every list covers exactly its descriptor's blocks.
func Validate(lists []*sgl.List, reads []planner.Descriptor) error {
	if len(lists) != len(reads) {
		return fmt.Errorf("%d lists for %d reads: %w", len(lists), len(reads), core.ErrDescriptorMismatch.Error())
	}
	for i, l := range lists {
		want := reads[i].Blocks * core.BytesPerBlock
		if l == nil || l.Bytes() != want {
			var got uint64
			if l != nil {
				got = l.Bytes()
			}
			return fmt.Errorf("position %d holds 0x%x bytes, want 0x%x: %w",
				reads[i].Position, got, want, core.ErrStitchCoverage.Error())
		}
	}
	return nil
}
