// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package planner

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sgl"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sizer"
)

// Role says whether a descriptor reads or writes its position.
type Role int

const (
	RoleRead Role = iota
	RoleWrite
)

func (r Role) String() string {
	if r == RoleWrite {
		return "write"
	}
	return "read"
}

// Descriptor is what one position does in a sub-request.
type Descriptor struct {
	Position core.Position
	LBA      core.LBA
	Blocks   uint64
	Class    sizer.Class
	Role     Role

	// Fragments is the number of SG entries the position was sized for.
	Fragments int
}

// Idle returns true for a descriptor that moves no data.
func (d Descriptor) Idle() bool {
	return d.Blocks == 0 || d.LBA == core.InvalidLBA
}

func (d Descriptor) String() string {
	if d.Idle() {
		return fmt.Sprintf("pos %d %s idle", d.Position, d.Role)
	}
	return fmt.Sprintf("pos %d %s lba 0x%x blocks 0x%x %s", d.Position, d.Role, d.LBA, d.Blocks, d.Class)
}

// Plan is the per-position outcome of PlanPositions.
type Plan struct {
	Reads     []Descriptor
	Writes    []Descriptor
	Histogram sizer.Histogram
}

// PlanPositions computes one read and one write descriptor per position.
// Every position reads the verified range. Each position is sized on its own
// from the start of a page; the one fragment margin covers a list that starts
// part way into a page left over by the previous position.
//
// For overlay algorithms the parent's position counts the fresh phases
// uniformly and the borrowed phase against the parent's own list. Every
// position, overlaid or not, gets the margin.
func PlanPositions(s *SubRequest, parent *ParentRead, dataPageBlocks uint64) (*Plan, error) {
	if s.Algorithm == nil {
		return nil, fmt.Errorf("no algorithm: %w", core.ErrInvalidArgument.Error())
	}
	overlay := s.Algorithm.BufferPolicy() == core.BuffersOverlay
	if overlay && parent == nil {
		return nil, fmt.Errorf("%s without parent: %w", s.Algorithm, core.ErrInvalidArgument.Error())
	}
	if s.Width < 1 || s.Width > core.MaxArrayWidth {
		return nil, fmt.Errorf("width %d: %w", s.Width, core.ErrInvalidArgument.Error())
	}

	p := &Plan{
		Reads:  make([]Descriptor, s.Width),
		Writes: make([]Descriptor, s.Width),
	}
	for i := 0; i < s.Width; i++ {
		pos := core.Position(i)
		var n int
		var err error
		if overlay && pos == parent.Position {
			n, err = countOverlay(s, parent, dataPageBlocks)
		} else {
			_, n, err = sizer.FragmentsFor(s.ParityCount, dataPageBlocks, 0)
		}
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", pos, err)
		}
		class, err := sizer.ClassFor(n)
		if err != nil {
			log.V(1).Infof("mirror: %s: position %d needs %d fragments", s.ID, pos, n)
			return nil, err
		}
		p.Histogram.Add(class)
		p.Reads[i] = Descriptor{
			Position:  pos,
			LBA:       s.ParityStart,
			Blocks:    s.ParityCount,
			Class:     class,
			Role:      RoleRead,
			Fragments: n,
		}
		p.Writes[i] = Descriptor{
			Position: pos,
			LBA:      core.InvalidLBA,
			Class:    sizer.Invalid,
			Role:     RoleWrite,
		}
	}
	return p, nil
}

// countOverlay counts the overlaid position's fragments plus the margin. Page
// slack only carries between the position's own fresh phases.
func countOverlay(s *SubRequest, parent *ParentRead, perPage uint64) (int, error) {
	phases, err := OverlayPhases(s.ParityStart, s.ParityCount, parent.LBA, parent.Blocks)
	if err != nil {
		return 0, err
	}
	var remaining uint64
	total := 1
	for _, ph := range phases {
		var n int
		if ph.Source == Borrowed {
			n, err = sgl.CountClip(parent.SG, ph.ParentOffset, ph.Blocks*core.BytesPerBlock)
		} else {
			remaining, n, err = sizer.CountUniformBlocks(ph.Blocks, perPage, remaining)
		}
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Request is a read handed to the dispatcher.
type Request struct {
	Opcode   core.Opcode
	Position core.Position
	LBA      core.LBA
	Blocks   uint64
	Class    sizer.Class
}

// SetupReads turns a plan into one read request per position. Every position
// must read and none may write.
func SetupReads(s *SubRequest, p *Plan) ([]Request, error) {
	if want := s.Width - s.DataDisks; s.DegradedCount() != want {
		return nil, fmt.Errorf("%d degraded positions, want %d: %w",
			s.DegradedCount(), want, core.ErrDataDiskMismatch.Error())
	}
	if len(p.Reads) != len(p.Writes) {
		return nil, fmt.Errorf("%d reads and %d writes: %w", len(p.Reads), len(p.Writes), core.ErrDescriptorMismatch.Error())
	}
	reqs := make([]Request, 0, s.Width)
	for i, rd := range p.Reads {
		if rd.Blocks == 0 || p.Writes[i].Blocks != 0 {
			log.Errorf("mirror: %s: unexpected descriptors %s, %s", s.ID, rd, p.Writes[i])
			return nil, fmt.Errorf("position %d: %w", i, core.ErrDescriptorMismatch.Error())
		}
		reqs = append(reqs, Request{
			Opcode:   core.OpRead,
			Position: rd.Position,
			LBA:      rd.LBA,
			Blocks:   rd.Blocks,
			Class:    rd.Class,
		})
	}
	if len(reqs) != s.Width {
		return nil, fmt.Errorf("%d reads for width %d: %w", len(reqs), s.Width, core.ErrDescriptorMismatch.Error())
	}
	return reqs, nil
}
