// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package planner decides, for a mirror verify sub-request, what every
// position reads and how many scatter-gather fragments it needs.
package planner

import (
	"fmt"

	"github.com/rs/xid"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sgl"
)

// SubRequest is one verify operation over an extent of a mirror group.
type SubRequest struct {
	ID        xid.ID
	Algorithm core.Algorithm
	Opcode    core.Opcode

	// StartLBA and XferCount are the host range. ParityStart and
	// ParityCount are the range actually verified.
	StartLBA    core.LBA
	XferCount   uint64
	ParityStart core.LBA
	ParityCount uint64

	Width            int
	DataDisks        int
	Degraded         core.PositionMask
	OptimalBlockSize uint64

	// SingleRegionMode is set when a failed pass is retried one region at a
	// time. The verified range then no longer matches the host range.
	SingleRegionMode bool

	// DataPageBlocks and CtrlPageBlocks are chosen by Memory.
	DataPageBlocks uint64
	CtrlPageBlocks uint64

	// Parent is set for recovery verifies issued on behalf of a read.
	Parent ParentHandle

	Flags       Flags
	VerifyFlags VerifyFlags
}

// Flags describe the context a sub-request runs in.
type Flags uint8

const (
	// FlagCorruptOp marks a request that deliberately corrupts data.
	FlagCorruptOp Flags = 1 << iota
	// FlagHotSpare marks a rebuild onto a hot spare.
	FlagHotSpare
	// FlagErrorInjected is set when the errors were injected for test.
	FlagErrorInjected
	// FlagRawMirror marks a mirror without metadata stamps.
	FlagRawMirror
	// FlagAllowCorrectable permits correctable checksum and shed stamp errors.
	FlagAllowCorrectable
)

// Has returns true if every flag in f is set.
func (fl Flags) Has(f Flags) bool { return fl&f == f }

// VerifyFlags say why a verify was started. They travel in the event log's
// extra info.
type VerifyFlags uint8

const (
	VerifyError VerifyFlags = 1 << iota
	VerifyIncompleteWrite
	VerifySystem
	VerifyUserReadOnly
	VerifyUser
)

// EnsureID fills in an ID when the caller did not.
func (s *SubRequest) EnsureID() {
	if s.ID.IsNil() {
		s.ID = xid.New()
	}
}

// FullAccess returns the positions that are not degraded.
func (s *SubRequest) FullAccess() core.PositionMask {
	return core.Full(s.Width) &^ s.Degraded
}

// DegradedCount returns the number of degraded positions inside the width.
func (s *SubRequest) DegradedCount() int {
	return (s.Degraded & core.Full(s.Width)).Count()
}

// End returns the last verified block.
func (s *SubRequest) End() core.LBA {
	return s.ParityStart + core.LBA(s.ParityCount) - 1
}

func (s *SubRequest) String() string {
	return fmt.Sprintf("%s %s/%s lba 0x%x blocks 0x%x width %d degraded %s",
		s.ID, s.Algorithm, s.Opcode, s.ParityStart, s.ParityCount, s.Width, s.Degraded)
}

// ParentHandle refers to the parent read in the scheduler's table. The zero
// value refers to nothing.
type ParentHandle struct {
	index int
	set   bool
}

// ParentAt returns a handle to entry i.
func ParentAt(i int) ParentHandle {
	return ParentHandle{index: i, set: true}
}

// Valid returns true if the handle refers to an entry.
func (h ParentHandle) Valid() bool { return h.set }

// Index returns the table index.
func (h ParentHandle) Index() int { return h.index }

// ParentRead is what a child verify may know about its parent read. It is a
// copy; the buffers are only reachable through a read-only view.
type ParentRead struct {
	Position   core.Position
	LBA        core.LBA
	Blocks     uint64
	PageBlocks uint64
	SG         sgl.View

	// HasSecondRead is set when the parent issued a second read on another
	// position, which a recovery verify cannot overlay.
	HasSecondRead bool
}

// End returns the last block read by the parent.
func (p *ParentRead) End() core.LBA {
	return p.LBA + core.LBA(p.Blocks) - 1
}

// ParentTable resolves handles. It is owned by the scheduler.
type ParentTable interface {
	ParentRead(h ParentHandle) (ParentRead, bool)
}

// ResolveParent looks up the parent of s. Overlay algorithms must have one.
func ResolveParent(s *SubRequest, t ParentTable) (*ParentRead, error) {
	if !s.Parent.Valid() {
		if s.Algorithm != nil && s.Algorithm.BufferPolicy() == core.BuffersOverlay {
			return nil, fmt.Errorf("%s without parent: %w", s.Algorithm, core.ErrInvalidArgument.Error())
		}
		return nil, nil
	}
	if t == nil {
		return nil, fmt.Errorf("no parent table: %w", core.ErrInvalidArgument.Error())
	}
	p, ok := t.ParentRead(s.Parent)
	if !ok {
		return nil, fmt.Errorf("parent %d not found: %w", s.Parent.Index(), core.ErrInvalidArgument.Error())
	}
	return &p, nil
}
