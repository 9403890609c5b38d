// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/planner"
)

// Config controls what the reporter logs. It replaces process-wide trace
// switches, so two reporters can be configured differently.
type Config struct {
	// Encrypted groups treat a multi-bit checksum error with an LBA stamp
	// mismatch as a re-key artifact.
	Encrypted bool `json:"encrypted"`
	// TraceUnsolicited logs every emitted event with its decoded info.
	TraceUnsolicited bool `json:"trace_unsolicited"`
	// LogInjectedErrors emits events for errors a test injected.
	LogInjectedErrors bool `json:"log_injected_errors"`
	// StopOnEvent logs loudly when an event with this code is emitted.
	StopOnEvent EventCode `json:"stop_on_event"`
}

// Extra info flags, stored in the second byte of Event.Extra.
const (
	extraFlagsShift = 8

	ExtraErrorVerify           = 0x01
	ExtraIncompleteWriteVerify = 0x02
	ExtraSystemVerify          = 0x04
	ExtraUserReadOnlyVerify    = 0x08
	ExtraUserVerify            = 0x10
	ExtraVerifyWrite           = 0x20
)

// ExtraInfo packs the algorithm and the reasons for the verify.
func ExtraInfo(alg core.Algorithm, vf planner.VerifyFlags, op core.Opcode) uint32 {
	var extra uint32
	if alg != nil {
		extra = uint32(alg.Code())
	}
	var flags uint32
	for _, f := range []struct {
		vf   planner.VerifyFlags
		bits uint32
	}{
		{planner.VerifyError, ExtraErrorVerify},
		{planner.VerifyIncompleteWrite, ExtraIncompleteWriteVerify},
		{planner.VerifySystem, ExtraSystemVerify},
		{planner.VerifyUserReadOnly, ExtraUserReadOnlyVerify},
		{planner.VerifyUser, ExtraUserVerify},
	} {
		if vf&f.vf != 0 {
			flags |= f.bits
		}
	}
	if op == core.OpVerifyWrite {
		flags |= ExtraVerifyWrite
	}
	return extra | flags<<extraFlagsShift
}

// Context is what the reporter needs to know about a sub-request. It also
// remembers what was already reported, so reporting twice logs nothing new.
type Context struct {
	Algorithm   core.Algorithm
	Opcode      core.Opcode
	Width       int
	Degraded    core.PositionMask
	ParityStart core.LBA
	ParityCount uint64
	Group       uint32
	Flags       planner.Flags
	VerifyFlags planner.VerifyFlags

	reported      *bitset.BitSet
	sent          *bitset.BitSet
	retriedDone   bool
	boardDone     bool
	parentUpdated bool
}

// NewContext describes s running on group.
func NewContext(s *planner.SubRequest, group uint32) *Context {
	return &Context{
		Algorithm:   s.Algorithm,
		Opcode:      s.Opcode,
		Width:       s.Width,
		Degraded:    s.Degraded,
		ParityStart: s.ParityStart,
		ParityCount: s.ParityCount,
		Group:       group,
		Flags:       s.Flags,
		VerifyFlags: s.VerifyFlags,
	}
}

// Extra returns the extra info of events logged for c.
func (c *Context) Extra() uint32 {
	return ExtraInfo(c.Algorithm, c.VerifyFlags, c.Opcode)
}

// Dead returns true if pos is degraded.
func (c *Context) Dead(pos core.Position) bool {
	return c.Degraded.Has(pos)
}

func (c *Context) readClass() bool {
	return c.Algorithm != nil && c.Algorithm.ReadClass()
}

func (c *Context) is(code core.AlgorithmCode) bool {
	return c.Algorithm != nil && c.Algorithm.Code() == code
}

func (c *Context) reportedSet() *bitset.BitSet {
	if c.reported == nil {
		c.reported = bitset.New(0)
	}
	return c.reported
}

// sentSet holds one bit per region, position and event code already logged,
// so a report cut short by an error doesn't repeat itself when run again.
func (c *Context) sentSet() *bitset.BitSet {
	if c.sent == nil {
		c.sent = bitset.New(0)
	}
	return c.sent
}

func sentKey(region int, pos core.Position, code EventCode) uint {
	return (uint(region)*core.MaxArrayWidth+uint(pos))*uint(numEventCodes) + uint(code)
}

// Reported returns how many regions were already reported.
func (c *Context) Reported() uint {
	if c.reported == nil {
		return 0
	}
	return c.reported.Count()
}

func (c *Context) allowCorrectable() bool {
	return c.Flags.Has(planner.FlagAllowCorrectable)
}
