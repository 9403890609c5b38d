// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package report turns the errors a verify found into event log messages, and
// drives the pass by pass completion of a sub-request.
package report

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/classify"
	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/eboard"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
	"github.com/westerndigitalcorporation/mirrorvr/internal/metrics"
	"github.com/westerndigitalcorporation/mirrorvr/internal/planner"
)

// Reporter sends events for the errors of a sub-request.
type Reporter struct {
	cfg Config
	log EventLog
}

// NewReporter returns a reporter writing to l.
func NewReporter(cfg Config, l EventLog) *Reporter {
	return &Reporter{cfg: cfg, log: l}
}

// Report logs everything not yet reported for ctx. With a region list the
// regions drive the events; without one the error board does. Calling it
// again with the same state logs nothing.
func (r *Reporter) Report(ctx *Context, acc *eboard.Accumulator, regions *integrity.RegionList, parent *integrity.RawMirrorErrors) error {
	if ctx == nil || acc == nil {
		return fmt.Errorf("report: %w", core.ErrMissingContext.Error())
	}

	if regions != nil {
		if !regions.Empty() {
			var err error
			if ctx.Flags.Has(planner.FlagCorruptOp) {
				err = r.reportCorruptOp(ctx, regions)
			} else {
				err = r.reportRegions(ctx, acc, regions)
			}
			if err != nil {
				return err
			}
		}
		if !ctx.retriedDone {
			if err := r.reportRetried(ctx, acc); err != nil {
				return err
			}
			ctx.retriedDone = true
		}
	} else if !ctx.boardDone {
		if err := r.reportBoard(ctx, acc, regions); err != nil {
			return err
		}
		ctx.boardDone = true
	}

	if !ctx.parentUpdated {
		acc.UpdateParent(parent, ctx.Flags.Has(planner.FlagRawMirror))
		ctx.parentUpdated = true
	}
	return nil
}

// correctableFromRegion picks the event for a correctable region error.
func (r *Reporter) correctableFromRegion(ctx *Context, acc *eboard.Accumulator, pos core.Position, t integrity.ErrorType) EventCode {
	switch {
	case ctx.is(core.AlgMirrorWriteVerify):
		return EventSectorReconstructed
	case t == integrity.TypeLBAStamp:
		return EventLBAStampError
	case t == integrity.TypeCoherency:
		return coherencyEvent(ctx)
	case t.IsUnknownCRC():
		return r.checksumEvent(ctx, acc, pos)
	}
	return EventSectorReconstructed
}

// correctableFromBits picks the event for correctable board errors.
func (r *Reporter) correctableFromBits(ctx *Context, acc *eboard.Accumulator, pos core.Position, b classify.Bits) EventCode {
	switch {
	case ctx.is(core.AlgMirrorWriteVerify):
		return EventSectorReconstructed
	case b.Reason() == classify.ReasonLBAStamp:
		return EventLBAStampError
	case b.Has(classify.Coherency):
		return coherencyEvent(ctx)
	case b.Has(classify.UnexpectedCRC):
		return r.checksumEvent(ctx, acc, pos)
	}
	return EventSectorReconstructed
}

// coherencyEvent downgrades coherency errors that an incomplete write explains.
func coherencyEvent(ctx *Context) EventCode {
	if ctx.Opcode == core.OpIncompleteWriteVerify {
		return EventExpectedCoherencyError
	}
	return EventCoherencyError
}

// checksumEvent handles checksum errors with no known cause. On an encrypted
// group a multi-bit error with a bad LBA stamp is what a wrong key produces.
func (r *Reporter) checksumEvent(ctx *Context, acc *eboard.Accumulator, pos core.Position) EventCode {
	if r.cfg.Encrypted && acc.Board.Cause[integrity.CauseMultiBitAndLBAStamp].Has(pos) {
		if ctx.Opcode != core.OpReadOnlyVerifySpecificArea {
			log.Errorf("mirror: grp %d pos %d multi-bit checksum error with LBA stamp mismatch, key mismatch suspected", ctx.Group, pos)
		}
		return EventSectorReconstructed
	}
	return EventDataChecksumError
}

// logUncorrectable sends the events for an uncorrectable error on pos. A read
// does not log errors whose first encounter was already logged elsewhere.
func (r *Reporter) logUncorrectable(ctx *Context, region int, pos core.Position, lba core.LBA, blocks uint32, u classify.Bits, injected bool) error {
	if ctx.readClass() {
		switch u {
		case classify.ReasonCorruptCRC.Bits(), classify.ReasonInvalid.Bits(), classify.ReasonRAID.Bits():
			return nil
		}
	}
	ev := Event{Group: ctx.Group, Position: pos, LBA: lba, Blocks: blocks, Info: u, Extra: ctx.Extra()}
	if ctx.Opcode == core.OpVerifyWrite {
		ev.Code = EventCorrectingWithNewData
		return r.sendRegion(ctx, region, ev, injected)
	}
	ev.Code = EventUncorrectableSector
	if err := r.sendRegion(ctx, region, ev, injected); err != nil {
		return err
	}
	ev.Code = EventSectorInvalidated
	return r.sendRegion(ctx, region, ev, injected)
}

// sendRegion sends ev on behalf of region unless it went out before. A
// negative region always sends.
func (r *Reporter) sendRegion(ctx *Context, region int, ev Event, injected bool) error {
	if region < 0 {
		return r.send(ctx, ev, injected)
	}
	sent := ctx.sentSet()
	key := sentKey(region, ev.Position, ev.Code)
	if sent.Test(key) {
		return nil
	}
	if err := r.send(ctx, ev, injected); err != nil {
		return err
	}
	sent.Set(key)
	return nil
}

// send applies the suppression rules and emits ev.
func (r *Reporter) send(ctx *Context, ev Event, injected bool) error {
	if injected && !r.cfg.LogInjectedErrors {
		metrics.Suppressed(ev.Code.String(), "injected")
		return nil
	}
	if ev.Position < 0 || ev.Position >= core.MaxArrayWidth {
		return fmt.Errorf("event %s pos %d: %w", ev.Code, ev.Position, core.ErrBadPosition.Error())
	}
	if ctx.Flags.Has(planner.FlagHotSpare) {
		// Only retried checksum errors found while rebuilding onto a hot spare
		// are worth a message, and they belong to the group.
		if !core.IsMirrorRebuild(ctx.Algorithm) || ev.Code != EventSectorReconstructed || !ev.Info.Has(classify.CRCRetry) {
			metrics.Suppressed(ev.Code.String(), "hot_spare")
			return nil
		}
		ev.AgainstGroup = true
	}
	if r.cfg.TraceUnsolicited {
		log.Infof("mirror: %s alg %s op %s: %s", ev, ctx.Algorithm, ctx.Opcode, classify.Format(classify.Labels(ev.Info)))
	}
	if err := r.log.Emit(ev); err != nil {
		return err
	}
	metrics.Event(ev.Code.String(), ev.Code.Severity().String())
	if r.cfg.StopOnEvent != EventNone && ev.Code == r.cfg.StopOnEvent {
		log.Errorf("mirror: stop-on-event %s hit: %s", ev.Code, ev)
	}
	return nil
}

func injectedType(t integrity.ErrorType) bool {
	return t == integrity.TypeCorruptCRCInjected || t == integrity.TypeCorruptDataInjected
}
