// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package engine ties the mirror verify pieces together: it prepares a
// sub-request for dispatch (plan, allocate, stitch) and completes it pass by
// pass once the checker is done.
package engine

import (
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"
	log "github.com/golang/glog"
	"github.com/rs/xid"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/eboard"
	"github.com/westerndigitalcorporation/mirrorvr/internal/metrics"
	"github.com/westerndigitalcorporation/mirrorvr/internal/planner"
	"github.com/westerndigitalcorporation/mirrorvr/internal/report"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sgl"
	"github.com/westerndigitalcorporation/mirrorvr/internal/stitch"
	"github.com/westerndigitalcorporation/mirrorvr/pkg/failures"
)

// Prepared is a sub-request ready for dispatch.
type Prepared struct {
	Sub    *planner.SubRequest
	Parent *planner.ParentRead
	Plan   *planner.MemoryPlan
	Reads  []planner.Request

	// Lists holds one scatter-gather list per read, in Reads order.
	Lists   []*sgl.List
	Results []stitch.Result

	DataPages []sgl.Page
	CtrlPages []sgl.Page

	Context *report.Context
	Acc     *eboard.Accumulator

	alloc    sgl.Allocator
	scanner  *report.Scanner
	released bool
}

// release gives the pages back. It is safe to call more than once.
func (p *Prepared) release() {
	if p.released {
		return
	}
	p.released = true
	if len(p.DataPages) > 0 {
		p.alloc.Release(p.DataPages)
	}
	if len(p.CtrlPages) > 0 {
		p.alloc.Release(p.CtrlPages)
	}
}

// Engine prepares and completes mirror verify sub-requests.
type Engine struct {
	cfg       Config
	reporter  *report.Reporter
	validator eboard.Validator
	failures  *OpFailure

	lock    sync.Mutex
	tracked *lru.Cache
}

// New returns an engine logging to events. When reg is not nil the forced op
// failures are registered with it. validator may be nil.
func New(cfg Config, events report.EventLog, validator eboard.Validator, reg *failures.Registry) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:       cfg,
		reporter:  report.NewReporter(cfg.Report, events),
		validator: validator,
		failures:  NewOpFailure(),
		tracked:   lru.New(cfg.TrackedRequests),
	}
	e.tracked.OnEvicted = func(key lru.Key, value interface{}) {
		p := value.(*Prepared)
		if !p.released {
			log.Warningf("engine: %s evicted while in flight, releasing its pages", p.Sub.ID)
			p.release()
		}
	}
	if reg != nil {
		if err := reg.Register(OpFailureKey, e.failures.Handler); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Lookup returns the sub-request prepared under id, if still tracked.
func (e *Engine) Lookup(id xid.ID) (*Prepared, bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	v, ok := e.tracked.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Prepared), true
}

// Prepare plans sub, allocates its pages from alloc and stitches its lists.
// ErrMustSplit comes back unchanged so the caller can reduce and retry.
func (e *Engine) Prepare(sub *planner.SubRequest, parents planner.ParentTable, alloc sgl.Allocator) (p *Prepared, err error) {
	op := metrics.Ops.Start(OpPrepare)
	defer func() { op.EndWithError(err) }()

	if err := e.failures.Forced(OpPrepare); err != nil {
		return nil, err
	}
	sub.EnsureID()
	if err := planner.Validate(sub); err != nil {
		return nil, err
	}
	parent, err := planner.ResolveParent(sub, parents)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Memory(sub, parent, e.cfg.Layout)
	if err != nil {
		return nil, err
	}

	p = &Prepared{Sub: sub, Parent: parent, Plan: plan, alloc: alloc}
	if plan.Pages.Data > 0 {
		if p.DataPages, err = alloc.AllocatePages(plan.Pages.Data, plan.PageBytes()); err != nil {
			return nil, err
		}
	}
	if plan.Pages.Control > 0 {
		ctrlBytes := uint32(plan.CtrlPageBlocks * core.BytesPerBlock)
		if p.CtrlPages, err = alloc.AllocatePages(plan.Pages.Control, ctrlBytes); err != nil {
			p.release()
			return nil, err
		}
	}
	metrics.Pages(len(p.DataPages), len(p.CtrlPages))

	if p.Reads, err = planner.SetupReads(sub, plan.Plan); err != nil {
		p.release()
		return nil, err
	}
	if err = e.stitch(p); err != nil {
		p.release()
		return nil, err
	}

	p.Context = report.NewContext(sub, e.cfg.Group)
	p.Acc = &eboard.Accumulator{}
	p.Acc.BeginPass()

	e.lock.Lock()
	e.tracked.Add(sub.ID, p)
	e.lock.Unlock()
	log.V(1).Infof("engine: %s prepared, %d reads", sub, len(p.Reads))
	return p, nil
}

func (e *Engine) stitch(p *Prepared) error {
	lists, results, err := stitch.Stitch(p.Sub, p.Plan.Reads, p.Parent, sgl.NewMemory(p.DataPages))
	if err != nil {
		return err
	}
	p.Lists, p.Results = lists, results
	return nil
}

// NextPass starts another verify pass of p over the same pages.
func (e *Engine) NextPass(p *Prepared) error {
	if p.released {
		return fmt.Errorf("%s already released: %w", p.Sub.ID, core.ErrMissingContext.Error())
	}
	if err := e.stitch(p); err != nil {
		return err
	}
	p.Acc.BeginPass()
	return nil
}

// Complete hands a finished pass to p's scanner. Once the scanner is done
// the pages are released and p is forgotten.
func (e *Engine) Complete(p *Prepared, pass report.Pass, d report.Dispatcher) (state report.State, err error) {
	op := metrics.Ops.Start(OpComplete)
	defer func() { op.EndWithError(err) }()

	if err := e.failures.Forced(OpComplete); err != nil {
		return report.Scanning, err
	}
	if p == nil || p.Context == nil {
		return report.Scanning, fmt.Errorf("complete: %w", core.ErrMissingContext.Error())
	}
	if p.scanner == nil {
		p.scanner = report.NewScanner(e.reporter, p.Context, p.Acc, d)
	}
	if pass.Validator == nil && e.validator != nil {
		pass.Validator = e.validator
	}
	if state, err = p.scanner.Run(pass); err != nil {
		return state, err
	}
	e.finish(p, state)
	return state, nil
}

// RetryComplete is called when the diagnostic re-reads of p finished.
func (e *Engine) RetryComplete(p *Prepared) (report.State, error) {
	if p == nil || p.scanner == nil {
		return report.Scanning, fmt.Errorf("retry complete: %w", core.ErrMissingContext.Error())
	}
	state, err := p.scanner.RetryComplete()
	if err != nil {
		return state, err
	}
	e.finish(p, state)
	return state, nil
}

// Release drops p without completing it.
func (e *Engine) Release(p *Prepared) {
	p.release()
	e.lock.Lock()
	e.tracked.Remove(p.Sub.ID)
	e.lock.Unlock()
}

func (e *Engine) finish(p *Prepared, state report.State) {
	if state == report.Done {
		e.Release(p)
	}
}
