// Copyright (c) 2017 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package fixture checks the regions a verify found against the regions a
// test said it would find. Expected regions are staged through the failure
// service, so a running engine can be told what errors were injected.
package fixture

import (
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
	"github.com/westerndigitalcorporation/mirrorvr/pkg/failures"
)

// FailureKey is the failure service key expected regions are staged under.
const FailureKey = "mirror_verify_expected_regions"

// Record is one expected region as staged in JSON.
type Record struct {
	LBA       uint64 `json:"lba"`
	Blocks    uint32 `json:"blocks"`
	Positions []int  `json:"positions"`
	Type      string `json:"type"`
}

type expected struct {
	lba    core.LBA
	blocks uint32
	mask   core.PositionMask
	typ    integrity.ErrorType
}

// Expected holds the staged regions. With nothing staged every region list
// is accepted.
type Expected struct {
	lock    sync.Mutex
	regions []expected
	active  bool
}

// New returns an Expected registered with r under FailureKey.
func New(r *failures.Registry) (*Expected, error) {
	e := &Expected{}
	if err := r.Register(FailureKey, e.handle); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Expected) handle(config json.RawMessage) error {
	if config == nil {
		log.Infof("fixture: expected regions cleared")
		return e.Set(nil)
	}
	records := []Record{}
	if err := json.Unmarshal(config, &records); err != nil {
		return err
	}
	if err := e.Set(records); err != nil {
		return err
	}
	log.Infof("fixture: %d expected regions staged", len(records))
	return nil
}

// Set replaces the expected regions. A nil slice turns checking off.
func (e *Expected) Set(records []Record) error {
	if records == nil {
		e.lock.Lock()
		e.regions, e.active = nil, false
		e.lock.Unlock()
		return nil
	}
	parsed, err := parse(records)
	if err != nil {
		return err
	}
	e.lock.Lock()
	e.regions, e.active = parsed, true
	e.lock.Unlock()
	return nil
}

func parse(records []Record) ([]expected, error) {
	out := make([]expected, 0, len(records))
	for i, rec := range records {
		t, ok := integrity.TypeByName(rec.Type)
		if !ok {
			return nil, fmt.Errorf("record %d: unknown error type %q", i, rec.Type)
		}
		var mask core.PositionMask
		for _, p := range rec.Positions {
			if p < 0 || p >= core.MaxArrayWidth {
				return nil, fmt.Errorf("record %d: position %d out of range", i, p)
			}
			mask = mask.Set(core.Position(p))
		}
		out = append(out, expected{lba: core.LBA(rec.LBA), blocks: rec.Blocks, mask: mask, typ: t})
	}
	return out, nil
}

// Check returns the index of the first region that no staged record
// describes.
func (e *Expected) Check(regions *integrity.RegionList) (int, bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if !e.active || regions == nil {
		return -1, false
	}
	for i, r := range regions.Regions {
		if !e.matches(r) {
			return i, true
		}
	}
	return -1, false
}

func (e *Expected) matches(r integrity.Region) bool {
	for _, x := range e.regions {
		if x.lba == r.LBA && x.blocks == r.Blocks && x.mask == r.Positions && x.typ == r.Error.Type() {
			return true
		}
	}
	return false
}
