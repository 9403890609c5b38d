// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// OpFailureKey is the failure service key of the forced operation errors.
const OpFailureKey = "mirror_verify_op_failures"

// Engine operations that can be forced to fail. They double as the metric
// operation labels.
const (
	OpPrepare  = "prepare"
	OpComplete = "complete"
)

var forcibleOps = []string{OpPrepare, OpComplete}

// OpFailure holds the error each engine operation is forced to fail with.
// The config it accepts is a JSON object from operation name to numeric
// core.Error code.
type OpFailure struct {
	lock   sync.Mutex
	forced map[string]core.Error
}

// NewOpFailure returns an OpFailure that forces nothing.
func NewOpFailure() *OpFailure {
	return &OpFailure{forced: make(map[string]core.Error)}
}

// Get returns the error op is forced to fail with, NoError if none.
func (f *OpFailure) Get(op string) core.Error {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.forced[op]
}

// Forced returns the error to fail op with, nil if op runs normally.
func (f *OpFailure) Forced(op string) error {
	e := f.Get(op)
	if e == core.NoError {
		return nil
	}
	log.Warningf("mirror: %s forced to fail with %q", op, e)
	return fmt.Errorf("%s forced: %w", op, e.Error())
}

// Handler replaces the forced errors. A nil config clears them. A config
// naming an operation the engine doesn't have, or an error code that doesn't
// exist, is rejected and the previous errors stay in place. NoError entries
// are dropped.
func (f *OpFailure) Handler(config json.RawMessage) error {
	log.Infof("received new op failure config: %s", string(config))
	forced := make(map[string]core.Error)
	if config != nil {
		var raw map[string]core.Error
		if err := json.Unmarshal(config, &raw); err != nil {
			log.Errorf("failed to unmarshal config: %s", err)
			return err
		}
		for op, e := range raw {
			if !forcible(op) {
				return fmt.Errorf("operation %q can't be forced, want one of %v: %w", op, forcibleOps, core.ErrInvalidArgument.Error())
			}
			if !e.Known() {
				return fmt.Errorf("operation %q: no error code %d: %w", op, int(e), core.ErrInvalidArgument.Error())
			}
			if e != core.NoError {
				forced[op] = e
			}
		}
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	f.forced = forced
	return nil
}

func forcible(op string) bool {
	for _, o := range forcibleOps {
		if o == op {
			return true
		}
	}
	return false
}
