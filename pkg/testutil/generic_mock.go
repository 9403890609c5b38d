// Copyright (c) 2017 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package testutil

import (
	"reflect"
	"sync"
	"testing"
)

// GenericMock helps write scripted collaborators. Embed it in a struct that
// defines type-safe wrappers, register the expected calls with AddCall, and
// look them up from the wrappers with GetResult.
type GenericMock struct {
	tb    testing.TB
	lock  sync.Mutex
	calls []mockCall
}

// NewGenericMock creates a new GenericMock reporting to tb.
func NewGenericMock(tb testing.TB) *GenericMock {
	return &GenericMock{tb: tb}
}

// AddCall registers one call. Arguments must match exactly, according to
// reflect.DeepEqual.
func (m *GenericMock) AddCall(method string, result interface{}, args ...interface{}) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.calls = append(m.calls, mockCall{method: method, args: args, result: result})
}

// GetResult returns the result of the first unused call matching method and
// args, and marks it used. An unexpected call fails the test.
func (m *GenericMock) GetResult(method string, args ...interface{}) interface{} {
	m.tb.Helper()
	m.lock.Lock()
	defer m.lock.Unlock()
	for i, call := range m.calls {
		if !call.used && call.method == method && reflect.DeepEqual(call.args, args) {
			m.calls[i].used = true
			return call.result
		}
	}
	m.tb.Fatalf("no calls for method %q args %#v", method, args)
	return nil
}

// GetError is GetResult for methods returning only an error.
func (m *GenericMock) GetError(method string, args ...interface{}) error {
	m.tb.Helper()
	return ToErr(m.GetResult(method, args...))
}

// Used returns how many calls to method were made.
func (m *GenericMock) Used(method string) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	n := 0
	for _, call := range m.calls {
		if call.used && call.method == method {
			n++
		}
	}
	return n
}

// NoMoreCalls fails the test if a registered call was never made.
func (m *GenericMock) NoMoreCalls() {
	m.tb.Helper()
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, call := range m.calls {
		if !call.used {
			m.tb.Fatalf("unused call: %s %#v", call.method, call.args)
		}
	}
}

type mockCall struct {
	method string
	args   []interface{}
	result interface{}
	used   bool
}

// ToErr converts an interface{} holding an error, or nil, to an error.
func ToErr(v interface{}) error {
	if v == nil {
		return nil
	}
	return v.(error)
}
