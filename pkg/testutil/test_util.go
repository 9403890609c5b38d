// Copyright (c) 2015 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package testutil contains helpers shared by tests.
package testutil

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"testing"
)

// WriteJSON encodes v into a file called name in a temporary directory owned
// by tb, and returns its path.
func WriteJSON(tb testing.TB, name string, v interface{}) string {
	tb.Helper()
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		tb.Fatalf("failed to encode %s: %s", name, err)
	}
	return WriteFile(tb, name, b)
}

// WriteFile writes b into a file called name in a temporary directory owned
// by tb, and returns its path.
func WriteFile(tb testing.TB, name string, b []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := ioutil.WriteFile(path, b, 0644); err != nil {
		tb.Fatalf("failed to write %s: %s", path, err)
	}
	return path
}
