// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/westerndigitalcorporation/mirrorvr/internal/report"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sizer"
)

// Config encapsulates parameters for the engine.
type Config struct {
	// Layout holds the sizes of the control structures.
	Layout sizer.Layout
	// Report controls event logging.
	Report report.Config
	// Group is the mirror group id events are logged against.
	Group uint32

	// --- Buffer pool ---
	// PoolBytes is the size of the page pool. Zero sizes it from system memory.
	PoolBytes uint64
	// PoolMemoryShare is the fraction, 1/N, of free system memory used when
	// PoolBytes is zero.
	PoolMemoryShare int

	// TrackedRequests is how many prepared sub-requests can be looked up by id.
	TrackedRequests int

	// UseFailure enables the failure service.
	UseFailure bool
	// JournalPath is where events are also written, snappy compressed. Empty
	// disables the journal.
	JournalPath string
}

// Validate validates the configuration object has reasonable(not obviously
// wrong) values.
func (c Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	if c.PoolBytes == 0 && c.PoolMemoryShare <= 0 {
		return fmt.Errorf("PoolMemoryShare must be positive when PoolBytes is 0")
	}
	if c.TrackedRequests <= 0 {
		return fmt.Errorf("TrackedRequests must be positive")
	}
	return nil
}

// DefaultProdConfig specifies the default values for Config that is used for
// production.
var DefaultProdConfig = Config{
	Layout: sizer.DefaultLayout,
	Report: report.Config{Encrypted: true},

	// A sixteenth of free memory.
	PoolMemoryShare: 16,

	TrackedRequests: 1024,

	// Do not enable failure service in production.
	UseFailure: false,
}

// DefaultTestConfig specifies the default values for Config that is used for
// testing.
var DefaultTestConfig = Config{
	Layout: sizer.DefaultLayout,
	Report: report.Config{TraceUnsolicited: true, LogInjectedErrors: true},

	// 8 MB is plenty for the widest test request.
	PoolBytes: 8 << 20,

	TrackedRequests: 16,
	UseFailure:      true,
}

// LoadConfig reads a JSON config file on top of the production defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultProdConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("couldn't open the config file: %s", err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode the config file: %s", err)
	}
	return cfg, cfg.Validate()
}
