// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"os"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/mirrorvr/internal/report"
)

// WithJournal adds the journal configured in cfg to base. The returned func
// flushes and closes the journal file.
func WithJournal(cfg Config, base report.EventLog) (report.EventLog, func() error, error) {
	if cfg.JournalPath == "" {
		return base, func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.JournalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	j := report.NewJournal(f)
	log.Infof("engine: journaling events to %s", cfg.JournalPath)
	closer := func() error {
		if err := j.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return report.Tee(base, j), closer, nil
}
