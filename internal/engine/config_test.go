// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/report"
	"github.com/westerndigitalcorporation/mirrorvr/internal/sgl"
	"github.com/westerndigitalcorporation/mirrorvr/pkg/testutil"
)

func TestDefaultConfigs(t *testing.T) {
	require.NoError(t, DefaultProdConfig.Validate())
	require.NoError(t, DefaultTestConfig.Validate())

	cfg := DefaultTestConfig
	cfg.TrackedRequests = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultProdConfig
	cfg.PoolMemoryShare = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultTestConfig
	cfg.Layout.SGEntryBytes = 0
	require.True(t, core.ErrInvalidArgument.Is(cfg.Validate()))
}

func TestLoadConfig(t *testing.T) {
	path := testutil.WriteJSON(t, "engine.json", map[string]interface{}{
		"Group":           3,
		"TrackedRequests": 64,
		"Report":          map[string]interface{}{"encrypted": false, "stop_on_event": int(report.EventSectorInvalidated)},
	})
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, uint32(3), cfg.Group)
	require.Equal(t, 64, cfg.TrackedRequests)
	require.False(t, cfg.Report.Encrypted)
	require.Equal(t, report.EventSectorInvalidated, cfg.Report.StopOnEvent)
	// Untouched fields keep their production values.
	require.Equal(t, DefaultProdConfig.Layout, cfg.Layout)
	require.Equal(t, DefaultProdConfig.PoolMemoryShare, cfg.PoolMemoryShare)

	_, err = LoadConfig(testutil.WriteFile(t, "bad.json", []byte("{")))
	require.Error(t, err)
	_, err = LoadConfig(testutil.WriteJSON(t, "invalid.json", map[string]int{"TrackedRequests": 0}))
	require.Error(t, err)
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestPool(t *testing.T) {
	p := NewPool(4 * 1000)
	a, err := p.AllocatePages(2, 1000)
	require.NoError(t, err)
	require.Equal(t, []sgl.Page{{Addr: poolBase, Bytes: 1000}, {Addr: poolBase + 1000, Bytes: 1000}}, a)

	_, err = p.AllocatePages(3, 1000)
	require.True(t, core.ErrOutOfMemory.Is(err))
	require.Equal(t, uint64(2000), p.Used())

	p.Release(a[1:])
	b, err := p.AllocatePages(2, 1000)
	require.NoError(t, err)
	// The released page comes back first.
	require.Equal(t, uint64(poolBase+1000), b[0].Addr)
	require.Equal(t, uint64(poolBase+2000), b[1].Addr)
	require.Equal(t, uint64(3000), p.Used())

	_, err = p.AllocatePages(1, 0)
	require.True(t, core.ErrInvalidArgument.Is(err))
	require.Equal(t, uint64(4000), p.Limit())
}

func TestPoolFromSystem(t *testing.T) {
	n, err := PoolBytesFromSystem(16)
	if err != nil {
		t.Skipf("no memory info: %s", err)
	}
	require.True(t, n > 0)
}

func TestWithJournal(t *testing.T) {
	var buf report.EventBuffer
	l, closer, err := WithJournal(DefaultTestConfig, &buf)
	require.NoError(t, err)
	require.Equal(t, report.EventLog(&buf), l)
	require.NoError(t, closer())

	cfg := DefaultTestConfig
	cfg.JournalPath = filepath.Join(t.TempDir(), "events.sz")
	l, closer, err = WithJournal(cfg, &buf)
	require.NoError(t, err)
	ev := report.Event{Code: report.EventUncorrectableSector, Position: 1, LBA: 0x40, Blocks: 2}
	require.NoError(t, l.Emit(ev))
	require.NoError(t, closer())

	f, err := os.Open(cfg.JournalPath)
	require.NoError(t, err)
	defer f.Close()
	events, err := report.ReadJournal(f)
	require.NoError(t, err)
	require.Equal(t, []report.Event{ev}, events)
	require.Equal(t, []report.Event{ev}, buf.Events())
}
