// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/engine"
	"github.com/westerndigitalcorporation/mirrorvr/internal/integrity"
	"github.com/westerndigitalcorporation/mirrorvr/internal/planner"
	"github.com/westerndigitalcorporation/mirrorvr/internal/report"
	"github.com/westerndigitalcorporation/mirrorvr/pkg/testutil"
)

func verifyJob() map[string]interface{} {
	return map[string]interface{}{
		"algorithm":          "mirror_verify",
		"opcode":             "verify",
		"lba":                0,
		"blocks":             0x40,
		"width":              2,
		"optimal_block_size": 0x10,
		"allow_correctable":  true,
		"regions": []map[string]interface{}{
			{"lba": 0x8, "blocks": 4, "positions": []int{0}, "type": "hard_media"},
		},
	}
}

func TestLoadJob(t *testing.T) {
	j, err := loadJob(testutil.WriteJSON(t, "job.json", verifyJob()))
	require.NoError(t, err)
	sub, err := j.subRequest()
	require.NoError(t, err)
	require.Equal(t, core.MirrorVerify{}, sub.Algorithm)
	require.Equal(t, core.OpVerify, sub.Opcode)
	require.Equal(t, uint64(0x40), sub.ParityCount)
	require.Equal(t, 2, sub.DataDisks)
	require.Equal(t, planner.FlagAllowCorrectable, sub.Flags)
	require.False(t, sub.Parent.Valid())

	pass, err := j.pass()
	require.NoError(t, err)
	require.Equal(t, []integrity.Region{
		{LBA: 0x8, Blocks: 4, Positions: core.MaskOf(0), Error: integrity.NewCode(integrity.TypeHardMedia)},
	}, pass.Regions.Regions)

	raw := verifyJob()
	raw["colour"] = "blue"
	_, err = loadJob(testutil.WriteJSON(t, "unknown.json", raw))
	require.Error(t, err)
}

func TestJobErrors(t *testing.T) {
	for _, tc := range []struct {
		key   string
		value interface{}
	}{
		{"algorithm", "mirror_scrub"},
		{"opcode", "trim"},
		{"degraded", []int{core.MaxArrayWidth}},
	} {
		raw := verifyJob()
		raw[tc.key] = tc.value
		j, err := loadJob(testutil.WriteJSON(t, "job.json", raw))
		require.NoError(t, err)
		_, err = j.subRequest()
		require.Error(t, err, tc.key)
	}

	raw := verifyJob()
	raw["regions"] = []map[string]interface{}{{"lba": 0, "blocks": 1, "positions": []int{0}, "type": "gremlins"}}
	j, err := loadJob(testutil.WriteJSON(t, "job.json", raw))
	require.NoError(t, err)
	_, err = j.pass()
	require.Error(t, err)
}

func TestJobDegradedAndUncorrectable(t *testing.T) {
	raw := verifyJob()
	raw["width"] = 3
	raw["degraded"] = []int{2}
	raw["soft_media"] = []int{1}
	raw["regions"] = []map[string]interface{}{
		{"lba": 0x10, "blocks": 2, "positions": []int{0, 1}, "type": "coh", "uncorrectable": true},
	}
	j, err := loadJob(testutil.WriteJSON(t, "job.json", raw))
	require.NoError(t, err)
	sub, err := j.subRequest()
	require.NoError(t, err)
	require.Equal(t, 2, sub.DataDisks)
	require.Equal(t, core.MaskOf(2), sub.Degraded)

	pass, err := j.pass()
	require.NoError(t, err)
	require.Equal(t, core.MaskOf(1), pass.SoftMedia)
	r := pass.Regions.Regions[0]
	require.True(t, r.Error.Uncorrectable())
	require.Equal(t, integrity.TypeCoherency, r.Error.Type())
	require.Equal(t, core.MaskOf(0).Set(1), r.Positions)
}

func TestJobParentTable(t *testing.T) {
	raw := verifyJob()
	raw["algorithm"] = "mirror_recovery_verify"
	raw["parent"] = map[string]interface{}{"position": 1, "lba": 0x10, "blocks": 0x50}
	j, err := loadJob(testutil.WriteJSON(t, "job.json", raw))
	require.NoError(t, err)
	sub, err := j.subRequest()
	require.NoError(t, err)
	require.True(t, sub.Parent.Valid())

	pool := engine.NewPool(1 << 20)
	table, release, err := j.parentTable(pool)
	require.NoError(t, err)
	// 0x50 blocks take two large pages.
	require.Equal(t, uint64(2*core.PageBlocksMax*core.BytesPerBlock), pool.Used())

	p, ok := table.ParentRead(sub.Parent)
	require.True(t, ok)
	require.Equal(t, core.Position(1), p.Position)
	require.Equal(t, uint64(0x50*core.BytesPerBlock), p.SG.Bytes())
	require.Equal(t, 2, p.SG.Len())
	_, ok = table.ParentRead(planner.ParentAt(1))
	require.False(t, ok)

	release()
	require.Zero(t, pool.Used())

	_, _, err = j.parentTable(engine.NewPool(core.BytesPerBlock))
	require.True(t, core.ErrOutOfMemory.Is(err))
}

// Runs a job through the engine the way the verify command does.
func TestJobThroughEngine(t *testing.T) {
	j, err := loadJob(testutil.WriteJSON(t, "job.json", verifyJob()))
	require.NoError(t, err)
	sub, err := j.subRequest()
	require.NoError(t, err)
	pass, err := j.pass()
	require.NoError(t, err)

	var buf report.EventBuffer
	eng, err := engine.New(engine.DefaultTestConfig, &buf, nil, nil)
	require.NoError(t, err)
	pool := engine.NewPool(1 << 20)
	p, err := eng.Prepare(sub, nil, pool)
	require.NoError(t, err)

	d := &printDispatcher{p: p}
	require.Equal(t, core.MaskOf(0).Set(1), d.ActiveReads())

	state, err := eng.Complete(p, pass, d)
	require.NoError(t, err)
	require.Equal(t, report.Done, state)
	require.Equal(t, 1, buf.Count(report.EventSectorReconstructed, 0))
	require.Zero(t, pool.Used())
}
