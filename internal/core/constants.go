// Copyright (c) 2015 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package core

// Global constants that several components need to agree on are defined here.
// If a constant is only needed for single component, probably it should not be
// placed here.
const (
	// BytesPerBlock is the size of a block on the backend, data plus metadata.
	BytesPerBlock = 520

	// MaxArrayWidth is the widest array a position mask can describe.
	MaxArrayWidth = 16

	// MaxMirrorWidth is the widest mirror group.
	MaxMirrorWidth = 3

	// PageBlocksStd is the standard buffer page size in blocks.
	PageBlocksStd = 0x20

	// PageBlocksMax is the large buffer page size in blocks.
	PageBlocksMax = 0x40

	// MinErrorBlocks is the block count reported for an error found only
	// through the error board, where no region carries the real extent.
	MinErrorBlocks = 1
)
