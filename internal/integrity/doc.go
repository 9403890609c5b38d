// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package integrity holds the types the block integrity checker hands back
// after comparing the copies of a mirror: the error board with its per-position
// masks, the list of error regions, and the per-pass error counters.
//
// The checker itself lives elsewhere. This package only describes its output
// so that the accumulator and the reporter can agree on it.
package integrity
