// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package classify

import (
	"strings"
)

// LabelKind separates category labels from reason labels.
type LabelKind int

const (
	CategoryLabel LabelKind = iota
	ReasonLabel
)

// Label is one decoded piece of a Bits word.
type Label struct {
	Kind LabelKind
	Text string
}

var categoryText = [numCategoryBits]string{
	"CRC", "COH", "TS", "WS", "SS", "POC", "NPOC", "UCOH", "ZER", "LBA", "RET", "RM_MAGIC", "RM_SEQ",
}

var reasonText = [numReasons]string{
	ReasonRAID:        "RAID",
	ReasonKlondike:    "KLOND",
	ReasonDH:          "DH",
	ReasonMedia:       "MEDIA",
	ReasonCorruptCRC:  "CORR_CRC",
	ReasonCorruptData: "CORR_DAQ",
	ReasonSingleBit:   "SINGLE BIT",
	ReasonMultiBit:    "MULTI BIT",
	ReasonInvalid:     "INVALIDATED",
	ReasonBad:         "BAD CRC",
	ReasonCopy:        "COPY",
	ReasonPVDMetadata: "PVD METADATA",
	ReasonLBAStamp:    "LBA STAMP",
}

// Labels decodes b into labels: category labels in bit order, then the
// reason label if a known reason is set.
func Labels(b Bits) []Label {
	var out []Label
	for i := 0; i < numCategoryBits; i++ {
		if b&(1<<uint(i)) != 0 {
			out = append(out, Label{Kind: CategoryLabel, Text: categoryText[i]})
		}
	}
	if r := b.Reason(); r != ReasonNone && r < numReasons {
		out = append(out, Label{Kind: ReasonLabel, Text: reasonText[r]})
	}
	return out
}

// Format joins labels for a trace line.
func Format(labels []Label) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.Text
	}
	return strings.Join(parts, " ")
}

func (b Bits) String() string {
	return Format(Labels(b))
}
