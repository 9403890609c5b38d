// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package core

// Opcode is the operation the host or a background service asked for.
type Opcode int

const (
	OpInvalid Opcode = iota
	OpRead
	OpWrite
	OpVerify
	OpVerifyWrite
	OpIncompleteWriteVerify
	OpReadOnlyVerifySpecificArea
	OpErrorVerify
	OpSystemVerify
	OpRekey
	OpRebuild
)

var opcodeNames = map[Opcode]string{
	OpInvalid:                    "invalid",
	OpRead:                       "read",
	OpWrite:                      "write",
	OpVerify:                     "verify",
	OpVerifyWrite:                "verify_write",
	OpIncompleteWriteVerify:      "incomplete_write_verify",
	OpReadOnlyVerifySpecificArea: "ro_verify_specific_area",
	OpErrorVerify:                "error_verify",
	OpSystemVerify:               "system_verify",
	OpRekey:                      "rekey",
	OpRebuild:                    "rebuild",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return "unknown"
}
