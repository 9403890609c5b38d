// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package core

// AlgorithmCode is the wire value of an algorithm. It lands in the low byte
// of the extra info attached to every event.
type AlgorithmCode uint8

const (
	AlgInvalid AlgorithmCode = iota
	AlgMirrorRead
	AlgMirrorVerify
	AlgMirrorRecoveryVerify
	AlgMirrorCopyVerify
	AlgMirrorWriteVerify
	AlgMirrorRecoveryVerifyBuffered
	AlgMirrorRebuild
	AlgMirrorRekey
)

// BufferPolicy says how position buffers are sourced for an algorithm.
type BufferPolicy int

const (
	// BuffersUnsupported means the algorithm is never planned here; it only
	// shows up in error reporting.
	BuffersUnsupported BufferPolicy = iota

	// BuffersUniform means every position reads into fresh pages.
	BuffersUniform

	// BuffersOverlay means the parent read position reuses the parent's
	// buffer for the overlapping range.
	BuffersOverlay
)

func (b BufferPolicy) String() string {
	switch b {
	case BuffersUniform:
		return "uniform"
	case BuffersOverlay:
		return "overlay"
	}
	return "unsupported"
}

// Algorithm is the closed set of mirror algorithms. Only types in this package
// implement it, and each one has to state its buffer policy.
type Algorithm interface {
	Code() AlgorithmCode
	BufferPolicy() BufferPolicy

	// ReadClass is true when the algorithm runs on behalf of a host read,
	// which changes how first-time checksum errors are reported.
	ReadClass() bool

	String() string
	algorithm()
}

type (
	MirrorRead                   struct{}
	MirrorVerify                 struct{}
	MirrorRecoveryVerify         struct{}
	MirrorCopyVerify             struct{}
	MirrorWriteVerify            struct{}
	MirrorRecoveryVerifyBuffered struct{}
	MirrorRebuild                struct{}
	MirrorRekey                  struct{}
)

func (MirrorRead) Code() AlgorithmCode { return AlgMirrorRead }
func (MirrorRead) BufferPolicy() BufferPolicy { return BuffersUnsupported }
func (MirrorRead) ReadClass() bool { return true }
func (MirrorRead) String() string { return "mirror_read" }
func (MirrorRead) algorithm() {}

func (MirrorVerify) Code() AlgorithmCode { return AlgMirrorVerify }
func (MirrorVerify) BufferPolicy() BufferPolicy { return BuffersUniform }
func (MirrorVerify) ReadClass() bool { return false }
func (MirrorVerify) String() string { return "mirror_verify" }
func (MirrorVerify) algorithm() {}

func (MirrorRecoveryVerify) Code() AlgorithmCode { return AlgMirrorRecoveryVerify }
func (MirrorRecoveryVerify) BufferPolicy() BufferPolicy { return BuffersOverlay }
func (MirrorRecoveryVerify) ReadClass() bool { return true }
func (MirrorRecoveryVerify) String() string { return "mirror_recovery_verify" }
func (MirrorRecoveryVerify) algorithm() {}

func (MirrorCopyVerify) Code() AlgorithmCode { return AlgMirrorCopyVerify }
func (MirrorCopyVerify) BufferPolicy() BufferPolicy { return BuffersUniform }
func (MirrorCopyVerify) ReadClass() bool { return false }
func (MirrorCopyVerify) String() string { return "mirror_copy_verify" }
func (MirrorCopyVerify) algorithm() {}

func (MirrorWriteVerify) Code() AlgorithmCode { return AlgMirrorWriteVerify }
func (MirrorWriteVerify) BufferPolicy() BufferPolicy { return BuffersUniform }
func (MirrorWriteVerify) ReadClass() bool { return false }
func (MirrorWriteVerify) String() string { return "mirror_write_verify" }
func (MirrorWriteVerify) algorithm() {}

func (MirrorRecoveryVerifyBuffered) Code() AlgorithmCode { return AlgMirrorRecoveryVerifyBuffered }
func (MirrorRecoveryVerifyBuffered) BufferPolicy() BufferPolicy { return BuffersOverlay }
func (MirrorRecoveryVerifyBuffered) ReadClass() bool { return false }
func (MirrorRecoveryVerifyBuffered) String() string { return "mirror_recovery_verify_buffered" }
func (MirrorRecoveryVerifyBuffered) algorithm() {}

func (MirrorRebuild) Code() AlgorithmCode { return AlgMirrorRebuild }
func (MirrorRebuild) BufferPolicy() BufferPolicy { return BuffersUnsupported }
func (MirrorRebuild) ReadClass() bool { return false }
func (MirrorRebuild) String() string { return "mirror_rebuild" }
func (MirrorRebuild) algorithm() {}

func (MirrorRekey) Code() AlgorithmCode { return AlgMirrorRekey }
func (MirrorRekey) BufferPolicy() BufferPolicy { return BuffersUniform }
func (MirrorRekey) ReadClass() bool { return false }
func (MirrorRekey) String() string { return "mirror_rekey" }
func (MirrorRekey) algorithm() {}

// Algorithms lists every algorithm variant.
func Algorithms() []Algorithm {
	return []Algorithm{
		MirrorRead{},
		MirrorVerify{},
		MirrorRecoveryVerify{},
		MirrorCopyVerify{},
		MirrorWriteVerify{},
		MirrorRecoveryVerifyBuffered{},
		MirrorRebuild{},
		MirrorRekey{},
	}
}

// AlgorithmFromCode maps a wire code back to its variant.
func AlgorithmFromCode(c AlgorithmCode) (Algorithm, bool) {
	for _, a := range Algorithms() {
		if a.Code() == c {
			return a, true
		}
	}
	return nil, false
}

// IsMirrorRebuild is true for the rebuild algorithm.
func IsMirrorRebuild(a Algorithm) bool {
	_, ok := a.(MirrorRebuild)
	return ok
}
