/*
	Copyright 2023 Loophole Labs

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

		   http://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package uringio

import "unsafe"

// SQEntry is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type SQEntry struct {
	OpCode      OpCode
	Flags       SQEFlag
	IOPriority  uint16
	FD          int32
	Offset      uint64
	Address     uint64
	Length      uint32
	OpFlags     uint32
	UserData    uint64
	BufIndex    uint16
	Personality uint16
	FileIndex   int32
	Address3    uint64
	_Pad        uint64
}

// SQEntry128 is a submission entry on a ring set up with IORING_SETUP_SQE128,
// or a wide entry on a mixed ring. The trailing 64 bytes carry command data.
type SQEntry128 struct {
	SQEntry
	Cmd [64]byte
}

// CQEvent is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type CQEvent struct {
	UserData uint64
	Res      int32
	Flags    CQEFlag
}

// CQEvent32 is a completion entry on a ring set up with IORING_SETUP_CQE32,
// or a wide entry on a mixed ring.
type CQEvent32 struct {
	CQEvent
	BigCQE [2]uint64
}

const (
	sqEntrySize    = unsafe.Sizeof(SQEntry{})
	sqEntry128Size = unsafe.Sizeof(SQEntry128{})
	cqEventSize    = unsafe.Sizeof(CQEvent{})
	cqEvent32Size  = unsafe.Sizeof(CQEvent32{})
	uint32Size     = unsafe.Sizeof(uint32(0))
)

// These fail to compile if the entry layouts drift from the kernel's.
var (
	_ [sqEntrySize - 64]byte
	_ [64 - sqEntrySize]byte
	_ [sqEntry128Size - 128]byte
	_ [128 - sqEntry128Size]byte
	_ [cqEventSize - 16]byte
	_ [16 - cqEventSize]byte
	_ [cqEvent32Size - 32]byte
	_ [32 - cqEvent32Size]byte
)

// SQESize tags the width of a submission ring's entries.
type SQESize uint8

const (
	// SQE64 rings hold 64-byte entries.
	SQE64 SQESize = iota
	// SQE128 rings hold 128-byte entries.
	SQE128
	// SQEMixed rings hold 64-byte slots, wide opcodes take two adjacent slots.
	SQEMixed
)

// SlotSize is the byte stride between consecutive ring slots.
func (s SQESize) SlotSize() uintptr {
	if s == SQE128 {
		return sqEntry128Size
	}
	return sqEntrySize
}

// SetupFlag is the setup flag that selects this entry width.
func (s SQESize) SetupFlag() SetupFlag {
	switch s {
	case SQE128:
		return SetupSQE128
	case SQEMixed:
		return SetupSQEMixed
	}
	return 0
}

func (s SQESize) String() string {
	switch s {
	case SQE64:
		return "sqe64"
	case SQE128:
		return "sqe128"
	case SQEMixed:
		return "sqe-mixed"
	}
	return "sqe-unknown"
}

// CQESize tags the width of a completion ring's entries.
type CQESize uint8

const (
	// CQE16 rings hold 16-byte entries.
	CQE16 CQESize = iota
	// CQE32 rings hold 32-byte entries.
	CQE32
	// CQEMixed rings hold 16-byte slots, entries flagged CQEF32 take two.
	CQEMixed
)

// SlotSize is the byte stride between consecutive ring slots.
func (c CQESize) SlotSize() uintptr {
	if c == CQE32 {
		return cqEvent32Size
	}
	return cqEventSize
}

// SetupFlag is the setup flag that selects this entry width.
func (c CQESize) SetupFlag() SetupFlag {
	switch c {
	case CQE32:
		return SetupCQE32
	case CQEMixed:
		return SetupCQEMixed
	}
	return 0
}

func (c CQESize) String() string {
	switch c {
	case CQE16:
		return "cqe16"
	case CQE32:
		return "cqe32"
	case CQEMixed:
		return "cqe-mixed"
	}
	return "cqe-unknown"
}
