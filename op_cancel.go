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

// Cancel is defined here: https://github.com/torvalds/linux/blob/master/io_uring/cancel.c
//
// It completes with 0 when a matching request was cancelled, -ENOENT when none
// was found and -EALREADY when the match was already running.
type Cancel struct {
	opCode      OpCode
	Flags       SQEFlag
	_           uint16
	FD          int32
	_           uint64
	Target      uint64
	_           uint32
	CancelFlags CancelFlag
	UserData    uint64
	_           [24]byte
}

var (
	_ [unsafe.Sizeof(Cancel{}) - sqEntrySize]byte
	_ [sqEntrySize - unsafe.Sizeof(Cancel{})]byte
	_ [unsafe.Alignof(Cancel{}) - unsafe.Alignof(SQEntry{})]byte
	_ [unsafe.Alignof(SQEntry{}) - unsafe.Alignof(Cancel{})]byte
)

// NewCancel cancels the in-flight request submitted with target as its user
// data.
func NewCancel(target uint64, userData uint64) Cancel {
	return Cancel{opCode: OpCodeAsyncCancel, FD: -1, Target: target, UserData: userData}
}

// NewCancelFile cancels in-flight requests against f.
func NewCancelFile(f File, userData uint64) Cancel {
	c := Cancel{opCode: OpCodeAsyncCancel, FD: f.Raw(), CancelFlags: CancelFD, UserData: userData}
	if f.Fixed() {
		c.CancelFlags |= CancelFDFixed
	}
	return c
}

func (Cancel) EntrySize() SQESize {
	return SQE64
}

// Entry reinterprets the operation as a submission entry.
func (c *Cancel) Entry() *SQEntry {
	return (*SQEntry)(unsafe.Pointer(c))
}

// All cancels every match instead of the first one.
func (c *Cancel) All() *Cancel {
	c.CancelFlags |= CancelAll
	return c
}

// Any cancels every in-flight request regardless of target.
func (c *Cancel) Any() *Cancel {
	c.CancelFlags |= CancelAny
	return c
}
