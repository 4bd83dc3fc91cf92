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

// Nop is defined here: https://github.com/torvalds/linux/blob/master/io_uring/nop.c
//
// The kernel reads the injected result from len, and the two extra completion
// words of a NopCQE32 request from off and addr.
type Nop struct {
	opCode   OpCode
	Flags    SQEFlag
	_        uint16
	FD       int32
	Extra1   uint64
	Extra2   uint64
	Result   int32
	NopFlags NopFlag
	UserData uint64
	BufIndex uint16
	_        [22]byte
}

var (
	_ [unsafe.Sizeof(Nop{}) - sqEntrySize]byte
	_ [sqEntrySize - unsafe.Sizeof(Nop{})]byte
	_ [unsafe.Alignof(Nop{}) - unsafe.Alignof(SQEntry{})]byte
	_ [unsafe.Alignof(SQEntry{}) - unsafe.Alignof(Nop{})]byte
)

// NewNop returns a no-op that completes with res 0 and the given user data.
func NewNop(userData uint64) Nop {
	return Nop{opCode: OpCodeNOP, FD: -1, UserData: userData}
}

func (Nop) EntrySize() SQESize {
	return SQE64
}

// Entry reinterprets the operation as a submission entry.
func (n *Nop) Entry() *SQEntry {
	return (*SQEntry)(unsafe.Pointer(n))
}

// SetFile makes the kernel resolve f before completing.
func (n *Nop) SetFile(f File) *Nop {
	n.FD = f.Raw()
	n.NopFlags |= NopFile
	if f.Fixed() {
		n.Flags |= SQEFixedFile
		n.NopFlags |= NopFixedFile
	}
	return n
}

// SetBufIndex makes the kernel resolve a registered buffer before completing.
func (n *Nop) SetBufIndex(index uint16) *Nop {
	n.BufIndex = index
	n.NopFlags |= NopFixedBuffer
	return n
}

// InjectResult makes the completion carry res instead of 0.
func (n *Nop) InjectResult(res int32) *Nop {
	n.Result = res
	n.NopFlags |= NopInjectResult
	return n
}

// SetExtraData asks for a wide completion echoing extra. It needs a CQE32
// or mixed completion ring.
func (n *Nop) SetExtraData(extra [2]uint64) *Nop {
	n.Extra1, n.Extra2 = extra[0], extra[1]
	n.NopFlags |= NopCQE32
	return n
}

// EnableTaskWork completes the request through task work.
func (n *Nop) EnableTaskWork() *Nop {
	n.NopFlags |= NopTaskWork
	return n
}

// SkipCQE suppresses the completion when the no-op succeeds.
func (n *Nop) SkipCQE() *Nop {
	n.Flags |= SQECQESkipSuccess
	return n
}

// Nop128 is a no-op that occupies a wide submission entry. On a mixed ring it
// takes two slots.
type Nop128 struct {
	Nop
	_ [64]byte
}

var (
	_ [unsafe.Sizeof(Nop128{}) - sqEntry128Size]byte
	_ [sqEntry128Size - unsafe.Sizeof(Nop128{})]byte
	_ [unsafe.Alignof(Nop128{}) - unsafe.Alignof(SQEntry128{})]byte
	_ [unsafe.Alignof(SQEntry128{}) - unsafe.Alignof(Nop128{})]byte
)

// NewNop128 returns a wide no-op with the given user data.
func NewNop128(userData uint64) Nop128 {
	return Nop128{Nop: Nop{opCode: OpCodeNOP128, FD: -1, UserData: userData}}
}

func (Nop128) EntrySize() SQESize {
	return SQE128
}

// Entry reinterprets the operation as a wide submission entry.
func (n *Nop128) Entry() *SQEntry128 {
	return (*SQEntry128)(unsafe.Pointer(n))
}
