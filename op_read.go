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

import (
	"runtime"
	"unsafe"

	"github.com/loopholelabs/uringio/pkg/buffer"
)

// CurrentPosition as a read offset reads from, and advances, the file position.
const CurrentPosition = ^uint64(0)

// Read is defined here: https://github.com/torvalds/linux/blob/master/io_uring/rw.c
//
// The kernel writes into the destination after Submit returns, so the
// destination is either mapped outside the Go heap or pinned.
type Read struct {
	opCode      OpCode
	Flags       SQEFlag
	IOPriority  uint16
	FD          int32
	Offset      uint64
	Address     uint64
	Length      uint32
	RWFlags     uint32
	UserData    uint64
	BufIndex    uint16
	Personality uint16
	_           [20]byte
}

var (
	_ [unsafe.Sizeof(Read{}) - sqEntrySize]byte
	_ [sqEntrySize - unsafe.Sizeof(Read{})]byte
	_ [unsafe.Alignof(Read{}) - unsafe.Alignof(SQEntry{})]byte
	_ [unsafe.Alignof(SQEntry{}) - unsafe.Alignof(Read{})]byte
)

// NewRead reads up to len(buf.Free()) bytes of f at offset into the unused
// tail of buf. Commit the completion result to buf to take the data.
func NewRead(f File, buf *buffer.Fixed, offset uint64, userData uint64) Read {
	return newRead(f, buf.Free(), offset, userData)
}

// NewReadPinned reads up to len(buf) bytes of f at offset into Go memory.
// buf is pinned with pinner, which must not be unpinned before the completion
// is reaped.
func NewReadPinned(f File, buf []byte, pinner *runtime.Pinner, offset uint64, userData uint64) Read {
	if len(buf) > 0 {
		pinner.Pin(unsafe.SliceData(buf))
	}
	return newRead(f, buf, offset, userData)
}

func newRead(f File, buf []byte, offset uint64, userData uint64) Read {
	return Read{
		opCode:   OpCodeRead,
		Flags:    fileFlags(f),
		FD:       f.Raw(),
		Offset:   offset,
		Address:  uint64(uintptr(unsafe.Pointer(unsafe.SliceData(buf)))),
		Length:   uint32(len(buf)),
		UserData: userData,
	}
}

func (Read) EntrySize() SQESize {
	return SQE64
}

func (r *Read) OpCode() OpCode {
	return r.opCode
}

// Entry reinterprets the operation as a submission entry.
func (r *Read) Entry() *SQEntry {
	return (*SQEntry)(unsafe.Pointer(r))
}

// UseFixedBuffer reads into the registered buffer at index. The destination
// passed to NewRead must lie inside it.
func (r *Read) UseFixedBuffer(index uint16) *Read {
	r.opCode = OpCodeReadFixed
	r.BufIndex = index
	return r
}
