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
	"sync/atomic"
	"unsafe"

	"github.com/brickingsoft/errors"
)

// field returns a pointer to the 32-bit ring field at off, or an error when
// the kernel reported an offset outside the mapped region.
func field(region []byte, off uint32, name string) (*uint32, error) {
	if off%uint32(uint32Size) != 0 || uintptr(off)+uint32Size > uintptr(len(region)) {
		return nil, errors.New(
			"ring field out of range",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpMmap),
			errors.WithMeta(errMetaRegionKey, name),
		)
	}
	return (*uint32)(unsafe.Pointer(&region[off])), nil
}

func fields(region []byte, names []string, offs ...uint32) ([]*uint32, error) {
	ptrs := make([]*uint32, len(offs))
	for i, off := range offs {
		p, err := field(region, off, names[i])
		if err != nil {
			return nil, err
		}
		ptrs[i] = p
	}
	return ptrs, nil
}

// SubmissionQueue is a view of the kernel's submission ring.
//
// The kernel owns head and the application owns tail. Only tail&mask is
// used to address a slot.
type SubmissionQueue struct {
	khead    *uint32
	ktail    *uint32
	kflags   *uint32
	kdropped *uint32
	array    []uint32
	sqes     []byte
	mask     uint32
	entries  uint32
	size     SQESize
}

func newSubmissionQueue(arena *Arena, params *Params, size SQESize) (*SubmissionQueue, error) {
	off := params.SQOffsets
	ptrs, err := fields(arena.SQ(), []string{"sq.head", "sq.tail", "sq.flags", "sq.dropped", "sq.ring_mask", "sq.ring_entries"},
		off.Head, off.Tail, off.Flags, off.Dropped, off.RingMask, off.RingEntries)
	if err != nil {
		return nil, err
	}

	q := &SubmissionQueue{
		khead:    ptrs[0],
		ktail:    ptrs[1],
		kflags:   ptrs[2],
		kdropped: ptrs[3],
		mask:     *ptrs[4],
		entries:  *ptrs[5],
		size:     size,
	}
	if q.entries == 0 || q.entries&(q.entries-1) != 0 || q.mask != q.entries-1 {
		return nil, errors.New(
			"submission ring geometry is invalid",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpSetup),
		)
	}

	sqesSize := uintptr(q.entries) * size.SlotSize()
	if uintptr(len(arena.SQEs())) < sqesSize {
		return nil, errors.New(
			"submission entry region is too small",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaRegionKey, "sqes"),
		)
	}
	q.sqes = arena.SQEs()[:sqesSize:sqesSize]

	if params.Flags&SetupNoSQArray == 0 {
		first, err := field(arena.SQ(), off.Array, "sq.array")
		if err != nil {
			return nil, err
		}
		if uintptr(off.Array)+uintptr(q.entries)*uint32Size > uintptr(len(arena.SQ())) {
			return nil, errors.New(
				"submission index array out of range",
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithMeta(errMetaRegionKey, "sq.array"),
			)
		}
		q.array = unsafe.Slice(first, q.entries)
		for i := range q.array {
			q.array[i] = uint32(i)
		}
	}

	return q, nil
}

// Head returns the kernel's consumer index.
func (q *SubmissionQueue) Head() uint32 {
	return atomic.LoadUint32(q.khead)
}

// Tail returns the last published producer index.
func (q *SubmissionQueue) Tail() uint32 {
	return atomic.LoadUint32(q.ktail)
}

// Flags returns the ring status flags set by the kernel.
func (q *SubmissionQueue) Flags() SQStatus {
	return SQStatus(atomic.LoadUint32(q.kflags))
}

// Dropped returns the number of invalid entries the kernel skipped.
func (q *SubmissionQueue) Dropped() uint32 {
	return atomic.LoadUint32(q.kdropped)
}

// Capacity returns the number of slots in the ring.
func (q *SubmissionQueue) Capacity() uint32 {
	return q.entries
}

func (q *SubmissionQueue) Mask() uint32 {
	return q.mask
}

func (q *SubmissionQueue) Size() SQESize {
	return q.size
}

// Entry returns the slot addressed by index&mask.
func (q *SubmissionQueue) Entry(index uint32) *SQEntry {
	stride := q.size.SlotSize()
	off := uintptr(index&q.mask) * stride
	slot := q.sqes[off : off+sqEntrySize : off+sqEntrySize]
	return (*SQEntry)(unsafe.Pointer(&slot[0]))
}

// Entry128 returns the wide entry starting at the slot addressed by
// index&mask. On a mixed ring a wide entry covers that slot and the next, so
// the last slot of the ring cannot start one.
func (q *SubmissionQueue) Entry128(index uint32) *SQEntry128 {
	stride := q.size.SlotSize()
	off := uintptr(index&q.mask) * stride
	slot := q.sqes[off : off+sqEntry128Size : off+sqEntry128Size]
	return (*SQEntry128)(unsafe.Pointer(&slot[0]))
}

// CompletionQueue is a view of the kernel's completion ring.
//
// The kernel owns tail and the application owns head.
type CompletionQueue struct {
	khead     *uint32
	ktail     *uint32
	koverflow *uint32
	kflags    *uint32
	cqes      []byte
	mask      uint32
	entries   uint32
	size      CQESize
}

func newCompletionQueue(arena *Arena, params *Params, size CQESize) (*CompletionQueue, error) {
	off := params.CQOffsets
	ptrs, err := fields(arena.CQ(), []string{"cq.head", "cq.tail", "cq.overflow", "cq.ring_mask", "cq.ring_entries"},
		off.Head, off.Tail, off.Overflow, off.RingMask, off.RingEntries)
	if err != nil {
		return nil, err
	}

	q := &CompletionQueue{
		khead:     ptrs[0],
		ktail:     ptrs[1],
		koverflow: ptrs[2],
		mask:      *ptrs[3],
		entries:   *ptrs[4],
		size:      size,
	}
	if q.entries == 0 || q.entries&(q.entries-1) != 0 || q.mask != q.entries-1 {
		return nil, errors.New(
			"completion ring geometry is invalid",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpSetup),
		)
	}
	if off.Flags != 0 {
		if q.kflags, err = field(arena.CQ(), off.Flags, "cq.flags"); err != nil {
			return nil, err
		}
	}

	cqesSize := uintptr(q.entries) * size.SlotSize()
	if uintptr(off.CQEs)+cqesSize > uintptr(len(arena.CQ())) {
		return nil, errors.New(
			"completion entry array out of range",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaRegionKey, "cq.cqes"),
		)
	}
	q.cqes = arena.CQ()[off.CQEs : uintptr(off.CQEs)+cqesSize : uintptr(off.CQEs)+cqesSize]

	return q, nil
}

// Head returns the last published consumer index.
func (q *CompletionQueue) Head() uint32 {
	return atomic.LoadUint32(q.khead)
}

// Tail returns the kernel's producer index.
func (q *CompletionQueue) Tail() uint32 {
	return atomic.LoadUint32(q.ktail)
}

func (q *CompletionQueue) setHead(head uint32) {
	atomic.StoreUint32(q.khead, head)
}

// Overflow returns the number of completions the kernel could not post.
func (q *CompletionQueue) Overflow() uint32 {
	return atomic.LoadUint32(q.koverflow)
}

// Flags returns the completion ring flags, or zero on kernels without them.
func (q *CompletionQueue) Flags() CQStatus {
	if q.kflags == nil {
		return 0
	}
	return CQStatus(atomic.LoadUint32(q.kflags))
}

// Capacity returns the number of slots in the ring.
func (q *CompletionQueue) Capacity() uint32 {
	return q.entries
}

func (q *CompletionQueue) Mask() uint32 {
	return q.mask
}

func (q *CompletionQueue) Size() CQESize {
	return q.size
}

// Event returns the slot addressed by index&mask.
func (q *CompletionQueue) Event(index uint32) *CQEvent {
	off := uintptr(index&q.mask) * q.size.SlotSize()
	slot := q.cqes[off : off+cqEventSize : off+cqEventSize]
	return (*CQEvent)(unsafe.Pointer(&slot[0]))
}

// Event32 returns the wide completion starting at the slot addressed by
// index&mask.
func (q *CompletionQueue) Event32(index uint32) *CQEvent32 {
	off := uintptr(index&q.mask) * q.size.SlotSize()
	slot := q.cqes[off : off+cqEvent32Size : off+cqEvent32Size]
	return (*CQEvent32)(unsafe.Pointer(&slot[0]))
}
