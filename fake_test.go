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
	"fmt"
	"sync/atomic"
	"syscall"
	"testing"
	"unsafe"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Ring field offsets used by fakeKernel. The submission ring fields sit
// before the completion ring fields so both rings fit in one mapping.
const (
	fakeSQHead    = 0
	fakeSQTail    = 4
	fakeSQMask    = 8
	fakeSQEntries = 12
	fakeSQFlags   = 16
	fakeSQDropped = 20
	fakeCQHead    = 32
	fakeCQTail    = 36
	fakeCQMask    = 40
	fakeCQEntries = 44
	fakeCQOver    = 48
	fakeCQFlags   = 52
	fakeCQEs      = 64
	fakeRingFD    = 42
)

type fakeEnter struct {
	fd          int
	toSubmit    uint32
	minComplete uint32
	flags       EnterFlag
	argSize     uintptr
}

// fakeKernel is an in-memory System. It lays out rings the way the kernel
// does, consumes submissions when entered and posts one completion per
// consumed request.
type fakeKernel struct {
	t        testing.TB
	features Feature
	params   Params

	setupErr  error
	mmapErr   map[int64]error
	enterErr  error
	manual    bool
	disabled  bool
	regCount  uint
	files     []int32
	buffers   []iovec
	nextIndex uint32

	regions    map[int64][]byte
	live       map[*byte]bool
	registered map[uint32]bool
	enters     []fakeEnter
	events     []string
	closed     map[int]int
}

func newFakeKernel(t testing.TB) *fakeKernel {
	return &fakeKernel{
		t:          t,
		features:   FeatureSingleMMap | FeatureNoDrop | FeatureRegRegRing | FeatureExtArg,
		mmapErr:    map[int64]error{},
		regions:    map[int64][]byte{},
		live:       map[*byte]bool{},
		registered: map[uint32]bool{},
		closed:     map[int]int{},
	}
}

func roundUpPow2(v uint32) uint32 {
	n := uint32(1)
	for n < v {
		n <<= 1
	}
	return n
}

func (k *fakeKernel) sqeSlot() uintptr {
	if k.params.Flags&SetupSQE128 != 0 {
		return 128
	}
	return 64
}

func (k *fakeKernel) cqeSlot() uintptr {
	if k.params.Flags&SetupCQE32 != 0 {
		return 32
	}
	return 16
}

func (k *fakeKernel) Setup(entries uint32, params *Params) (int, error) {
	k.events = append(k.events, "setup")
	if k.setupErr != nil {
		return -1, k.setupErr
	}

	params.SQEntries = roundUpPow2(entries)
	if params.Flags&SetupCQSize != 0 {
		params.CQEntries = roundUpPow2(params.CQEntries)
	} else {
		params.CQEntries = 2 * params.SQEntries
	}
	params.Features = k.features
	k.disabled = params.Flags&SetupRDisabled != 0
	k.params = *params

	params.SQOffsets = SQRingOffsets{
		Head:        fakeSQHead,
		Tail:        fakeSQTail,
		RingMask:    fakeSQMask,
		RingEntries: fakeSQEntries,
		Flags:       fakeSQFlags,
		Dropped:     fakeSQDropped,
		Array:       uint32(fakeCQEs + uintptr(params.CQEntries)*k.cqeSlot()),
	}
	params.CQOffsets = CQRingOffsets{
		Head:        fakeCQHead,
		Tail:        fakeCQTail,
		RingMask:    fakeCQMask,
		RingEntries: fakeCQEntries,
		Overflow:    fakeCQOver,
		CQEs:        fakeCQEs,
		Flags:       fakeCQFlags,
	}
	k.params = *params
	return fakeRingFD, nil
}

func (k *fakeKernel) Mmap(fd int, offset int64, length int) ([]byte, error) {
	k.events = append(k.events, fmt.Sprintf("mmap:%#x", offset))
	if fd != fakeRingFD {
		return nil, syscall.EBADF
	}
	if err := k.mmapErr[offset]; err != nil {
		return nil, err
	}

	words := make([]uint64, (length+7)/8)
	region := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), length)
	switch offset {
	case SQRingOffset:
		*k.u32(region, fakeSQMask) = k.params.SQEntries - 1
		*k.u32(region, fakeSQEntries) = k.params.SQEntries
		if k.features&FeatureSingleMMap != 0 {
			*k.u32(region, fakeCQMask) = k.params.CQEntries - 1
			*k.u32(region, fakeCQEntries) = k.params.CQEntries
		}
	case CQRingOffset:
		*k.u32(region, fakeCQMask) = k.params.CQEntries - 1
		*k.u32(region, fakeCQEntries) = k.params.CQEntries
	}
	k.regions[offset] = region
	k.live[&region[0]] = true
	return region, nil
}

func (k *fakeKernel) Munmap(region []byte) error {
	k.events = append(k.events, "munmap")
	if len(region) == 0 || !k.live[&region[0]] {
		return syscall.EINVAL
	}
	delete(k.live, &region[0])
	return nil
}

func (k *fakeKernel) Close(fd int) error {
	k.events = append(k.events, "close")
	k.closed[fd]++
	if k.closed[fd] > 1 {
		return syscall.EBADF
	}
	return nil
}

func (k *fakeKernel) checkFD(fd int, registered bool) error {
	if registered {
		if fd < 0 || !k.registered[uint32(fd)] {
			return syscall.EBADF
		}
		return nil
	}
	if fd != fakeRingFD || k.closed[fd] > 0 {
		return syscall.EBADF
	}
	return nil
}

func (k *fakeKernel) Enter(fd int, toSubmit uint32, minComplete uint32, flags EnterFlag, _ unsafe.Pointer, argSize uintptr) (uint, error) {
	k.enters = append(k.enters, fakeEnter{fd: fd, toSubmit: toSubmit, minComplete: minComplete, flags: flags, argSize: argSize})
	if err := k.checkFD(fd, flags&EnterRegisteredRing != 0); err != nil {
		return 0, err
	}
	if k.disabled {
		return 0, syscall.EBADFD
	}
	if k.enterErr != nil {
		return 0, k.enterErr
	}
	if k.manual {
		return 0, nil
	}
	return uint(k.process()), nil
}

func (k *fakeKernel) Register(fd int, opCode RegisterOpCode, arg unsafe.Pointer, nrArgs uint32) (uint, error) {
	useRegistered := opCode&RegisterOpCodeRegisterUseRegisteredRing != 0
	opCode &^= RegisterOpCodeRegisterUseRegisteredRing
	k.events = append(k.events, fmt.Sprintf("register:%d", opCode))
	if err := k.checkFD(fd, useRegistered); err != nil {
		return 0, err
	}

	switch opCode {
	case RegisterOpCodeRegisterRingFDs:
		update := (*RsrcUpdate)(arg)
		if nrArgs != 1 || update.Offset != registerOffsetAuto || update.Data != fakeRingFD {
			return 0, syscall.EINVAL
		}
		update.Offset = k.nextIndex
		k.registered[k.nextIndex] = true
		k.nextIndex++
		if k.regCount != 0 {
			return k.regCount, nil
		}
		return 1, nil
	case RegisterOpCodeUnregisterRingFDs:
		update := (*RsrcUpdate)(arg)
		if nrArgs != 1 || !k.registered[update.Offset] {
			return 0, syscall.EINVAL
		}
		delete(k.registered, update.Offset)
		return 1, nil
	case RegisterOpCodeRegisterFiles:
		k.files = append([]int32(nil), unsafe.Slice((*int32)(arg), nrArgs)...)
		return 0, nil
	case RegisterOpCodeUnregisterFiles:
		if k.files == nil {
			return 0, syscall.ENXIO
		}
		k.files = nil
		return 0, nil
	case RegisterOpCodeRegisterBuffers:
		k.buffers = append([]iovec(nil), unsafe.Slice((*iovec)(arg), nrArgs)...)
		return 0, nil
	case RegisterOpCodeRegisterEnableRings:
		if !k.disabled {
			return 0, syscall.EBADFD
		}
		k.disabled = false
		return 0, nil
	case RegisterOpCodeUnregisterBuffers:
		if k.buffers == nil {
			return 0, syscall.ENXIO
		}
		k.buffers = nil
		return 0, nil
	}
	return 0, syscall.EINVAL
}

func (k *fakeKernel) u32(region []byte, off uintptr) *uint32 {
	return (*uint32)(unsafe.Pointer(&region[off]))
}

func (k *fakeKernel) sqRing() []byte {
	return k.regions[SQRingOffset]
}

func (k *fakeKernel) cqRing() []byte {
	if k.features&FeatureSingleMMap != 0 {
		return k.regions[SQRingOffset]
	}
	return k.regions[CQRingOffset]
}

func (k *fakeKernel) setSQFlags(flags SQStatus) {
	atomic.StoreUint32(k.u32(k.sqRing(), fakeSQFlags), uint32(flags))
}

func (k *fakeKernel) sqHead() uint32 {
	return atomic.LoadUint32(k.u32(k.sqRing(), fakeSQHead))
}

func (k *fakeKernel) sqTail() uint32 {
	return atomic.LoadUint32(k.u32(k.sqRing(), fakeSQTail))
}

func (k *fakeKernel) cqHead() uint32 {
	return atomic.LoadUint32(k.u32(k.cqRing(), fakeCQHead))
}

func (k *fakeKernel) cqTail() uint32 {
	return atomic.LoadUint32(k.u32(k.cqRing(), fakeCQTail))
}

// consumeSQ moves the kernel's submission head forward by n without
// processing the entries.
func (k *fakeKernel) consumeSQ(n uint32) {
	atomic.AddUint32(k.u32(k.sqRing(), fakeSQHead), n)
}

// process consumes every published submission and posts its completions.
func (k *fakeKernel) process() uint32 {
	sq := k.sqRing()
	mask := k.params.SQEntries - 1
	head := k.sqHead()
	tail := k.sqTail()
	sqes := k.regions[SQEntriesOffset]

	consumed := uint32(0)
	for head != tail {
		index := head & mask
		if k.params.Flags&SetupNoSQArray == 0 {
			index = *k.u32(sq, uintptr(k.params.SQOffsets.Array)+uintptr(head&mask)*4)
		}
		sqe := (*SQEntry)(unsafe.Pointer(&sqes[uintptr(index)*k.sqeSlot()]))
		head++
		if k.params.Flags&SetupSQEMixed != 0 && sqe.OpCode.Wide() {
			head++
		}
		consumed++

		if sqe.Flags&SQECQESkipSuccess != 0 {
			continue
		}
		res := int32(0)
		var big *[2]uint64
		switch sqe.OpCode {
		case OpCodeNOP, OpCodeNOP128:
			flags := NopFlag(sqe.OpFlags)
			if flags&NopInjectResult != 0 {
				res = int32(sqe.Length)
			}
			if flags&NopCQE32 != 0 {
				big = &[2]uint64{sqe.Offset, sqe.Address}
			}
		case OpCodeAsyncCancel:
			res = -int32(syscall.ENOENT)
		default:
			res = int32(sqe.Length)
		}
		k.post(sqe.UserData, res, big)
	}
	atomic.StoreUint32(k.u32(sq, fakeSQHead), head)
	return consumed
}

// post writes one completion, padding a mixed ring when a wide completion
// would straddle its end.
func (k *fakeKernel) post(userData uint64, res int32, big *[2]uint64) {
	cq := k.cqRing()
	mask := k.params.CQEntries - 1
	tail := k.cqTail()
	head := k.cqHead()
	mixed := k.params.Flags&SetupCQEMixed != 0
	wide := mixed && big != nil

	need := uint32(1)
	if wide {
		need = 2
		if tail&mask == mask {
			need = 3
		}
	}
	if k.params.CQEntries-(tail-head) < need {
		atomic.AddUint32(k.u32(cq, fakeCQOver), 1)
		atomic.StoreUint32(k.u32(k.sqRing(), fakeSQFlags), atomic.LoadUint32(k.u32(k.sqRing(), fakeSQFlags))|uint32(SQStatusCQOverflow))
		return
	}

	at := func(index uint32) unsafe.Pointer {
		return unsafe.Pointer(&cq[fakeCQEs+uintptr(index&mask)*k.cqeSlot()])
	}
	if wide && tail&mask == mask {
		*(*CQEvent)(at(tail)) = CQEvent{Flags: CQEFSkip}
		tail++
	}

	switch {
	case wide:
		*(*CQEvent32)(at(tail)) = CQEvent32{
			CQEvent: CQEvent{UserData: userData, Res: res, Flags: CQEF32},
			BigCQE:  *big,
		}
		tail += 2
	case k.params.Flags&SetupCQE32 != 0:
		cqe := CQEvent32{CQEvent: CQEvent{UserData: userData, Res: res}}
		if big != nil {
			cqe.BigCQE = *big
		}
		*(*CQEvent32)(at(tail)) = cqe
		tail++
	default:
		*(*CQEvent)(at(tail)) = CQEvent{UserData: userData, Res: res}
		tail++
	}
	atomic.StoreUint32(k.u32(cq, fakeCQTail), tail)
}

func (k *fakeKernel) liveMappings() int {
	return len(k.live)
}

func newTestRing(t testing.TB, k *fakeKernel, entries uint32, mode Mode, opts ...Option) *Ring {
	opts = append([]Option{WithSystem(k), WithLogger(zerolog.Nop())}, opts...)
	ring, err := Setup(entries, mode, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ring.Close()
	})
	return ring
}

func newSubmitter(t testing.TB, ring *Ring) *Submitter {
	s, err := ring.Submitter()
	require.NoError(t, err)
	return s
}

func newCollector(t testing.TB, ring *Ring) *Collector {
	c, err := ring.Collector()
	require.NoError(t, err)
	return c
}
