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

// Submitter is a producer session over a SubmissionQueue. It stages entries
// against local copies of head and tail, and makes them visible to the kernel
// only on UpdateTail or Update.
//
// A ring supports a single producer: at most one Submitter may be in use at a
// time.
type Submitter struct {
	queue   *SubmissionQueue
	mode    Mode
	metrics *Metrics
	head    uint32
	tail    uint32
}

// NewSubmitter opens a session over queue. Tail stores follow mode.
func NewSubmitter(queue *SubmissionQueue, mode Mode, metrics *Metrics) *Submitter {
	return &Submitter{
		queue:   queue,
		mode:    mode,
		metrics: metrics,
		head:    queue.Head(),
		tail:    queue.Tail(),
	}
}

// Len returns the number of staged or published entries the kernel has not
// consumed yet, as of the last head refresh.
func (s *Submitter) Len() uint32 {
	return s.tail - s.head
}

// Capacity returns the number of slots in the ring.
func (s *Submitter) Capacity() uint32 {
	return s.queue.entries
}

// IsFull reports whether a narrow push would fail.
func (s *Submitter) IsFull() bool {
	return s.Len() >= s.queue.entries
}

// Pending returns the number of staged entries not yet published.
func (s *Submitter) Pending() uint32 {
	return s.tail - s.queue.Tail()
}

// Push copies entry into the next slot. When the ring is full it returns
// ErrCapacityExceeded and leaves both the ring and entry untouched.
func (s *Submitter) Push(entry *SQEntry) error {
	if s.queue.size == SQEMixed && entry.OpCode.Wide() {
		return ErrEntrySize
	}
	if s.IsFull() {
		s.metrics.recordCapacityRejection()
		return ErrCapacityExceeded
	}

	if s.queue.size == SQE128 {
		wide := s.queue.Entry128(s.tail)
		wide.SQEntry = *entry
		wide.Cmd = [64]byte{}
	} else {
		*s.queue.Entry(s.tail) = *entry
	}
	s.tail++
	return nil
}

// Push128 copies a wide entry into the ring. On a mixed ring the entry takes
// two adjacent slots, and when the tail sits on the last slot a padding NOP
// that posts no completion fills it first.
func (s *Submitter) Push128(entry *SQEntry128) error {
	switch s.queue.size {
	case SQE64:
		return ErrEntrySize
	case SQE128:
		if s.IsFull() {
			s.metrics.recordCapacityRejection()
			return ErrCapacityExceeded
		}
		*s.queue.Entry128(s.tail) = *entry
		s.tail++
		return nil
	}

	if !entry.OpCode.Wide() {
		return ErrEntrySize
	}
	need := uint32(2)
	pad := s.tail&s.queue.mask == s.queue.mask
	if pad {
		need++
	}
	if s.queue.entries-s.Len() < need {
		s.metrics.recordCapacityRejection()
		return ErrCapacityExceeded
	}

	if pad {
		*s.queue.Entry(s.tail) = SQEntry{
			OpCode: OpCodeNOP,
			Flags:  SQECQESkipSuccess,
		}
		s.tail++
	}
	*s.queue.Entry128(s.tail) = *entry
	s.tail += 2
	return nil
}

// UpdateHead refreshes the local head from the kernel.
func (s *Submitter) UpdateHead() {
	head := s.queue.Head()
	if s.tail-head > s.queue.entries {
		panic("uringio: submission ring head moved past tail")
	}
	s.head = head
}

// UpdateTail publishes every staged entry to the kernel.
func (s *Submitter) UpdateTail() {
	published := s.queue.Tail()
	if published == s.tail {
		return
	}
	s.mode.publishTail(s.queue.ktail, s.tail)
	s.metrics.recordPublished(s.tail - published)
}

// Update refreshes head, then publishes tail.
func (s *Submitter) Update() {
	s.UpdateHead()
	s.UpdateTail()
}

// PushOp packs op into the ring with the width it declares. The copy is a
// reinterpretation of op's memory, so T must have exactly the size and
// alignment of that entry; CheckLayout reports whether it does.
func PushOp[T Op](s *Submitter, op *T) error {
	width, err := CheckLayout[T]()
	if err != nil {
		return err
	}
	if width == SQE128 {
		return s.Push128((*SQEntry128)(unsafe.Pointer(op)))
	}
	return s.Push((*SQEntry)(unsafe.Pointer(op)))
}
