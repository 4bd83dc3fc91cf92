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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionQueueIdentityArray(t *testing.T) {
	k := newFakeKernel(t)
	ring := newTestRing(t, k, 16, IOPoll)

	sq := ring.SQ()
	require.Len(t, sq.array, 16)
	for i, v := range sq.array {
		assert.EqualValues(t, i, v)
	}
	assert.EqualValues(t, 16, sq.Capacity())
	assert.EqualValues(t, 15, sq.Mask())
	assert.Equal(t, SQE64, sq.Size())
	assert.Zero(t, sq.Dropped())
	assert.Zero(t, sq.Flags())
}

func TestSubmissionQueueNoArray(t *testing.T) {
	k := newFakeKernel(t)
	ring := newTestRing(t, k, 8, IOPoll, WithNoSQArray())
	assert.Nil(t, ring.SQ().array)
}

func TestSubmissionQueueSlotAddressing(t *testing.T) {
	k := newFakeKernel(t)
	ring := newTestRing(t, k, 4, IOPoll, WithSQE(SQE128))
	sq := ring.SQ()

	assert.Same(t, sq.Entry(1), sq.Entry(5))
	assert.Same(t, &sq.Entry128(2).SQEntry, sq.Entry(2))
	assert.Same(t, &sq.sqes[128], (*byte)(ptrOf(sq.Entry(1))))
}

func TestCompletionQueueAccessors(t *testing.T) {
	k := newFakeKernel(t)
	ring := newTestRing(t, k, 4, IOPoll, WithCQE(CQE32), WithCQSize(16))
	cq := ring.CQ()

	assert.EqualValues(t, 16, cq.Capacity())
	assert.EqualValues(t, 15, cq.Mask())
	assert.Equal(t, CQE32, cq.Size())
	assert.Zero(t, cq.Overflow())
	assert.Zero(t, cq.Flags())
	assert.Same(t, &cq.Event32(3).CQEvent, cq.Event(19))
}

func TestQueueGeometryValidation(t *testing.T) {
	k := newFakeKernel(t)
	params := setupFakeParams(t, k, 8)
	arena, err := NewArena(k, fakeRingFD, params, SQE64, CQE16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = arena.Close() })

	*k.u32(arena.SQ(), fakeSQMask) = 5
	_, err = newSubmissionQueue(arena, params, SQE64)
	assert.Error(t, err)
	*k.u32(arena.SQ(), fakeSQMask) = 7

	_, err = newSubmissionQueue(arena, params, SQE128)
	assert.Error(t, err, "sqes region too small for wide entries")

	bad := *params
	bad.SQOffsets.Head = uint32(len(arena.SQ()))
	_, err = newSubmissionQueue(arena, &bad, SQE64)
	assert.Error(t, err)

	bad = *params
	bad.CQOffsets.Tail = 3
	_, err = newCompletionQueue(arena, &bad, CQE16)
	assert.Error(t, err)

	_, err = newCompletionQueue(arena, params, CQE32)
	assert.Error(t, err, "cqes out of range for wide entries")

	sq, err := newSubmissionQueue(arena, params, SQE64)
	require.NoError(t, err)
	assert.EqualValues(t, 8, sq.Capacity())
	cq, err := newCompletionQueue(arena, params, CQE16)
	require.NoError(t, err)
	assert.EqualValues(t, 16, cq.Capacity())
}
