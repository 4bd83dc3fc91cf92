//go:build linux

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
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopholelabs/uringio/pkg/buffer"
)

// requireKernel skips the test unless the kernel lets this process create a
// ring in mode. Containers often block io_uring even on supporting kernels.
func requireKernel(t *testing.T, mode Mode) {
	t.Helper()
	if !Available() {
		t.Skip("io_uring is not implemented by this kernel")
	}
	params := Params{Flags: mode.SetupFlags()}
	fd, err := Linux.Setup(8, &params)
	if err != nil {
		t.Skipf("io_uring setup is not permitted: %v", err)
	}
	_ = Linux.Close(fd)
}

func newLinuxRing(t *testing.T, entries uint32, mode Mode, opts ...Option) *Ring {
	t.Helper()
	requireKernel(t, mode)
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	ring, err := Setup(entries, mode, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, ring.Close())
	})
	return ring
}

func reap(t *testing.T, ring *Ring, want int) map[uint64]int32 {
	t.Helper()
	results := make(map[uint64]int32, want)
	c := newCollector(t, ring)
	for len(results) < want {
		c.UpdateTail()
		for cqe := range c.All() {
			results[cqe.UserData] = cqe.Res
		}
		c.UpdateHead()
		if len(results) < want {
			_, err := ring.Enterer().Wait(1)
			require.NoError(t, err)
		}
	}
	c.Release()
	return results
}

func TestLinuxSQPollNop(t *testing.T) {
	ring := newLinuxRing(t, 8, SQPoll, WithSQThreadIdle(DefaultSQThreadIdle))
	s := newSubmitter(t, ring)

	for i := uint64(1); i <= 4; i++ {
		nop := NewNop(i)
		require.NoError(t, PushOp(s, &nop))
	}
	_, err := ring.Submit(s, 4)
	require.NoError(t, err)

	results := reap(t, ring, 4)
	for i := uint64(1); i <= 4; i++ {
		assert.Zero(t, results[i])
	}
}

func TestLinuxIOPollNop(t *testing.T) {
	ring := newLinuxRing(t, 128, IOPoll)
	assert.EqualValues(t, 128, ring.SQ().Capacity())
	s := newSubmitter(t, ring)

	nop := NewNop(0x77)
	require.NoError(t, PushOp(s, &nop))
	n, err := ring.Submit(s, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	results := reap(t, ring, 1)
	require.Len(t, results, 1)
	assert.Zero(t, results[0x77])
}

func TestLinuxIOPollPreset(t *testing.T) {
	requireKernel(t, IOPoll)
	ring, err := Setup(8, IOPoll, append(Preset(IOPoll), WithLogger(zerolog.Nop()))...)
	if err != nil {
		t.Skipf("kernel does not support the iopoll preset flags: %v", err)
	}
	t.Cleanup(func() { assert.NoError(t, ring.Close()) })

	s := newSubmitter(t, ring)
	nop := NewNop(1)
	require.NoError(t, PushOp(s, &nop))
	_, err = ring.Submit(s, 1)
	require.NoError(t, err)
	assert.Len(t, reap(t, ring, 1), 1)
}

func TestLinuxEnableRings(t *testing.T) {
	ring := newLinuxRing(t, 8, SQPoll, WithRDisabled())
	require.NoError(t, ring.EnableRings())

	s := newSubmitter(t, ring)
	nop := NewNop(3)
	require.NoError(t, PushOp(s, &nop))
	_, err := ring.Submit(s, 1)
	require.NoError(t, err)
	assert.Zero(t, reap(t, ring, 1)[3])
}

func TestLinuxRead(t *testing.T) {
	ring := newLinuxRing(t, 8, SQPoll)

	payload := []byte("completion rings are shared memory")
	path := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(path, payload, 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	buf, err := buffer.NewFixed(int64(len(payload)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = buf.Close() })

	s := newSubmitter(t, ring)
	read := NewRead(FD(f.Fd()), buf, 0, 7)
	require.NoError(t, PushOp(s, &read))
	_, err = ring.Submit(s, 1)
	require.NoError(t, err)

	results := reap(t, ring, 1)
	require.EqualValues(t, len(payload), results[7])
	require.NoError(t, buf.Commit(len(payload)))
	assert.Equal(t, payload, buf.Bytes())
}

func TestLinuxRegisteredRing(t *testing.T) {
	ring := newLinuxRing(t, 8, SQPoll)
	if ring.Features()&FeatureRegRegRing == 0 {
		t.Skip("kernel cannot register ring fds")
	}

	require.NoError(t, ring.RegisterRingFD())
	assert.GreaterOrEqual(t, ring.Enterer().RegisteredIndex(), 0)

	s := newSubmitter(t, ring)
	nop := NewNop(11)
	require.NoError(t, PushOp(s, &nop))
	_, err := ring.Submit(s, 1)
	require.NoError(t, err)

	results := reap(t, ring, 1)
	assert.Zero(t, results[11])
}

func TestLinuxCapacity(t *testing.T) {
	ring := newLinuxRing(t, 4, SQPoll)
	s := newSubmitter(t, ring)

	for i := uint32(0); i < s.Capacity(); i++ {
		nop := NewNop(uint64(i))
		require.NoError(t, PushOp(s, &nop))
	}
	nop := NewNop(100)
	assert.ErrorIs(t, PushOp(s, &nop), ErrCapacityExceeded)
}
