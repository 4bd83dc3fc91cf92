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
	"time"
)

// Metrics tracks ring activity. All counters are safe for concurrent use, and
// a nil *Metrics discards every record.
type Metrics struct {
	// Submission side
	Published          atomic.Uint64 // Entries made visible to the kernel
	CapacityRejections atomic.Uint64 // Pushes refused on a full ring

	// Completion side
	Reaped atomic.Uint64 // Completion slots handed back to the kernel

	// Kernel transitions
	Enters          atomic.Uint64 // io_uring_enter calls
	EnterErrors     atomic.Uint64 // io_uring_enter calls that failed
	Wakeups         atomic.Uint64 // Enters that woke the submission thread
	OverflowFlushes atomic.Uint64 // Enters issued to flush overflowed completions
	Registrations   atomic.Uint64 // Successful ring fd registrations

	StartTime atomic.Int64 // Ring start timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) recordPublished(n uint32) {
	if m != nil && n > 0 {
		m.Published.Add(uint64(n))
	}
}

func (m *Metrics) recordCapacityRejection() {
	if m != nil {
		m.CapacityRejections.Add(1)
	}
}

func (m *Metrics) recordReaped(n uint32) {
	if m != nil && n > 0 {
		m.Reaped.Add(uint64(n))
	}
}

func (m *Metrics) recordEnter(flags EnterFlag, status SQStatus, err error) {
	if m == nil {
		return
	}
	m.Enters.Add(1)
	if err != nil {
		m.EnterErrors.Add(1)
	}
	if flags&EnterSQWakeup != 0 {
		m.Wakeups.Add(1)
	}
	if flags&EnterGetEvents != 0 && status&SQStatusCQOverflow != 0 {
		m.OverflowFlushes.Add(1)
	}
}

func (m *Metrics) recordRegistration() {
	if m != nil {
		m.Registrations.Add(1)
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Published          uint64
	CapacityRejections uint64
	Reaped             uint64
	Enters             uint64
	EnterErrors        uint64
	Wakeups            uint64
	OverflowFlushes    uint64
	Registrations      uint64
	Uptime             time.Duration
}

// Snapshot returns a copy of the current counters
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	snap := MetricsSnapshot{
		Published:          m.Published.Load(),
		CapacityRejections: m.CapacityRejections.Load(),
		Reaped:             m.Reaped.Load(),
		Enters:             m.Enters.Load(),
		EnterErrors:        m.EnterErrors.Load(),
		Wakeups:            m.Wakeups.Load(),
		OverflowFlushes:    m.OverflowFlushes.Load(),
		Registrations:      m.Registrations.Load(),
	}
	if start := m.StartTime.Load(); start > 0 {
		snap.Uptime = time.Duration(time.Now().UnixNano() - start)
	}
	return snap
}

// Reset zeroes every counter and restarts the uptime clock
func (m *Metrics) Reset() {
	m.Published.Store(0)
	m.CapacityRejections.Store(0)
	m.Reaped.Store(0)
	m.Enters.Store(0)
	m.EnterErrors.Store(0)
	m.Wakeups.Store(0)
	m.OverflowFlushes.Store(0)
	m.Registrations.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
}
