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
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.recordPublished(3)
	m.recordPublished(0)
	m.recordCapacityRejection()
	m.recordReaped(2)
	m.recordEnter(EnterSQWakeup, 0, nil)
	m.recordEnter(EnterGetEvents, SQStatusCQOverflow, syscall.EINTR)
	m.recordEnter(EnterGetEvents, 0, nil)
	m.recordRegistration()

	snap := m.Snapshot()
	assert.EqualValues(t, 3, snap.Published)
	assert.EqualValues(t, 1, snap.CapacityRejections)
	assert.EqualValues(t, 2, snap.Reaped)
	assert.EqualValues(t, 3, snap.Enters)
	assert.EqualValues(t, 1, snap.EnterErrors)
	assert.EqualValues(t, 1, snap.Wakeups)
	assert.EqualValues(t, 1, snap.OverflowFlushes)
	assert.EqualValues(t, 1, snap.Registrations)

	m.Reset()
	snap = m.Snapshot()
	snap.Uptime = 0
	assert.Equal(t, MetricsSnapshot{}, snap)
}

func TestMetricsNil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.recordPublished(1)
		m.recordCapacityRejection()
		m.recordReaped(1)
		m.recordEnter(EnterGetEvents, 0, nil)
		m.recordRegistration()
	})
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}
