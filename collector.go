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

import "iter"

// Completion is a view of one completion slot. It is valid until the
// collector that returned it publishes its head.
type Completion struct {
	*CQEvent
	big *[2]uint64
}

// BigCQE returns the extra completion words of a wide completion.
func (c Completion) BigCQE() ([2]uint64, bool) {
	if c.big == nil {
		return [2]uint64{}, false
	}
	return *c.big, true
}

// Wide reports whether the completion occupies a 32-byte entry.
func (c Completion) Wide() bool {
	return c.big != nil
}

// Collector is a consumer session over a CompletionQueue. Slots it returns
// are handed back to the kernel only on UpdateHead, Update or Release.
//
// A ring supports a single consumer: at most one Collector may be in use at a
// time, and it should be released when discarded.
type Collector struct {
	queue   *CompletionQueue
	metrics *Metrics
	head    uint32
	tail    uint32
}

// NewCollector opens a session over queue.
func NewCollector(queue *CompletionQueue, metrics *Metrics) *Collector {
	return &Collector{
		queue:   queue,
		metrics: metrics,
		head:    queue.Head(),
		tail:    queue.Tail(),
	}
}

// Len returns the number of unread slots as of the last tail refresh.
func (c *Collector) Len() uint32 {
	return c.tail - c.head
}

// Next returns the next unread completion, or false when the session has
// caught up with the tail it last observed.
func (c *Collector) Next() (Completion, bool) {
	for c.head != c.tail {
		index := c.head
		switch c.queue.size {
		case CQE32:
			c.head++
			cqe := c.queue.Event32(index)
			return Completion{CQEvent: &cqe.CQEvent, big: &cqe.BigCQE}, true
		case CQEMixed:
			cqe := c.queue.Event(index)
			if cqe.Flags&CQEFSkip != 0 {
				c.head++
				continue
			}
			if cqe.Flags&CQEF32 != 0 {
				c.head += 2
				wide := c.queue.Event32(index)
				return Completion{CQEvent: &wide.CQEvent, big: &wide.BigCQE}, true
			}
			c.head++
			return Completion{CQEvent: cqe}, true
		default:
			c.head++
			return Completion{CQEvent: c.queue.Event(index)}, true
		}
	}
	return Completion{}, false
}

// All iterates over the unread completions.
func (c *Collector) All() iter.Seq[Completion] {
	return func(yield func(Completion) bool) {
		for {
			cqe, ok := c.Next()
			if !ok || !yield(cqe) {
				return
			}
		}
	}
}

// UpdateHead hands every read slot back to the kernel.
func (c *Collector) UpdateHead() {
	published := c.queue.Head()
	if published == c.head {
		return
	}
	c.queue.setHead(c.head)
	c.metrics.recordReaped(c.head - published)
}

// UpdateTail observes completions posted since the last refresh.
func (c *Collector) UpdateTail() {
	tail := c.queue.Tail()
	if tail-c.head > c.queue.entries {
		panic("uringio: completion ring tail moved past capacity")
	}
	c.tail = tail
}

// Update publishes head, then refreshes tail.
func (c *Collector) Update() {
	c.UpdateHead()
	c.UpdateTail()
}

// Release publishes head. The collector must not be used afterwards.
func (c *Collector) Release() {
	c.UpdateHead()
}
