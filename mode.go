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

// Mode selects how submissions reach the kernel and how completions are
// reaped. The set of modes is closed: IOPoll and SQPoll.
type Mode interface {
	// SetupFlags returns the setup flags that select the mode.
	SetupFlags() SetupFlag
	String() string

	publishTail(ktail *uint32, tail uint32)
	enterFlags(queue *SubmissionQueue, minComplete uint32) EnterFlag
	preset() []Option
}

var (
	// IOPoll has the kernel busy-poll devices for completions. Submissions
	// are handed over by io_uring_enter, so every submit enters the kernel.
	IOPoll Mode = iopoll{}

	// SQPoll has a kernel thread poll the submission ring. The kernel is
	// entered only to wake that thread, to wait, or to flush overflow.
	SQPoll Mode = sqpoll{}
)

// DefaultSQThreadIdle is the submission thread idle time SQPoll presets use.
const DefaultSQThreadIdle = time.Second

type iopoll struct{}

func (iopoll) SetupFlags() SetupFlag {
	return SetupIOPoll
}

func (iopoll) String() string {
	return "iopoll"
}

// The tail is read by the kernel only inside io_uring_enter, which orders it.
func (iopoll) publishTail(ktail *uint32, tail uint32) {
	*ktail = tail
}

func (iopoll) enterFlags(*SubmissionQueue, uint32) EnterFlag {
	return EnterGetEvents
}

func (iopoll) preset() []Option {
	return []Option{
		WithClamp(),
		WithSubmitAll(),
		WithCoopTaskRun(),
		WithTaskRunFlag(),
		WithSingleIssuer(),
		WithDeferTaskRun(),
		WithHybridIOPoll(),
	}
}

type sqpoll struct{}

func (sqpoll) SetupFlags() SetupFlag {
	return SetupSQPoll
}

func (sqpoll) String() string {
	return "sqpoll"
}

func (sqpoll) publishTail(ktail *uint32, tail uint32) {
	atomic.StoreUint32(ktail, tail)
}

// enterFlags is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/queue.c
//
// The tail store must be visible before the wakeup flag is read, or the
// kernel thread may go idle without seeing the new entries.
func (sqpoll) enterFlags(queue *SubmissionQueue, minComplete uint32) EnterFlag {
	fullBarrier()
	status := queue.Flags()

	var flags EnterFlag
	if status&SQStatusNeedWakeup != 0 {
		flags |= EnterSQWakeup
	}
	if minComplete > 0 || status&SQStatusCQOverflow != 0 {
		flags |= EnterGetEvents
	}
	return flags
}

func (sqpoll) preset() []Option {
	return []Option{
		WithSQThreadIdle(DefaultSQThreadIdle),
		WithClamp(),
		WithSubmitAll(),
		WithSingleIssuer(),
	}
}

// Preset returns the setup options tuned for mode.
func Preset(mode Mode) []Option {
	return mode.preset()
}
