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
	"time"

	"github.com/brickingsoft/errors"
	"github.com/rs/zerolog"

	"github.com/loopholelabs/uringio/internal/logging"
)

const (
	MaxEntries     = 32768
	DefaultEntries = 128
)

type Options struct {
	SQE          SQESize
	CQE          CQESize
	Flags        SetupFlag
	CQEntries    uint32
	SQThreadIdle time.Duration
	SQThreadCPU  uint32
	WQFD         uint32
	System       System
	Logger       *logging.Logger
	Metrics      *Metrics
}

type Option func(*Options) error

// WithSQE selects the submission entry width.
func WithSQE(size SQESize) Option {
	return func(o *Options) error {
		if size > SQEMixed {
			return invalidSetup("unknown submission entry width")
		}
		o.SQE = size
		return nil
	}
}

// WithCQE selects the completion entry width.
func WithCQE(size CQESize) Option {
	return func(o *Options) error {
		if size > CQEMixed {
			return invalidSetup("unknown completion entry width")
		}
		o.CQE = size
		return nil
	}
}

// WithCQSize sizes the completion ring independently of the submission ring.
func WithCQSize(entries uint32) Option {
	return func(o *Options) error {
		if entries == 0 {
			return invalidSetup("cq size must be positive")
		}
		o.CQEntries = entries
		o.Flags |= SetupCQSize
		return nil
	}
}

// WithFlags
// see https://manpages.debian.org/unstable/liburing-dev/io_uring_setup.2.en.html
func WithFlags(flags SetupFlag) Option {
	return func(o *Options) error {
		o.Flags |= flags
		return nil
	}
}

func WithClamp() Option {
	return WithFlags(SetupClamp)
}

// WithRDisabled creates the ring disabled. Ring.EnableRings starts it.
func WithRDisabled() Option {
	return WithFlags(SetupRDisabled)
}

func WithSubmitAll() Option {
	return WithFlags(SetupSubmitAll)
}

func WithCoopTaskRun() Option {
	return WithFlags(SetupCoopTaskRun)
}

func WithTaskRunFlag() Option {
	return WithFlags(SetupTaskRunFlag)
}

func WithSingleIssuer() Option {
	return WithFlags(SetupSingleIssuer)
}

func WithDeferTaskRun() Option {
	return WithFlags(SetupDeferTaskRun)
}

func WithNoSQArray() Option {
	return WithFlags(SetupNoSQArray)
}

func WithHybridIOPoll() Option {
	return WithFlags(SetupHybridIOPoll)
}

// WithSQThreadIdle sets how long the SQPoll thread spins before sleeping.
// The kernel counts in milliseconds.
func WithSQThreadIdle(idle time.Duration) Option {
	return func(o *Options) error {
		if idle < 0 {
			return invalidSetup("sq thread idle must not be negative")
		}
		o.SQThreadIdle = idle
		return nil
	}
}

// WithSQThreadCPU pins the SQPoll thread to cpu.
func WithSQThreadCPU(cpu uint32) Option {
	return func(o *Options) error {
		o.SQThreadCPU = cpu
		o.Flags |= SetupSQAff
		return nil
	}
}

// WithAttachWQ shares the async worker pool of the ring at fd.
func WithAttachWQ(fd uint32) Option {
	return func(o *Options) error {
		if fd == 0 {
			return invalidSetup("invalid wq fd")
		}
		o.WQFD = fd
		o.Flags |= SetupAttachWQ
		return nil
	}
}

// WithSystem replaces the kernel interface, which is Linux by default.
func WithSystem(sys System) Option {
	return func(o *Options) error {
		o.System = sys
		return nil
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) error {
		o.Logger = logging.FromZerolog(logger)
		return nil
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(o *Options) error {
		o.Metrics = metrics
		return nil
	}
}

func newOptions(opts []Option) (*Options, error) {
	o := &Options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.System == nil {
		o.System = Linux
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	if o.Metrics == nil {
		o.Metrics = NewMetrics()
	}
	return o, nil
}

// params validates the options for mode and builds the setup parameters.
func (o *Options) params(entries uint32, mode Mode) (Params, error) {
	if entries == 0 || entries > MaxEntries {
		return Params{}, errors.From(
			ErrInvalidEntries,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpValidate),
		)
	}

	flags := o.Flags | mode.SetupFlags() | o.SQE.SetupFlag() | o.CQE.SetupFlag()
	switch {
	case flags&(SetupIOPoll|SetupSQPoll) == SetupIOPoll|SetupSQPoll:
		return Params{}, invalidSetup("iopoll and sqpoll are exclusive modes")
	case flags&(SetupNoMMap|SetupRegisteredFDOnly) != 0:
		return Params{}, invalidSetup("rings without mmap are not supported")
	case flags&SetupSQAff != 0 && flags&SetupSQPoll == 0:
		return Params{}, invalidSetup("sq affinity requires sqpoll")
	case flags&SetupHybridIOPoll != 0 && flags&SetupIOPoll == 0:
		return Params{}, invalidSetup("hybrid iopoll requires iopoll")
	case flags&SetupDeferTaskRun != 0 && flags&SetupSingleIssuer == 0:
		return Params{}, invalidSetup("defer taskrun requires single issuer")
	case flags&SetupSQPoll != 0 && flags&(SetupCoopTaskRun|SetupTaskRunFlag|SetupDeferTaskRun) != 0:
		return Params{}, invalidSetup("task run flags are incompatible with sqpoll")
	case flags&SetupTaskRunFlag != 0 && flags&(SetupCoopTaskRun|SetupDeferTaskRun) == 0:
		return Params{}, invalidSetup("taskrun flag requires coop or defer taskrun")
	case flags&SetupCQSize != 0 && o.CQEntries == 0:
		return Params{}, invalidSetup("cq size requires cq entries")
	}

	return Params{
		CQEntries:    o.CQEntries,
		Flags:        flags,
		SQThreadCPU:  o.SQThreadCPU,
		SQThreadIdle: uint32(o.SQThreadIdle.Milliseconds()),
		WQFD:         o.WQFD,
	}, nil
}
