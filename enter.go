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
	"runtime"
	"unsafe"

	"github.com/brickingsoft/errors"

	"github.com/loopholelabs/uringio/internal/logging"
)

// Enterer issues io_uring_enter and io_uring_register calls for a ring. Once
// the ring fd is registered, both go through the registered index instead of
// the fd.
type Enterer struct {
	sys      System
	fd       int
	enterFD  int
	flags    EnterFlag
	features Feature
	mode     Mode
	metrics  *Metrics
	log      *logging.Logger
}

func newEnterer(sys System, fd int, features Feature, mode Mode, metrics *Metrics, log *logging.Logger) *Enterer {
	return &Enterer{
		sys:      sys,
		fd:       fd,
		enterFD:  fd,
		features: features,
		mode:     mode,
		metrics:  metrics,
		log:      log.WithComponent("enter"),
	}
}

// Enter is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/arch/generic/syscall.h
//
// The handler's own flags are added to flags. Kernel errors are returned as
// is.
func (e *Enterer) Enter(toSubmit uint32, minComplete uint32, flags EnterFlag) (uint, error) {
	return e.enter(toSubmit, minComplete, flags, 0)
}

func (e *Enterer) enter(toSubmit uint32, minComplete uint32, flags EnterFlag, status SQStatus) (uint, error) {
	flags |= e.flags
	n, err := e.sys.Enter(e.enterFD, toSubmit, minComplete, flags, nil, _NSIG/8)
	e.metrics.recordEnter(flags, status, err)
	return n, err
}

// Submit publishes everything staged in s and, if the mode requires it,
// enters the kernel. It returns the number of entries the kernel took, or for
// SQPoll without an enter, the number left for the submission thread.
func (e *Enterer) Submit(s *Submitter, minComplete uint32) (uint, error) {
	s.Update()
	flags := e.mode.enterFlags(s.queue, minComplete)
	if flags == 0 {
		return uint(s.Len()), nil
	}
	return e.enter(s.Len(), minComplete, flags, s.queue.Flags())
}

// GetEvents flushes pending completions into the completion ring.
func (e *Enterer) GetEvents() (uint, error) {
	return e.Enter(0, 0, EnterGetEvents)
}

// Wait blocks until at least minComplete completions are available.
func (e *Enterer) Wait(minComplete uint32) (uint, error) {
	return e.Enter(0, minComplete, EnterGetEvents)
}

// SQWait blocks until the submission ring has a free slot.
func (e *Enterer) SQWait() (uint, error) {
	return e.Enter(0, 0, EnterSQWait)
}

// Registered reports whether the ring fd is registered.
func (e *Enterer) Registered() bool {
	return e.flags&EnterRegisteredRing != 0
}

// RegisteredIndex returns the registered ring index, or -1.
func (e *Enterer) RegisteredIndex() int {
	if !e.Registered() {
		return -1
	}
	return e.enterFD
}

// RegisterRingFD is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/register.c
func (e *Enterer) RegisterRingFD() error {
	if e.features&FeatureRegRegRing == 0 {
		return featureMissing("reg_reg_ring")
	}
	if e.Registered() {
		return ErrRingFDRegistered
	}

	update := RsrcUpdate{Offset: registerOffsetAuto, Data: uint64(e.fd)}
	n, err := e.sys.Register(e.fd, RegisterOpCodeRegisterRingFDs, unsafe.Pointer(&update), 1)
	runtime.KeepAlive(&update)
	if err != nil {
		return err
	}
	if n != 1 {
		return errors.From(
			ErrUnexpectedRegisterCount,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpRegister),
		)
	}

	e.enterFD = int(update.Offset)
	e.flags |= EnterRegisteredRing
	e.metrics.recordRegistration()
	e.log.Debug("registered ring fd", "index", e.enterFD)
	return nil
}

// UnregisterRingFD is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/register.c
func (e *Enterer) UnregisterRingFD() error {
	if !e.Registered() {
		return ErrRingFDNotRegistered
	}

	update := RsrcUpdate{Offset: uint32(e.enterFD)}
	n, err := e.sys.Register(e.fd, RegisterOpCodeUnregisterRingFDs, unsafe.Pointer(&update), 1)
	runtime.KeepAlive(&update)
	if err != nil {
		return err
	}
	if n != 1 {
		return errors.From(
			ErrUnexpectedRegisterCount,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpUnregister),
		)
	}

	e.enterFD = e.fd
	e.flags &^= EnterRegisteredRing
	return nil
}

// register is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/register.c
func (e *Enterer) register(opCode RegisterOpCode, arg unsafe.Pointer, nrArgs uint32) (uint, error) {
	fd := e.fd
	if e.Registered() {
		fd = e.enterFD
		opCode |= RegisterOpCodeRegisterUseRegisteredRing
	}
	return e.sys.Register(fd, opCode, arg, nrArgs)
}

// close unregisters the ring fd if needed. Failures are logged, not returned.
func (e *Enterer) close() {
	if !e.Registered() {
		return
	}
	if err := e.UnregisterRingFD(); err != nil {
		e.log.WithError(err).Warn("failed to unregister ring fd", "index", e.enterFD)
	}
}
