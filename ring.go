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
	"github.com/brickingsoft/errors"

	"github.com/loopholelabs/uringio/internal/logging"
)

// Ring is an io_uring instance: the ring fd, its mapped regions and the
// queues laid over them.
//
// Teardown unregisters the ring fd, then unmaps the regions, then closes the
// fd.
type Ring struct {
	sys     System
	fd      int
	params  Params
	mode    Mode
	arena   *Arena
	sq      *SubmissionQueue
	cq      *CompletionQueue
	enterer *Enterer
	metrics *Metrics
	log     *logging.Logger
	closed  bool
}

// Setup is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/setup.c
//
// It creates a ring with at least entries submission slots, driven by mode.
// Every resource acquired before a failure is released before Setup returns.
func Setup(entries uint32, mode Mode, opts ...Option) (*Ring, error) {
	options, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	params, err := options.params(entries, mode)
	if err != nil {
		return nil, err
	}

	sys := options.System
	log := options.Logger
	log.Debug("setting up ring", "entries", entries, "mode", mode.String(), "flags", uint32(params.Flags))

	fd, err := sys.Setup(entries, &params)
	if err != nil {
		return nil, errors.From(
			ErrSetup,
			errors.WithWrap(err),
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpSetup),
		)
	}
	log = log.WithRing(fd)

	if params.Features&FeatureNoDrop == 0 {
		_ = sys.Close(fd)
		return nil, featureMissing("nodrop")
	}

	arena, err := NewArena(sys, fd, &params, options.SQE, options.CQE)
	if err != nil {
		log.WithError(err).Error("failed to map ring")
		_ = sys.Close(fd)
		return nil, errors.From(
			ErrSetup,
			errors.WithWrap(err),
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpMmap),
		)
	}

	sq, err := newSubmissionQueue(arena, &params, options.SQE)
	var cq *CompletionQueue
	if err == nil {
		cq, err = newCompletionQueue(arena, &params, options.CQE)
	}
	if err != nil {
		log.WithError(err).Error("kernel reported unusable ring offsets")
		_ = arena.Close()
		_ = sys.Close(fd)
		return nil, errors.From(
			ErrSetup,
			errors.WithWrap(err),
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpSetup),
		)
	}

	r := &Ring{
		sys:     sys,
		fd:      fd,
		params:  params,
		mode:    mode,
		arena:   arena,
		sq:      sq,
		cq:      cq,
		enterer: newEnterer(sys, fd, params.Features, mode, options.Metrics, log),
		metrics: options.Metrics,
		log:     log,
	}
	log.Info("ring ready",
		"mode", mode.String(),
		"sq_entries", sq.Capacity(),
		"cq_entries", cq.Capacity(),
		"sqe", options.SQE.String(),
		"cqe", options.CQE.String(),
		"features", uint32(params.Features),
		"single_mmap", arena.Shared(),
	)
	return r, nil
}

// FD returns the ring file descriptor.
func (r *Ring) FD() int {
	return r.fd
}

// Params returns the parameters negotiated with the kernel.
func (r *Ring) Params() Params {
	return r.params
}

// Features returns the kernel feature mask.
func (r *Ring) Features() Feature {
	return r.params.Features
}

func (r *Ring) Mode() Mode {
	return r.mode
}

func (r *Ring) SQ() *SubmissionQueue {
	return r.sq
}

func (r *Ring) CQ() *CompletionQueue {
	return r.cq
}

func (r *Ring) Enterer() *Enterer {
	return r.enterer
}

func (r *Ring) Metrics() *Metrics {
	return r.metrics
}

// Submitter opens a producer session over the submission ring.
func (r *Ring) Submitter() (*Submitter, error) {
	if r.closed {
		return nil, ErrRingClosed
	}
	return NewSubmitter(r.sq, r.mode, r.metrics), nil
}

// Collector opens a consumer session over the completion ring.
func (r *Ring) Collector() (*Collector, error) {
	if r.closed {
		return nil, ErrRingClosed
	}
	return NewCollector(r.cq, r.metrics), nil
}

// Submit publishes s and enters the kernel as the ring's mode requires.
func (r *Ring) Submit(s *Submitter, minComplete uint32) (uint, error) {
	if r.closed {
		return 0, ErrRingClosed
	}
	return r.enterer.Submit(s, minComplete)
}

// RegisterRingFD registers the ring fd so that later enter and register calls
// skip the fd table lookup.
func (r *Ring) RegisterRingFD() error {
	if r.closed {
		return ErrRingClosed
	}
	return r.enterer.RegisterRingFD()
}

// Close tears the ring down. It is safe to call more than once.
func (r *Ring) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	r.enterer.close()
	unmapErr := r.arena.Close()
	closeErr := r.sys.Close(r.fd)
	r.log.Debug("ring closed")
	if unmapErr != nil {
		return unmapErr
	}
	return closeErr
}
