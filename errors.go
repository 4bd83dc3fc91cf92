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
)

var (
	ErrNotAvailable            = errors.Define("io_uring is not available on this platform")
	ErrCapacityExceeded        = errors.Define("submission ring is full")
	ErrSetup                   = errors.Define("ring setup failed")
	ErrFeatureMissing          = errors.Define("required kernel feature is missing")
	ErrEntrySize               = errors.Define("entry width does not match the ring")
	ErrOpLayout                = errors.Define("operation layout does not match its entry width")
	ErrInvalidEntries          = errors.Define("invalid number of ring entries")
	ErrInvalidSetup            = errors.Define("invalid setup flags")
	ErrRingFDRegistered        = errors.Define("ring fd is already registered")
	ErrRingFDNotRegistered     = errors.Define("ring fd is not registered")
	ErrUnexpectedRegisterCount = errors.Define("unexpected number of registered resources")
	ErrRingClosed              = errors.Define("ring is closed")
)

func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

func IsSetup(err error) bool {
	return errors.Is(err, ErrSetup)
}

func IsFeatureMissing(err error) bool {
	return errors.Is(err, ErrFeatureMissing)
}

func IsEntrySize(err error) bool {
	return errors.Is(err, ErrEntrySize)
}

func IsInvalidSetup(err error) bool {
	return errors.Is(err, ErrInvalidSetup) || errors.Is(err, ErrInvalidEntries)
}

func IsRegistration(err error) bool {
	return errors.Is(err, ErrRingFDRegistered) ||
		errors.Is(err, ErrRingFDNotRegistered) ||
		errors.Is(err, ErrUnexpectedRegisterCount)
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "uringio"
)

const (
	errMetaOpKey        = "op"
	errMetaOpSetup      = "setup"
	errMetaOpMmap       = "mmap"
	errMetaOpRegister   = "register"
	errMetaOpUnregister = "unregister"
	errMetaOpValidate   = "validate"
)

const (
	errMetaFeatureKey = "feature"
	errMetaFlagsKey   = "flags"
	errMetaRegionKey  = "region"
)

func featureMissing(feature string) error {
	return errors.From(
		ErrFeatureMissing,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaFeatureKey, feature),
	)
}

func invalidSetup(reason string) error {
	return errors.From(
		ErrInvalidSetup,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, errMetaOpValidate),
		errors.WithMeta(errMetaFlagsKey, reason),
	)
}
