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

// SQRingOffsets is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type SQRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Flags       uint32
	Dropped     uint32
	Array       uint32
	ResV1       uint32
	UserAddr    uint64
}

// CQRingOffsets is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type CQRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Overflow    uint32
	CQEs        uint32
	Flags       uint32
	ResV1       uint32
	UserAddr    uint64
}

// Params is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
//
// Params is filled in by the caller before setup and completed by the kernel:
// the negotiated entry counts, the feature mask, and the ring offsets.
type Params struct {
	SQEntries    uint32
	CQEntries    uint32
	Flags        SetupFlag
	SQThreadCPU  uint32
	SQThreadIdle uint32
	Features     Feature
	WQFD         uint32
	ResV         [3]uint32
	SQOffsets    SQRingOffsets
	CQOffsets    CQRingOffsets
}

// RsrcUpdate is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type RsrcUpdate struct {
	Offset uint32
	ResV   uint32
	Data   uint64
}

// OpCode is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type OpCode uint8

const (
	OpCodeNOP OpCode = iota
	OpCodeReadV
	OpCodeWriteV
	OpCodeFsync
	OpCodeReadFixed
	OpCodeWriteFixed
	OpCodePollAdd
	OpCodePollRemove
	OpCodeSyncFileRange
	OpCodeSendMsg
	OpCodeRecvMsg
	OpCodeTimeout
	OpCodeTimeoutRemove
	OpCodeAccept
	OpCodeAsyncCancel
	OpCodeLinkTimeout
	OpCodeConnect
	OpCodeFallocate
	OpCodeOpenat
	OpCodeClose
	OpCodeFilesUpdate
	OpCodeStatx
	OpCodeRead
	OpCodeWrite
	OpCodeFadvise
	OpCodeMadvise
	OpCodeSend
	OpCodeRecv
	OpCodeOpenat2
	OpCodeEpollCtl
	OpCodeSplice
	OpCodeProvideBuffers
	OpCodeRemoveBuffers
	OpCodeTee
	OpCodeShutdown
	OpCodeRenameat
	OpCodeUnlinkat
	OpCodeMkdirat
	OpCodeSymlinkat
	OpCodeLinkat
	OpCodeMsgRing
	OpCodeFsetxattr
	OpCodeSetxattr
	OpCodeFgetxattr
	OpCodeGetxattr
	OpCodeSocket
	OpCodeUringCmd
	OpCodeSendZC
	OpCodeSendMsgZC
	OpCodeReadMultishot
	OpCodeWaitID
	OpCodeFutexWait
	OpCodeFutexWake
	OpCodeFutexWaitV
	OpCodeFixedFDInstall
	OpCodeFtruncate
	OpCodeBind
	OpCodeListen
	OpCodeRecvZC
	OpCodeEpollWait
	OpCodeReadVFixed
	OpCodeWriteVFixed
	OpCodePipe
	OpCodeNOP128
	OpCodeUringCmd128

	OpCodeLast
)

// Wide reports whether the opcode consumes two slots of a mixed submission ring.
func (op OpCode) Wide() bool {
	return op == OpCodeNOP128 || op == OpCodeUringCmd128
}

// SetupFlag is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type SetupFlag uint32

const (
	SetupIOPoll SetupFlag = 1 << iota
	SetupSQPoll
	SetupSQAff
	SetupCQSize
	SetupClamp
	SetupAttachWQ
	SetupRDisabled
	SetupSubmitAll
	SetupCoopTaskRun
	SetupTaskRunFlag
	SetupSQE128
	SetupCQE32
	SetupSingleIssuer
	SetupDeferTaskRun
	SetupNoMMap
	SetupRegisteredFDOnly
	SetupNoSQArray
	SetupHybridIOPoll
	SetupCQEMixed
	SetupSQEMixed
)

// SQStatus is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type SQStatus uint32

const (
	SQStatusNeedWakeup SQStatus = 1 << iota
	SQStatusCQOverflow
	SQStatusTaskRun
)

// CQStatus is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type CQStatus uint32

const (
	CQStatusEventFDDisabled CQStatus = 1 << iota
)

// EnterFlag is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type EnterFlag uint32

const (
	EnterGetEvents EnterFlag = 1 << iota
	EnterSQWakeup
	EnterSQWait
	EnterExtArg
	EnterRegisteredRing
	EnterAbsTimer
	EnterExtArgReg
	EnterNoIOWait
)

// Feature is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type Feature uint32

const (
	FeatureSingleMMap Feature = 1 << iota
	FeatureNoDrop
	FeatureSubmitStable
	FeatureRWCurPos
	FeatureCurPersonality
	FeatureFastPoll
	FeaturePoll32Bits
	FeatureSQPollNonfixed
	FeatureExtArg
	FeatureNativeWorkers
	FeatureRsrcTags
	FeatureCQESkip
	FeatureLinkedFile
	FeatureRegRegRing
	FeatureRecvSendBundle
	FeatureMinTimeout
	FeatureRWAttr
	FeatureNoIOWait
)

// SQEFlag is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type SQEFlag uint8

const (
	SQEFixedFile SQEFlag = 1 << iota
	SQEIODrain
	SQEIOLink
	SQEIOHardLink
	SQEAsync
	SQEBufferSelect
	SQECQESkipSuccess
)

// CQEFlag is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type CQEFlag uint32

const (
	CQEFBuffer CQEFlag = 1 << iota
	CQEFMore
	CQEFSockNonEmpty
	CQEFNotif
	CQEFBufMore
	CQEFSkip

	// CQEF32 marks a completion that occupies two slots of a mixed completion ring.
	CQEF32 CQEFlag = 1 << 15
)

// NopFlag is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type NopFlag uint32

const (
	NopInjectResult NopFlag = 1 << iota
	NopFile
	NopFixedFile
	NopFixedBuffer
	NopTaskWork
	NopCQE32
)

// CancelFlag is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type CancelFlag uint32

const (
	CancelAll CancelFlag = 1 << iota
	CancelFD
	CancelAny
	CancelFDFixed
	CancelUserData
	CancelOp
)

// RegisterOpCode is defined here: https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
type RegisterOpCode uint32

const (
	RegisterOpCodeRegisterBuffers RegisterOpCode = iota
	RegisterOpCodeUnregisterBuffers
	RegisterOpCodeRegisterFiles
	RegisterOpCodeUnregisterFiles
	RegisterOpCodeRegisterEventFD
	RegisterOpCodeUnregisterEventFD
	RegisterOpCodeRegisterFilesUpdate
	RegisterOpCodeRegisterEventFDAsync
	RegisterOpCodeRegisterProbe
	RegisterOpCodeRegisterPersonality
	RegisterOpCodeUnregisterPersonality
	RegisterOpCodeRegisterRestrictions
	RegisterOpCodeRegisterEnableRings
	RegisterOpCodeRegisterFiles2
	RegisterOpCodeRegisterFilesUpdate2
	RegisterOpCodeRegisterBuffers2
	RegisterOpCodeRegisterBuffersUpdate
	RegisterOpCodeRegisterIOWQAff
	RegisterOpCodeUnregisterIOWQAff
	RegisterOpCodeRegisterIOWQMaxWorkers
	RegisterOpCodeRegisterRingFDs
	RegisterOpCodeUnregisterRingFDs

	RegisterOpCodeRegisterUseRegisteredRing RegisterOpCode = 1 << 31
)

const (
	// _NSIG is defined here: https://github.com/torvalds/linux/blob/v6.5/include/uapi/asm-generic/signal.h#L7
	_NSIG = 64

	// registerOffsetAuto asks the kernel to pick a free slot in the registered ring table.
	registerOffsetAuto = ^uint32(0)
)
