// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

import "errors"

var (
	// ErrAborted matches every *AbortError with errors.Is.
	ErrAborted = errors.New("owslave: transaction aborted")
	// ErrBadIdentity is returned by New for an identity with a wrong CRC-8.
	ErrBadIdentity = errors.New("owslave: identity CRC mismatch")
)

// AbortReason tells why a transaction went back to idle.
type AbortReason uint8

const (
	// ReasonDone is a transaction the command handler completed.
	ReasonDone AbortReason = iota
	// ReasonReset is a new reset pulse from the master.
	ReasonReset
	// ReasonNotSelected is a ROM phase addressing another device.
	ReasonNotSelected
	// ReasonProtocol is an unexpected command, channel or transfer call.
	ReasonProtocol
	// ReasonCRC is a CRC-16 mismatch at the end of an exchange.
	ReasonCRC
	// ReasonOverrun is a time slot that found nothing armed.
	ReasonOverrun
	// ReasonFailed is a command handler that returned an error.
	ReasonFailed

	numAbortReasons
)

func (r AbortReason) String() string {
	switch r {
	case ReasonDone:
		return "done"
	case ReasonReset:
		return "reset"
	case ReasonNotSelected:
		return "not selected"
	case ReasonProtocol:
		return "protocol"
	case ReasonCRC:
		return "crc"
	case ReasonOverrun:
		return "overrun"
	case ReasonFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AbortError unwinds a command handler back to the main loop.
//
// The engine is already idle when it is returned.
type AbortError struct {
	Reason AbortReason
}

func (e *AbortError) Error() string {
	return "owslave: transaction aborted: " + e.Reason.String()
}

// Is makes errors.Is(err, ErrAborted) true.
func (e *AbortError) Is(target error) bool {
	return target == ErrAborted
}

// IsAbort returns the reason when err is, or wraps, an *AbortError.
func IsAbort(err error) (AbortReason, bool) {
	var a *AbortError
	if errors.As(err, &a) {
		return a.Reason, true
	}
	return 0, false
}
