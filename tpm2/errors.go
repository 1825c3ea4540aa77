package tpm2

import (
	"bytes"
	"fmt"

	"golang.org/x/xerrors"
)

// ResponseCode is the raw TPM_RC value returned in a response header.
type ResponseCode uint32

// Success is the TPM_RC_SUCCESS response code.
const Success ResponseCode = 0x000

// responseCodeFormatBit (bit 7) distinguishes format-one
// (parameter/handle/session-tagged) codes from format-zero (global)
// codes, per the TPM_RC bit layout in spec §4.3.
const responseCodeFormatBit ResponseCode = 1 << 7

// Format-zero fields: a 7-bit base code, a vendor-defined flag (bit 10)
// and a severity flag (bit 11) that marks the code as a warning rather
// than an error.
const (
	baseCodeBits     ResponseCode = 0x7f
	vendorDefinedBit ResponseCode = 1 << 10
	severityBit      ResponseCode = 1 << 11
)

// Format-one fields: a 6-bit base code plus a location tag occupying
// bits 8-11. The P flag (bit 6) says the tag is a 4-bit parameter
// number (N = 1-15); when P is clear, bit 11 instead distinguishes a
// handle index from a session index, both carried in the remaining 3
// bits (N = 1-7).
const (
	tag1CodeBits     ResponseCode = 0x3f
	tag1IndexShift   uint         = 8
	tag1ParameterBit ResponseCode = 1 << 6
	tag1SessionBit   ResponseCode = 1 << 11
	tag1ParameterIdx ResponseCode = 0xf << tag1IndexShift
	tag1LocationIdx  ResponseCode = 0x7 << tag1IndexShift
)

// errorCode1Start is the offset format-one (bit 7 set) error codes are
// based from, per TPM 2.0 Part 2 table "TPM_RC (Response Codes)".
const errorCode1Start ErrorCode = 0x80

// Any* sentinels let callers match "don't care" in the Is* predicates
// below, mirroring the matching idiom of the canonical/go-tpm2 lineage.
const (
	AnyCommandCode    CommandCode   = 0xC0000000
	AnyErrorCode      ErrorCode     = 0x100
	AnyHandleIndex    int           = -1
	AnyParameterIndex int           = -1
	AnySessionIndex   int           = -1
	AnyWarningCode    WarningCode   = 0x80
)

// ErrorCode is a format-zero or format-one TPM error code, already
// shifted out of its bit-packed position in a ResponseCode.
type ErrorCode ResponseCode

// WarningCode is a format-zero warning response, a retryable or
// advisory condition rather than an outright failure.
type WarningCode ResponseCode

// Retryable warning codes (spec §4.3 "Session bookkeeping" / §7).
const (
	WarningRetry   WarningCode = 0x22
	WarningTesting WarningCode = 0x2A
	WarningYielded WarningCode = 0x03
	WarningNVRate  WarningCode = 0x21
)

func (c WarningCode) Retryable() bool {
	switch c {
	case WarningRetry, WarningTesting, WarningYielded, WarningNVRate:
		return true
	default:
		return false
	}
}

// TPMError is a format-zero error that is not associated with a handle,
// parameter or session.
type TPMError struct {
	Command CommandCode
	Code    ErrorCode
}

func (e *TPMError) Error() string {
	return fmt.Sprintf("tpm2: command %s failed with error code 0x%02x", e.Command, e.Code)
}

// TPMWarning is a format-zero response that does not necessarily
// indicate failure (e.g. self-test in progress, request to retry).
type TPMWarning struct {
	Command CommandCode
	Code    WarningCode
}

func (e *TPMWarning) Error() string {
	return fmt.Sprintf("tpm2: command %s returned warning code 0x%02x", e.Command, e.Code)
}

// TPMVendorError indicates a vendor-specific format-zero response (bit
// 10 set).
type TPMVendorError struct {
	Command CommandCode
	Code    ResponseCode
}

func (e *TPMVendorError) Error() string {
	return fmt.Sprintf("tpm2: command %s returned vendor-specific error 0x%08x", e.Command, e.Code)
}

// TPMParameterError is a format-one error tagged to a command parameter
// index (1-based).
type TPMParameterError struct {
	Index int
	err   *TPMError
}

func (e *TPMParameterError) Error() string {
	return fmt.Sprintf("tpm2: command %s failed for parameter %d: error code 0x%02x", e.err.Command, e.Index, e.err.Code)
}

func (e *TPMParameterError) Unwrap() error { return e.err }

// TPMHandleError is a format-one error tagged to a command handle index
// (1-based; 0 means unspecified handle).
type TPMHandleError struct {
	Index int
	err   *TPMError
}

func (e *TPMHandleError) Error() string {
	return fmt.Sprintf("tpm2: command %s failed for handle %d: error code 0x%02x", e.err.Command, e.Index, e.err.Code)
}

func (e *TPMHandleError) Unwrap() error { return e.err }

// TPMSessionError is a format-one error tagged to a session index
// (1-based).
type TPMSessionError struct {
	Index int
	err   *TPMError
}

func (e *TPMSessionError) Error() string {
	return fmt.Sprintf("tpm2: command %s failed for session %d: error code 0x%02x", e.err.Command, e.Index, e.err.Code)
}

func (e *TPMSessionError) Unwrap() error { return e.err }

// DecodeResponseCode classifies a raw ResponseCode for the given command.
// It returns nil iff resp is Success, and otherwise dispatches on the
// format-zero/format-one bit described in spec §4.3.
func DecodeResponseCode(command CommandCode, resp ResponseCode) error {
	if resp == Success {
		return nil
	}
	if resp&responseCodeFormatBit == 0 {
		return decodeFormatZero(command, resp)
	}
	return decodeFormatOne(command, resp)
}

// decodeFormatZero handles global (not handle/parameter/session-tagged)
// codes: vendor-defined, warning, or a plain base error, in that order
// of precedence.
func decodeFormatZero(command CommandCode, resp ResponseCode) error {
	switch {
	case resp&vendorDefinedBit != 0:
		return &TPMVendorError{Command: command, Code: resp}
	case resp&severityBit != 0:
		return &TPMWarning{Command: command, Code: WarningCode(resp & baseCodeBits)}
	default:
		return &TPMError{Command: command, Code: ErrorCode(resp & baseCodeBits)}
	}
}

// decodeFormatOne handles codes tagged to a parameter, handle or
// session location, per spec §4.3's "error-description helper stitches
// together base cause + location".
func decodeFormatOne(command CommandCode, resp ResponseCode) error {
	base := &TPMError{Command: command, Code: ErrorCode(resp&tag1CodeBits) + errorCode1Start}
	location := int((resp & tag1LocationIdx) >> tag1IndexShift)

	switch {
	case resp&tag1ParameterBit != 0:
		return &TPMParameterError{Index: int((resp & tag1ParameterIdx) >> tag1IndexShift), err: base}
	case resp&tag1SessionBit != 0:
		return &TPMSessionError{Index: location, err: base}
	case location != 0:
		return &TPMHandleError{Index: location, err: base}
	default:
		return base
	}
}

// IsTPMError reports whether err is a *TPMError with the given code and
// command, honouring AnyErrorCode/AnyCommandCode wildcards.
func IsTPMError(err error, code ErrorCode, command CommandCode) bool {
	var e *TPMError
	return xerrors.As(err, &e) && (code == AnyErrorCode || e.Code == code) && (command == AnyCommandCode || e.Command == command)
}

// IsTPMHandleError reports whether err is a *TPMHandleError matching the
// given code, command and handle index, honouring wildcards.
func IsTPMHandleError(err error, code ErrorCode, command CommandCode, handle int) bool {
	var e *TPMHandleError
	return xerrors.As(err, &e) &&
		(code == AnyErrorCode || e.err.Code == code) &&
		(command == AnyCommandCode || e.err.Command == command) &&
		(handle == AnyHandleIndex || e.Index == handle)
}

// IsTPMParameterError reports whether err is a *TPMParameterError
// matching the given code, command and parameter index.
func IsTPMParameterError(err error, code ErrorCode, command CommandCode, param int) bool {
	var e *TPMParameterError
	return xerrors.As(err, &e) &&
		(code == AnyErrorCode || e.err.Code == code) &&
		(command == AnyCommandCode || e.err.Command == command) &&
		(param == AnyParameterIndex || e.Index == param)
}

// IsTPMSessionError reports whether err is a *TPMSessionError matching
// the given code, command and session index.
func IsTPMSessionError(err error, code ErrorCode, command CommandCode, session int) bool {
	var e *TPMSessionError
	return xerrors.As(err, &e) &&
		(code == AnyErrorCode || e.err.Code == code) &&
		(command == AnyCommandCode || e.err.Command == command) &&
		(session == AnySessionIndex || e.Index == session)
}

// IsTPMWarning reports whether err is a *TPMWarning matching the given
// code and command.
func IsTPMWarning(err error, code WarningCode, command CommandCode) bool {
	var e *TPMWarning
	return xerrors.As(err, &e) && (code == AnyWarningCode || e.Code == code) && (command == AnyCommandCode || e.Command == command)
}

// TransportError wraps a failure from the underlying Transport (spec §6,
// §7 "Transport errors"). It is reported distinct from TPMError: a
// transport failure says nothing about whether the TPM itself accepted
// or rejected the command.
type TransportError struct {
	Op  string
	err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tpm2: transport failed during %s: %v", e.Op, e.err)
}

func (e *TransportError) Unwrap() error { return e.err }

// ErrCodecNotRegistered is returned by the executor when asked to run a
// command code that has no registered response decoder.
type ErrCodecNotRegistered struct {
	Command CommandCode
}

func (e *ErrCodecNotRegistered) Error() string {
	return fmt.Sprintf("tpm2: no codec registered for command %s", e.Command)
}

// ErrSessionDestroyed is returned when a session object is used after
// the TPM has destroyed it (continue-session cleared, or FlushContext).
type ErrSessionDestroyed struct {
	Handle Handle
}

func (e *ErrSessionDestroyed) Error() string {
	return fmt.Sprintf("tpm2: session 0x%08x has been destroyed", uint32(e.Handle))
}

// ErrNonceMismatch is returned when a session's recorded nonceTPM does
// not match what the TPM echoed, indicating a dropped or reordered
// response (spec §5 "Ordering guarantees").
type ErrNonceMismatch struct {
	Handle Handle
}

func (e *ErrNonceMismatch) Error() string {
	return fmt.Sprintf("tpm2: nonce mismatch on session 0x%08x, session is broken", uint32(e.Handle))
}

// describeResponseCode stitches together a base cause with its location
// (parameter/handle/session), used by higher layers that want a single
// human-readable line rather than a typed switch.
func describeResponseCode(err error) string {
	var buf bytes.Buffer
	switch e := err.(type) {
	case *TPMParameterError:
		fmt.Fprintf(&buf, "parameter %d: %v", e.Index, e.err)
	case *TPMHandleError:
		fmt.Fprintf(&buf, "handle %d: %v", e.Index, e.err)
	case *TPMSessionError:
		fmt.Fprintf(&buf, "session %d: %v", e.Index, e.err)
	default:
		fmt.Fprintf(&buf, "%v", err)
	}
	return buf.String()
}
