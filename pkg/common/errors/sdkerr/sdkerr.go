/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sdkerr defines the kinds of error the client surfaces to callers.
//
// Configuration and validation errors are fatal and must not be retried.
// Endorsement errors carry the outcome of every peer that was asked to endorse.
// Submission errors carry the ordering service status. Timeout errors only
// mean that a commit was not observed in time; the transaction may still commit.
package sdkerr

import (
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	"github.com/pkg/errors"
)

// Kind classifies an Error
type Kind int

const (
	// KindUnknown is never returned by the constructors in this package
	KindUnknown Kind = iota
	// KindConfiguration missing or invalid provider, certificate or channel membership
	KindConfiguration
	// KindValidation malformed caller input
	KindValidation
	// KindInvalidProtocol an endpoint URL with an unsupported scheme
	KindInvalidProtocol
	// KindEndorsement not enough matching endorsements
	KindEndorsement
	// KindSubmission the orderer refused the envelope or the transaction was invalidated
	KindSubmission
	// KindTimeout commit was not observed within the caller's window
	KindTimeout
)

var kindNames = map[Kind]string{
	KindUnknown:         "UnknownError",
	KindConfiguration:   "ConfigurationError",
	KindValidation:      "ValidationError",
	KindInvalidProtocol: "InvalidProtocolError",
	KindEndorsement:     "EndorsementError",
	KindSubmission:      "SubmissionError",
	KindTimeout:         "TimeoutError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Error is the error type returned by client operations
type Error struct {
	Kind  Kind
	Msg   string
	Cause error

	// Failures is set on endorsement errors
	Failures []PeerFailure
	// OrdererStatus is set on submission errors raised by an orderer
	OrdererStatus common.Status
	// TxID is set on timeout and submission errors
	TxID string
}

// PeerFailure describes why one endorser's response was not used
type PeerFailure struct {
	Endpoint string
	Status   int32
	// Divergent is true when the peer succeeded but its payload differed
	Divergent bool
	Err       error
}

func (f PeerFailure) String() string {
	if f.Divergent {
		return fmt.Sprintf("%s: divergent payload", f.Endpoint)
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %s", f.Endpoint, f.Err)
	}
	return fmt.Sprintf("%s: status %d", f.Endpoint, f.Status)
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if len(e.Failures) > 0 {
		parts := make([]string, len(e.Failures))
		for i, f := range e.Failures {
			parts[i] = f.String()
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString("]")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so sentinel comparisons work
// with errors.Is(err, &sdkerr.Error{Kind: sdkerr.KindTimeout}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Msg == ""
}

func newError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Configuration returns a ConfigurationError
func Configuration(format string, args ...interface{}) *Error {
	return newError(KindConfiguration, nil, format, args...)
}

// WrapConfiguration returns a ConfigurationError caused by err
func WrapConfiguration(err error, format string, args ...interface{}) *Error {
	return newError(KindConfiguration, err, format, args...)
}

// Validation returns a ValidationError
func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, nil, format, args...)
}

// InvalidProtocol returns an InvalidProtocolError
func InvalidProtocol(format string, args ...interface{}) *Error {
	return newError(KindInvalidProtocol, nil, format, args...)
}

// Endorsement returns an EndorsementError listing per-peer failures
func Endorsement(cause error, failures []PeerFailure, format string, args ...interface{}) *Error {
	e := newError(KindEndorsement, cause, format, args...)
	e.Failures = failures
	return e
}

// Submission returns a SubmissionError carrying the orderer status
func Submission(txID string, code common.Status, cause error, format string, args ...interface{}) *Error {
	e := newError(KindSubmission, cause, format, args...)
	e.TxID = txID
	e.OrdererStatus = code
	return e
}

// Timeout returns a TimeoutError for txID
func Timeout(txID string, cause error, format string, args ...interface{}) *Error {
	e := newError(KindTimeout, cause, format, args...)
	e.TxID = txID
	return e
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsConfiguration reports whether err is a ConfigurationError
func IsConfiguration(err error) bool { return KindOf(err) == KindConfiguration }

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsInvalidProtocol reports whether err is an InvalidProtocolError
func IsInvalidProtocol(err error) bool { return KindOf(err) == KindInvalidProtocol }

// IsEndorsement reports whether err is an EndorsementError
func IsEndorsement(err error) bool { return KindOf(err) == KindEndorsement }

// IsSubmission reports whether err is a SubmissionError
func IsSubmission(err error) bool { return KindOf(err) == KindSubmission }

// IsTimeout reports whether err is a TimeoutError
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }
