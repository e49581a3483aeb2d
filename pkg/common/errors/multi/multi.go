/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package multi holds the errors produced by an operation that targets several
// nodes at once, such as a proposal sent to a set of endorsers.
package multi

import (
	"fmt"
	"strings"
)

// Errors is a list of errors collected from independent calls
type Errors []error

// New returns an error for the non-nil errs. It returns nil when none are set
// and the error itself when only one is set.
func New(errs ...error) error {
	var m Errors
	for _, err := range errs {
		if err != nil {
			m = append(m, err)
		}
	}
	return m.ToError()
}

// Append adds err to errs. When errs is not an Errors value a new one is created.
func Append(errs error, err error) error {
	m, ok := errs.(Errors)
	if !ok {
		return New(errs, err)
	}
	if err == nil {
		return errs
	}
	return append(m, err)
}

// ToError collapses Errors into nil, a single error or the list itself
func (errs Errors) ToError() error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errs
	}
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (errs Errors) Unwrap() []error {
	return errs
}

func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return ""
	case 1:
		return errs[0].Error()
	}

	msgs := []string{fmt.Sprintf("%d errors occurred:", len(errs))}
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, " - ")
}
