/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package multi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = errors.New("sentinel")

func TestErrorString(t *testing.T) {
	testErr := fmt.Errorf("test")
	var errs Errors

	assert.Equal(t, "", errs.Error())

	errs = append(errs, testErr)
	assert.Equal(t, testErr.Error(), errs.Error())

	errs = append(errs, testErr)
	assert.Equal(t, "2 errors occurred: - test - test", errs.Error())
}

func TestNew(t *testing.T) {
	testErr := fmt.Errorf("test")

	assert.Nil(t, New())
	assert.Nil(t, New(nil, nil))
	assert.Equal(t, testErr, New(nil, testErr))

	m, ok := New(testErr, nil, testErr).(Errors)
	assert.True(t, ok)
	assert.Len(t, m, 2)
}

func TestAppend(t *testing.T) {
	testErr := fmt.Errorf("test")
	testErr2 := fmt.Errorf("test2")

	assert.Nil(t, Append(nil, nil))
	assert.Equal(t, testErr, Append(nil, testErr))

	m, ok := Append(testErr, testErr2).(Errors)
	assert.True(t, ok)
	assert.Equal(t, Errors{testErr, testErr2}, m)

	assert.Equal(t, Errors{testErr}, Append(Errors{testErr}, nil))

	m, ok = Append(Errors{testErr}, testErr2).(Errors)
	assert.True(t, ok)
	assert.Equal(t, Errors{testErr, testErr2}, m)
}

func TestToError(t *testing.T) {
	testErr := fmt.Errorf("test")
	var errs Errors

	assert.Nil(t, errs.ToError())

	errs = append(errs, testErr)
	assert.Equal(t, testErr, errs.ToError())

	errs = append(errs, testErr)
	assert.Equal(t, errs, errs.ToError())
}

func TestUnwrap(t *testing.T) {
	err := New(fmt.Errorf("first"), fmt.Errorf("wrapped: %w", errSentinel))
	assert.True(t, errors.Is(err, errSentinel))
}
