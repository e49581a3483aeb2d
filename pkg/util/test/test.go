/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package test holds helpers shared by the package tests: throwaway
// certificates and logging from goroutines that outlive a test.
package test

import (
	"fmt"
	"os"
)

// Logf writes a line to stdout. Mock servers use it where t.Logf would panic
// after the test completed.
func Logf(template string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, template+"\n", args...)
}
