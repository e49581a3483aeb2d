/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package factory assembles the crypto suite registry with every built-in provider.
package factory

import (
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite/pkcs11"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite/sw"
)

// DefaultRegistry returns a new registry holding the SW and PKCS11 suites
func DefaultRegistry() *cryptosuite.Registry {
	r := cryptosuite.NewRegistry()
	sw.Register(r)
	pkcs11.Register(r)
	return r
}
