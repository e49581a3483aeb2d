/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package msp declares the identities transactions are created and signed with.
package msp

import (
	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
)

// ErrUserNotFound is returned when no enrollment is stored for a user
var ErrUserNotFound = errors.New("user not found")

// IdentityIdentifier names a user within its MSP
type IdentityIdentifier struct {
	MSPID string
	ID    string
}

// Identity is the public side of a member: an enrollment certificate issued
// under an MSP. Serialize yields the creator bytes embedded in headers.
type Identity interface {
	Identifier() *IdentityIdentifier
	Verify(msg []byte, sig []byte) error
	Serialize() ([]byte, error)
	EnrollmentCertificate() []byte
}

// SigningIdentity is an Identity holding its private key
type SigningIdentity interface {
	Identity
	Sign(msg []byte) ([]byte, error)
	PublicVersion() Identity
	PrivateKey() core.Key
}
