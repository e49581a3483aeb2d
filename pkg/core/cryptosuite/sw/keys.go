/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sw

import (
	"crypto/ecdsa"
	"crypto/x509"

	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite"
)

// PrivateKey is an in-memory ECDSA private key
type PrivateKey struct {
	priv *ecdsa.PrivateKey
}

// Bytes is not supported for private keys
func (k *PrivateKey) Bytes() ([]byte, error) {
	return nil, errors.New("not supported")
}

// SKI returns the subject key identifier of the public half
func (k *PrivateKey) SKI() []byte {
	if k.priv == nil {
		return nil
	}
	return cryptosuite.SKI(&k.priv.PublicKey)
}

// Symmetric returns false
func (k *PrivateKey) Symmetric() bool { return false }

// Private returns true
func (k *PrivateKey) Private() bool { return true }

// PublicKey returns the public half
func (k *PrivateKey) PublicKey() (core.Key, error) {
	return &PublicKey{pub: &k.priv.PublicKey}, nil
}

// PublicKey is an ECDSA public key
type PublicKey struct {
	pub *ecdsa.PublicKey
}

// NewPublicKey wraps pub as a key
func NewPublicKey(pub *ecdsa.PublicKey) *PublicKey {
	return &PublicKey{pub: pub}
}

// ECDSA returns the wrapped key
func (k *PublicKey) ECDSA() *ecdsa.PublicKey {
	return k.pub
}

// Bytes returns the PKIX encoding of the key
func (k *PublicKey) Bytes() ([]byte, error) {
	raw, err := x509.MarshalPKIXPublicKey(k.pub)
	if err != nil {
		return nil, errors.Wrap(err, "failed marshalling key")
	}
	return raw, nil
}

// SKI returns the subject key identifier
func (k *PublicKey) SKI() []byte {
	if k.pub == nil {
		return nil
	}
	return cryptosuite.SKI(k.pub)
}

// Symmetric returns false
func (k *PublicKey) Symmetric() bool { return false }

// Private returns false
func (k *PublicKey) Private() bool { return false }

// PublicKey returns itself
func (k *PublicKey) PublicKey() (core.Key, error) {
	return k, nil
}
