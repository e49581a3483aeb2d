/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signingmgr

import (
	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite"
)

// SigningManager hashes and signs objects with a private key
type SigningManager struct {
	cryptoProvider core.CryptoSuite
	hashOpts       core.HashOpts
	signerOpts     core.SignerOpts
}

// Option configures a SigningManager
type Option func(*SigningManager)

// WithHashOpts overrides the configured hash family
func WithHashOpts(opts core.HashOpts) Option {
	return func(mgr *SigningManager) {
		mgr.hashOpts = opts
	}
}

// New constructs a signing manager on top of cryptoProvider
func New(cryptoProvider core.CryptoSuite, opts ...Option) (*SigningManager, error) {
	if cryptoProvider == nil {
		return nil, errors.New("crypto suite is required")
	}
	mgr := &SigningManager{cryptoProvider: cryptoProvider, hashOpts: cryptosuite.GetSHAOpts()}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr, nil
}

// Sign will sign the given object using provided key
func (mgr *SigningManager) Sign(object []byte, key core.Key) ([]byte, error) {
	if len(object) == 0 {
		return nil, errors.New("object (to sign) required")
	}
	if key == nil {
		return nil, errors.New("key (for signing) required")
	}

	digest, err := mgr.cryptoProvider.Hash(object, mgr.hashOpts)
	if err != nil {
		return nil, err
	}
	return mgr.cryptoProvider.Sign(key, digest, mgr.signerOpts)
}
