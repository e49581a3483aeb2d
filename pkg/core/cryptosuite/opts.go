/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptosuite

import (
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
)

// Algorithm identifiers
const (
	ECDSA        = "ECDSA"
	ECDSAP256    = "ECDSAP256"
	ECDSAP384    = "ECDSAP384"
	X509Cert     = "X509Certificate"
	SHA2         = "SHA2"
	SHA3         = "SHA3"
	SHA256       = "SHA256"
	SHA384       = "SHA384"
	SHA3_256     = "SHA3_256"
	SHA3_384     = "SHA3_384"
	ECDSAPrivKey = "ECDSAPrivateKey"
	ECDSAPubKey  = "ECDSAPublicKey"
)

// ECDSAKeyGenOpts generates a key on the suite's default curve
type ECDSAKeyGenOpts struct {
	Temporary bool
}

// Algorithm returns the key generation algorithm identifier (to be used).
func (opts *ECDSAKeyGenOpts) Algorithm() string { return ECDSA }

// Ephemeral returns true if the key to generate has to be ephemeral.
func (opts *ECDSAKeyGenOpts) Ephemeral() bool { return opts.Temporary }

// ECDSAP256KeyGenOpts generates a P-256 key
type ECDSAP256KeyGenOpts struct {
	Temporary bool
}

// Algorithm returns the key generation algorithm identifier (to be used).
func (opts *ECDSAP256KeyGenOpts) Algorithm() string { return ECDSAP256 }

// Ephemeral returns true if the key to generate has to be ephemeral.
func (opts *ECDSAP256KeyGenOpts) Ephemeral() bool { return opts.Temporary }

// ECDSAP384KeyGenOpts generates a P-384 key
type ECDSAP384KeyGenOpts struct {
	Temporary bool
}

// Algorithm returns the key generation algorithm identifier (to be used).
func (opts *ECDSAP384KeyGenOpts) Algorithm() string { return ECDSAP384 }

// Ephemeral returns true if the key to generate has to be ephemeral.
func (opts *ECDSAP384KeyGenOpts) Ephemeral() bool { return opts.Temporary }

// ECDSAPrivateKeyImportOpts imports a PKCS8 or SEC1 DER key, or an *ecdsa.PrivateKey
type ECDSAPrivateKeyImportOpts struct {
	Temporary bool
}

// Algorithm returns the key importation algorithm identifier (to be used).
func (opts *ECDSAPrivateKeyImportOpts) Algorithm() string { return ECDSAPrivKey }

// Ephemeral returns true if the key generated has to be ephemeral.
func (opts *ECDSAPrivateKeyImportOpts) Ephemeral() bool { return opts.Temporary }

// ECDSAGoPublicKeyImportOpts imports an *ecdsa.PublicKey
type ECDSAGoPublicKeyImportOpts struct {
	Temporary bool
}

// Algorithm returns the key importation algorithm identifier (to be used).
func (opts *ECDSAGoPublicKeyImportOpts) Algorithm() string { return ECDSAPubKey }

// Ephemeral returns true if the key generated has to be ephemeral.
func (opts *ECDSAGoPublicKeyImportOpts) Ephemeral() bool { return opts.Temporary }

// X509PublicKeyImportOpts imports the public key of an *x509.Certificate
type X509PublicKeyImportOpts struct {
	Temporary bool
}

// Algorithm returns the key importation algorithm identifier (to be used).
func (opts *X509PublicKeyImportOpts) Algorithm() string { return X509Cert }

// Ephemeral returns true if the key generated has to be ephemeral.
func (opts *X509PublicKeyImportOpts) Ephemeral() bool { return opts.Temporary }

// HashOpts names a hash algorithm
type HashOpts string

// Algorithm returns the hash algorithm identifier (to be used).
func (h HashOpts) Algorithm() string { return string(h) }

// GetSHA256Opts returns options relating to SHA-256.
func GetSHA256Opts() core.HashOpts {
	return HashOpts(SHA256)
}

// GetSHAOpts returns options for computing SHA.
func GetSHAOpts() core.HashOpts {
	return HashOpts(SHA2)
}
