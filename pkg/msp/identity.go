/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package msp holds client identities and their persisted enrollments.
package msp

import (
	"crypto/x509"

	"github.com/cloudflare/cfssl/helpers"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"

	pb_msp "github.com/hyperledger/fabric-protos-go-apiv2/msp"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite"
	"github.com/hyperledger/fabric-client-go/pkg/fab/signingmgr"
)

// Identity is the public part of a member: MSP id and enrollment certificate
type Identity struct {
	id      string
	mspID   string
	certPEM []byte
	cert    *x509.Certificate
	suite   core.CryptoSuite
}

// NewIdentity parses certPEM and returns a verify-only identity
func NewIdentity(id, mspID string, certPEM []byte, suite core.CryptoSuite) (*Identity, error) {
	if mspID == "" {
		return nil, errors.New("MSP ID is required")
	}
	if suite == nil {
		return nil, errors.New("crypto suite is required")
	}
	cert, err := helpers.ParseCertificatePEM(certPEM)
	if err != nil {
		return nil, errors.Wrap(err, "invalid enrollment certificate")
	}
	if id == "" {
		id = cert.Subject.CommonName
	}
	return &Identity{id: id, mspID: mspID, certPEM: certPEM, cert: cert, suite: suite}, nil
}

// Identifier returns the MSP id and name of the identity
func (i *Identity) Identifier() *msp.IdentityIdentifier {
	return &msp.IdentityIdentifier{MSPID: i.mspID, ID: i.id}
}

// EnrollmentCertificate returns the PEM encoded certificate
func (i *Identity) EnrollmentCertificate() []byte {
	return i.certPEM
}

// Serialize returns the serialized identity proto
func (i *Identity) Serialize() ([]byte, error) {
	b, err := proto.Marshal(&pb_msp.SerializedIdentity{Mspid: i.mspID, IdBytes: i.certPEM})
	if err != nil {
		return nil, errors.Wrap(err, "marshal serializedIdentity failed")
	}
	return b, nil
}

// Verify checks sig over msg against the certificate's public key
func (i *Identity) Verify(msg []byte, sig []byte) error {
	pub, err := i.suite.KeyImport(i.cert, &cryptosuite.X509PublicKeyImportOpts{Temporary: true})
	if err != nil {
		return errors.WithMessage(err, "importing certificate public key failed")
	}
	digest, err := i.suite.Hash(msg, cryptosuite.GetSHAOpts())
	if err != nil {
		return err
	}
	valid, err := i.suite.Verify(pub, sig, digest, nil)
	if err != nil {
		return errors.WithMessage(err, "could not verify signature")
	}
	if !valid {
		return errors.New("the signature is invalid")
	}
	return nil
}

// SigningIdentity is an Identity holding a private key
type SigningIdentity struct {
	*Identity
	key    core.Key
	signer core.SigningManager
}

// NewSigningIdentity returns an identity that signs with key
func NewSigningIdentity(id, mspID string, certPEM []byte, key core.Key, suite core.CryptoSuite) (*SigningIdentity, error) {
	if key == nil || !key.Private() {
		return nil, errors.New("a private key is required")
	}
	ident, err := NewIdentity(id, mspID, certPEM, suite)
	if err != nil {
		return nil, err
	}
	signer, err := signingmgr.New(suite)
	if err != nil {
		return nil, err
	}
	return &SigningIdentity{Identity: ident, key: key, signer: signer}, nil
}

// Sign hashes and signs msg
func (s *SigningIdentity) Sign(msg []byte) ([]byte, error) {
	return s.signer.Sign(msg, s.key)
}

// PublicVersion returns the identity without its private key
func (s *SigningIdentity) PublicVersion() msp.Identity {
	return s.Identity
}

// PrivateKey returns the crypto suite representation of the private key
func (s *SigningIdentity) PrivateKey() core.Key {
	return s.key
}
