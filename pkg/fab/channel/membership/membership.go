/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package membership

import (
	"crypto/x509"
	"strings"
	"time"

	"github.com/cloudflare/cfssl/helpers"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"

	mb "github.com/hyperledger/fabric-protos-go-apiv2/msp"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite"
)

var logger = logging.NewLogger("fab/membership")

type x509Validator struct {
	mspID string
	roots *x509.CertPool
	suite core.CryptoSuite
}

// New returns a validator accepting identities of mspID whose certificate
// chains to one of rootCerts
func New(mspID string, rootCerts [][]byte, suite core.CryptoSuite) (fab.ChannelMembership, error) {
	if mspID == "" {
		return nil, errors.New("MSP ID is required")
	}
	if len(rootCerts) == 0 {
		return nil, errors.Errorf("no root certificates for MSP %s", mspID)
	}
	if suite == nil {
		return nil, errors.New("crypto suite is required")
	}
	pool := x509.NewCertPool()
	for _, pem := range rootCerts {
		certs, err := helpers.ParseCertificatesPEM(pem)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid root certificate for MSP %s", mspID)
		}
		for _, c := range certs {
			pool.AddCert(c)
		}
	}
	return &x509Validator{mspID: mspID, roots: pool, suite: suite}, nil
}

func (v *x509Validator) deserialize(serializedID []byte) (*x509.Certificate, error) {
	sID := &mb.SerializedIdentity{}
	if err := proto.Unmarshal(serializedID, sID); err != nil {
		return nil, errors.Wrap(err, "could not deserialize a SerializedIdentity")
	}
	if !strings.EqualFold(sID.Mspid, v.mspID) {
		return nil, errors.Errorf("identity of MSP %s is not a member of %s", sID.Mspid, v.mspID)
	}
	cert, err := helpers.ParseCertificatePEM(sID.IdBytes)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode the identity certificate")
	}
	return cert, nil
}

func (v *x509Validator) Validate(serializedID []byte) error {
	cert, err := v.deserialize(serializedID)
	if err != nil {
		return err
	}
	if err := certDatesValid(cert); err != nil {
		logger.Warnf("Certificate error '%s' for cert '%v'", err, cert.SerialNumber)
		return err
	}
	_, err = cert.Verify(x509.VerifyOptions{
		Roots:     v.roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	return errors.Wrap(err, "certificate does not chain to a channel root")
}

func (v *x509Validator) Verify(serializedID []byte, msg []byte, sig []byte) error {
	cert, err := v.deserialize(serializedID)
	if err != nil {
		return err
	}
	pub, err := v.suite.KeyImport(cert, &cryptosuite.X509PublicKeyImportOpts{Temporary: true})
	if err != nil {
		return errors.WithMessage(err, "importing certificate public key failed")
	}
	digest, err := v.suite.Hash(msg, cryptosuite.GetSHAOpts())
	if err != nil {
		return err
	}
	valid, err := v.suite.Verify(pub, sig, digest, nil)
	if err != nil {
		return errors.WithMessage(err, "could not verify signature")
	}
	if !valid {
		return errors.New("the signature is invalid")
	}
	return nil
}

func certDatesValid(cert *x509.Certificate) error {
	now := time.Now().UTC()
	if now.Before(cert.NotBefore) {
		return errors.Errorf("certificate provided is not valid until %s", cert.NotBefore)
	}
	if now.After(cert.NotAfter) {
		return errors.Errorf("certificate provided has expired at %s", cert.NotAfter)
	}
	return nil
}
