/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"

	"github.com/cloudflare/cfssl/helpers"
	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite"
)

var logger = logging.NewLogger("msp")

// Enrollment is what is persisted for a user. Key is optional for
// keys that live in an HSM.
type Enrollment struct {
	Name  string `json:"name"`
	MSPID string `json:"mspID"`
	Cert  string `json:"cert"`
	Key   string `json:"key,omitempty"`
}

// EnrollmentStore persists enrollments in a key-value store
type EnrollmentStore struct {
	store core.KVStore
	suite core.CryptoSuite
}

// NewEnrollmentStore returns a store backed by store. suite imports keys on load.
func NewEnrollmentStore(store core.KVStore, suite core.CryptoSuite) (*EnrollmentStore, error) {
	if store == nil {
		return nil, errors.New("key value store is required")
	}
	if suite == nil {
		return nil, errors.New("crypto suite is required")
	}
	return &EnrollmentStore{store: store, suite: suite}, nil
}

func storeKey(id msp.IdentityIdentifier) string {
	return id.ID + "@" + id.MSPID
}

// Store saves e, replacing any earlier enrollment for the same user
func (s *EnrollmentStore) Store(e *Enrollment) error {
	if e == nil || e.Name == "" || e.MSPID == "" {
		return errors.New("enrollment name and MSP ID are required")
	}
	if e.Cert == "" {
		return errors.New("enrollment certificate is required")
	}
	b, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal enrollment failed")
	}
	return s.store.Store(storeKey(msp.IdentityIdentifier{MSPID: e.MSPID, ID: e.Name}), b)
}

// Load returns the enrollment of id or msp.ErrUserNotFound
func (s *EnrollmentStore) Load(id msp.IdentityIdentifier) (*Enrollment, error) {
	b, err := s.store.Load(storeKey(id))
	if err != nil {
		if errors.Is(err, core.ErrKeyValueNotFound) {
			return nil, msp.ErrUserNotFound
		}
		return nil, err
	}
	e := &Enrollment{}
	if err := json.Unmarshal(b, e); err != nil {
		return nil, errors.Wrapf(err, "enrollment of %s is corrupt", storeKey(id))
	}
	return e, nil
}

// Delete removes the enrollment of id
func (s *EnrollmentStore) Delete(id msp.IdentityIdentifier) error {
	return s.store.Delete(storeKey(id))
}

// LoadIdentity loads the enrollment of id and builds its signing identity.
// Without a stored key the private key is looked up in the suite by the
// certificate's SKI.
func (s *EnrollmentStore) LoadIdentity(id msp.IdentityIdentifier) (*SigningIdentity, error) {
	e, err := s.Load(id)
	if err != nil {
		return nil, err
	}

	var key core.Key
	if e.Key != "" {
		key, err = s.importKey([]byte(e.Key))
	} else {
		key, err = s.keyFromCert([]byte(e.Cert))
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "loading private key of %s failed", storeKey(id))
	}
	logger.Debugf("loaded identity %s", storeKey(id))
	return NewSigningIdentity(e.Name, e.MSPID, []byte(e.Cert), key, s.suite)
}

func (s *EnrollmentStore) importKey(keyPEM []byte) (core.Key, error) {
	signer, err := helpers.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	priv, ok := signer.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.Errorf("private key type %T is not supported", signer)
	}
	return s.suite.KeyImport(priv, &cryptosuite.ECDSAPrivateKeyImportOpts{Temporary: true})
}

func (s *EnrollmentStore) keyFromCert(certPEM []byte) (core.Key, error) {
	cert, err := helpers.ParseCertificatePEM(certPEM)
	if err != nil {
		return nil, errors.Wrap(err, "invalid enrollment certificate")
	}
	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok || cert.PublicKeyAlgorithm != x509.ECDSA {
		return nil, errors.New("enrollment certificate does not hold an ECDSA key")
	}
	key, err := s.suite.GetKey(cryptosuite.SKI(pub))
	if err != nil {
		return nil, err
	}
	if !key.Private() {
		return nil, errors.New("no private key for enrollment certificate")
	}
	return key, nil
}
