/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sw is the software crypto suite: ECDSA over P-256 or P-384 with
// SHA2 or SHA3 hashing. Non-ephemeral keys are kept in memory by SKI.
package sw

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/hex"
	"hash"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite"
)

// Register adds the software suite to r
func Register(r *cryptosuite.Registry) {
	r.Register(cryptosuite.ProviderSW, cryptosuite.AlgorithmEC, func(cfg cryptosuite.Config) (core.CryptoSuite, error) {
		s, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// CryptoSuite is the software implementation of core.CryptoSuite
type CryptoSuite struct {
	curve       elliptic.Curve
	defaultHash func() hash.Hash
	hashers     map[string]func() hash.Hash

	mu   sync.RWMutex
	keys map[string]core.Key
}

// New returns a suite for cfg. KeySize selects the curve and security level
// (256 or 384), HashFamily selects SHA2 or SHA3.
func New(cfg cryptosuite.Config) (*CryptoSuite, error) {
	if cfg.KeySize == 0 {
		cfg.KeySize = 256
	}
	if cfg.HashFamily == "" {
		cfg.HashFamily = cryptosuite.SHA2
	}

	s := &CryptoSuite{
		keys: make(map[string]core.Key),
		hashers: map[string]func() hash.Hash{
			cryptosuite.SHA256:   sha256.New,
			cryptosuite.SHA384:   sha512.New384,
			cryptosuite.SHA3_256: sha3.New256,
			cryptosuite.SHA3_384: sha3.New384,
		},
	}

	switch cfg.KeySize {
	case 256:
		s.curve = elliptic.P256()
	case 384:
		s.curve = elliptic.P384()
	default:
		return nil, sdkerr.Configuration("unsupported key size %d, expected 256 or 384", cfg.KeySize)
	}

	switch family := strings.ToUpper(cfg.HashFamily); {
	case family == cryptosuite.SHA2 && cfg.KeySize == 256:
		s.defaultHash = sha256.New
	case family == cryptosuite.SHA2 && cfg.KeySize == 384:
		s.defaultHash = sha512.New384
	case family == cryptosuite.SHA3 && cfg.KeySize == 256:
		s.defaultHash = sha3.New256
	case family == cryptosuite.SHA3 && cfg.KeySize == 384:
		s.defaultHash = sha3.New384
	default:
		return nil, sdkerr.Configuration("unsupported hash family [%s]", cfg.HashFamily)
	}
	s.hashers[cryptosuite.SHA2] = s.defaultHash
	s.hashers[cryptosuite.SHA3] = s.defaultHash

	return s, nil
}

// KeyGen generates an ECDSA key
func (s *CryptoSuite) KeyGen(opts core.KeyGenOpts) (core.Key, error) {
	if opts == nil {
		return nil, errors.New("invalid opts, it must not be nil")
	}

	var curve elliptic.Curve
	switch opts.Algorithm() {
	case cryptosuite.ECDSA:
		curve = s.curve
	case cryptosuite.ECDSAP256:
		curve = elliptic.P256()
	case cryptosuite.ECDSAP384:
		curve = elliptic.P384()
	default:
		return nil, errors.Errorf("unsupported key generation algorithm [%s]", opts.Algorithm())
	}

	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed generating ECDSA key")
	}
	k := &PrivateKey{priv: priv}
	if !opts.Ephemeral() {
		s.store(k)
	}
	return k, nil
}

// KeyImport imports a private key, a public key or a certificate's public key
func (s *CryptoSuite) KeyImport(raw interface{}, opts core.KeyImportOpts) (core.Key, error) {
	if raw == nil {
		return nil, errors.New("invalid raw, it must not be nil")
	}
	if opts == nil {
		return nil, errors.New("invalid opts, it must not be nil")
	}

	var k core.Key
	switch opts.Algorithm() {
	case cryptosuite.ECDSAPrivKey:
		priv, err := toECDSAPrivateKey(raw)
		if err != nil {
			return nil, err
		}
		k = &PrivateKey{priv: priv}
	case cryptosuite.ECDSAPubKey:
		pub, ok := raw.(*ecdsa.PublicKey)
		if !ok {
			return nil, errors.New("invalid raw material, expected *ecdsa.PublicKey")
		}
		k = &PublicKey{pub: pub}
	case cryptosuite.X509Cert:
		cert, ok := raw.(*x509.Certificate)
		if !ok {
			return nil, errors.New("invalid raw material, expected *x509.Certificate")
		}
		pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
		if !ok {
			return nil, errors.Errorf("certificate public key type %T is not supported", cert.PublicKey)
		}
		k = &PublicKey{pub: pub}
	default:
		return nil, errors.Errorf("unsupported key import algorithm [%s]", opts.Algorithm())
	}

	if !opts.Ephemeral() {
		s.store(k)
	}
	return k, nil
}

func toECDSAPrivateKey(raw interface{}) (*ecdsa.PrivateKey, error) {
	switch v := raw.(type) {
	case *ecdsa.PrivateKey:
		return v, nil
	case []byte:
		if len(v) == 0 {
			return nil, errors.New("invalid raw, it must not be empty")
		}
		if key, err := x509.ParsePKCS8PrivateKey(v); err == nil {
			priv, ok := key.(*ecdsa.PrivateKey)
			if !ok {
				return nil, errors.Errorf("PKCS8 key type %T is not ECDSA", key)
			}
			return priv, nil
		}
		priv, err := x509.ParseECPrivateKey(v)
		if err != nil {
			return nil, errors.Wrap(err, "failed parsing ECDSA private key")
		}
		return priv, nil
	default:
		return nil, errors.Errorf("invalid raw material type %T", raw)
	}
}

func (s *CryptoSuite) store(k core.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[hex.EncodeToString(k.SKI())] = k
}

// GetKey returns a key stored by KeyGen or KeyImport
func (s *CryptoSuite) GetKey(ski []byte) (core.Key, error) {
	if len(ski) == 0 {
		return nil, errors.New("invalid SKI, cannot be of zero length")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[hex.EncodeToString(ski)]
	if !ok {
		return nil, errors.Errorf("key with SKI %x not found", ski)
	}
	return k, nil
}

// Hash hashes msg; nil opts selects the suite's default hash
func (s *CryptoSuite) Hash(msg []byte, opts core.HashOpts) ([]byte, error) {
	h, err := s.GetHash(opts)
	if err != nil {
		return nil, err
	}
	h.Write(msg) // nolint: errcheck
	return h.Sum(nil), nil
}

// GetHash returns a hash.Hash for opts
func (s *CryptoSuite) GetHash(opts core.HashOpts) (hash.Hash, error) {
	if opts == nil {
		return s.defaultHash(), nil
	}
	f, ok := s.hashers[strings.ToUpper(opts.Algorithm())]
	if !ok {
		return nil, errors.Errorf("unsupported hash algorithm [%s]", opts.Algorithm())
	}
	return f(), nil
}

// Sign produces a low-S ASN.1 ECDSA signature over digest
func (s *CryptoSuite) Sign(k core.Key, digest []byte, opts core.SignerOpts) ([]byte, error) {
	if k == nil {
		return nil, errors.New("invalid key, it must not be nil")
	}
	if len(digest) == 0 {
		return nil, errors.New("invalid digest, cannot be empty")
	}
	priv, ok := k.(*PrivateKey)
	if !ok {
		return nil, errors.Errorf("unsupported signing key type %T", k)
	}

	r, sv, err := ecdsa.Sign(rand.Reader, priv.priv, digest)
	if err != nil {
		return nil, errors.Wrap(err, "ECDSA signing failed")
	}
	sv, err = cryptosuite.ToLowS(&priv.priv.PublicKey, sv)
	if err != nil {
		return nil, err
	}
	return cryptosuite.MarshalECDSASignature(r, sv)
}

// Verify checks signature over digest with a private or public key
func (s *CryptoSuite) Verify(k core.Key, signature, digest []byte, opts core.SignerOpts) (bool, error) {
	if k == nil {
		return false, errors.New("invalid key, it must not be nil")
	}
	if len(signature) == 0 {
		return false, errors.New("invalid signature, cannot be empty")
	}
	if len(digest) == 0 {
		return false, errors.New("invalid digest, cannot be empty")
	}

	switch key := k.(type) {
	case *PrivateKey:
		return cryptosuite.VerifyECDSA(&key.priv.PublicKey, signature, digest)
	case *PublicKey:
		return cryptosuite.VerifyECDSA(key.pub, signature, digest)
	default:
		return false, errors.Errorf("unsupported verification key type %T", k)
	}
}
