/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package pkcs11 is a crypto suite that keeps private keys in a hardware
// security module. Hashing, key import of public material and (optionally)
// verification are done in software.
package pkcs11

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/asn1"
	"encoding/hex"
	"hash"
	"math/big"
	"sync"

	"github.com/miekg/pkcs11"
	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite/sw"
)

var logger = logging.NewLogger("core/cryptosuite/pkcs11")

var (
	oidNamedCurveP256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}
	oidNamedCurveP384 = asn1.ObjectIdentifier{1, 3, 132, 0, 34}
)

// Register adds the PKCS11 suite to r
func Register(r *cryptosuite.Registry) {
	r.Register(cryptosuite.ProviderPKCS11, cryptosuite.AlgorithmEC, func(cfg cryptosuite.Config) (core.CryptoSuite, error) {
		s, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// CryptoSuite is an HSM backed core.CryptoSuite
type CryptoSuite struct {
	soft       *sw.CryptoSuite
	ctx        *pkcs11.Ctx
	slot       uint
	curve      asn1.ObjectIdentifier
	softVerify bool

	mu       sync.Mutex
	sessions []pkcs11.SessionHandle
	keys     map[string]*Key
}

// New opens the library named in cfg, finds the token with cfg.Label and logs in.
// Any failure is a ConfigurationError.
func New(cfg cryptosuite.Config) (*CryptoSuite, error) {
	if cfg.Library == "" {
		return nil, sdkerr.Configuration("PKCS11 library path is required")
	}
	if cfg.Label == "" {
		return nil, sdkerr.Configuration("PKCS11 token label is required")
	}

	soft, err := sw.New(cryptosuite.Config{KeySize: cfg.KeySize, HashFamily: cfg.HashFamily})
	if err != nil {
		return nil, err
	}

	curve := oidNamedCurveP256
	if cfg.KeySize == 384 {
		curve = oidNamedCurveP384
	}

	ctx := pkcs11.New(cfg.Library)
	if ctx == nil {
		return nil, sdkerr.Configuration("instantiating PKCS11 library [%s] failed", cfg.Library)
	}
	if err := ctx.Initialize(); err != nil {
		logger.Warnf("PKCS11 initialize returned %s, continuing", err)
	}

	slot, err := findSlot(ctx, cfg.Label)
	if err != nil {
		ctx.Destroy()
		return nil, sdkerr.WrapConfiguration(err, "PKCS11 token [%s] not available", cfg.Label)
	}

	s := &CryptoSuite{
		soft:       soft,
		ctx:        ctx,
		slot:       slot,
		curve:      curve,
		softVerify: cfg.SoftVerify,
		keys:       make(map[string]*Key),
	}

	session, err := s.getSession()
	if err != nil {
		ctx.Destroy()
		return nil, sdkerr.WrapConfiguration(err, "opening PKCS11 session failed")
	}
	defer s.returnSession(session)

	if err := ctx.Login(session, pkcs11.CKU_USER, cfg.Pin); err != nil {
		if p11err, ok := err.(pkcs11.Error); !ok || p11err != pkcs11.CKR_USER_ALREADY_LOGGED_IN {
			ctx.Destroy()
			return nil, sdkerr.WrapConfiguration(err, "PKCS11 login failed")
		}
	}
	return s, nil
}

func findSlot(ctx *pkcs11.Ctx, label string) (uint, error) {
	slots, err := ctx.GetSlotList(true)
	if err != nil {
		return 0, errors.Wrap(err, "could not get slot list")
	}
	for _, slot := range slots {
		info, err := ctx.GetTokenInfo(slot)
		if err != nil {
			continue
		}
		if info.Label == label {
			return slot, nil
		}
	}
	return 0, errors.Errorf("no token with label [%s]", label)
}

func (s *CryptoSuite) getSession() (pkcs11.SessionHandle, error) {
	s.mu.Lock()
	if n := len(s.sessions); n > 0 {
		session := s.sessions[n-1]
		s.sessions = s.sessions[:n-1]
		s.mu.Unlock()
		return session, nil
	}
	s.mu.Unlock()
	return s.ctx.OpenSession(s.slot, pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
}

func (s *CryptoSuite) returnSession(session pkcs11.SessionHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
}

// Close releases sessions and the library
func (s *CryptoSuite) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if err := s.ctx.CloseSession(session); err != nil {
			logger.Debugf("closing PKCS11 session: %s", err)
		}
	}
	s.sessions = nil
	if err := s.ctx.Finalize(); err != nil {
		logger.Debugf("finalizing PKCS11: %s", err)
	}
	s.ctx.Destroy()
}

// KeyGen generates an EC key pair inside the token
func (s *CryptoSuite) KeyGen(opts core.KeyGenOpts) (core.Key, error) {
	if opts == nil {
		return nil, errors.New("invalid opts, it must not be nil")
	}
	curve := s.curve
	switch opts.Algorithm() {
	case cryptosuite.ECDSA:
	case cryptosuite.ECDSAP256:
		curve = oidNamedCurveP256
	case cryptosuite.ECDSAP384:
		curve = oidNamedCurveP384
	default:
		return nil, errors.Errorf("unsupported key generation algorithm [%s]", opts.Algorithm())
	}

	session, err := s.getSession()
	if err != nil {
		return nil, err
	}
	defer s.returnSession(session)

	params, err := asn1.Marshal(curve)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal curve OID")
	}

	tmpID := []byte("tmp")
	pubT := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, pkcs11.CKK_EC),
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PUBLIC_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_TOKEN, !opts.Ephemeral()),
		pkcs11.NewAttribute(pkcs11.CKA_VERIFY, true),
		pkcs11.NewAttribute(pkcs11.CKA_EC_PARAMS, params),
		pkcs11.NewAttribute(pkcs11.CKA_PRIVATE, false),
		pkcs11.NewAttribute(pkcs11.CKA_ID, tmpID),
	}
	privT := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, pkcs11.CKK_EC),
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PRIVATE_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_TOKEN, !opts.Ephemeral()),
		pkcs11.NewAttribute(pkcs11.CKA_PRIVATE, true),
		pkcs11.NewAttribute(pkcs11.CKA_SIGN, true),
		pkcs11.NewAttribute(pkcs11.CKA_ID, tmpID),
		pkcs11.NewAttribute(pkcs11.CKA_EXTRACTABLE, false),
		pkcs11.NewAttribute(pkcs11.CKA_SENSITIVE, true),
	}

	pubH, privH, err := s.ctx.GenerateKeyPair(session,
		[]*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_EC_KEY_PAIR_GEN, nil)}, pubT, privT)
	if err != nil {
		return nil, errors.Wrap(err, "PKCS11 key generation failed")
	}

	pub, err := s.publicKey(session, pubH)
	if err != nil {
		return nil, err
	}
	ski := cryptosuite.SKI(pub)

	// objects are addressed by SKI from now on
	idAttr := []*pkcs11.Attribute{pkcs11.NewAttribute(pkcs11.CKA_ID, ski)}
	if err := s.ctx.SetAttributeValue(session, pubH, idAttr); err != nil {
		return nil, errors.Wrap(err, "setting public key id failed")
	}
	if err := s.ctx.SetAttributeValue(session, privH, idAttr); err != nil {
		return nil, errors.Wrap(err, "setting private key id failed")
	}

	k := &Key{ski: ski, pub: pub, private: true}
	s.mu.Lock()
	s.keys[hex.EncodeToString(ski)] = k
	s.mu.Unlock()
	return k, nil
}

// publicKey reads CKA_EC_POINT and CKA_EC_PARAMS of a public key object
func (s *CryptoSuite) publicKey(session pkcs11.SessionHandle, obj pkcs11.ObjectHandle) (*ecdsa.PublicKey, error) {
	attrs, err := s.ctx.GetAttributeValue(session, obj, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_EC_POINT, nil),
		pkcs11.NewAttribute(pkcs11.CKA_EC_PARAMS, nil),
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading EC point failed")
	}

	var point, params []byte
	for _, a := range attrs {
		switch a.Type {
		case pkcs11.CKA_EC_POINT:
			point = a.Value
		case pkcs11.CKA_EC_PARAMS:
			params = a.Value
		}
	}
	if point == nil || params == nil {
		return nil, errors.New("CKA_EC_POINT not found, perhaps not an EC key")
	}
	return decodeECPoint(params, point)
}

func decodeECPoint(params, point []byte) (*ecdsa.PublicKey, error) {
	var oid asn1.ObjectIdentifier
	if _, err := asn1.Unmarshal(params, &oid); err != nil {
		return nil, errors.Wrap(err, "invalid EC params")
	}
	var curve elliptic.Curve
	switch {
	case oid.Equal(oidNamedCurveP256):
		curve = elliptic.P256()
	case oid.Equal(oidNamedCurveP384):
		curve = elliptic.P384()
	default:
		return nil, errors.Errorf("unsupported curve %s", oid)
	}

	// CKA_EC_POINT is a DER OCTET STRING wrapping the uncompressed point
	raw := point
	var unwrapped []byte
	if rest, err := asn1.Unmarshal(point, &unwrapped); err == nil && len(rest) == 0 {
		raw = unwrapped
	}
	x, y := elliptic.Unmarshal(curve, raw) // nolint: staticcheck
	if x == nil {
		return nil, errors.New("failed decoding EC point")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func (s *CryptoSuite) findObject(session pkcs11.SessionHandle, ski []byte, class uint) (pkcs11.ObjectHandle, error) {
	template := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, class),
		pkcs11.NewAttribute(pkcs11.CKA_ID, ski),
	}
	if err := s.ctx.FindObjectsInit(session, template); err != nil {
		return 0, err
	}
	objs, _, err := s.ctx.FindObjects(session, 1)
	if finErr := s.ctx.FindObjectsFinal(session); finErr != nil && err == nil {
		err = finErr
	}
	if err != nil {
		return 0, err
	}
	if len(objs) == 0 {
		return 0, errors.Errorf("key with SKI %x not found", ski)
	}
	return objs[0], nil
}

// KeyImport imports public material in software. Private keys can not be imported.
func (s *CryptoSuite) KeyImport(raw interface{}, opts core.KeyImportOpts) (core.Key, error) {
	if opts != nil && opts.Algorithm() == cryptosuite.ECDSAPrivKey {
		return nil, errors.New("private key import is not supported by the PKCS11 suite")
	}
	return s.soft.KeyImport(raw, opts)
}

// GetKey returns a token key looked up by SKI
func (s *CryptoSuite) GetKey(ski []byte) (core.Key, error) {
	if len(ski) == 0 {
		return nil, errors.New("invalid SKI, cannot be of zero length")
	}
	s.mu.Lock()
	k, ok := s.keys[hex.EncodeToString(ski)]
	s.mu.Unlock()
	if ok {
		return k, nil
	}

	session, err := s.getSession()
	if err != nil {
		return nil, err
	}
	defer s.returnSession(session)

	pubH, err := s.findObject(session, ski, pkcs11.CKO_PUBLIC_KEY)
	if err != nil {
		return s.soft.GetKey(ski)
	}
	pub, err := s.publicKey(session, pubH)
	if err != nil {
		return nil, err
	}
	_, privErr := s.findObject(session, ski, pkcs11.CKO_PRIVATE_KEY)

	k = &Key{ski: ski, pub: pub, private: privErr == nil}
	s.mu.Lock()
	s.keys[hex.EncodeToString(ski)] = k
	s.mu.Unlock()
	return k, nil
}

// Hash is done in software
func (s *CryptoSuite) Hash(msg []byte, opts core.HashOpts) ([]byte, error) {
	return s.soft.Hash(msg, opts)
}

// GetHash is done in software
func (s *CryptoSuite) GetHash(opts core.HashOpts) (hash.Hash, error) {
	return s.soft.GetHash(opts)
}

// Sign signs digest with the token's private key for k
func (s *CryptoSuite) Sign(k core.Key, digest []byte, opts core.SignerOpts) ([]byte, error) {
	key, ok := k.(*Key)
	if !ok || !key.private {
		return nil, errors.Errorf("unsupported signing key type %T", k)
	}
	if len(digest) == 0 {
		return nil, errors.New("invalid digest, cannot be empty")
	}

	session, err := s.getSession()
	if err != nil {
		return nil, err
	}
	defer s.returnSession(session)

	privH, err := s.findObject(session, key.ski, pkcs11.CKO_PRIVATE_KEY)
	if err != nil {
		return nil, errors.WithMessage(err, "private key not found")
	}
	if err := s.ctx.SignInit(session, []*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_ECDSA, nil)}, privH); err != nil {
		return nil, errors.Wrap(err, "sign-initialize failed")
	}
	raw, err := s.ctx.Sign(session, digest)
	if err != nil {
		return nil, errors.Wrap(err, "PKCS11 sign failed")
	}

	r := new(big.Int).SetBytes(raw[:len(raw)/2])
	sv := new(big.Int).SetBytes(raw[len(raw)/2:])
	sv, err = cryptosuite.ToLowS(key.pub, sv)
	if err != nil {
		return nil, err
	}
	return cryptosuite.MarshalECDSASignature(r, sv)
}

// Verify checks signature in software when soft verify is set or the key is not
// in the token, otherwise the token verifies.
func (s *CryptoSuite) Verify(k core.Key, signature, digest []byte, opts core.SignerOpts) (bool, error) {
	key, ok := k.(*Key)
	if !ok {
		return s.soft.Verify(k, signature, digest, opts)
	}
	if s.softVerify {
		return cryptosuite.VerifyECDSA(key.pub, signature, digest)
	}

	r, sv, err := cryptosuite.UnmarshalECDSASignature(signature)
	if err != nil {
		return false, err
	}
	lowS, err := cryptosuite.IsLowS(key.pub, sv)
	if err != nil || !lowS {
		return false, errors.New("invalid S, must be smaller than half the order")
	}

	session, err := s.getSession()
	if err != nil {
		return false, err
	}
	defer s.returnSession(session)

	pubH, err := s.findObject(session, key.ski, pkcs11.CKO_PUBLIC_KEY)
	if err != nil {
		return false, errors.WithMessage(err, "public key not found")
	}
	if err := s.ctx.VerifyInit(session, []*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_ECDSA, nil)}, pubH); err != nil {
		return false, errors.Wrap(err, "verify-initialize failed")
	}

	size := (key.pub.Curve.Params().BitSize + 7) / 8
	raw := make([]byte, 2*size)
	r.FillBytes(raw[:size])
	sv.FillBytes(raw[size:])

	if err := s.ctx.Verify(session, digest, raw); err != nil {
		if p11err, ok := err.(pkcs11.Error); ok && p11err == pkcs11.CKR_SIGNATURE_INVALID {
			return false, nil
		}
		return false, errors.Wrap(err, "PKCS11 verify failed")
	}
	return true, nil
}

// Key is a handle on a token key pair
type Key struct {
	ski     []byte
	pub     *ecdsa.PublicKey
	private bool
}

// Bytes returns the public key encoding for public handles
func (k *Key) Bytes() ([]byte, error) {
	if k.private {
		return nil, errors.New("not supported")
	}
	return sw.NewPublicKey(k.pub).Bytes()
}

// SKI returns the subject key identifier
func (k *Key) SKI() []byte {
	return k.ski
}

// Symmetric returns false
func (k *Key) Symmetric() bool { return false }

// Private reports whether the token holds the private half
func (k *Key) Private() bool { return k.private }

// PublicKey returns the public half
func (k *Key) PublicKey() (core.Key, error) {
	return &Key{ski: k.ski, pub: k.pub}, nil
}
