/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptosuite

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/asn1"
	"math/big"

	"github.com/pkg/errors"
)

type ecdsaSignature struct {
	R, S *big.Int
}

var curveHalfOrders = map[elliptic.Curve]*big.Int{
	elliptic.P224(): new(big.Int).Rsh(elliptic.P224().Params().N, 1),
	elliptic.P256(): new(big.Int).Rsh(elliptic.P256().Params().N, 1),
	elliptic.P384(): new(big.Int).Rsh(elliptic.P384().Params().N, 1),
	elliptic.P521(): new(big.Int).Rsh(elliptic.P521().Params().N, 1),
}

// MarshalECDSASignature encodes r and s as an ASN.1 sequence
func MarshalECDSASignature(r, s *big.Int) ([]byte, error) {
	return asn1.Marshal(ecdsaSignature{r, s})
}

// UnmarshalECDSASignature decodes an ASN.1 signature into r and s
func UnmarshalECDSASignature(raw []byte) (*big.Int, *big.Int, error) {
	sig := new(ecdsaSignature)
	rest, err := asn1.Unmarshal(raw, sig)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed unmarshalling signature")
	}
	if len(rest) != 0 {
		return nil, nil, errors.New("invalid signature, trailing data")
	}
	if sig.R == nil || sig.S == nil {
		return nil, nil, errors.New("invalid signature, R and S must be set")
	}
	if sig.R.Sign() != 1 || sig.S.Sign() != 1 {
		return nil, nil, errors.New("invalid signature, R and S must be larger than zero")
	}
	return sig.R, sig.S, nil
}

// IsLowS reports whether s is at most half the curve order
func IsLowS(k *ecdsa.PublicKey, s *big.Int) (bool, error) {
	halfOrder, ok := curveHalfOrders[k.Curve]
	if !ok {
		return false, errors.Errorf("curve not recognized [%s]", k.Curve.Params().Name)
	}
	return s.Cmp(halfOrder) != 1, nil
}

// ToLowS returns s, or N-s when s is in the upper half of the curve order.
// Signatures are always emitted in low-S form so they are not malleable.
func ToLowS(k *ecdsa.PublicKey, s *big.Int) (*big.Int, error) {
	lowS, err := IsLowS(k, s)
	if err != nil {
		return nil, err
	}
	if lowS {
		return s, nil
	}
	return new(big.Int).Sub(k.Params().N, s), nil
}

// VerifyECDSA checks an ASN.1 signature, rejecting high-S encodings
func VerifyECDSA(k *ecdsa.PublicKey, signature, digest []byte) (bool, error) {
	r, s, err := UnmarshalECDSASignature(signature)
	if err != nil {
		return false, err
	}
	lowS, err := IsLowS(k, s)
	if err != nil {
		return false, err
	}
	if !lowS {
		return false, errors.Errorf("invalid S, must be smaller than half the order [%s][%s]", s, curveHalfOrders[k.Curve])
	}
	return ecdsa.Verify(k, digest, r, s), nil
}

// SKI returns the subject key identifier of an EC public key: the SHA-256 of the
// uncompressed point.
func SKI(k *ecdsa.PublicKey) []byte {
	raw := elliptic.Marshal(k.Curve, k.X, k.Y) // nolint: staticcheck
	h := sha256.Sum256(raw)
	return h[:]
}
