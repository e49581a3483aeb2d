/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pkcs11

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/asn1"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite"
)

func TestNewRequiresLibrary(t *testing.T) {
	_, err := New(cryptosuite.Config{Label: "ForFabric"})
	require.Error(t, err)
	assert.True(t, sdkerr.IsConfiguration(err))

	_, err = New(cryptosuite.Config{Library: "/nonexistent/libsofthsm2.so"})
	require.Error(t, err)
	assert.True(t, sdkerr.IsConfiguration(err), "missing label")
}

func TestNewBadLibrary(t *testing.T) {
	_, err := New(cryptosuite.Config{Library: "/nonexistent/libsofthsm2.so", Label: "ForFabric", Pin: "98765432"})
	require.Error(t, err)
	assert.True(t, sdkerr.IsConfiguration(err))
}

func TestRegistry(t *testing.T) {
	r := cryptosuite.NewRegistry()
	Register(r)
	assert.Contains(t, r.Supported(), "PKCS11/EC")

	_, err := r.New(cryptosuite.Config{Provider: cryptosuite.ProviderPKCS11})
	require.Error(t, err)
	assert.True(t, sdkerr.IsConfiguration(err))
}

func TestDecodeECPoint(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	raw := elliptic.Marshal(elliptic.P256(), priv.X, priv.Y) // nolint: staticcheck

	params, err := asn1.Marshal(oidNamedCurveP256)
	require.NoError(t, err)
	wrapped, err := asn1.Marshal(raw)
	require.NoError(t, err)

	for name, point := range map[string][]byte{"wrapped": wrapped, "bare": raw} {
		pub, err := decodeECPoint(params, point)
		require.NoError(t, err, name)
		assert.Equal(t, 0, pub.X.Cmp(priv.X), name)
		assert.Equal(t, 0, pub.Y.Cmp(priv.Y), name)
	}

	unknown, err := asn1.Marshal(asn1.ObjectIdentifier{1, 2, 3})
	require.NoError(t, err)
	_, err = decodeECPoint(unknown, wrapped)
	assert.Error(t, err)

	_, err = decodeECPoint(params, []byte{1, 2, 3})
	assert.Error(t, err)
}

// TestToken runs against a real token, e.g. SoftHSM:
// PKCS11_LIB=/usr/lib/softhsm/libsofthsm2.so PKCS11_LABEL=ForFabric PKCS11_PIN=98765432
func TestToken(t *testing.T) {
	lib := os.Getenv("PKCS11_LIB")
	if lib == "" {
		t.Skip("PKCS11_LIB not set")
	}
	s, err := New(cryptosuite.Config{
		Library: lib,
		Label:   os.Getenv("PKCS11_LABEL"),
		Pin:     os.Getenv("PKCS11_PIN"),
		KeySize: 256,
	})
	require.NoError(t, err)
	defer s.Close()

	k, err := s.KeyGen(&cryptosuite.ECDSAKeyGenOpts{Temporary: true})
	require.NoError(t, err)
	assert.True(t, k.Private())

	digest, err := s.Hash([]byte("hello"), cryptosuite.GetSHA256Opts())
	require.NoError(t, err)
	sig, err := s.Sign(k, digest, nil)
	require.NoError(t, err)

	ok, err := s.Verify(k, sig, digest, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	s.softVerify = true
	ok, err = s.Verify(k, sig, digest, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := s.GetKey(k.SKI())
	require.NoError(t, err)
	assert.Equal(t, k.SKI(), found.SKI())
}
