/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package badgerstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
)

func TestStore(t *testing.T) {
	path := t.TempDir()
	s, err := New(path)
	require.NoError(t, err)

	_, err = s.Load("user1@Org1MSP")
	assert.Equal(t, core.ErrKeyValueNotFound, err)

	require.NoError(t, s.Store("user1@Org1MSP", []byte("enrollment")))
	v, err := s.Load("user1@Org1MSP")
	require.NoError(t, err)
	assert.Equal(t, []byte("enrollment"), v)

	assert.Error(t, s.Store("", []byte("x")))
	assert.Error(t, s.Store("k", nil))
	require.NoError(t, s.Close())

	// values survive a reopen
	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()
	v, err = s.Load("user1@Org1MSP")
	require.NoError(t, err)
	assert.Equal(t, []byte("enrollment"), v)

	require.NoError(t, s.Delete("user1@Org1MSP"))
	require.NoError(t, s.Delete("user1@Org1MSP"))
	_, err = s.Load("user1@Org1MSP")
	assert.Equal(t, core.ErrKeyValueNotFound, err)
}

func TestInMemory(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Store("a", []byte("b")))
	v, err := s.Load("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), v)
}
