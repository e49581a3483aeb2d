/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package defcore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite"
)

func TestCreateCryptoSuite(t *testing.T) {
	factory := NewProviderFactory()

	suite, err := factory.CreateCryptoSuite(config.CryptoConfig{Provider: "SW", Algorithm: "EC", KeySize: 256, HashFamily: "SHA2"})
	require.NoError(t, err)
	digest, err := suite.Hash([]byte("payload"), cryptosuite.GetSHA256Opts())
	require.NoError(t, err)
	assert.Len(t, digest, 32)

	_, err = factory.CreateCryptoSuite(config.CryptoConfig{Provider: "HSM9000"})
	assert.True(t, sdkerr.IsConfiguration(err), "unknown provider: %v", err)
}

func TestCreateKVStore(t *testing.T) {
	factory := NewProviderFactory()

	store, err := factory.CreateKVStore(context.Background(), config.KVStoreConfig{Type: config.KVStoreMemory})
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Store("key", []byte("value")))
	v, err := store.Load("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	fileStore, err := factory.CreateKVStore(context.Background(), config.KVStoreConfig{Type: config.KVStoreFile, Path: filepath.Join(t.TempDir(), "store")})
	require.NoError(t, err)
	defer fileStore.Close()
	_, err = fileStore.Load("missing")
	assert.Equal(t, core.ErrKeyValueNotFound, err)

	_, err = factory.CreateKVStore(context.Background(), config.KVStoreConfig{Type: "etcd"})
	assert.True(t, sdkerr.IsConfiguration(err))
}

func TestCreateLoggingProvider(t *testing.T) {
	factory := NewProviderFactory()

	p, err := factory.CreateLoggingProvider(config.LoggingConfig{Level: "warn", Modules: map[string]string{"fab/comm": "debug"}})
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, logging.WARNING, p.GetLevel("client/channel"))
	assert.Equal(t, logging.DEBUG, p.GetLevel("fab/comm"))

	_, err = factory.CreateLoggingProvider(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
