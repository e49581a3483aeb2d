/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
)

const sampleConfig = `
client:
  cryptoconfig:
    hashFamily: SHA3
    keySize: 384
  nonceSize: 32
  timeouts:
    commit: 5s
  kvstore:
    type: memory
logging:
  level: debug
  format: logfmt
  routes:
    debug: /tmp/debug.log
    error: console
  modules:
    fab/peer: warn
grpc:
  keepalive:
    time: 20s
    timeout: "5s"
    permitWithoutStream: "true"
eventhub:
  recentCacheSize: 10
channels:
  mychannel:
    threshold: 2
    policy: "matching >= 2 && divergent == 0"
    mspID: Org1MSP
    peers:
      - url: plain://peer0:7051
      - url: plain://peer1:7051
    orderers:
      - url: secure://orderer:7050
        tlsCACert:
          pem: inline-pem
        serverHostOverride: orderer.example.com
    eventhub:
      url: plain://peer0:7051
`

func TestFromRaw(t *testing.T) {
	cfg, err := FromRaw([]byte(sampleConfig), "yaml")()
	require.NoError(t, err)

	cc := cfg.CryptoConfig()
	assert.Equal(t, "SW", cc.Provider, "default provider")
	assert.Equal(t, "EC", cc.Algorithm, "default algorithm")
	assert.Equal(t, 384, cc.KeySize)
	assert.Equal(t, "SHA3", cc.HashFamily)

	client := cfg.Client()
	assert.Equal(t, 32, client.NonceSize)
	assert.Equal(t, 5*time.Second, client.Timeouts.Commit)
	assert.Equal(t, defaultTimeout, client.Timeouts.Endorsement, "defaults merge into a partial section")
	assert.Equal(t, defaultConnTimeout, client.Timeouts.Connection)
	assert.Equal(t, KVStoreMemory, client.KVStore.Type)

	lc := cfg.Logging()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "logfmt", lc.Format)
	assert.Equal(t, "/tmp/debug.log", lc.Routes["debug"])
	assert.Equal(t, "console", lc.Routes["error"])
	assert.Equal(t, "warn", lc.Modules["fab/peer"])

	g := cfg.GRPC()
	assert.Equal(t, 20*time.Second, g.KeepaliveTime)
	assert.Equal(t, 5*time.Second, g.KeepaliveTimeout)
	assert.True(t, g.KeepalivePermit)

	assert.Equal(t, 10, cfg.EventHub().RecentCacheSize)
	assert.True(t, cfg.EventHub().Reconnect)
	assert.Equal(t, defaultOperationsAddr, cfg.Operations().ListenAddress)

	assert.Equal(t, []string{"mychannel"}, cfg.ChannelIDs())
	ch, err := cfg.Channel("mychannel")
	require.NoError(t, err)
	assert.Equal(t, 2, ch.Threshold)
	assert.Equal(t, "Org1MSP", ch.MSPID)
	assert.Len(t, ch.Peers, 2)
	assert.Equal(t, "plain://peer1:7051", ch.Peers[1].URL)
	assert.Equal(t, "inline-pem", ch.Orderers[0].TLSCACert.Pem)
	assert.Equal(t, "orderer.example.com", ch.Orderers[0].ServerHostOverride)
	assert.Equal(t, "plain://peer0:7051", ch.EventHub.URL)

	ep, err := ch.Peers[0].Endpoint()
	require.NoError(t, err)
	assert.Equal(t, "peer0:7051", ep.Address())

	_, err = ch.Orderers[0].Endpoint()
	assert.True(t, sdkerr.IsConfiguration(err), "inline pem is not a certificate")

	_, err = cfg.Channel("other")
	assert.True(t, sdkerr.IsConfiguration(err))

	v, ok := cfg.Lookup("channels.mychannel.mspid")
	assert.True(t, ok)
	assert.Equal(t, "Org1MSP", v)
}

func TestDefaults(t *testing.T) {
	cfg, err := FromRaw([]byte("client: {}"), "yaml")()
	require.NoError(t, err)
	assert.Equal(t, defaultNonceSize, cfg.Client().NonceSize)
	assert.Equal(t, KVStoreFile, cfg.Client().KVStore.Type)
	assert.NotEmpty(t, cfg.Client().KVStore.Path)
	assert.Equal(t, 256, cfg.CryptoConfig().KeySize)
	assert.Equal(t, "SHA2", cfg.CryptoConfig().HashFamily)
	assert.Empty(t, cfg.ChannelIDs())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TESTCFG_CLIENT_NONCESIZE", "48")
	cfg, err := FromReader(strings.NewReader("client:\n  nonceSize: 12\n"), "yaml", WithEnvPrefix("TESTCFG"))()
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Client().NonceSize)
}

func TestFromFile(t *testing.T) {
	_, err := FromFile("")()
	assert.True(t, sdkerr.IsConfiguration(err))

	_, err = FromFile(filepath.Join(t.TempDir(), "missing.yaml"))()
	assert.True(t, sdkerr.IsConfiguration(err))

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0600))
	cfg, err := FromFile(path)()
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Client().NonceSize)
}

func TestInvalidConfig(t *testing.T) {
	tests := map[string]string{
		"nonce":     "client:\n  nonceSize: -1\n",
		"kvstore":   "client:\n  kvstore:\n    type: etcd\n",
		"postgres":  "client:\n  kvstore:\n    type: postgres\n",
		"noPeers":   "channels:\n  ch:\n    orderers:\n      - url: plain://o:1\n",
		"noOrderer": "channels:\n  ch:\n    peers:\n      - url: plain://p:1\n",
		"threshold": "channels:\n  ch:\n    threshold: 3\n    peers:\n      - url: plain://p:1\n    orderers:\n      - url: plain://o:1\n",
		"keepalive": "grpc:\n  keepalive:\n    time: soon\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromRaw([]byte(raw), "yaml")()
			require.Error(t, err)
			assert.True(t, sdkerr.IsConfiguration(err), err.Error())
		})
	}

	_, err := FromRaw([]byte("x"), "")()
	assert.True(t, sdkerr.IsConfiguration(err))

	_, err = FromRaw([]byte("x"), "yaml", WithEnvPrefix(""))()
	assert.Error(t, err)
}
