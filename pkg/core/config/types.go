/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"time"

	"github.com/hyperledger/fabric-client-go/pkg/core/config/endpoint"
)

// Key-value store types
const (
	KVStoreFile     = "file"
	KVStoreBadger   = "badger"
	KVStorePostgres = "postgres"
	KVStoreMemory   = "memory"
)

// ClientConfig client section
type ClientConfig struct {
	CryptoConfig CryptoConfig   `mapstructure:"cryptoconfig"`
	NonceSize    int            `mapstructure:"noncesize"`
	Timeouts     TimeoutsConfig `mapstructure:"timeouts"`
	KVStore      KVStoreConfig  `mapstructure:"kvstore"`
}

// CryptoConfig selects and parameterises the crypto suite
type CryptoConfig struct {
	// Provider is SW or PKCS11
	Provider   string `mapstructure:"provider"`
	Algorithm  string `mapstructure:"algorithm"`
	KeySize    int    `mapstructure:"keysize"`
	HashFamily string `mapstructure:"hashfamily"`
	Ephemeral  bool   `mapstructure:"ephemeral"`

	Library    string `mapstructure:"library"`
	Pin        string `mapstructure:"pin"`
	Label      string `mapstructure:"label"`
	SoftVerify bool   `mapstructure:"softverify"`
}

// TimeoutsConfig client side timeouts
type TimeoutsConfig struct {
	Endorsement time.Duration `mapstructure:"endorsement"`
	Submission  time.Duration `mapstructure:"submission"`
	Commit      time.Duration `mapstructure:"commit"`
	Connection  time.Duration `mapstructure:"connection"`
}

// KVStoreConfig selects the enrollment store backend
type KVStoreConfig struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
	DSN  string `mapstructure:"dsn"`
}

// LoggingConfig logging section. Routes map a level (debug, info, warn, error)
// to "console" or a file path.
type LoggingConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Routes  map[string]string `mapstructure:"routes"`
	Modules map[string]string `mapstructure:"modules"`
}

// NodeConfig a peer, orderer or event hub
type NodeConfig struct {
	URL                string             `mapstructure:"url"`
	TLSCACert          endpoint.TLSConfig `mapstructure:"tlscacert"`
	ServerHostOverride string             `mapstructure:"serverhostoverride"`
	MSPID              string             `mapstructure:"mspid"`
}

// Endpoint resolves the node URL
func (n NodeConfig) Endpoint() (*endpoint.Endpoint, error) {
	pem, err := n.TLSCACert.Bytes()
	if err != nil {
		return nil, err
	}
	return endpoint.New(n.URL, endpoint.WithTLSCert(pem), endpoint.WithServerHostOverride(n.ServerHostOverride))
}

// ChannelConfig a channel's nodes, endorsement threshold and membership roots
type ChannelConfig struct {
	Peers    []NodeConfig `mapstructure:"peers"`
	Orderers []NodeConfig `mapstructure:"orderers"`
	EventHub NodeConfig   `mapstructure:"eventhub"`

	// Threshold is the minimum number of matching endorsements. Zero means one.
	Threshold int `mapstructure:"threshold"`
	// Policy is an optional expression over matching, total, failed and divergent
	Policy string `mapstructure:"policy"`
	// MaxConcurrentEndorsements bounds the fan-out. Zero means all peers at once.
	MaxConcurrentEndorsements int `mapstructure:"maxconcurrentendorsements"`

	MSPID     string               `mapstructure:"mspid"`
	RootCerts []endpoint.TLSConfig `mapstructure:"rootcerts"`
}

// EventHubConfig event hub behaviour
type EventHubConfig struct {
	Reconnect       bool `mapstructure:"reconnect"`
	RecentCacheSize int  `mapstructure:"recentcachesize"`
}

// OperationsConfig the metrics and health endpoint
type OperationsConfig struct {
	ListenAddress  string `mapstructure:"listenaddress"`
	MetricsEnabled bool   `mapstructure:"metricsenabled"`
}

// GRPCConfig client connection options
type GRPCConfig struct {
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	KeepalivePermit  bool
}
