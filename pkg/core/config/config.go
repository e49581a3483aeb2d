/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config loads client configuration with viper. Values may come from a
// file, a reader or raw bytes and are overridden by FABRIC_CLIENT_* environment
// variables (dots in keys become underscores).
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
)

const (
	cmdRoot = "FABRIC_CLIENT"

	defaultNonceSize       = 24
	defaultTimeout         = 30 * time.Second
	defaultConnTimeout     = 10 * time.Second
	defaultRecentCacheSize = 1000
	defaultOperationsAddr  = "127.0.0.1:9443"
)

type options struct {
	envPrefix string
}

// Option configures the package.
type Option func(opts *options) error

// Provider produces a Config on demand
type Provider func() (*Config, error)

// WithEnvPrefix defines the prefix for environment variable overrides.
// See viper SetEnvPrefix for more information.
func WithEnvPrefix(prefix string) Option {
	return func(opts *options) error {
		if prefix == "" {
			return errors.New("env prefix is empty")
		}
		opts.envPrefix = prefix
		return nil
	}
}

// FromFile reads from named config file
func FromFile(name string, opts ...Option) Provider {
	return func() (*Config, error) {
		if name == "" {
			return nil, sdkerr.Configuration("filename is required")
		}
		v, err := newViper(opts...)
		if err != nil {
			return nil, err
		}

		v.SetConfigFile(name)
		if err := v.MergeInConfig(); err != nil {
			return nil, sdkerr.WrapConfiguration(err, "loading config file failed: %s", name)
		}
		return load(v)
	}
}

// FromReader loads configuration from in.
// configType can be "json" or "yaml".
func FromReader(in io.Reader, configType string, opts ...Option) Provider {
	return func() (*Config, error) {
		return initFromReader(in, configType, opts...)
	}
}

// FromRaw will initialize the configs from a byte array
func FromRaw(configBytes []byte, configType string, opts ...Option) Provider {
	return func() (*Config, error) {
		return initFromReader(bytes.NewBuffer(configBytes), configType, opts...)
	}
}

func initFromReader(in io.Reader, configType string, opts ...Option) (*Config, error) {
	if configType == "" {
		return nil, sdkerr.Configuration("empty config type")
	}
	v, err := newViper(opts...)
	if err != nil {
		return nil, err
	}

	// read config from bytes array, but must set ConfigType
	// for viper to properly unmarshal the bytes array
	v.SetConfigType(configType)
	if err := v.MergeConfig(in); err != nil {
		return nil, sdkerr.WrapConfiguration(err, "reading %s config failed", configType)
	}
	return load(v)
}

func newViper(opts ...Option) (*viper.Viper, error) {
	o := options{envPrefix: cmdRoot}
	for _, option := range opts {
		if err := option(&o); err != nil {
			return nil, errors.WithMessage(err, "Error in options passed to create new config backend")
		}
	}

	v := viper.New()
	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("client.cryptoconfig.provider", "SW")
	v.SetDefault("client.cryptoconfig.algorithm", "EC")
	v.SetDefault("client.cryptoconfig.keysize", 256)
	v.SetDefault("client.cryptoconfig.hashfamily", "SHA2")
	v.SetDefault("client.noncesize", defaultNonceSize)
	v.SetDefault("client.timeouts.endorsement", defaultTimeout)
	v.SetDefault("client.timeouts.submission", defaultTimeout)
	v.SetDefault("client.timeouts.commit", defaultTimeout)
	v.SetDefault("client.timeouts.connection", defaultConnTimeout)
	v.SetDefault("client.kvstore.type", KVStoreFile)
	v.SetDefault("client.kvstore.path", filepath.Join(os.TempDir(), "fabric-client-kvs"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("eventhub.reconnect", true)
	v.SetDefault("eventhub.recentcachesize", defaultRecentCacheSize)
	v.SetDefault("operations.listenaddress", defaultOperationsAddr)
}

// DefaultTimeouts returns the client timeouts used when none are configured
func DefaultTimeouts() TimeoutsConfig {
	return TimeoutsConfig{
		Endorsement: defaultTimeout,
		Submission:  defaultTimeout,
		Commit:      defaultTimeout,
		Connection:  defaultConnTimeout,
	}
}

// settings mirrors the top level layout of the configuration
type settings struct {
	Client     ClientConfig             `mapstructure:"client"`
	Logging    LoggingConfig            `mapstructure:"logging"`
	EventHub   EventHubConfig           `mapstructure:"eventhub"`
	Operations OperationsConfig         `mapstructure:"operations"`
	Channels   map[string]ChannelConfig `mapstructure:"channels"`
}

func load(v *viper.Viper) (*Config, error) {
	decode := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))

	// Unmarshal walks every leaf key, so defaults and env overrides merge
	// into partially specified sections.
	var s settings
	if err := v.Unmarshal(&s, decode); err != nil {
		return nil, sdkerr.WrapConfiguration(err, "invalid configuration")
	}

	c := &Config{
		v:          v,
		client:     s.Client,
		logging:    s.Logging,
		eventHub:   s.EventHub,
		operations: s.Operations,
		channels:   s.Channels,
	}
	if err := c.loadKeepalive(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Config is the decoded client configuration. It is immutable once loaded.
type Config struct {
	v *viper.Viper

	client     ClientConfig
	logging    LoggingConfig
	eventHub   EventHubConfig
	operations OperationsConfig
	grpc       GRPCConfig
	channels   map[string]ChannelConfig
}

// Client returns the client section
func (c *Config) Client() ClientConfig {
	return c.client
}

// CryptoConfig returns the crypto suite selection
func (c *Config) CryptoConfig() CryptoConfig {
	return c.client.CryptoConfig
}

// Logging returns the logging section
func (c *Config) Logging() LoggingConfig {
	return c.logging
}

// EventHub returns the event hub section
func (c *Config) EventHub() EventHubConfig {
	return c.eventHub
}

// Operations returns the operations endpoint section
func (c *Config) Operations() OperationsConfig {
	return c.operations
}

// GRPC returns the gRPC client options
func (c *Config) GRPC() GRPCConfig {
	return c.grpc
}

// ChannelIDs returns the configured channel ids, sorted
func (c *Config) ChannelIDs() []string {
	ids := make([]string, 0, len(c.channels))
	for id := range c.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Channel returns the configuration of channelID.
// An unknown channel is a ConfigurationError.
func (c *Config) Channel(channelID string) (ChannelConfig, error) {
	ch, ok := c.channels[strings.ToLower(channelID)]
	if !ok {
		return ChannelConfig{}, sdkerr.Configuration("channel [%s] is not configured", channelID)
	}
	return ch, nil
}

// Lookup returns a raw config value by key
func (c *Config) Lookup(key string) (interface{}, bool) {
	value := c.v.Get(key)
	if value == nil {
		return nil, false
	}
	return value, true
}

// keepalive settings arrive as a loosely typed map; cast normalises them
func (c *Config) loadKeepalive() error {
	kap := c.v.GetStringMap("grpc.keepalive")
	if len(kap) == 0 {
		return nil
	}
	var err error
	if t, ok := kap["time"]; ok {
		if c.grpc.KeepaliveTime, err = cast.ToDurationE(t); err != nil {
			return sdkerr.WrapConfiguration(err, "invalid grpc.keepalive.time")
		}
	}
	if t, ok := kap["timeout"]; ok {
		if c.grpc.KeepaliveTimeout, err = cast.ToDurationE(t); err != nil {
			return sdkerr.WrapConfiguration(err, "invalid grpc.keepalive.timeout")
		}
	}
	if p, ok := kap["permitwithoutstream"]; ok {
		if c.grpc.KeepalivePermit, err = cast.ToBoolE(p); err != nil {
			return sdkerr.WrapConfiguration(err, "invalid grpc.keepalive.permitWithoutStream")
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.client.NonceSize <= 0 {
		return sdkerr.Configuration("client.nonceSize must be a positive integer, got %d", c.client.NonceSize)
	}
	switch c.client.KVStore.Type {
	case KVStoreFile, KVStoreBadger:
		if c.client.KVStore.Path == "" {
			return sdkerr.Configuration("client.kvstore.path is required for store type [%s]", c.client.KVStore.Type)
		}
	case KVStorePostgres:
		if c.client.KVStore.DSN == "" {
			return sdkerr.Configuration("client.kvstore.dsn is required for store type [%s]", KVStorePostgres)
		}
	case KVStoreMemory:
	default:
		return sdkerr.Configuration("unsupported client.kvstore.type [%s]", c.client.KVStore.Type)
	}

	for id, ch := range c.channels {
		if len(ch.Peers) == 0 {
			return sdkerr.Configuration("channel [%s] has no peers", id)
		}
		if len(ch.Orderers) == 0 {
			return sdkerr.Configuration("channel [%s] has no orderers", id)
		}
		if ch.Threshold < 0 || ch.Threshold > len(ch.Peers) {
			return sdkerr.Configuration("channel [%s] threshold %d is out of range [0,%d]", id, ch.Threshold, len(ch.Peers))
		}
	}
	return nil
}
