/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fabsdk enables client usage of a Hyperledger Fabric network.
//
// New loads the configuration once and builds everything the channel clients
// share: the crypto suite, the enrollment store, a connection cache, one
// coordinator per configured channel and the operations endpoint.
package fabsdk

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/fab/channel"
	"github.com/hyperledger/fabric-client-go/pkg/fab/channel/membership"
	"github.com/hyperledger/fabric-client-go/pkg/fab/comm"
	"github.com/hyperledger/fabric-client-go/pkg/fab/keyvaluestore"
	"github.com/hyperledger/fabric-client-go/pkg/fabsdk/api"
	"github.com/hyperledger/fabric-client-go/pkg/fabsdk/factory/defcore"
	"github.com/hyperledger/fabric-client-go/pkg/fabsdk/metrics"
	"github.com/hyperledger/fabric-client-go/pkg/fabsdk/operations"
	"github.com/hyperledger/fabric-client-go/pkg/fabsdk/provider/chpvdr"
	"github.com/hyperledger/fabric-client-go/pkg/msp"
)

// FabricSDK provides access (and context) to clients being managed by the SDK
type FabricSDK struct {
	config  *config.Config
	corePkg api.CoreProviderFactory

	logging     *logging.Provider
	ownsLogging bool
	logger      *logging.Logger

	cryptoSuite core.CryptoSuite
	kvStore     keyvaluestore.Store
	enrollments *msp.EnrollmentStore
	connector   *comm.Connector
	membership  *membership.Registry

	registry   *prom.Registry
	metrics    *metrics.ClientMetrics
	operations *operations.System

	mu       sync.Mutex
	channels map[string]*channelContext
	closed   bool
}

// Option configures the SDK
type Option func(sdk *FabricSDK) error

// WithCorePkg injects the core implementation into the SDK
func WithCorePkg(core api.CoreProviderFactory) Option {
	return func(sdk *FabricSDK) error {
		if core == nil {
			return errors.New("core provider factory is required")
		}
		sdk.corePkg = core
		return nil
	}
}

// WithLoggingProvider makes the SDK log through p instead of building a
// provider from the logging section. The SDK does not close p.
func WithLoggingProvider(p *logging.Provider) Option {
	return func(sdk *FabricSDK) error {
		sdk.logging = p
		return nil
	}
}

// WithMetricsRegistry registers the client metrics with r and serves r on
// the operations endpoint
func WithMetricsRegistry(r *prom.Registry) Option {
	return func(sdk *FabricSDK) error {
		sdk.registry = r
		return nil
	}
}

// New initializes the SDK from the configuration returned by configProvider
func New(configProvider config.Provider, opts ...Option) (*FabricSDK, error) {
	if configProvider == nil {
		return nil, errors.New("config provider is required")
	}
	cfg, err := configProvider()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load configuration")
	}

	sdk := &FabricSDK{
		config:     cfg,
		corePkg:    defcore.NewProviderFactory(),
		membership: membership.NewRegistry(),
		channels:   make(map[string]*channelContext),
	}
	for _, opt := range opts {
		if err := opt(sdk); err != nil {
			return nil, errors.WithMessage(err, "Error in option passed to New")
		}
	}

	if err := sdk.initialize(); err != nil {
		sdk.Close()
		return nil, err
	}
	return sdk, nil
}

func (sdk *FabricSDK) initialize() error {
	var err error
	if sdk.logging == nil {
		if sdk.logging, err = sdk.corePkg.CreateLoggingProvider(sdk.config.Logging()); err != nil {
			return err
		}
		sdk.ownsLogging = true
	}
	sdk.logger = sdk.logging.Logger("fabsdk")

	if sdk.cryptoSuite, err = sdk.corePkg.CreateCryptoSuite(sdk.config.CryptoConfig()); err != nil {
		return errors.WithMessage(err, "failed to initialize crypto suite")
	}
	if sdk.kvStore, err = sdk.corePkg.CreateKVStore(context.Background(), sdk.config.Client().KVStore); err != nil {
		return errors.WithMessage(err, "failed to initialize key value store")
	}
	if sdk.enrollments, err = msp.NewEnrollmentStore(sdk.kvStore, sdk.cryptoSuite); err != nil {
		return err
	}

	connOpts := append(comm.OptsFromConfig(sdk.config), comm.WithLogger(sdk.logging.Logger("fab/comm")))
	sdk.connector = comm.NewConnector(connOpts...)

	if sdk.registry == nil {
		sdk.registry = prom.NewRegistry()
	}
	if sdk.metrics, err = metrics.NewClientMetrics(sdk.registry); err != nil {
		return err
	}
	sdk.operations = operations.NewSystem(operations.Options{
		ListenAddress: sdk.config.Operations().ListenAddress,
		Gatherer:      sdk.registry,
		Logging:       sdk.logging,
	})

	for _, id := range sdk.config.ChannelIDs() {
		if err := sdk.addChannel(id); err != nil {
			return err
		}
	}

	if sdk.config.Operations().MetricsEnabled {
		if err := sdk.operations.Start(); err != nil {
			return errors.WithMessage(err, "failed to start operations endpoint")
		}
	}
	return nil
}

func (sdk *FabricSDK) addChannel(channelID string) error {
	chCfg, err := sdk.config.Channel(channelID)
	if err != nil {
		return err
	}

	if chCfg.MSPID != "" && len(chCfg.RootCerts) > 0 {
		roots := make([][]byte, 0, len(chCfg.RootCerts))
		for _, rc := range chCfg.RootCerts {
			pem, err := rc.Bytes()
			if err != nil {
				return errors.WithMessagef(err, "root certificate of channel [%s]", channelID)
			}
			roots = append(roots, pem)
		}
		v, err := membership.New(chCfg.MSPID, roots, sdk.cryptoSuite)
		if err != nil {
			return errors.WithMessagef(err, "membership of channel [%s]", channelID)
		}
		sdk.membership.Register(channelID, v)
	} else {
		sdk.logger.Debugf("No membership roots for channel [%s], endorser signatures are not verified", channelID)
	}

	coordinator, err := channel.New(channelID,
		channel.FromChannelConfig(chCfg, sdk.connector),
		channel.WithNonceSize(sdk.config.Client().NonceSize))
	if err != nil {
		return errors.WithMessagef(err, "failed to create coordinator for channel [%s]", channelID)
	}

	sdk.channels[channelID] = &channelContext{
		channelID:   channelID,
		config:      chCfg,
		coordinator: coordinator,
		hubs:        make(map[string]*chpvdr.HubRef),
	}
	sdk.logger.Debugf("Channel [%s] initialized with %d peers and %d orderers", channelID, len(coordinator.Peers()), len(coordinator.Orderers()))
	return nil
}

// Config returns the loaded configuration
func (sdk *FabricSDK) Config() *config.Config {
	return sdk.config
}

// Logging returns the logging provider the SDK writes to
func (sdk *FabricSDK) Logging() *logging.Provider {
	return sdk.logging
}

// CryptoSuite returns the crypto suite selected by configuration
func (sdk *FabricSDK) CryptoSuite() core.CryptoSuite {
	return sdk.cryptoSuite
}

// KVStore returns the key value store holding enrollments
func (sdk *FabricSDK) KVStore() core.KVStore {
	return sdk.kvStore
}

// EnrollmentStore returns the store of user enrollments
func (sdk *FabricSDK) EnrollmentStore() *msp.EnrollmentStore {
	return sdk.enrollments
}

// Membership returns the per channel membership validators
func (sdk *FabricSDK) Membership() *membership.Registry {
	return sdk.membership
}

// Metrics returns the client metrics shared by all channel clients
func (sdk *FabricSDK) Metrics() *metrics.ClientMetrics {
	return sdk.metrics
}

// MetricsRegistry returns the registry the client metrics are registered with
func (sdk *FabricSDK) MetricsRegistry() *prom.Registry {
	return sdk.registry
}

// Operations returns the metrics, health and log level endpoint
func (sdk *FabricSDK) Operations() *operations.System {
	return sdk.operations
}

// ChannelIDs returns the initialized channels, sorted
func (sdk *FabricSDK) ChannelIDs() []string {
	sdk.mu.Lock()
	defer sdk.mu.Unlock()
	ids := make([]string, 0, len(sdk.channels))
	for id := range sdk.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Coordinator returns the coordinator of channelID
func (sdk *FabricSDK) Coordinator(channelID string) (*channel.Coordinator, error) {
	ch, err := sdk.channel(channelID)
	if err != nil {
		return nil, err
	}
	return ch.coordinator, nil
}

// Close frees up caches and connections being maintained by the SDK
func (sdk *FabricSDK) Close() error {
	sdk.mu.Lock()
	if sdk.closed {
		sdk.mu.Unlock()
		return nil
	}
	sdk.closed = true
	channels := sdk.channels
	sdk.channels = make(map[string]*channelContext)
	sdk.mu.Unlock()

	var err error
	if sdk.operations != nil {
		err = multierr.Append(err, sdk.operations.Stop())
	}
	for _, ch := range channels {
		err = multierr.Append(err, ch.close(sdk.operations))
		sdk.membership.Remove(ch.channelID)
	}
	if sdk.connector != nil {
		err = multierr.Append(err, sdk.connector.Close())
	}
	if sdk.kvStore != nil {
		err = multierr.Append(err, sdk.kvStore.Close())
	}
	if sdk.ownsLogging && sdk.logging != nil {
		// syncing a console sink fails on pipes and terminals
		_ = sdk.logging.Close()
	}
	return err
}
