/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package eventhub

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/core/config/endpoint"
	"github.com/hyperledger/fabric-client-go/pkg/fab/comm"
	"github.com/hyperledger/fabric-client-go/pkg/fab/events/registry"
	"github.com/hyperledger/fabric-client-go/pkg/fab/txn"
)

type params struct {
	endpoint        *endpoint.Endpoint
	connector       *comm.Connector
	ownConn         bool
	connOpts        []comm.Option
	connectTimeout  time.Duration
	nonceSize       int
	recentCacheSize int
	reconnect       bool
	newBackoff      func() backoff.BackOff
}

func defaultParams() *params {
	return &params{
		connectTimeout:  10 * time.Second,
		nonceSize:       txn.DefaultNonceSize,
		recentCacheSize: registry.DefaultRecentCacheSize,
		reconnect:       true,
		newBackoff:      defaultBackoff,
	}
}

func defaultBackoff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = 5 * time.Minute
	return eb
}

// Option configures an EventHub
type Option func(*params) error

// WithURL resolves url into the hub's endpoint
func WithURL(url string, opts ...endpoint.Option) Option {
	return func(p *params) error {
		ep, err := endpoint.New(url, opts...)
		if err != nil {
			return err
		}
		p.endpoint = ep
		return nil
	}
}

// WithEndpoint sets an already resolved endpoint
func WithEndpoint(ep *endpoint.Endpoint) Option {
	return func(p *params) error {
		p.endpoint = ep
		return nil
	}
}

// FromNodeConfig sets the endpoint from a config entry
func FromNodeConfig(cfg config.NodeConfig) Option {
	return func(p *params) error {
		ep, err := cfg.Endpoint()
		if err != nil {
			return errors.WithMessagef(err, "event hub [%s]", cfg.URL)
		}
		p.endpoint = ep
		return nil
	}
}

// FromConfig applies the event hub section and client settings of cfg
func FromConfig(cfg *config.Config) Option {
	return func(p *params) error {
		p.reconnect = cfg.EventHub().Reconnect
		p.recentCacheSize = cfg.EventHub().RecentCacheSize
		p.nonceSize = cfg.Client().NonceSize
		if t := cfg.Client().Timeouts.Connection; t > 0 {
			p.connectTimeout = t
		}
		return nil
	}
}

// WithConnector shares a connection cache. The hub does not close it.
func WithConnector(cc *comm.Connector) Option {
	return func(p *params) error {
		p.connector = cc
		return nil
	}
}

// WithConnectionOptions is used when the hub owns its connector
func WithConnectionOptions(opts ...comm.Option) Option {
	return func(p *params) error {
		p.connOpts = append(p.connOpts, opts...)
		return nil
	}
}

// WithConnectTimeout bounds how long Connect waits for the peer
func WithConnectTimeout(value time.Duration) Option {
	return func(p *params) error {
		p.connectTimeout = value
		return nil
	}
}

// WithNonceSize sets the nonce length of seek requests
func WithNonceSize(size int) Option {
	return func(p *params) error {
		if size <= 0 {
			return errors.Errorf("nonce size must be positive, got %d", size)
		}
		p.nonceSize = size
		return nil
	}
}

// WithRecentCacheSize sets how many commits are remembered for late registrations
func WithRecentCacheSize(size int) Option {
	return func(p *params) error {
		p.recentCacheSize = size
		return nil
	}
}

// WithReconnect enables or disables reconnecting after a stream failure
func WithReconnect(value bool) Option {
	return func(p *params) error {
		p.reconnect = value
		return nil
	}
}

// WithBackoff sets the reconnect schedule. The factory is called once per outage.
func WithBackoff(newBackoff func() backoff.BackOff) Option {
	return func(p *params) error {
		p.newBackoff = newBackoff
		return nil
	}
}

func envelopeProto(envelope *fab.SignedEnvelope) *common.Envelope {
	return &common.Envelope{Payload: envelope.Payload, Signature: envelope.Signature}
}
