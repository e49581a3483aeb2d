/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"time"

	"google.golang.org/grpc/keepalive"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
)

// MaxMessageSize is the send and receive limit for every call
const MaxMessageSize = 100 * 1024 * 1024

type params struct {
	keepAliveParams keepalive.ClientParameters
	failFast        bool
	connectTimeout  time.Duration
	logger          *logging.Logger
}

func defaultParams() *params {
	return &params{
		failFast:       true,
		connectTimeout: 10 * time.Second,
		logger:         logger,
	}
}

// Option configures a connection
type Option func(*params)

// WithKeepAliveParams sets the GRPC keep-alive parameters
func WithKeepAliveParams(value keepalive.ClientParameters) Option {
	return func(p *params) {
		p.keepAliveParams = value
	}
}

// WithFailFast sets the GRPC fail-fast parameter. Without fail-fast calls wait for the
// connection to become ready.
func WithFailFast(value bool) Option {
	return func(p *params) {
		p.failFast = value
	}
}

// WithConnectTimeout sets how long Connector.Conn waits for a connection to become ready
func WithConnectTimeout(value time.Duration) Option {
	return func(p *params) {
		p.connectTimeout = value
	}
}

// WithLogger sets the logger used by the call interceptors
func WithLogger(l *logging.Logger) Option {
	return func(p *params) {
		p.logger = l
	}
}

// OptsFromConfig derives connection options from the client configuration
func OptsFromConfig(cfg *config.Config) []Option {
	g := cfg.GRPC()
	opts := []Option{
		WithKeepAliveParams(keepalive.ClientParameters{
			Time:                g.KeepaliveTime,
			Timeout:             g.KeepaliveTimeout,
			PermitWithoutStream: g.KeepalivePermit,
		}),
	}
	if t := cfg.Client().Timeouts.Connection; t > 0 {
		opts = append(opts, WithConnectTimeout(t))
	}
	return opts
}
