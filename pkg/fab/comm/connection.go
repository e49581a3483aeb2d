/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package comm creates the gRPC client connections used to reach peers and orderers.
package comm

import (
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/core/config/endpoint"
)

var logger = logging.NewLogger("fab/comm")

// Dial creates a client connection to ep. The connection is established lazily
// by gRPC on first use.
func Dial(ep *endpoint.Endpoint, opts ...Option) (*grpc.ClientConn, error) {
	if ep == nil {
		return nil, errors.New("endpoint is required")
	}
	p := defaultParams()
	for _, opt := range opts {
		opt(p)
	}

	conn, err := grpc.NewClient(ep.Address(), dialOpts(ep, p)...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not create connection to %s", ep.URL())
	}
	return conn, nil
}

func dialOpts(ep *endpoint.Endpoint, p *params) []grpc.DialOption {
	var opts []grpc.DialOption

	if p.keepAliveParams.Time > 0 || p.keepAliveParams.Timeout > 0 {
		opts = append(opts, grpc.WithKeepaliveParams(p.keepAliveParams))
	}

	opts = append(opts,
		ep.DialOption(),
		grpc.WithDefaultCallOptions(
			grpc.WaitForReady(!p.failFast),
			grpc.MaxCallRecvMsgSize(MaxMessageSize),
			grpc.MaxCallSendMsgSize(MaxMessageSize),
		),
	)

	zl := p.logger.Zap().With(zap.String("endpoint", ep.URL()))
	opts = append(opts,
		grpc.WithChainUnaryInterceptor(grpc_zap.UnaryClientInterceptor(zl)),
		grpc.WithChainStreamInterceptor(grpc_zap.StreamClientInterceptor(zl)),
	)
	return opts
}
