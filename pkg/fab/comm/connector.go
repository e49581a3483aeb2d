/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"

	"github.com/hyperledger/fabric-client-go/pkg/core/config/endpoint"
)

// Connector hands out one shared client connection per endpoint URL
type Connector struct {
	opts []Option

	mu     sync.Mutex
	conns  map[string]*grpc.ClientConn
	closed bool
}

// NewConnector creates a connection cache. opts apply to every connection it creates.
func NewConnector(opts ...Option) *Connector {
	return &Connector{opts: opts, conns: make(map[string]*grpc.ClientConn)}
}

// Conn returns the cached connection for ep, creating it on first use
func (cc *Connector) Conn(ep *endpoint.Endpoint) (*grpc.ClientConn, error) {
	if ep == nil {
		return nil, errors.New("endpoint is required")
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.closed {
		return nil, errors.New("connector is closed")
	}
	if conn, ok := cc.conns[ep.URL()]; ok {
		return conn, nil
	}

	conn, err := Dial(ep, cc.opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "connection creation failed")
	}
	logger.Debugf("created connection to %s", ep.URL())
	cc.conns[ep.URL()] = conn
	return conn, nil
}

// Release closes and forgets the connection for url, e.g. after a node was removed
func (cc *Connector) Release(url string) error {
	cc.mu.Lock()
	conn, ok := cc.conns[url]
	delete(cc.conns, url)
	cc.mu.Unlock()
	if !ok {
		return nil
	}
	return conn.Close()
}

// Close closes every cached connection. Later calls to Conn fail.
func (cc *Connector) Close() error {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.closed {
		logger.Warn("Trying to close connector after already closed")
		return nil
	}
	cc.closed = true

	var err error
	for url, conn := range cc.conns {
		err = multierr.Append(err, errors.Wrapf(conn.Close(), "closing connection to %s", url))
	}
	cc.conns = nil
	return err
}

// WaitReady starts connecting conn and blocks until it is ready or ctx is done
func WaitReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("connection is shut down")
		}
		if !conn.WaitForStateChange(ctx, state) {
			return errors.Wrapf(ctx.Err(), "connection to %s not ready (%s)", conn.Target(), state)
		}
	}
}
