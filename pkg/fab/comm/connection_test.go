/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/core/config/endpoint"
)

func startServer(t *testing.T) string {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	go srv.Serve(lis) // nolint: errcheck
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func TestDial(t *testing.T) {
	_, err := Dial(nil)
	assert.Error(t, err)

	addr := startServer(t)
	ep, err := endpoint.New("plain://" + addr)
	require.NoError(t, err)

	conn, err := Dial(ep, WithKeepAliveParams(keepalive.ClientParameters{Time: time.Minute, Timeout: 10 * time.Second}), WithFailFast(false))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, WaitReady(ctx, conn))
}

func TestWaitReadyTimeout(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	ep, err := endpoint.New("plain://" + addr)
	require.NoError(t, err)
	conn, err := Dial(ep)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.Error(t, WaitReady(ctx, conn))
}

func TestConnector(t *testing.T) {
	addr := startServer(t)
	ep, err := endpoint.New("plain://" + addr)
	require.NoError(t, err)

	cc := NewConnector(WithConnectTimeout(time.Second))
	c1, err := cc.Conn(ep)
	require.NoError(t, err)
	c2, err := cc.Conn(ep)
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	require.NoError(t, cc.Release(ep.URL()))
	require.NoError(t, cc.Release(ep.URL()))
	c3, err := cc.Conn(ep)
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)

	_, err = cc.Conn(nil)
	assert.Error(t, err)

	assert.NoError(t, cc.Close())
	assert.NoError(t, cc.Close())
	_, err = cc.Conn(ep)
	assert.Error(t, err)
}

func TestOptsFromConfig(t *testing.T) {
	cfg, err := config.FromRaw([]byte(`
grpc:
  keepalive:
    time: 30s
    timeout: 5s
    permitWithoutStream: true
channels:
  mychannel:
    peers:
      - url: plain://127.0.0.1:7051
    orderers:
      - url: plain://127.0.0.1:7050
`), "yaml")()
	require.NoError(t, err)

	p := defaultParams()
	for _, opt := range OptsFromConfig(cfg) {
		opt(p)
	}
	assert.Equal(t, 30*time.Second, p.keepAliveParams.Time)
	assert.Equal(t, 5*time.Second, p.keepAliveParams.Timeout)
	assert.True(t, p.keepAliveParams.PermitWithoutStream)
	assert.Equal(t, 10*time.Second, p.connectTimeout)
}
