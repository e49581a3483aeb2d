/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package eventhub

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/fab/events/registry"
	"github.com/hyperledger/fabric-client-go/pkg/fab/mocks"
)

const (
	testAddress = "127.0.0.1:0"
	testChannel = "mychannel"
)

type testSigner struct{}

func (testSigner) Serialize() ([]byte, error) { return []byte("creator"), nil }

func (testSigner) Sign(msg []byte) ([]byte, error) { return []byte("signature"), nil }

func startServer(t *testing.T, srv *mocks.MockDeliverServer) string {
	addr := srv.Start(testAddress)
	t.Cleanup(srv.Stop)
	return "grpc://" + addr
}

func newHub(t *testing.T, url string, opts ...Option) *EventHub {
	opts = append([]Option{
		WithURL(url),
		WithBackoff(func() backoff.BackOff { return backoff.NewConstantBackOff(10 * time.Millisecond) }),
	}, opts...)
	hub, err := New(testChannel, testSigner{}, opts...)
	require.NoError(t, err)
	t.Cleanup(hub.Disconnect)
	return hub
}

func waitStreams(t *testing.T, srv *mocks.MockDeliverServer, n int) {
	require.Eventually(t, func() bool { return srv.Streams() == n }, 5*time.Second, 5*time.Millisecond)
}

func TestNew(t *testing.T) {
	_, err := New("", testSigner{}, WithURL("grpc://127.0.0.1:7053"))
	assert.True(t, sdkerr.IsValidation(err))

	_, err = New(testChannel, nil, WithURL("grpc://127.0.0.1:7053"))
	assert.True(t, sdkerr.IsValidation(err))

	_, err = New(testChannel, testSigner{})
	assert.True(t, sdkerr.IsValidation(err))

	_, err = New(testChannel, testSigner{}, WithURL("ftp://127.0.0.1:7053"))
	assert.True(t, sdkerr.IsInvalidProtocol(err))

	_, err = New(testChannel, testSigner{}, WithURL("grpc://127.0.0.1:7053"), WithNonceSize(0))
	assert.Error(t, err)
}

func TestConnectAndCommit(t *testing.T) {
	srv := &mocks.MockDeliverServer{}
	hub := newHub(t, startServer(t, srv))

	assert.False(t, hub.IsConnected())
	assert.Error(t, hub.HealthCheck(context.Background()))

	require.NoError(t, hub.Connect(context.Background()))
	assert.True(t, hub.IsConnected())
	assert.NoError(t, hub.HealthCheck(context.Background()))
	assert.Error(t, hub.Connect(context.Background()), "second connect must fail")
	waitStreams(t, srv, 1)

	seeks := srv.Seeks()
	require.Len(t, seeks, 1)
	assert.NotNil(t, seeks[0].Start.GetNewest())

	go func() {
		for hub.Registry().Stats().Pending == 0 {
			time.Sleep(time.Millisecond)
		}
		srv.Commit(testChannel, "tx1", pb.TxValidationCode_VALID)
	}()

	event, err := registry.Wait(context.Background(), hub, "tx1", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, pb.TxValidationCode_VALID, event.TxValidationCode)
	assert.Equal(t, uint64(1), event.BlockNumber)
	assert.Equal(t, testChannel, event.ChannelID)
	assert.Equal(t, hub.URL(), event.SourceURL)

	last, ok := hub.LastBlock()
	assert.True(t, ok)
	assert.Equal(t, uint64(1), last)

	assert.False(t, hub.IsClosed())
	hub.Disconnect()
	hub.Disconnect()
	assert.False(t, hub.IsConnected())
	assert.True(t, hub.IsClosed())
	assert.Error(t, hub.Connect(context.Background()))
	waitStreams(t, srv, 0)
}

func TestInvalidTransaction(t *testing.T) {
	srv := &mocks.MockDeliverServer{}
	hub := newHub(t, startServer(t, srv))
	require.NoError(t, hub.Connect(context.Background()))
	waitStreams(t, srv, 1)

	srv.Commit(testChannel, "tx1", pb.TxValidationCode_MVCC_READ_CONFLICT)

	// settled from the recent cache
	require.Eventually(t, func() bool { return hub.Registry().Stats().Unclaimed == 1 }, 5*time.Second, time.Millisecond)
	event, err := registry.Wait(context.Background(), hub, "tx1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, pb.TxValidationCode_MVCC_READ_CONFLICT, event.TxValidationCode)
}

func TestDisconnectInvalidatesRegistrations(t *testing.T) {
	srv := &mocks.MockDeliverServer{}
	hub := newHub(t, startServer(t, srv))
	require.NoError(t, hub.Connect(context.Background()))

	errs := make(chan error, 1)
	go func() {
		_, err := registry.Wait(context.Background(), hub, "tx1", 5*time.Second)
		errs <- err
	}()
	require.Eventually(t, func() bool { return hub.Registry().Stats().Pending == 1 }, 5*time.Second, time.Millisecond)

	hub.Disconnect()

	err := <-errs
	require.Error(t, err)
	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.Disconnected.ToInt32(), s.Code)
}

func TestReconnectResumesAfterLastBlock(t *testing.T) {
	srv := &mocks.MockDeliverServer{}
	hub := newHub(t, startServer(t, srv))
	require.NoError(t, hub.Connect(context.Background()))
	waitStreams(t, srv, 1)

	srv.Commit(testChannel, "tx1", pb.TxValidationCode_VALID)
	require.Eventually(t, func() bool {
		last, ok := hub.LastBlock()
		return ok && last == 1
	}, 5*time.Second, time.Millisecond)

	waitErr := make(chan error, 1)
	go func() {
		event, err := registry.Wait(context.Background(), hub, "tx2", 5*time.Second)
		if err == nil && event.BlockNumber != 2 {
			err = assert.AnError
		}
		waitErr <- err
	}()
	require.Eventually(t, func() bool { return hub.Registry().Stats().Pending == 1 }, 5*time.Second, time.Millisecond)

	// the block committed while the stream is down is replayed after reconnecting
	srv.DropStreams()
	srv.Commit(testChannel, "tx2", pb.TxValidationCode_VALID)

	require.NoError(t, <-waitErr)
	waitStreams(t, srv, 1)
	assert.True(t, hub.IsConnected())
	assert.False(t, hub.IsClosed())

	seeks := srv.Seeks()
	require.GreaterOrEqual(t, len(seeks), 2)
	resumed := seeks[len(seeks)-1].Start.GetSpecified()
	require.NotNil(t, resumed)
	assert.Equal(t, uint64(2), resumed.Number)
}

func TestNoReconnect(t *testing.T) {
	srv := &mocks.MockDeliverServer{}
	hub := newHub(t, startServer(t, srv), WithReconnect(false))
	require.NoError(t, hub.Connect(context.Background()))
	waitStreams(t, srv, 1)

	errs := make(chan error, 1)
	go func() {
		_, err := registry.Wait(context.Background(), hub, "tx1", 5*time.Second)
		errs <- err
	}()
	require.Eventually(t, func() bool { return hub.Registry().Stats().Pending == 1 }, 5*time.Second, time.Millisecond)

	srv.DropStreams()

	err := <-errs
	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.Disconnected.ToInt32(), s.Code)
	assert.False(t, hub.IsConnected())
	assert.True(t, hub.IsClosed())
	assert.Len(t, srv.Seeks(), 1)
}

func TestDeliverRejected(t *testing.T) {
	srv := &mocks.MockDeliverServer{DeliverError: grpcstatus.Error(codes.PermissionDenied, "access denied")}
	hub := newHub(t, startServer(t, srv), WithReconnect(false))
	require.NoError(t, hub.Connect(context.Background()))

	require.Eventually(t, func() bool { return hub.Registry().IsClosed() }, 5*time.Second, time.Millisecond)
	assert.Error(t, hub.RegisterTxEvent("tx1", func(*fab.TxStatusEvent, error) {}))
}

func TestConnectUnreachable(t *testing.T) {
	hub := newHub(t, "grpc://127.0.0.1:1", WithConnectTimeout(200*time.Millisecond))

	err := hub.Connect(context.Background())
	require.Error(t, err)
	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.ConnectionFailed.ToInt32(), s.Code)
	assert.Equal(t, Disconnected, hub.ConnectionState())
}
