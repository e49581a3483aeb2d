/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orderer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/fab/comm"
	"github.com/hyperledger/fabric-client-go/pkg/fab/mocks"
)

const testAddress = "127.0.0.1:0"

func envelope(t *testing.T, channelID, txID string) *fab.SignedEnvelope {
	chdr, err := proto.Marshal(&common.ChannelHeader{ChannelId: channelID, TxId: txID, Type: int32(common.HeaderType_ENDORSER_TRANSACTION)})
	require.NoError(t, err)
	payload, err := proto.Marshal(&common.Payload{Header: &common.Header{ChannelHeader: chdr}, Data: []byte("tx")})
	require.NoError(t, err)
	return &fab.SignedEnvelope{Payload: payload, Signature: []byte("sig")}
}

func TestNew(t *testing.T) {
	_, err := New()
	assert.True(t, sdkerr.IsValidation(err))

	_, err = New(WithURL("http://127.0.0.1:7050"))
	assert.True(t, sdkerr.IsInvalidProtocol(err))

	o, err := New(FromNodeConfig(config.NodeConfig{URL: "plain://orderer:7050"}))
	require.NoError(t, err)
	assert.Equal(t, "plain://orderer:7050", o.URL())
	assert.NoError(t, o.Close())

	cc := comm.NewConnector()
	o, err = New(WithURL("plain://orderer:7050"), WithConnector(cc))
	require.NoError(t, err)
	assert.NoError(t, o.Close())
	assert.NoError(t, cc.Close())
}

func TestSendBroadcast(t *testing.T) {
	events := &mocks.MockDeliverServer{}
	srv := &mocks.MockBroadcastServer{Events: events}
	addr := srv.Start(testAddress)
	defer srv.Stop()

	o, err := New(WithURL("plain://" + addr))
	require.NoError(t, err)
	defer o.Close()

	s, err := o.SendBroadcast(context.Background(), envelope(t, "mychannel", "tx1"))
	require.NoError(t, err)
	assert.Equal(t, common.Status_SUCCESS, *s)

	received := srv.Received()
	require.Len(t, received, 1)
	chdr, err := mocks.ChannelHeader(received[0])
	require.NoError(t, err)
	assert.Equal(t, "tx1", chdr.TxId)

	_, err = o.SendBroadcast(context.Background(), nil)
	assert.Error(t, err)
}

func TestSendBroadcastBadStatus(t *testing.T) {
	srv := &mocks.MockBroadcastServer{BroadcastStatus: common.Status_SERVICE_UNAVAILABLE}
	addr := srv.Start(testAddress)
	defer srv.Stop()

	o, err := New(WithURL("plain://" + addr))
	require.NoError(t, err)
	defer o.Close()

	s, err := o.SendBroadcast(context.Background(), envelope(t, "mychannel", "tx1"))
	require.Error(t, err)
	require.NotNil(t, s)
	assert.Equal(t, common.Status_SERVICE_UNAVAILABLE, *s)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.OrdererServerStatus, st.Group)
	assert.Equal(t, int32(common.Status_SERVICE_UNAVAILABLE), st.Code)
}

func TestSendBroadcastServerError(t *testing.T) {
	srv := &mocks.MockBroadcastServer{BroadcastError: grpcstatus.Error(codes.Unavailable, "down")}
	addr := srv.Start(testAddress)
	defer srv.Stop()

	o, err := New(WithURL("plain://" + addr))
	require.NoError(t, err)
	defer o.Close()

	_, err = o.SendBroadcast(context.Background(), envelope(t, "mychannel", "tx1"))
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.GRPCTransportStatus, st.Group)
}

func TestSendBroadcastUnreachable(t *testing.T) {
	lis, err := net.Listen("tcp", testAddress)
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	o, err := New(WithURL("plain://" + addr))
	require.NoError(t, err)
	defer o.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = o.SendBroadcast(ctx, envelope(t, "mychannel", "tx1"))
	require.Error(t, err)
	if st, ok := status.FromError(err); ok {
		assert.NotEqual(t, status.OrdererServerStatus, st.Group)
	}
}

func TestSendDeliver(t *testing.T) {
	genesis := &common.Block{Header: &common.BlockHeader{Number: 0}, Data: &common.BlockData{Data: [][]byte{[]byte("config")}}}
	srv := &mocks.MockBroadcastServer{GenesisBlock: genesis}
	addr := srv.Start(testAddress)
	defer srv.Stop()

	o, err := New(WithURL("plain://" + addr))
	require.NoError(t, err)
	defer o.Close()

	blocks, errs := o.SendDeliver(context.Background(), envelope(t, "mychannel", ""))
	var got []*common.Block
	for b := range blocks {
		got = append(got, b)
	}
	require.Len(t, got, 1)
	assert.True(t, proto.Equal(genesis, got[0]))
	select {
	case err := <-errs:
		t.Fatalf("unexpected error %s", err)
	default:
	}
}

func TestSendDeliverError(t *testing.T) {
	srv := &mocks.MockBroadcastServer{DeliverError: grpcstatus.Error(codes.NotFound, "no channel")}
	addr := srv.Start(testAddress)
	defer srv.Stop()

	o, err := New(WithURL("plain://" + addr))
	require.NoError(t, err)
	defer o.Close()

	blocks, errs := o.SendDeliver(context.Background(), envelope(t, "mychannel", ""))
	for range blocks {
		t.Fatal("no block expected")
	}
	assert.Error(t, <-errs)
}
