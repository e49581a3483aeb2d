/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	fabmocks "github.com/hyperledger/fabric-client-go/pkg/common/providers/fab/mocks"
	"github.com/hyperledger/fabric-client-go/pkg/fab/mocks"
	"github.com/hyperledger/fabric-client-go/pkg/fab/orderer"
)

// qsccPeer answers every query with result and records the request arguments
func qsccPeer(t *testing.T, ctrl *gomock.Controller, url string, result proto.Message, args *[][]byte) fab.Peer {
	payload, err := proto.Marshal(result)
	require.NoError(t, err)

	p := fabmocks.NewMockPeer(ctrl)
	p.EXPECT().URL().Return(url).AnyTimes()
	p.EXPECT().ProcessTransactionProposal(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, request fab.ProcessProposalRequest) (*fab.TransactionProposalResponse, error) {
			*args = chaincodeArgs(t, request.SignedProposal)
			return endorsedResponse(url, 200, payload), nil
		}).AnyTimes()
	return p
}

func chaincodeArgs(t *testing.T, signed *pb.SignedProposal) [][]byte {
	proposal := &pb.Proposal{}
	require.NoError(t, proto.Unmarshal(signed.ProposalBytes, proposal))
	payload := &pb.ChaincodeProposalPayload{}
	require.NoError(t, proto.Unmarshal(proposal.Payload, payload))
	spec := &pb.ChaincodeInvocationSpec{}
	require.NoError(t, proto.Unmarshal(payload.Input, spec))
	return spec.ChaincodeSpec.Input.Args
}

func TestQueryInfo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	want := &common.BlockchainInfo{Height: 7, CurrentBlockHash: []byte("current")}
	var args [][]byte
	c, err := New(testChannel, WithPeers(qsccPeer(t, ctrl, "grpc://peer0:7051", want, &args)))
	require.NoError(t, err)

	info, err := c.QueryInfo(context.Background(), testSigner{})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, info, protocmp.Transform()))
	assert.Equal(t, [][]byte{[]byte(qsccChannelInfo), []byte(testChannel)}, args)
	assert.Equal(t, 0, c.Tracker().InFlight())
}

func TestQueryBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	want := &common.Block{Header: &common.BlockHeader{Number: 12}}
	var args [][]byte
	c, err := New(testChannel, WithPeers(qsccPeer(t, ctrl, "grpc://peer0:7051", want, &args)))
	require.NoError(t, err)

	block, err := c.QueryBlock(context.Background(), testSigner{}, 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), block.Header.Number)
	assert.Equal(t, [][]byte{[]byte(qsccBlockByNumber), []byte(testChannel), []byte("12")}, args)

	_, err = c.QueryBlockByHash(context.Background(), testSigner{}, []byte("hash"))
	require.NoError(t, err)
	assert.Equal(t, []byte(qsccBlockByHash), args[0])

	_, err = c.QueryBlockByTxID(context.Background(), testSigner{}, "tx1")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte(qsccBlockByTxID), []byte(testChannel), []byte("tx1")}, args)

	_, err = c.QueryBlockByHash(context.Background(), testSigner{}, nil)
	assert.Error(t, err)
	_, err = c.QueryBlockByTxID(context.Background(), testSigner{}, "")
	assert.Error(t, err)
}

func TestQueryTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	want := &pb.ProcessedTransaction{ValidationCode: int32(pb.TxValidationCode_MVCC_READ_CONFLICT)}
	var args [][]byte
	c, err := New(testChannel, WithPeers(qsccPeer(t, ctrl, "grpc://peer0:7051", want, &args)))
	require.NoError(t, err)

	tx, err := c.QueryTransaction(context.Background(), testSigner{}, "tx1")
	require.NoError(t, err)
	assert.Equal(t, int32(pb.TxValidationCode_MVCC_READ_CONFLICT), tx.ValidationCode)
	assert.Equal(t, []byte(qsccTransactionByID), args[0])
}

func TestGenesisBlock(t *testing.T) {
	genesis := &common.Block{
		Header: &common.BlockHeader{Number: 0, DataHash: []byte("genesis")},
		Data:   &common.BlockData{Data: [][]byte{[]byte("config")}},
	}
	srv := &mocks.MockBroadcastServer{GenesisBlock: genesis}
	addr := srv.Start("127.0.0.1:0")
	defer srv.Stop()

	o, err := orderer.New(orderer.WithURL("grpc://" + addr))
	require.NoError(t, err)
	defer o.Close()

	c, err := New(testChannel)
	require.NoError(t, err)
	_, err = c.GenesisBlock(context.Background(), testSigner{})
	assert.Error(t, err, "no orderers")

	require.NoError(t, c.AddOrderer(o))
	block, err := c.GenesisBlock(context.Background(), testSigner{})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(genesis, block, protocmp.Transform()))
}
