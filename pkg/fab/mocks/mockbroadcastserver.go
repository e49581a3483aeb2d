/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"fmt"
	"io"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/protobuf/proto"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	po "github.com/hyperledger/fabric-protos-go-apiv2/orderer"
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/util/test"
)

// TestBlock is the block Deliver returns when GenesisBlock is not set
var TestBlock = &common.Block{
	Header: &common.BlockHeader{Number: 0},
	Data:   &common.BlockData{Data: [][]byte{[]byte("test")}},
}

// MockBroadcastServer mock orderer. Accepted transactions are committed on Events, if set.
type MockBroadcastServer struct {
	po.UnimplementedAtomicBroadcastServer

	Creds credentials.TransportCredentials
	// BroadcastError is returned as a gRPC error when set
	BroadcastError error
	// BroadcastStatus is sent back, SUCCESS when zero
	BroadcastStatus common.Status
	// ValidationCode is the code committed transactions get on Events
	ValidationCode pb.TxValidationCode
	// Events receives a commit for each accepted transaction
	Events *MockDeliverServer
	// DeliverError is returned from Deliver when set
	DeliverError error
	// GenesisBlock is returned from Deliver
	GenesisBlock *common.Block

	mu       sync.Mutex
	received []*common.Envelope
	srv      *grpc.Server
	wg       sync.WaitGroup
}

// Broadcast mock broadcast
func (m *MockBroadcastServer) Broadcast(server po.AtomicBroadcast_BroadcastServer) error {
	for {
		env, err := server.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.received = append(m.received, env)
		m.mu.Unlock()

		if m.BroadcastError != nil {
			return m.BroadcastError
		}

		status := m.BroadcastStatus
		if status == common.Status_UNKNOWN {
			status = common.Status_SUCCESS
		}
		if err := server.Send(&po.BroadcastResponse{Status: status}); err != nil {
			return err
		}
		if status == common.Status_SUCCESS {
			m.commit(env)
		}
	}
}

func (m *MockBroadcastServer) commit(env *common.Envelope) {
	if m.Events == nil {
		return
	}
	chdr, err := ChannelHeader(env)
	if err != nil {
		test.Logf("mock orderer: bad envelope [%s]", err)
		return
	}
	m.Events.Commit(chdr.ChannelId, chdr.TxId, m.ValidationCode)
}

// Received returns the envelopes seen so far
func (m *MockBroadcastServer) Received() []*common.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*common.Envelope(nil), m.received...)
}

// Deliver mock deliver
func (m *MockBroadcastServer) Deliver(server po.AtomicBroadcast_DeliverServer) error {
	if m.DeliverError != nil {
		return m.DeliverError
	}
	if _, err := server.Recv(); err != nil {
		return err
	}
	block := m.GenesisBlock
	if block == nil {
		block = TestBlock
	}
	if err := server.Send(&po.DeliverResponse{Type: &po.DeliverResponse_Block{Block: block}}); err != nil {
		return err
	}
	return server.Send(&po.DeliverResponse{Type: &po.DeliverResponse_Status{Status: common.Status_SUCCESS}})
}

// Start the mock broadcast server
func (m *MockBroadcastServer) Start(address string) string {
	if m.srv != nil {
		panic("MockBroadcastServer already started")
	}
	m.srv = newServer(m.Creds)

	lis, err := net.Listen("tcp", address)
	if err != nil {
		panic(fmt.Sprintf("Error starting BroadcastServer %s", err))
	}
	addr := lis.Addr().String()

	test.Logf("Starting MockBroadcastServer [%s]", addr)
	po.RegisterAtomicBroadcastServer(m.srv, m)
	serve(&m.wg, m.srv, lis)
	return addr
}

// Stop the mock broadcast server and wait for completion.
func (m *MockBroadcastServer) Stop() {
	if m.srv == nil {
		panic("MockBroadcastServer not started")
	}
	m.srv.Stop()
	m.wg.Wait()
	m.srv = nil
}

// ChannelHeader extracts the channel header of env
func ChannelHeader(env *common.Envelope) (*common.ChannelHeader, error) {
	payload := &common.Payload{}
	if err := proto.Unmarshal(env.Payload, payload); err != nil {
		return nil, err
	}
	if payload.Header == nil {
		return nil, fmt.Errorf("envelope payload has no header")
	}
	chdr := &common.ChannelHeader{}
	if err := proto.Unmarshal(payload.Header.ChannelHeader, chdr); err != nil {
		return nil, err
	}
	return chdr, nil
}
