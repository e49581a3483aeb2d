/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	po "github.com/hyperledger/fabric-protos-go-apiv2/orderer"
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/util/test"
)

// MockDeliverServer is a peer event source serving filtered blocks
type MockDeliverServer struct {
	pb.UnimplementedDeliverServer

	Creds credentials.TransportCredentials
	// DeliverError is returned from DeliverFiltered after the seek request when set
	DeliverError error

	mu       sync.Mutex
	streams  map[int]chan *pb.FilteredBlock
	nextID   int
	blockNum uint64
	history  []*pb.FilteredBlock
	seeks    []*po.SeekInfo
	srv      *grpc.Server
	wg       sync.WaitGroup
}

// DeliverFiltered streams blocks committed after the seek request. A seek to a
// specified block first replays the blocks from that number.
func (m *MockDeliverServer) DeliverFiltered(server pb.Deliver_DeliverFilteredServer) error {
	env, err := server.Recv()
	if err != nil {
		return err
	}
	seek, err := seekInfo(env)
	if err != nil {
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	}

	m.mu.Lock()
	m.seeks = append(m.seeks, seek)
	if m.DeliverError != nil {
		m.mu.Unlock()
		return m.DeliverError
	}
	ch := make(chan *pb.FilteredBlock, 100)
	if start := seek.GetStart().GetSpecified(); start != nil {
		for _, b := range m.history {
			if b.Number >= start.Number {
				ch <- b
			}
		}
	}
	if m.streams == nil {
		m.streams = make(map[int]chan *pb.FilteredBlock)
	}
	id := m.nextID
	m.nextID++
	m.streams[id] = ch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.streams, id)
		m.mu.Unlock()
	}()

	for {
		select {
		case <-server.Context().Done():
			return nil
		case b, ok := <-ch:
			if !ok {
				return grpcstatus.Error(codes.Unavailable, "stream dropped")
			}
			if err := server.Send(&pb.DeliverResponse{Type: &pb.DeliverResponse_FilteredBlock{FilteredBlock: b}}); err != nil {
				return err
			}
		}
	}
}

// Commit delivers a block holding one transaction to every stream
func (m *MockDeliverServer) Commit(channelID, txID string, code pb.TxValidationCode) uint64 {
	m.mu.Lock()
	m.blockNum++
	num := m.blockNum
	m.mu.Unlock()
	m.SendBlock(NewFilteredBlock(channelID, num, NewFilteredTx(txID, code)))
	return num
}

// SendBlock delivers b to every stream
func (m *MockDeliverServer) SendBlock(b *pb.FilteredBlock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.Number > m.blockNum {
		m.blockNum = b.Number
	}
	m.history = append(m.history, b)
	for _, ch := range m.streams {
		select {
		case ch <- b:
		default:
			test.Logf("mock deliver: stream full, dropping block %d", b.Number)
		}
	}
}

// DropStreams fails every open stream with Unavailable
func (m *MockDeliverServer) DropStreams() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.streams {
		close(ch)
		delete(m.streams, id)
	}
}

// Streams returns the number of open streams
func (m *MockDeliverServer) Streams() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

// Seeks returns the seek requests received so far
func (m *MockDeliverServer) Seeks() []*po.SeekInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*po.SeekInfo(nil), m.seeks...)
}

// Start the mock deliver server
func (m *MockDeliverServer) Start(address string) string {
	if m.srv != nil {
		panic("MockDeliverServer already started")
	}
	m.srv = newServer(m.Creds)

	lis, err := net.Listen("tcp", address)
	if err != nil {
		panic(fmt.Sprintf("Error starting DeliverServer %s", err))
	}
	addr := lis.Addr().String()

	test.Logf("Starting MockDeliverServer [%s]", addr)
	pb.RegisterDeliverServer(m.srv, m)
	serve(&m.wg, m.srv, lis)
	return addr
}

// Stop the mock deliver server and wait for completion.
func (m *MockDeliverServer) Stop() {
	if m.srv == nil {
		panic("MockDeliverServer not started")
	}
	m.DropStreams()
	m.srv.Stop()
	m.wg.Wait()
	m.srv = nil
}

func seekInfo(env *common.Envelope) (*po.SeekInfo, error) {
	payload := &common.Payload{}
	if err := proto.Unmarshal(env.GetPayload(), payload); err != nil {
		return nil, err
	}
	seek := &po.SeekInfo{}
	if err := proto.Unmarshal(payload.Data, seek); err != nil {
		return nil, err
	}
	if seek.Start == nil {
		return nil, fmt.Errorf("seek info has no start position")
	}
	return seek, nil
}

// NewFilteredBlock returns a filtered block
func NewFilteredBlock(channelID string, number uint64, txs ...*pb.FilteredTransaction) *pb.FilteredBlock {
	return &pb.FilteredBlock{ChannelId: channelID, Number: number, FilteredTransactions: txs}
}

// NewFilteredTx returns a filtered transaction
func NewFilteredTx(txID string, code pb.TxValidationCode) *pb.FilteredTransaction {
	return &pb.FilteredTransaction{Txid: txID, Type: common.HeaderType_ENDORSER_TRANSACTION, TxValidationCode: code}
}
