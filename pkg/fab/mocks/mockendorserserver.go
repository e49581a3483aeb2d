/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/protobuf/proto"

	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/util/test"
)

// MockEndorserServer mock endorser server to process endorsement proposals
type MockEndorserServer struct {
	pb.UnimplementedEndorserServer

	Creds credentials.TransportCredentials
	// ProposalError is returned as a gRPC error when set
	ProposalError error
	// Status of the response, 200 when zero
	Status int32
	// Message of the response
	Message string
	// Result is put in the chaincode action, so servers with different results diverge
	Result []byte
	// Delay before answering
	Delay time.Duration

	mu       sync.Mutex
	received []*pb.SignedProposal
	wg       sync.WaitGroup
	srv      *grpc.Server
	addr     string
}

// ProcessProposal mock implementation that returns success if error is not set
func (m *MockEndorserServer) ProcessProposal(ctx context.Context, proposal *pb.SignedProposal) (*pb.ProposalResponse, error) {
	m.mu.Lock()
	m.received = append(m.received, proto.Clone(proposal).(*pb.SignedProposal))
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.ProposalError != nil {
		return nil, m.ProposalError
	}

	status := m.Status
	if status == 0 {
		status = 200
	}
	return &pb.ProposalResponse{
		Version:     1,
		Response:    &pb.Response{Status: status, Message: m.Message, Payload: m.Result},
		Endorsement: &pb.Endorsement{Endorser: []byte("endorser-" + m.addr), Signature: []byte("signature")},
		Payload:     ResponsePayload(m.Result),
	}, nil
}

// Received returns the signed proposals seen so far
func (m *MockEndorserServer) Received() []*pb.SignedProposal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*pb.SignedProposal(nil), m.received...)
}

// ResponsePayload builds a proposal response payload carrying result
func ResponsePayload(result []byte) []byte {
	action, err := proto.Marshal(&pb.ChaincodeAction{
		Results:  result,
		Response: &pb.Response{Status: 200, Payload: result},
	})
	if err != nil {
		return nil
	}
	prp, err := proto.Marshal(&pb.ProposalResponsePayload{ProposalHash: []byte("hash"), Extension: action})
	if err != nil {
		return nil
	}
	return prp
}

// Start the mock endorser server
func (m *MockEndorserServer) Start(address string) string {
	if m.srv != nil {
		panic("MockEndorserServer already started")
	}
	m.srv = newServer(m.Creds)

	lis, err := net.Listen("tcp", address)
	if err != nil {
		panic(fmt.Sprintf("Error starting EndorserServer %s", err))
	}
	m.addr = lis.Addr().String()

	test.Logf("Starting MockEndorserServer [%s]", m.addr)
	pb.RegisterEndorserServer(m.srv, m)
	serve(&m.wg, m.srv, lis)
	return m.addr
}

// Stop the mock endorser server and wait for completion.
func (m *MockEndorserServer) Stop() {
	if m.srv == nil {
		panic("MockEndorserServer not started")
	}
	m.srv.Stop()
	m.wg.Wait()
	m.srv = nil
}

func newServer(creds credentials.TransportCredentials) *grpc.Server {
	if creds != nil {
		return grpc.NewServer(grpc.Creds(creds))
	}
	return grpc.NewServer()
}

func serve(wg *sync.WaitGroup, srv *grpc.Server, lis net.Listener) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(lis); err != nil {
			test.Logf("mock server on %s stopped [%s]", lis.Addr(), err)
		}
	}()
}
