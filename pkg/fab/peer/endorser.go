/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	reqContext "context"

	"github.com/pkg/errors"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/core/config/endpoint"
	"github.com/hyperledger/fabric-client-go/pkg/fab/comm"
)

// endorser runs proposal simulations on a gRPC endorser
type endorser struct {
	endpoint  *endpoint.Endpoint
	connector *comm.Connector
}

// ProcessTransactionProposal always returns a response naming the endorser, so
// failures can be attributed even when err is set.
func (e *endorser) ProcessTransactionProposal(ctx reqContext.Context, request fab.ProcessProposalRequest) (*fab.TransactionProposalResponse, error) {
	target := e.endpoint.URL()
	logger.Debugf("Processing proposal using endorser: %s", target)

	tpr := &fab.TransactionProposalResponse{Endorser: target}
	if request.SignedProposal == nil {
		return tpr, errors.New("signed proposal is required")
	}

	conn, err := e.connector.Conn(e.endpoint)
	if err != nil {
		return tpr, status.New(status.EndorserClientStatus, status.ConnectionFailed.ToInt32(), err.Error(), []interface{}{target})
	}

	resp, err := pb.NewEndorserClient(conn).ProcessProposal(ctx, request.SignedProposal)
	if err != nil {
		logger.Debugf("process proposal on %s failed [%s]", target, err)
		if rpcStatus, ok := grpcstatus.FromError(err); ok {
			err = status.NewFromGRPCStatus(rpcStatus)
		}
		return tpr, errors.WithMessagef(err, "Transaction processing for endorser [%s]", target)
	}

	tpr.ProposalResponse = resp
	tpr.Status = resp.GetResponse().GetStatus()
	return tpr, checkResponse(resp, target)
}

// checkResponse treats any status but SUCCESS as a failure
func checkResponse(resp *pb.ProposalResponse, target string) error {
	if resp.GetResponse() == nil {
		return status.New(status.EndorserClientStatus, status.MissingEndorsement.ToInt32(), "proposal response has no response", []interface{}{target})
	}
	if resp.GetResponse().GetStatus() != int32(common.Status_SUCCESS) {
		return status.NewFromProposalResponse(resp, target)
	}
	return nil
}
