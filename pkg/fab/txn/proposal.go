/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	reqContext "context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
)

// CreateChaincodeInvokeProposal creates a proposal for transaction.
func CreateChaincodeInvokeProposal(txh fab.TransactionHeader, request fab.ChaincodeInvokeRequest) (*fab.TransactionProposal, error) {
	if request.ChaincodeID == "" {
		return nil, sdkerr.Validation("ChaincodeID is required")
	}
	if request.Fcn == "" {
		return nil, sdkerr.Validation("Fcn is required")
	}
	if txh == nil {
		return nil, sdkerr.Validation("transaction header is required")
	}

	// Add function name to arguments
	argsArray := make([][]byte, len(request.Args)+1)
	argsArray[0] = []byte(request.Fcn)
	copy(argsArray[1:], request.Args)

	lang := request.Lang
	if lang == pb.ChaincodeSpec_UNDEFINED {
		lang = pb.ChaincodeSpec_GOLANG
	}

	// create invocation spec to target a chaincode with arguments
	ccis := &pb.ChaincodeInvocationSpec{ChaincodeSpec: &pb.ChaincodeSpec{
		Type:        lang,
		ChaincodeId: &pb.ChaincodeID{Name: request.ChaincodeID},
		Input:       &pb.ChaincodeInput{Args: argsArray},
	}}
	ccisBytes, err := proto.Marshal(ccis)
	if err != nil {
		return nil, errors.Wrap(err, "marshal invocation spec failed")
	}

	payloadBytes, err := proto.Marshal(&pb.ChaincodeProposalPayload{Input: ccisBytes, TransientMap: request.TransientMap})
	if err != nil {
		return nil, errors.Wrap(err, "marshal proposal payload failed")
	}

	channelHeader, err := CreateChannelHeader(common.HeaderType_ENDORSER_TRANSACTION, ChannelHeaderOpts{
		TxnHeader:   txh,
		ChaincodeID: request.ChaincodeID,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create chaincode proposal")
	}
	header, err := createHeader(txh, channelHeader)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create chaincode proposal")
	}
	headerBytes, err := proto.Marshal(header)
	if err != nil {
		return nil, errors.Wrap(err, "marshal proposal header failed")
	}

	return &fab.TransactionProposal{
		TxnID:    txh.TransactionID(),
		Proposal: &pb.Proposal{Header: headerBytes, Payload: payloadBytes},
	}, nil
}

// SignProposal signs the marshalled proposal once. The result is what every
// endorser receives.
func SignProposal(signer Signer, proposal *pb.Proposal) (*pb.SignedProposal, error) {
	if signer == nil {
		return nil, errors.New("signer is nil")
	}
	proposalBytes, err := proto.Marshal(proposal)
	if err != nil {
		return nil, errors.Wrap(err, "marshal proposal failed")
	}

	signature, err := signer.Sign(proposalBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "sign failed")
	}

	return &pb.SignedProposal{ProposalBytes: proposalBytes, Signature: signature}, nil
}

// ProposalResult is the settled outcome of one endorsement call. Exactly one
// of Response and Err is set.
type ProposalResult struct {
	Endorser string
	Response *fab.TransactionProposalResponse
	Err      error
}

// ProcessProposal sends the signed proposal to every target concurrently, at
// most limit at a time (zero means no bound), and waits for all calls to
// settle. Results are in target order.
func ProcessProposal(reqCtx reqContext.Context, signedProposal *pb.SignedProposal, targets []fab.ProposalProcessor, limit int) []*ProposalResult {
	request := fab.ProcessProposalRequest{SignedProposal: signedProposal}
	results := make([]*ProposalResult, len(targets))

	g := &errgroup.Group{}
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, p := range targets {
		i, p := i, p
		g.Go(func() error {
			result := &ProposalResult{Endorser: targetName(p)}
			resp, err := p.ProcessTransactionProposal(reqCtx, request)
			if err != nil {
				logger.Debugf("Received error response from txn proposal processing: %s", err)
				result.Err = err
			} else {
				result.Response = resp
			}
			results[i] = result
			// failures are recorded per target, never short-circuit the group
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type urlTarget interface {
	URL() string
}

func targetName(p fab.ProposalProcessor) string {
	if t, ok := p.(urlTarget); ok {
		return t.URL()
	}
	return fmt.Sprintf("%v", p)
}
