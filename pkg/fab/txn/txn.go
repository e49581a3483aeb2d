/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package txn enables creating, endorsing and sending transactions to peers and orderers.
package txn

import (
	"bytes"
	reqContext "context"
	"math/rand"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/multi"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
)

var logger = logging.NewLogger("fab/txn")

// New create a transaction with proposal response, following the endorsement policy.
// All responses must be successful and carry the same payload.
func New(request fab.TransactionRequest) (*fab.Transaction, error) {
	if len(request.ProposalResponses) == 0 {
		return nil, sdkerr.Validation("at least one proposal response is necessary")
	}
	proposal := request.Proposal
	if proposal == nil || proposal.Proposal == nil {
		return nil, sdkerr.Validation("proposal is required")
	}

	// the original header
	hdr := &common.Header{}
	if err := proto.Unmarshal(proposal.Header, hdr); err != nil {
		return nil, errors.Wrap(err, "unmarshal proposal header failed")
	}

	// the original payload
	pPayl := &pb.ChaincodeProposalPayload{}
	if err := proto.Unmarshal(proposal.Payload, pPayl); err != nil {
		return nil, errors.Wrap(err, "unmarshal proposal payload failed")
	}

	responsePayload := request.ProposalResponses[0].GetPayload()
	for _, r := range request.ProposalResponses {
		if r.ProposalResponse == nil || r.GetResponse() == nil {
			cause := status.New(status.EndorserClientStatus, status.MissingEndorsement.ToInt32(), "proposal response is empty", []interface{}{r.Endorser})
			return nil, sdkerr.Endorsement(cause, []sdkerr.PeerFailure{{Endpoint: r.Endorser, Err: cause}}, "proposal response from %s is empty", r.Endorser)
		}
		if code := r.GetResponse().GetStatus(); code != int32(common.Status_SUCCESS) {
			cause := status.NewFromProposalResponse(r.ProposalResponse, r.Endorser)
			return nil, sdkerr.Endorsement(cause, []sdkerr.PeerFailure{{Endpoint: r.Endorser, Status: code, Err: cause}},
				"proposal response was not successful, error code %d, msg %s", code, r.GetResponse().GetMessage())
		}
		if !bytes.Equal(responsePayload, r.GetPayload()) {
			cause := status.New(status.EndorserClientStatus, status.EndorsementMismatch.ToInt32(), "payload differs from the first response", []interface{}{r.Endorser})
			return nil, sdkerr.Endorsement(cause, []sdkerr.PeerFailure{{Endpoint: r.Endorser, Divergent: true, Err: cause}},
				"proposal response payloads are not the same (%s)", r.Endorser)
		}
	}

	// fill endorsements
	endorsements := make([]*pb.Endorsement, len(request.ProposalResponses))
	for n, r := range request.ProposalResponses {
		endorsements[n] = r.GetEndorsement()
	}

	cea := &pb.ChaincodeEndorsedAction{ProposalResponsePayload: responsePayload, Endorsements: endorsements}

	// transient data never reaches the ledger
	propPayloadBytes, err := proto.Marshal(&pb.ChaincodeProposalPayload{Input: pPayl.Input})
	if err != nil {
		return nil, errors.Wrap(err, "marshal proposal payload for tx failed")
	}

	capBytes, err := proto.Marshal(&pb.ChaincodeActionPayload{ChaincodeProposalPayload: propPayloadBytes, Action: cea})
	if err != nil {
		return nil, errors.Wrap(err, "marshal chaincode action payload failed")
	}

	taa := &pb.TransactionAction{Header: hdr.SignatureHeader, Payload: capBytes}

	return &fab.Transaction{
		Transaction: &pb.Transaction{Actions: []*pb.TransactionAction{taa}},
		Proposal:    proposal,
	}, nil
}

// CreateSignedEnvelope wraps the transaction in a payload carrying the
// proposal's header and signs it.
func CreateSignedEnvelope(signer Signer, tx *fab.Transaction) (*fab.SignedEnvelope, error) {
	if tx == nil || tx.Transaction == nil {
		return nil, sdkerr.Validation("transaction is nil")
	}
	if tx.Proposal == nil || tx.Proposal.Proposal == nil {
		return nil, sdkerr.Validation("proposal is nil")
	}

	hdr := &common.Header{}
	if err := proto.Unmarshal(tx.Proposal.Header, hdr); err != nil {
		return nil, errors.Wrap(err, "unmarshal proposal header failed")
	}
	txBytes, err := proto.Marshal(tx.Transaction)
	if err != nil {
		return nil, errors.Wrap(err, "marshal transaction failed")
	}

	return SignPayload(signer, &common.Payload{Header: hdr, Data: txBytes})
}

// Send sends a transaction to the chain's orderer service (one or more orderer
// endpoints) for consensus and committing to the ledger.
func Send(reqCtx reqContext.Context, signer Signer, tx *fab.Transaction, orderers []fab.Orderer) (*fab.TransactionResponse, error) {
	if len(orderers) == 0 {
		return nil, sdkerr.Validation("orderers is nil")
	}
	envelope, err := CreateSignedEnvelope(signer, tx)
	if err != nil {
		return nil, err
	}
	return BroadcastEnvelope(reqCtx, tx.Proposal.TxnID, envelope, orderers)
}

// BroadcastEnvelope sends the envelope to one orderer, trying endpoints in
// random order. A transport failure moves on to the next orderer. An orderer
// that answers with a non-SUCCESS status is final and yields a SubmissionError.
func BroadcastEnvelope(reqCtx reqContext.Context, txID fab.TransactionID, envelope *fab.SignedEnvelope, orderers []fab.Orderer) (*fab.TransactionResponse, error) {
	if len(orderers) == 0 {
		return nil, sdkerr.Validation("orderers not set")
	}

	var errs multi.Errors
	for _, i := range rand.Perm(len(orderers)) {
		o := orderers[i]
		logger.Debugf("Broadcasting envelope to orderer :%s", o.URL())

		resp, err := o.SendBroadcast(reqCtx, envelope)
		if err == nil {
			if resp != nil && *resp != common.Status_SUCCESS {
				errs = append(errs, errors.Errorf("orderer '%s' closed the stream with status %s", o.URL(), resp))
				continue
			}
			logger.Debugf("Receive Success Response from orderer :%s", o.URL())
			return &fab.TransactionResponse{Orderer: o.URL()}, nil
		}

		if s, ok := status.FromError(err); ok && s.Group == status.OrdererServerStatus {
			return nil, sdkerr.Submission(string(txID), common.Status(s.Code), err, "orderer '%s' rejected transaction [%s]", o.URL(), txID)
		}
		logger.Debugf("Receive Error Response from orderer :%s", err)
		errs = append(errs, errors.WithMessagef(err, "calling orderer '%s' failed", o.URL()))

		if reqCtx.Err() != nil {
			break
		}
	}
	return nil, sdkerr.Submission(string(txID), common.Status_SERVICE_UNAVAILABLE, errs.ToError(), "no orderer accepted transaction [%s]", txID)
}

// DeliverBlock requests blocks with a seek envelope and returns the first one
// received. Orderers are tried in random order until one delivers.
func DeliverBlock(reqCtx reqContext.Context, envelope *fab.SignedEnvelope, orderers []fab.Orderer) (*common.Block, error) {
	if len(orderers) == 0 {
		return nil, sdkerr.Validation("orderers not set")
	}

	var errs multi.Errors
	for _, i := range rand.Perm(len(orderers)) {
		block, err := deliverOne(reqCtx, envelope, orderers[i])
		if err == nil {
			return block, nil
		}
		errs = append(errs, errors.WithMessagef(err, "deliver from orderer '%s' failed", orderers[i].URL()))
		if reqCtx.Err() != nil {
			break
		}
	}
	return nil, errors.WithMessage(errs.ToError(), "error returned from orderer service")
}

func deliverOne(reqCtx reqContext.Context, envelope *fab.SignedEnvelope, orderer fab.Orderer) (*common.Block, error) {
	ctx, cancel := reqContext.WithCancel(reqCtx)
	defer cancel()

	blocks, errs := orderer.SendDeliver(ctx, envelope)
	select {
	case block, ok := <-blocks:
		if ok {
			return block, nil
		}
		select {
		case err := <-errs:
			return nil, err
		default:
			return nil, errors.New("orderer closed the stream without sending a block")
		}
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "timeout waiting for response from orderer")
	}
}
