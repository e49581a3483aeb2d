/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	reqContext "context"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/multi"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/fab/txn"
)

const (
	cscc          = "cscc"
	csccJoinChain = "JoinChain"
)

func createJoinChainInvokeRequest(genesisBlock []byte) fab.ChaincodeInvokeRequest {
	return fab.ChaincodeInvokeRequest{
		ChaincodeID: cscc,
		Fcn:         csccJoinChain,
		Args:        [][]byte{genesisBlock},
	}
}

// JoinChannel asks every peer of the coordinator to join the channel defined
// by genesisBlock. Each peer must answer with a success status.
func (c *Coordinator) JoinChannel(reqCtx reqContext.Context, signer txn.Signer, genesisBlock *common.Block) error {
	if genesisBlock == nil {
		return sdkerr.Validation("genesis block is required")
	}
	peers := c.Peers()
	if len(peers) == 0 {
		return sdkerr.Configuration("no peers configured for channel [%s]", c.channelID)
	}

	blockBytes, err := proto.Marshal(genesisBlock)
	if err != nil {
		return errors.Wrap(err, "marshal genesis block failed")
	}

	// join proposals are addressed to the peer, not to a channel
	txh, err := txn.NewHeader(signer, "", c.nonceSize)
	if err != nil {
		return err
	}
	proposal, err := txn.CreateChaincodeInvokeProposal(txh, createJoinChainInvokeRequest(blockBytes))
	if err != nil {
		return errors.WithMessage(err, "creating join proposal failed")
	}
	signedProposal, err := txn.SignProposal(signer, proposal.Proposal)
	if err != nil {
		return err
	}

	errs := multi.Errors{}
	for _, r := range txn.ProcessProposal(reqCtx, signedProposal, processors(peers), c.maxConcurrent) {
		if err := responseError(r); err != nil {
			errs = append(errs, errors.WithMessagef(err, "peer [%s] did not join channel [%s]", r.Endorser, c.channelID))
			continue
		}
		logger.Infof("Peer [%s] joined channel [%s]", r.Endorser, c.channelID)
	}
	return errs.ToError()
}

// GenesisBlock fetches block 0 of the channel from one of its orderers
func (c *Coordinator) GenesisBlock(reqCtx reqContext.Context, signer txn.Signer) (*common.Block, error) {
	orderers := c.Orderers()
	if len(orderers) == 0 {
		return nil, sdkerr.Configuration("no orderers configured for channel [%s]", c.channelID)
	}
	envelope, err := txn.CreateSeekEnvelope(signer, c.channelID, c.nonceSize, txn.SeekFrom(0), txn.SeekFrom(0))
	if err != nil {
		return nil, errors.WithMessage(err, "creating seek envelope failed")
	}
	block, err := txn.DeliverBlock(reqCtx, envelope, orderers)
	if err != nil {
		return nil, errors.WithMessagef(err, "retrieving genesis block of channel [%s] failed", c.channelID)
	}
	return block, nil
}
