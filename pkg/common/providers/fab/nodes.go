/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	reqContext "context"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
)

// ProposalProcessor endorses signed proposals
type ProposalProcessor interface {
	ProcessTransactionProposal(reqContext.Context, ProcessProposalRequest) (*TransactionProposalResponse, error)
}

// Peer is an endorser of a channel. URL identifies it within the channel.
type Peer interface {
	ProposalProcessor
	MSPID() string
	URL() string
}

// Orderer accepts transaction envelopes for ordering.
// SendDeliver streams blocks until the seek range is exhausted or an error
// is sent; both channels are closed afterwards.
type Orderer interface {
	URL() string
	SendBroadcast(ctx reqContext.Context, envelope *SignedEnvelope) (*common.Status, error)
	SendDeliver(ctx reqContext.Context, envelope *SignedEnvelope) (chan *common.Block, chan error)
}

// SignedEnvelope is a marshalled payload with the creator's signature over it
type SignedEnvelope struct {
	Payload   []byte
	Signature []byte
}
