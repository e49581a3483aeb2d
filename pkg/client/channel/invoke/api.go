/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package invoke provides the handlers for performing chaincode invocations.
package invoke

import (
	reqContext "context"
	"time"

	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/fab/channel"
	"github.com/hyperledger/fabric-client-go/pkg/fab/txn"
)

// TimeoutType names one step of an invocation
type TimeoutType int

const (
	// Endorsement bounds the endorsement fan-out
	Endorsement TimeoutType = iota
	// Submission bounds the orderer broadcast
	Submission
	// Commit bounds the wait for the commit event
	Commit
)

// Opts allows the user to specify more advanced options
type Opts struct {
	Targets   []fab.Peer
	NonceSize int
	Timeouts  map[TimeoutType]time.Duration
}

// Request contains the parameters to execute transaction
type Request struct {
	ChaincodeID  string
	Fcn          string
	Args         [][]byte
	TransientMap map[string][]byte
}

// Response contains response parameters for query and execute transaction
type Response struct {
	Payload          []byte
	TransactionID    fab.TransactionID
	TxValidationCode pb.TxValidationCode
	BlockNumber      uint64
	Proposal         *fab.TransactionProposal
	Responses        []*fab.TransactionProposalResponse
	// Divergent is the number of endorsements left out for a differing payload
	Divergent int
}

// Handler for chaining transaction executions
type Handler interface {
	Handle(context *RequestContext, clientContext *ClientContext)
}

// ClientContext contains context parameters for handler execution
type ClientContext struct {
	Coordinator *channel.Coordinator
	Signer      txn.Signer
	// Membership verifies endorser signatures when set
	Membership fab.ChannelMembership
	EventHub   fab.TxEventRegistrar
}

// RequestContext contains request, opts, response parameters for handler execution
type RequestContext struct {
	Request     Request
	Opts        Opts
	Response    Response
	Error       error
	Ctx         reqContext.Context
	Endorsement *channel.Endorsement
}

// stepContext derives the context of one network step. Without a timeout
// the request context bounds the step.
func (rc *RequestContext) stepContext(t TimeoutType) (reqContext.Context, reqContext.CancelFunc) {
	if d := rc.Opts.Timeouts[t]; d > 0 {
		return reqContext.WithTimeout(rc.Ctx, d)
	}
	return reqContext.WithCancel(rc.Ctx)
}
