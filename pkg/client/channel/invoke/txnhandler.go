/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/fab/channel"
)

var logger = logging.NewLogger("client/invoke")

// EndorsementHandler for endorsing transactions
type EndorsementHandler struct {
	next  Handler
	query bool
}

// Handle for endorsing transactions
func (e *EndorsementHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	ctx, cancel := requestContext.stepContext(Endorsement)
	defer cancel()

	var opts []channel.EndorseOption
	if len(requestContext.Opts.Targets) > 0 {
		opts = append(opts, channel.WithTargets(requestContext.Opts.Targets...))
	}
	if requestContext.Opts.NonceSize > 0 {
		opts = append(opts, channel.WithTxNonceSize(requestContext.Opts.NonceSize))
	}

	request := fab.ChaincodeInvokeRequest{
		ChaincodeID:  requestContext.Request.ChaincodeID,
		Fcn:          requestContext.Request.Fcn,
		Args:         requestContext.Request.Args,
		TransientMap: requestContext.Request.TransientMap,
	}

	endorse := clientContext.Coordinator.Endorse
	if e.query {
		endorse = clientContext.Coordinator.Query
	}
	endorsement, err := endorse(ctx, clientContext.Signer, request, opts...)
	if err != nil {
		requestContext.Error = err
		return
	}

	requestContext.Endorsement = endorsement
	requestContext.Response.TransactionID = endorsement.TxnID
	requestContext.Response.Proposal = endorsement.Proposal
	requestContext.Response.Responses = endorsement.Responses
	requestContext.Response.Payload = endorsement.Payload()
	requestContext.Response.Divergent = endorsement.Tally.Divergent

	if e.next != nil {
		e.next.Handle(requestContext, clientContext)
	}
}

// CommitTxHandler sends the endorsed transaction to an orderer and waits for its commit
type CommitTxHandler struct {
	next Handler
}

// Handle handles commit tx
func (c *CommitTxHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	if clientContext.EventHub == nil {
		clientContext.Coordinator.Reject(requestContext.Response.TransactionID)
		requestContext.Error = errors.New("no event hub to confirm the commit")
		return
	}

	ctx, cancel := requestContext.stepContext(Submission)
	resp, err := clientContext.Coordinator.Submit(ctx, clientContext.Signer, requestContext.Endorsement)
	cancel()
	if err != nil {
		requestContext.Error = errors.WithMessage(err, "submitting transaction failed")
		return
	}
	logger.Debugf("TxID [%s]: accepted by %s, awaiting commit", requestContext.Response.TransactionID, resp.Orderer)

	event, err := clientContext.Coordinator.AwaitCommit(requestContext.Ctx, clientContext.EventHub,
		requestContext.Response.TransactionID, requestContext.Opts.Timeouts[Commit])
	if event != nil {
		requestContext.Response.TxValidationCode = event.TxValidationCode
		requestContext.Response.BlockNumber = event.BlockNumber
	}
	if err != nil {
		requestContext.Error = err
		return
	}

	if c.next != nil {
		c.next.Handle(requestContext, clientContext)
	}
}

// NewQueryHandler returns query handler with chain of EndorsementHandler and SignatureValidationHandler
func NewQueryHandler(next ...Handler) Handler {
	return &EndorsementHandler{
		next:  NewSignatureValidationHandler(next...),
		query: true,
	}
}

// NewExecuteHandler returns execute handler with chain of EndorsementHandler, SignatureValidationHandler and CommitTxHandler
func NewExecuteHandler(next ...Handler) Handler {
	return NewEndorsementHandler(
		NewSignatureValidationHandler(NewCommitHandler(next...)),
	)
}

// NewEndorsementHandler returns a handler that endorses a transaction proposal
func NewEndorsementHandler(next ...Handler) *EndorsementHandler {
	return &EndorsementHandler{next: getNext(next)}
}

// NewCommitHandler returns a handler that commits transaction proposal responses
func NewCommitHandler(next ...Handler) *CommitTxHandler {
	return &CommitTxHandler{next: getNext(next)}
}

func getNext(next []Handler) Handler {
	if len(next) > 0 {
		return next[0]
	}
	return nil
}
