/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package channel drives the submission protocol of one channel: a proposal
// is endorsed by the channel's peers, the consistent endorsements are
// aggregated into a transaction, the transaction is sent to an orderer and
// the coordinator then waits for its commit event.
package channel

import (
	reqContext "context"
	"io"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/fab/events/registry"
	"github.com/hyperledger/fabric-client-go/pkg/fab/txn"
)

var logger = logging.NewLogger("fab/channel")

// Coordinator submits transactions on one channel. It is safe for concurrent
// use; peers and orderers may be added or removed while transactions run.
type Coordinator struct {
	channelID     string
	threshold     int
	policy        *Policy
	maxConcurrent int
	nonceSize     int
	tracker       *Tracker

	mu       sync.RWMutex
	peers    []fab.Peer
	orderers []fab.Orderer
}

// Endorsement is a proposal together with the consistent responses that
// endorse it
type Endorsement struct {
	TxnID     fab.TransactionID
	Proposal  *fab.TransactionProposal
	Responses []*fab.TransactionProposalResponse
	// Failures lists failed and divergent peers that were left out
	Failures []sdkerr.PeerFailure
	Tally    Tally
}

// Payload returns the chaincode response payload of the endorsement
func (e *Endorsement) Payload() []byte {
	if len(e.Responses) == 0 {
		return nil
	}
	return e.Responses[0].GetResponse().GetPayload()
}

// New returns a coordinator for channelID
func New(channelID string, opts ...Option) (*Coordinator, error) {
	if channelID == "" {
		return nil, sdkerr.Validation("channel ID is required")
	}
	c := &Coordinator{
		channelID: channelID,
		threshold: 1,
		nonceSize: txn.DefaultNonceSize,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.tracker == nil {
		c.tracker = NewTracker(DefaultTrackerSize)
	}
	return c, nil
}

// ChannelID returns the channel the coordinator submits to
func (c *Coordinator) ChannelID() string {
	return c.channelID
}

// Tracker returns the transaction state tracker
func (c *Coordinator) Tracker() *Tracker {
	return c.tracker
}

// Threshold returns the minimum number of matching endorsements
func (c *Coordinator) Threshold() int {
	return c.threshold
}

// AddPeer adds an endorsing peer. A peer with the same URL is a ValidationError.
func (c *Coordinator) AddPeer(p fab.Peer) error {
	if p == nil {
		return sdkerr.Validation("peer is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.peers {
		if existing.URL() == p.URL() {
			return sdkerr.Validation("peer [%s] already exists on channel [%s]", p.URL(), c.channelID)
		}
	}
	c.peers = append(c.peers, p)
	return nil
}

// RemovePeer removes the peer with the given URL and returns whether it existed
func (c *Coordinator) RemovePeer(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.peers {
		if p.URL() == url {
			c.peers = append(c.peers[:i:i], c.peers[i+1:]...)
			return true
		}
	}
	return false
}

// Peers returns the endorsing peers in the order they were added
func (c *Coordinator) Peers() []fab.Peer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]fab.Peer(nil), c.peers...)
}

// AddOrderer adds an orderer. An orderer with the same URL is a ValidationError.
func (c *Coordinator) AddOrderer(o fab.Orderer) error {
	if o == nil {
		return sdkerr.Validation("orderer is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.orderers {
		if existing.URL() == o.URL() {
			return sdkerr.Validation("orderer [%s] already exists on channel [%s]", o.URL(), c.channelID)
		}
	}
	c.orderers = append(c.orderers, o)
	return nil
}

// RemoveOrderer removes the orderer with the given URL and returns whether it existed
func (c *Coordinator) RemoveOrderer(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, o := range c.orderers {
		if o.URL() == url {
			c.orderers = append(c.orderers[:i:i], c.orderers[i+1:]...)
			return true
		}
	}
	return false
}

// Orderers returns the orderers in the order they were added
func (c *Coordinator) Orderers() []fab.Orderer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]fab.Orderer(nil), c.orderers...)
}

func (c *Coordinator) transition(txID fab.TransactionID, next State) {
	if err := c.tracker.Transition(txID, next); err != nil {
		logger.Warnf("State tracking: %s", err)
	}
}

// Endorse builds a proposal for request, has it endorsed by the channel's
// peers and aggregates the responses. It fails with an EndorsementError when
// fewer than the threshold of peers returned the same successful payload, or
// when the policy rejects the tally.
//
// A successful endorsement stays in Aggregating until the caller passes it to
// Submit, Reject or Tracker().Forget. The tracker only evicts finished
// transactions, so an endorsement that is dropped without one of these is held
// until the coordinator goes away.
func (c *Coordinator) Endorse(reqCtx reqContext.Context, signer txn.Signer, request fab.ChaincodeInvokeRequest, opts ...EndorseOption) (*Endorsement, error) {
	o := endorseOpts{nonceSize: c.nonceSize}
	for _, opt := range opts {
		opt(&o)
	}
	targets := o.targets
	if len(targets) == 0 {
		targets = c.Peers()
	}
	if len(targets) == 0 {
		return nil, sdkerr.Configuration("no peers configured for channel [%s]", c.channelID)
	}

	txh, err := txn.NewHeader(signer, c.channelID, o.nonceSize)
	if err != nil {
		return nil, err
	}
	proposal, err := txn.CreateChaincodeInvokeProposal(txh, request)
	if err != nil {
		return nil, err
	}
	txID := proposal.TxnID
	if err := c.tracker.begin(txID); err != nil {
		return nil, err
	}

	signedProposal, err := txn.SignProposal(signer, proposal.Proposal)
	if err != nil {
		c.transition(txID, Rejected)
		return nil, err
	}

	c.transition(txID, Endorsing)
	results := txn.ProcessProposal(reqCtx, signedProposal, processors(targets), c.maxConcurrent)

	c.transition(txID, Aggregating)
	agg := aggregate(results)
	logger.Debugf("TxID [%s]: %d of %d endorsements match, %d failed, %d divergent",
		txID, agg.tally.Matching, agg.tally.Total, agg.tally.Failed, agg.tally.Divergent)

	if err := agg.check(txID, c.threshold, c.policy); err != nil {
		c.transition(txID, Rejected)
		return nil, err
	}

	return &Endorsement{
		TxnID:     txID,
		Proposal:  proposal,
		Responses: agg.matching,
		Failures:  agg.failures,
		Tally:     agg.tally,
	}, nil
}

// Query endorses request and returns the endorsement without ordering it
func (c *Coordinator) Query(reqCtx reqContext.Context, signer txn.Signer, request fab.ChaincodeInvokeRequest, opts ...EndorseOption) (*Endorsement, error) {
	e, err := c.Endorse(reqCtx, signer, request, opts...)
	if err != nil {
		return nil, err
	}
	c.tracker.Forget(e.TxnID)
	return e, nil
}

// Submit creates the transaction from the endorsement and sends it to one of
// the channel's orderers. An orderer status other than SUCCESS is returned as
// a SubmissionError and is not retried.
func (c *Coordinator) Submit(reqCtx reqContext.Context, signer txn.Signer, e *Endorsement) (*fab.TransactionResponse, error) {
	if e == nil {
		return nil, sdkerr.Validation("endorsement is required")
	}
	tx, err := txn.New(fab.TransactionRequest{Proposal: e.Proposal, ProposalResponses: e.Responses})
	if err != nil {
		c.transition(e.TxnID, Rejected)
		return nil, err
	}

	c.transition(e.TxnID, Submitted)
	resp, err := txn.Send(reqCtx, signer, tx, c.Orderers())
	if err != nil {
		c.transition(e.TxnID, Rejected)
		return nil, err
	}
	logger.Debugf("TxID [%s] accepted by orderer %s", e.TxnID, resp.Orderer)
	c.transition(e.TxnID, AwaitingCommit)
	return resp, nil
}

// AwaitCommit waits on registrar for the commit of txID. A transaction the
// committer marks invalid is returned with a SubmissionError whose cause holds
// the validation code.
func (c *Coordinator) AwaitCommit(reqCtx reqContext.Context, registrar fab.TxEventRegistrar, txID fab.TransactionID, timeout time.Duration) (*fab.TxStatusEvent, error) {
	event, err := registry.Wait(reqCtx, registrar, txID, timeout)
	if err != nil {
		if sdkerr.IsTimeout(err) {
			c.transition(txID, TimedOut)
		} else {
			c.transition(txID, Rejected)
		}
		return nil, err
	}

	if event.TxValidationCode != pb.TxValidationCode_VALID {
		c.transition(txID, Rejected)
		cause := status.NewFromTxValidationCode(string(txID), event.TxValidationCode)
		return event, sdkerr.Submission(string(txID), common.Status_SUCCESS, cause,
			"transaction [%s] was invalidated with code %s", txID, event.TxValidationCode)
	}
	c.transition(txID, Committed)
	return event, nil
}

// Reject moves an unfinished transaction to Rejected. Callers use it when a
// check of their own fails between coordinator steps. Untracked and finished
// transactions are left alone.
func (c *Coordinator) Reject(txID fab.TransactionID) {
	state, ok := c.tracker.State(txID)
	if !ok || state.IsTerminal() {
		return
	}
	c.transition(txID, Rejected)
}

// Close releases the peers and orderers that hold their own connections
func (c *Coordinator) Close() error {
	c.mu.Lock()
	peers, orderers := c.peers, c.orderers
	c.peers, c.orderers = nil, nil
	c.mu.Unlock()

	var err error
	for _, p := range peers {
		if closer, ok := p.(io.Closer); ok {
			err = multierr.Append(err, closer.Close())
		}
	}
	for _, o := range orderers {
		if closer, ok := o.(io.Closer); ok {
			err = multierr.Append(err, closer.Close())
		}
	}
	return err
}

func processors(peers []fab.Peer) []fab.ProposalProcessor {
	seen := make(map[string]bool, len(peers))
	targets := make([]fab.ProposalProcessor, 0, len(peers))
	for _, p := range peers {
		if seen[p.URL()] {
			logger.Warnf("Duplicate target peer [%s]", p.URL())
			continue
		}
		seen[p.URL()] = true
		targets = append(targets, p)
	}
	return targets
}
