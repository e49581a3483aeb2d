/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package channel runs chaincode invocations on one channel: Execute endorses,
// orders and confirms a transaction, Query only endorses it.
package channel

import (
	reqContext "context"
	"time"

	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/client/channel/invoke"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/fab/channel"
	"github.com/hyperledger/fabric-client-go/pkg/fab/txn"
	"github.com/hyperledger/fabric-client-go/pkg/fabsdk/metrics"
)

var logger = logging.NewLogger("client/channel")

// Client enables access to a channel on a Fabric network.
//
// The event hub is connected at the start of every Execute and disconnected
// when it returns, so clients that run concurrently must share a hub that
// counts its connections.
type Client struct {
	coordinator *channel.Coordinator
	signer      txn.Signer
	hub         fab.EventHub
	membership  fab.ChannelMembership
	metrics     *metrics.ClientMetrics
	timeouts    config.TimeoutsConfig
}

// ClientOption describes a functional parameter for the New constructor
type ClientOption func(*Client) error

// WithEventHub sets the commit event source used by Execute
func WithEventHub(hub fab.EventHub) ClientOption {
	return func(c *Client) error {
		c.hub = hub
		return nil
	}
}

// WithMembership verifies endorser signatures against the channel's members
func WithMembership(membership fab.ChannelMembership) ClientOption {
	return func(c *Client) error {
		c.membership = membership
		return nil
	}
}

// WithMetrics records Execute outcomes
func WithMetrics(m *metrics.ClientMetrics) ClientOption {
	return func(c *Client) error {
		if m == nil {
			return sdkerr.Validation("metrics are required")
		}
		c.metrics = m
		return nil
	}
}

// WithDefaultTimeouts sets the timeouts used when a request does not set its own
func WithDefaultTimeouts(timeouts config.TimeoutsConfig) ClientOption {
	return func(c *Client) error {
		c.timeouts = timeouts
		return nil
	}
}

// New returns a Client that submits through coordinator as signer
func New(coordinator *channel.Coordinator, signer txn.Signer, opts ...ClientOption) (*Client, error) {
	if coordinator == nil {
		return nil, sdkerr.Validation("channel coordinator is required")
	}
	if signer == nil {
		return nil, sdkerr.Validation("signing identity is required")
	}

	c := &Client{
		coordinator: coordinator,
		signer:      signer,
		metrics:     metrics.NewNop(),
		timeouts:    config.DefaultTimeouts(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WithMessage(err, "channel client option failed")
		}
	}
	return c, nil
}

// ChannelID returns the channel the client invokes on
func (cc *Client) ChannelID() string {
	return cc.coordinator.ChannelID()
}

// Query chaincode using request and optional options provided
func (cc *Client) Query(ctx reqContext.Context, request Request, options ...RequestOption) (Response, error) {
	return cc.InvokeHandler(ctx, invoke.NewQueryHandler(), request, options...)
}

// Execute prepares and executes transaction using request and optional options provided.
// It returns once the commit of the transaction has been observed, or with a
// TimeoutError when it was not observed within the commit timeout.
func (cc *Client) Execute(ctx reqContext.Context, request Request, options ...RequestOption) (resp Response, err error) {
	start := time.Now()
	labels := []string{metrics.LabelChannel, cc.ChannelID(), metrics.LabelChaincode, request.ChaincodeID}
	cc.metrics.SubmissionsReceived.With(labels...).Add(1)
	defer func() {
		cc.record(labels, start, err)
	}()

	if cc.hub == nil {
		return Response{}, sdkerr.Configuration("no event hub configured for channel [%s]", cc.ChannelID())
	}

	connectCtx, cancel := withOptionalTimeout(ctx, cc.timeouts.Connection)
	err = cc.hub.Connect(connectCtx)
	cancel()
	if err != nil {
		return Response{}, errors.WithMessagef(err, "connecting event hub %s failed", cc.hub.URL())
	}
	defer cc.hub.Disconnect()

	return cc.InvokeHandler(ctx, invoke.NewExecuteHandler(), request, options...)
}

// InvokeHandler invokes handler using request and options provided
func (cc *Client) InvokeHandler(ctx reqContext.Context, handler invoke.Handler, request Request, options ...RequestOption) (Response, error) {
	opts, err := cc.prepareOpts(options...)
	if err != nil {
		return Response{}, err
	}

	requestContext := &invoke.RequestContext{
		Request: invoke.Request(request),
		Opts:    opts,
		Ctx:     ctx,
	}
	clientContext := &invoke.ClientContext{
		Coordinator: cc.coordinator,
		Signer:      cc.signer,
		Membership:  cc.membership,
		EventHub:    cc.hub,
	}

	handler.Handle(requestContext, clientContext)

	if d := requestContext.Response.Divergent; d > 0 {
		cc.metrics.EndorsementsDivergent.With(metrics.LabelChannel, cc.ChannelID(), metrics.LabelChaincode, request.ChaincodeID).Add(float64(d))
	}

	r := requestContext.Response
	return Response{
		TxID:             r.TransactionID,
		TxValidationCode: r.TxValidationCode,
		BlockNumber:      r.BlockNumber,
		Payload:          r.Payload,
		Proposal:         r.Proposal,
		Responses:        r.Responses,
	}, requestContext.Error
}

func (cc *Client) prepareOpts(options ...RequestOption) (invoke.Opts, error) {
	opts := invoke.Opts{
		Timeouts: map[invoke.TimeoutType]time.Duration{
			invoke.Endorsement: cc.timeouts.Endorsement,
			invoke.Submission:  cc.timeouts.Submission,
			invoke.Commit:      cc.timeouts.Commit,
		},
	}
	for _, option := range options {
		if err := option(&opts); err != nil {
			return opts, errors.WithMessage(err, "Failed to read opts")
		}
	}
	return opts, nil
}

func (cc *Client) record(labels []string, start time.Time, err error) {
	cc.metrics.SubmissionDuration.With(labels...).Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
	case sdkerr.IsTimeout(err):
		cc.metrics.SubmissionsTimeout.With(labels...).Add(1)
	default:
		logger.Debugf("Execute on channel [%s] failed: %s", cc.ChannelID(), err)
		cc.metrics.SubmissionsFailed.With(append(labels, metrics.LabelReason, sdkerr.KindOf(err).String())...).Add(1)
	}
}

func withOptionalTimeout(ctx reqContext.Context, timeout time.Duration) (reqContext.Context, reqContext.CancelFunc) {
	if timeout > 0 {
		return reqContext.WithTimeout(ctx, timeout)
	}
	return reqContext.WithCancel(ctx)
}
