/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package peer is the client side of an endorsing peer.
package peer

import (
	reqContext "context"

	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/core/config/endpoint"
	"github.com/hyperledger/fabric-client-go/pkg/fab/comm"
)

var logger = logging.NewLogger("fab/peer")

// Peer represents a node in the target blockchain network to which
// the client sends endorsement proposals or query requests.
type Peer struct {
	endpoint  *endpoint.Endpoint
	processor fab.ProposalProcessor
	mspID     string
	connector *comm.Connector
	ownConn   bool
	connOpts  []comm.Option
}

// Option describes a functional parameter for the New constructor
type Option func(*Peer) error

// New returns a new Peer. An endpoint is required, through WithURL, WithEndpoint or FromNodeConfig.
func New(opts ...Option) (*Peer, error) {
	peer := &Peer{}
	for _, opt := range opts {
		if err := opt(peer); err != nil {
			return nil, err
		}
	}
	if peer.endpoint == nil {
		return nil, sdkerr.Validation("peer endpoint is required")
	}
	if peer.processor == nil {
		if peer.connector == nil {
			peer.connector = comm.NewConnector(peer.connOpts...)
			peer.ownConn = true
		}
		peer.processor = &endorser{endpoint: peer.endpoint, connector: peer.connector}
	}
	return peer, nil
}

// WithURL resolves url into the peer's endpoint
func WithURL(url string, opts ...endpoint.Option) Option {
	return func(p *Peer) error {
		ep, err := endpoint.New(url, opts...)
		if err != nil {
			return err
		}
		p.endpoint = ep
		return nil
	}
}

// WithEndpoint sets an already resolved endpoint
func WithEndpoint(ep *endpoint.Endpoint) Option {
	return func(p *Peer) error {
		p.endpoint = ep
		return nil
	}
}

// WithMSPID sets the peer's MSP ID
func WithMSPID(mspID string) Option {
	return func(p *Peer) error {
		p.mspID = mspID
		return nil
	}
}

// WithConnector shares a connection cache with other nodes
func WithConnector(cc *comm.Connector) Option {
	return func(p *Peer) error {
		p.connector = cc
		return nil
	}
}

// WithConnectionOptions applies opts to a peer owned connection
func WithConnectionOptions(opts ...comm.Option) Option {
	return func(p *Peer) error {
		p.connOpts = append(p.connOpts, opts...)
		return nil
	}
}

// WithProcessor replaces the gRPC endorser, typically with a mock
func WithProcessor(processor fab.ProposalProcessor) Option {
	return func(p *Peer) error {
		p.processor = processor
		return nil
	}
}

// FromNodeConfig configures the peer from its config entry
func FromNodeConfig(cfg config.NodeConfig) Option {
	return func(p *Peer) error {
		ep, err := cfg.Endpoint()
		if err != nil {
			return errors.WithMessagef(err, "peer [%s]", cfg.URL)
		}
		p.endpoint = ep
		p.mspID = cfg.MSPID
		return nil
	}
}

// MSPID gets the Peer mspID.
func (p *Peer) MSPID() string {
	return p.mspID
}

// URL gets the peer address
func (p *Peer) URL() string {
	return p.endpoint.URL()
}

// Endpoint returns the resolved endpoint
func (p *Peer) Endpoint() *endpoint.Endpoint {
	return p.endpoint
}

// ProcessTransactionProposal sends the proposal to the peer and returns its response
func (p *Peer) ProcessTransactionProposal(ctx reqContext.Context, proposal fab.ProcessProposalRequest) (*fab.TransactionProposalResponse, error) {
	return p.processor.ProcessTransactionProposal(ctx, proposal)
}

// Close releases a connection the peer created itself
func (p *Peer) Close() error {
	if p.ownConn {
		return p.connector.Close()
	}
	return nil
}

func (p *Peer) String() string {
	return p.endpoint.URL()
}
