/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/fab/comm"
	"github.com/hyperledger/fabric-client-go/pkg/fab/orderer"
	"github.com/hyperledger/fabric-client-go/pkg/fab/peer"
)

// Option configures a Coordinator
type Option func(*Coordinator) error

// WithPeers adds endorsing peers
func WithPeers(peers ...fab.Peer) Option {
	return func(c *Coordinator) error {
		for _, p := range peers {
			if err := c.AddPeer(p); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithOrderers adds orderers
func WithOrderers(orderers ...fab.Orderer) Option {
	return func(c *Coordinator) error {
		for _, o := range orderers {
			if err := c.AddOrderer(o); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithThreshold sets the minimum number of matching endorsements
func WithThreshold(threshold int) Option {
	return func(c *Coordinator) error {
		if threshold < 1 {
			return sdkerr.Configuration("endorsement threshold must be at least 1, got %d", threshold)
		}
		c.threshold = threshold
		return nil
	}
}

// WithPolicy sets an endorsement policy expression evaluated after the threshold check
func WithPolicy(expression string) Option {
	return func(c *Coordinator) error {
		if expression == "" {
			c.policy = nil
			return nil
		}
		policy, err := NewPolicy(expression)
		if err != nil {
			return err
		}
		c.policy = policy
		return nil
	}
}

// WithMaxConcurrentEndorsements bounds the endorsement fan-out. Zero means no bound.
func WithMaxConcurrentEndorsements(limit int) Option {
	return func(c *Coordinator) error {
		if limit < 0 {
			return sdkerr.Configuration("max concurrent endorsements must not be negative, got %d", limit)
		}
		c.maxConcurrent = limit
		return nil
	}
}

// WithNonceSize sets the default nonce length of new transactions
func WithNonceSize(size int) Option {
	return func(c *Coordinator) error {
		if size <= 0 {
			return sdkerr.Configuration("nonce size must be positive, got %d", size)
		}
		c.nonceSize = size
		return nil
	}
}

// WithTracker shares a state tracker
func WithTracker(tracker *Tracker) Option {
	return func(c *Coordinator) error {
		c.tracker = tracker
		return nil
	}
}

// FromChannelConfig creates the channel's peers and orderers on connector and
// applies its threshold, policy and fan-out limit.
func FromChannelConfig(cfg config.ChannelConfig, connector *comm.Connector) Option {
	return func(c *Coordinator) error {
		for _, nc := range cfg.Peers {
			p, err := peer.New(peer.FromNodeConfig(nc), peer.WithConnector(connector))
			if err != nil {
				return errors.WithMessagef(err, "creating peer for channel [%s] failed", c.channelID)
			}
			if err := c.AddPeer(p); err != nil {
				return err
			}
		}
		for _, nc := range cfg.Orderers {
			o, err := orderer.New(orderer.FromNodeConfig(nc), orderer.WithConnector(connector))
			if err != nil {
				return errors.WithMessagef(err, "creating orderer for channel [%s] failed", c.channelID)
			}
			if err := c.AddOrderer(o); err != nil {
				return err
			}
		}

		threshold := cfg.Threshold
		if threshold == 0 {
			threshold = 1
		}
		if err := WithThreshold(threshold)(c); err != nil {
			return err
		}
		if err := WithPolicy(cfg.Policy)(c); err != nil {
			return err
		}
		return WithMaxConcurrentEndorsements(cfg.MaxConcurrentEndorsements)(c)
	}
}

// EndorseOption adjusts a single endorsement
type EndorseOption func(*endorseOpts)

type endorseOpts struct {
	nonceSize int
	targets   []fab.Peer
}

// WithTxNonceSize overrides the nonce length for one transaction
func WithTxNonceSize(size int) EndorseOption {
	return func(o *endorseOpts) {
		o.nonceSize = size
	}
}

// WithTargets endorses on the given peers instead of the channel's peers
func WithTargets(targets ...fab.Peer) EndorseOption {
	return func(o *endorseOpts) {
		o.targets = targets
	}
}
