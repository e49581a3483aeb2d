/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	"time"

	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/client/channel/invoke"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
)

// Timeout types accepted by WithTimeout
const (
	Endorsement = invoke.Endorsement
	Submission  = invoke.Submission
	Commit      = invoke.Commit
)

// RequestOption func for each Opts argument
type RequestOption func(opts *invoke.Opts) error

// Request contains the parameters to query and execute an invocation transaction
type Request struct {
	ChaincodeID  string
	Fcn          string
	Args         [][]byte
	TransientMap map[string][]byte
}

// Response contains response parameters for query and execute an invocation transaction
type Response struct {
	TxID             fab.TransactionID
	TxValidationCode pb.TxValidationCode
	BlockNumber      uint64
	Payload          []byte
	Proposal         *fab.TransactionProposal
	Responses        []*fab.TransactionProposalResponse
}

// WithTimeout sets the timeout of one step of the request
func WithTimeout(timeoutType invoke.TimeoutType, timeout time.Duration) RequestOption {
	return func(o *invoke.Opts) error {
		if timeout < 0 {
			return sdkerr.Validation("timeout must not be negative, got %s", timeout)
		}
		if o.Timeouts == nil {
			o.Timeouts = make(map[invoke.TimeoutType]time.Duration)
		}
		o.Timeouts[timeoutType] = timeout
		return nil
	}
}

// WithTargets endorses on the given peers instead of the channel's peers
func WithTargets(targets ...fab.Peer) RequestOption {
	return func(o *invoke.Opts) error {
		o.Targets = targets
		return nil
	}
}

// WithNonceSize overrides the nonce length of the transaction
func WithNonceSize(size int) RequestOption {
	return func(o *invoke.Opts) error {
		if size <= 0 {
			return sdkerr.Validation("nonce size must be positive, got %d", size)
		}
		o.NonceSize = size
		return nil
	}
}
