/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
)

// NewSignatureValidationHandler returns a handler that checks endorser signatures
func NewSignatureValidationHandler(next ...Handler) *SignatureValidationHandler {
	return &SignatureValidationHandler{next: getNext(next)}
}

// SignatureValidationHandler verifies that every endorsement was signed by a
// channel member. Without a membership on the client context it passes.
type SignatureValidationHandler struct {
	next Handler
}

// Handle checks the endorsements of the response
func (f *SignatureValidationHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	if clientContext.Membership != nil {
		txID := requestContext.Response.TransactionID
		if err := validate(clientContext.Membership, requestContext.Response.Responses); err != nil {
			clientContext.Coordinator.Reject(txID)
			requestContext.Error = err
			return
		}
	}

	if f.next != nil {
		f.next.Handle(requestContext, clientContext)
	}
}

func validate(membership fab.ChannelMembership, responses []*fab.TransactionProposalResponse) error {
	var failures []sdkerr.PeerFailure
	for _, r := range responses {
		if err := verifyProposalResponse(membership, r); err != nil {
			failures = append(failures, sdkerr.PeerFailure{Endpoint: r.Endorser, Status: r.Status, Err: err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	cause := status.New(status.EndorserClientStatus, status.SignatureVerificationFailed.ToInt32(),
		"endorsement signature verification failed", nil)
	return sdkerr.Endorsement(cause, failures, "%d of %d endorsements have an invalid signature", len(failures), len(responses))
}

func verifyProposalResponse(membership fab.ChannelMembership, r *fab.TransactionProposalResponse) error {
	endorsement := r.ProposalResponse.GetEndorsement()
	if endorsement == nil {
		return status.New(status.EndorserClientStatus, status.MissingEndorsement.ToInt32(), "missing endorsement in proposal response", nil)
	}

	if err := membership.Validate(endorsement.Endorser); err != nil {
		return status.New(status.EndorserClientStatus, status.SignatureVerificationFailed.ToInt32(),
			"the endorser certificate is not valid", []interface{}{err.Error()})
	}

	// the endorser signs the response payload followed by its own identity
	digest := append(append([]byte(nil), r.ProposalResponse.GetPayload()...), endorsement.Endorser...)
	if err := membership.Verify(endorsement.Endorser, digest, endorsement.Signature); err != nil {
		return status.New(status.EndorserClientStatus, status.SignatureVerificationFailed.ToInt32(),
			"the endorser's signature over the response is not valid", []interface{}{err.Error()})
	}
	return nil
}
