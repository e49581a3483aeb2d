/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"
)

// TransactionID is the hex encoded SHA-256 of nonce || creator
type TransactionID string

// EmptyTransactionID is returned alongside errors raised before an id was assigned
const EmptyTransactionID = TransactionID("")

// TransactionHeader is the identity of a transaction: its id together with
// the nonce and creator it was derived from
type TransactionHeader interface {
	TransactionID() TransactionID
	Creator() []byte
	Nonce() []byte
	ChannelID() string
}

// ChaincodeInvokeRequest names the chaincode function to simulate
type ChaincodeInvokeRequest struct {
	ChaincodeID  string
	Fcn          string
	Args         [][]byte
	TransientMap map[string][]byte
	Lang         pb.ChaincodeSpec_Type
}

// TransactionProposal is an unsigned proposal and the id it carries
type TransactionProposal struct {
	TxnID TransactionID
	*pb.Proposal
}

// ProcessProposalRequest is what a ProposalProcessor receives
type ProcessProposalRequest struct {
	SignedProposal *pb.SignedProposal
}

// TransactionProposalResponse is one endorser's answer. Status repeats the
// response status so callers need not dig into the embedded message.
type TransactionProposalResponse struct {
	Endorser string
	Status   int32
	*pb.ProposalResponse
}

// TransactionRequest pairs a proposal with the endorsements chosen for it
type TransactionRequest struct {
	Proposal          *TransactionProposal
	ProposalResponses []*TransactionProposalResponse
}

// Transaction is an endorsed transaction ready to be enveloped
type Transaction struct {
	Proposal    *TransactionProposal
	Transaction *pb.Transaction
}

// TransactionResponse names the orderer that accepted a transaction
type TransactionResponse struct {
	Orderer string
}
