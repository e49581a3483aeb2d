/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	reqContext "context"

	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"
)

// TxStatusEvent contains the data for a transaction status event
type TxStatusEvent struct {
	// TxID is the ID of the transaction in which the event was set
	TxID string
	// ChannelID is the channel of the block that carried the transaction
	ChannelID string
	// TxValidationCode is the status code of the commit
	TxValidationCode pb.TxValidationCode
	// BlockNumber contains the block number in which the
	// transaction was committed
	BlockNumber uint64
	// SourceURL specifies the URL of the peer that produced the event
	SourceURL string
}

// TxCallback receives the commit status of a registered transaction, or an
// error when the registration was invalidated before a commit was seen.
type TxCallback func(event *TxStatusEvent, err error)

// TxEventRegistrar is the registration side of a commit event source
type TxEventRegistrar interface {
	// RegisterTxEvent registers a one-shot callback for txID
	RegisterTxEvent(txID TransactionID, callback TxCallback) error
	// UnregisterTxEvent removes a pending registration. It returns false when
	// there was none, meaning the callback already fired or is firing.
	UnregisterTxEvent(txID TransactionID) bool
}

// EventHub is a commit event source bound to one peer
type EventHub interface {
	TxEventRegistrar
	Connect(ctx reqContext.Context) error
	Disconnect()
	IsConnected() bool
	URL() string
}
