/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	reqContext "context"
	"strconv"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/fab/txn"
)

// Ledger queries are served by the query system chaincode
const (
	qscc                = "qscc"
	qsccTransactionByID = "GetTransactionByID"
	qsccChannelInfo     = "GetChainInfo"
	qsccBlockByHash     = "GetBlockByHash"
	qsccBlockByNumber   = "GetBlockByNumber"
	qsccBlockByTxID     = "GetBlockByTxID"
)

// qsccRequest passes the channel id first, as every qscc function expects
func qsccRequest(fcn, channelID string, args ...[]byte) fab.ChaincodeInvokeRequest {
	return fab.ChaincodeInvokeRequest{ChaincodeID: qscc, Fcn: fcn, Args: append([][]byte{[]byte(channelID)}, args...)}
}

// QueryInfo queries the peers for the height and current block hashes of the channel
func (c *Coordinator) QueryInfo(reqCtx reqContext.Context, signer txn.Signer) (*common.BlockchainInfo, error) {
	info := &common.BlockchainInfo{}
	if err := c.queryLedger(reqCtx, signer, qsccRequest(qsccChannelInfo, c.channelID), info); err != nil {
		return nil, err
	}
	return info, nil
}

// QueryBlock queries the peers for the block with the given number
func (c *Coordinator) QueryBlock(reqCtx reqContext.Context, signer txn.Signer, blockNumber uint64) (*common.Block, error) {
	block := &common.Block{}
	if err := c.queryLedger(reqCtx, signer, qsccRequest(qsccBlockByNumber, c.channelID, []byte(strconv.FormatUint(blockNumber, 10))), block); err != nil {
		return nil, err
	}
	return block, nil
}

// QueryBlockByHash queries the peers for the block with the given header hash
func (c *Coordinator) QueryBlockByHash(reqCtx reqContext.Context, signer txn.Signer, blockHash []byte) (*common.Block, error) {
	if len(blockHash) == 0 {
		return nil, errors.New("blockHash is required")
	}
	block := &common.Block{}
	if err := c.queryLedger(reqCtx, signer, qsccRequest(qsccBlockByHash, c.channelID, blockHash), block); err != nil {
		return nil, err
	}
	return block, nil
}

// QueryBlockByTxID queries the peers for the block holding the given transaction
func (c *Coordinator) QueryBlockByTxID(reqCtx reqContext.Context, signer txn.Signer, txID fab.TransactionID) (*common.Block, error) {
	if txID == "" {
		return nil, errors.New("txID is required")
	}
	block := &common.Block{}
	if err := c.queryLedger(reqCtx, signer, qsccRequest(qsccBlockByTxID, c.channelID, []byte(txID)), block); err != nil {
		return nil, err
	}
	return block, nil
}

// QueryTransaction queries the peers for a processed transaction and its validation code
func (c *Coordinator) QueryTransaction(reqCtx reqContext.Context, signer txn.Signer, txID fab.TransactionID) (*pb.ProcessedTransaction, error) {
	if txID == "" {
		return nil, errors.New("txID is required")
	}
	tx := &pb.ProcessedTransaction{}
	if err := c.queryLedger(reqCtx, signer, qsccRequest(qsccTransactionByID, c.channelID, []byte(txID)), tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// queryLedger runs a system query and decodes the agreed response into result
func (c *Coordinator) queryLedger(reqCtx reqContext.Context, signer txn.Signer, request fab.ChaincodeInvokeRequest, result proto.Message) error {
	e, err := c.Query(reqCtx, signer, request)
	if err != nil {
		return errors.WithMessagef(err, "%s query failed", request.Fcn)
	}
	if err := proto.Unmarshal(e.Payload(), result); err != nil {
		return errors.Wrapf(err, "unmarshal of %s response failed", request.Fcn)
	}
	return nil
}
