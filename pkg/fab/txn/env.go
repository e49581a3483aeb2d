/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"math"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	ab "github.com/hyperledger/fabric-protos-go-apiv2/orderer"
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/msp"
)

// DefaultNonceSize is the nonce length used when none is configured
const DefaultNonceSize = 24

// Signer signs the bytes of a proposal or payload on behalf of its creator
type Signer interface {
	Serialize() ([]byte, error)
	Sign(msg []byte) ([]byte, error)
}

var _ Signer = (msp.SigningIdentity)(nil)

// TransactionHeader contains metadata for a transaction created by the SDK.
type TransactionHeader struct {
	id        fab.TransactionID
	creator   []byte
	nonce     []byte
	channelID string
}

// TransactionID returns the transaction's computed identifier.
func (t *TransactionHeader) TransactionID() fab.TransactionID {
	return t.id
}

// Creator returns the transaction creator's identity bytes.
func (t *TransactionHeader) Creator() []byte {
	return t.creator
}

// Nonce returns the transaction's generated nonce.
func (t *TransactionHeader) Nonce() []byte {
	return t.nonce
}

// ChannelID returns the transaction's target channel identifier.
func (t *TransactionHeader) ChannelID() string {
	return t.channelID
}

// NewHeader computes a TransactionID for the creator with a fresh nonce of
// nonceLen random bytes. The id is hex(SHA256(nonce || creator)).
func NewHeader(creator Signer, channelID string, nonceLen int) (*TransactionHeader, error) {
	if nonceLen <= 0 {
		return nil, sdkerr.Validation("nonce length must be positive, got %d", nonceLen)
	}
	if creator == nil {
		return nil, sdkerr.Validation("creator is required")
	}

	nonce, err := newNonce(nonceLen)
	if err != nil {
		return nil, errors.WithMessage(err, "nonce creation failed")
	}

	creatorBytes, err := creator.Serialize()
	if err != nil {
		return nil, errors.WithMessage(err, "identity from context failed")
	}

	id, err := computeTxnID(nonce, creatorBytes, sha256.New())
	if err != nil {
		return nil, errors.WithMessage(err, "txn ID computation failed")
	}

	return &TransactionHeader{
		id:        fab.TransactionID(id),
		creator:   creatorBytes,
		nonce:     nonce,
		channelID: channelID,
	}, nil
}

func newNonce(size int) ([]byte, error) {
	nonce := make([]byte, size)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "reading random bytes failed")
	}
	return nonce, nil
}

func computeTxnID(nonce, creator []byte, h hash.Hash) (string, error) {
	b := make([]byte, 0, len(nonce)+len(creator))
	b = append(b, nonce...)
	b = append(b, creator...)

	if _, err := h.Write(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChannelHeaderOpts holds the parameters to create a ChannelHeader.
type ChannelHeaderOpts struct {
	TxnHeader   fab.TransactionHeader
	Epoch       uint64
	ChaincodeID string
	Timestamp   time.Time
	TLSCertHash []byte
}

// CreateChannelHeader builds the channel header of a proposal or envelope
func CreateChannelHeader(headerType common.HeaderType, opts ChannelHeaderOpts) (*common.ChannelHeader, error) {
	if opts.TxnHeader == nil {
		return nil, errors.New("transaction header is required")
	}
	logger.Debugf("buildChannelHeader - headerType: %s channelID: %s txID: %s epoch: %d chaincodeID: %s", headerType, opts.TxnHeader.ChannelID(), opts.TxnHeader.TransactionID(), opts.Epoch, opts.ChaincodeID)

	if opts.Timestamp.IsZero() {
		opts.Timestamp = time.Now()
	}

	channelHeader := &common.ChannelHeader{
		Type:        int32(headerType),
		ChannelId:   opts.TxnHeader.ChannelID(),
		TxId:        string(opts.TxnHeader.TransactionID()),
		Epoch:       opts.Epoch,
		Timestamp:   timestamppb.New(opts.Timestamp),
		TlsCertHash: opts.TLSCertHash,
	}

	if opts.ChaincodeID != "" {
		headerExt := &pb.ChaincodeHeaderExtension{
			ChaincodeId: &pb.ChaincodeID{Name: opts.ChaincodeID},
		}
		headerExtBytes, err := proto.Marshal(headerExt)
		if err != nil {
			return nil, errors.Wrap(err, "marshal header extension failed")
		}
		channelHeader.Extension = headerExtBytes
	}
	return channelHeader, nil
}

func createHeader(txh fab.TransactionHeader, channelHeader *common.ChannelHeader) (*common.Header, error) {
	sh, err := proto.Marshal(&common.SignatureHeader{
		Creator: txh.Creator(),
		Nonce:   txh.Nonce(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal signatureHeader failed")
	}
	ch, err := proto.Marshal(channelHeader)
	if err != nil {
		return nil, errors.Wrap(err, "marshal channelHeader failed")
	}
	return &common.Header{SignatureHeader: sh, ChannelHeader: ch}, nil
}

// CreatePayload creates a payload from a ChannelHeader and a data slice.
func CreatePayload(txh fab.TransactionHeader, channelHeader *common.ChannelHeader, data []byte) (*common.Payload, error) {
	header, err := createHeader(txh, channelHeader)
	if err != nil {
		return nil, errors.WithMessage(err, "header creation failed")
	}
	return &common.Payload{Header: header, Data: data}, nil
}

// SignPayload marshals and signs payload
func SignPayload(signer Signer, payload *common.Payload) (*fab.SignedEnvelope, error) {
	payloadBytes, err := proto.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling of payload failed")
	}

	signature, err := signer.Sign(payloadBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "signing of payload failed")
	}
	return &fab.SignedEnvelope{Payload: payloadBytes, Signature: signature}, nil
}

// SeekNewest starts delivery at the most recent block
func SeekNewest() *ab.SeekPosition {
	return &ab.SeekPosition{Type: &ab.SeekPosition_Newest{Newest: &ab.SeekNewest{}}}
}

// SeekOldest starts delivery at the genesis block
func SeekOldest() *ab.SeekPosition {
	return &ab.SeekPosition{Type: &ab.SeekPosition_Oldest{Oldest: &ab.SeekOldest{}}}
}

// SeekFrom positions delivery at block number
func SeekFrom(number uint64) *ab.SeekPosition {
	return &ab.SeekPosition{Type: &ab.SeekPosition_Specified{Specified: &ab.SeekSpecified{Number: number}}}
}

// SeekForever is a stop position that is never reached
func SeekForever() *ab.SeekPosition {
	return SeekFrom(math.MaxUint64)
}

// CreateSeekEnvelope returns a signed DELIVER_SEEK_INFO envelope requesting
// blocks from start to stop, blocking until each is ready.
func CreateSeekEnvelope(signer Signer, channelID string, nonceLen int, start, stop *ab.SeekPosition) (*fab.SignedEnvelope, error) {
	seekInfo := &ab.SeekInfo{
		Start:    start,
		Stop:     stop,
		Behavior: ab.SeekInfo_BLOCK_UNTIL_READY,
	}
	seekInfoBytes, err := proto.Marshal(seekInfo)
	if err != nil {
		return nil, errors.Wrap(err, "marshal seek info failed")
	}

	txh, err := NewHeader(signer, channelID, nonceLen)
	if err != nil {
		return nil, err
	}

	channelHeader, err := CreateChannelHeader(common.HeaderType_DELIVER_SEEK_INFO, ChannelHeaderOpts{TxnHeader: txh})
	if err != nil {
		return nil, errors.WithMessage(err, "CreateChannelHeader failed")
	}

	payload, err := CreatePayload(txh, channelHeader, seekInfoBytes)
	if err != nil {
		return nil, err
	}
	return SignPayload(signer, payload)
}
