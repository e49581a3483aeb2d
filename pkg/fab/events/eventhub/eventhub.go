/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package eventhub receives commit events for a channel from one peer.
//
// The hub keeps a single DeliverFiltered stream open and feeds every filtered
// transaction into a registry. When the stream fails unexpectedly the hub can
// reconnect with exponential backoff, resuming after the last block it saw, so
// pending registrations survive the outage.
package eventhub

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	grpcstatus "google.golang.org/grpc/status"

	ab "github.com/hyperledger/fabric-protos-go-apiv2/orderer"
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/fab/comm"
	"github.com/hyperledger/fabric-client-go/pkg/fab/events/registry"
	"github.com/hyperledger/fabric-client-go/pkg/fab/txn"
)

var logger = logging.NewLogger("fab/events/eventhub")

// ConnectionState is the state of the hub's event stream
type ConnectionState int32

const (
	// Disconnected indicates that the hub has no stream
	Disconnected ConnectionState = iota
	// Connecting indicates that a stream is being established
	Connecting
	// Connected indicates that the stream is open
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// EventHub delivers commit statuses for one channel from one peer
type EventHub struct {
	params
	channelID string
	signer    txn.Signer
	registry  *registry.Registry

	state     atomic.Int32
	stopped   atomic.Bool
	lastBlock atomic.Uint64
	seenBlock atomic.Bool

	mu     sync.Mutex
	ctx    context.Context
	stop   context.CancelFunc
	cancel context.CancelFunc
	done   chan struct{}
}

var _ fab.EventHub = (*EventHub)(nil)

// New returns an EventHub for channelID. The signer signs the seek request.
func New(channelID string, signer txn.Signer, opts ...Option) (*EventHub, error) {
	if channelID == "" {
		return nil, sdkerr.Validation("expecting channel ID")
	}
	if signer == nil {
		return nil, sdkerr.Validation("signer is required")
	}

	p := defaultParams()
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.endpoint == nil {
		return nil, sdkerr.Validation("event hub endpoint is required")
	}
	if p.connector == nil {
		p.connector = comm.NewConnector(p.connOpts...)
		p.ownConn = true
	}

	ctx, stop := context.WithCancel(context.Background())
	return &EventHub{
		params:    *p,
		channelID: channelID,
		signer:    signer,
		registry:  registry.New(registry.WithRecentCacheSize(p.recentCacheSize)),
		ctx:       ctx,
		stop:      stop,
	}, nil
}

// URL returns the URL of the peer the hub listens to
func (eh *EventHub) URL() string {
	return eh.endpoint.URL()
}

// ConnectionState returns the connection state
func (eh *EventHub) ConnectionState() ConnectionState {
	return ConnectionState(eh.state.Load())
}

// IsConnected returns true if the stream is open
func (eh *EventHub) IsConnected() bool {
	return eh.ConnectionState() == Connected
}

// IsClosed returns true once the hub stopped for good, either through
// Disconnect or because the stream failed and could not be reestablished.
// A hub that is reconnecting is not closed.
func (eh *EventHub) IsClosed() bool {
	return eh.stopped.Load()
}

// LastBlock returns the number of the last block received and false when no
// block was received yet.
func (eh *EventHub) LastBlock() (uint64, bool) {
	return eh.lastBlock.Load(), eh.seenBlock.Load()
}

// Registry exposes the hub's registrations
func (eh *EventHub) Registry() *registry.Registry {
	return eh.registry
}

func (eh *EventHub) setState(current, next ConnectionState) bool {
	return eh.state.CompareAndSwap(int32(current), int32(next))
}

// Connect opens the event stream, seeking to the newest block. It fails if the
// hub is already connected or was disconnected.
func (eh *EventHub) Connect(ctx context.Context) error {
	if eh.stopped.Load() {
		return errors.New("event hub is closed")
	}
	if !eh.setState(Disconnected, Connecting) {
		return errors.Errorf("unable to connect event hub since it is [%s]. Expecting [%s]", eh.ConnectionState(), Disconnected)
	}

	if err := eh.connect(ctx); err != nil {
		eh.setState(Connecting, Disconnected)
		return err
	}
	return nil
}

func (eh *EventHub) connect(ctx context.Context) error {
	stream, cancel, err := eh.openStream(ctx)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	eh.mu.Lock()
	if eh.stopped.Load() {
		eh.mu.Unlock()
		cancel()
		return errors.New("event hub is closed")
	}
	if eh.cancel != nil {
		// release the stream that just failed
		eh.cancel()
	}
	eh.cancel = cancel
	eh.done = done
	eh.mu.Unlock()

	eh.setState(Connecting, Connected)
	logger.Debugf("Event hub connected to %s for channel [%s]", eh.URL(), eh.channelID)

	go eh.listen(stream, done)
	return nil
}

func (eh *EventHub) openStream(ctx context.Context) (pb.Deliver_DeliverFilteredClient, context.CancelFunc, error) {
	conn, err := eh.connector.Conn(eh.endpoint)
	if err != nil {
		return nil, nil, status.New(status.ClientStatus, status.ConnectionFailed.ToInt32(), err.Error(), []interface{}{eh.URL()})
	}

	readyCtx, readyCancel := context.WithTimeout(ctx, eh.connectTimeout)
	defer readyCancel()
	if err := comm.WaitReady(readyCtx, conn); err != nil {
		return nil, nil, status.New(status.ClientStatus, status.ConnectionFailed.ToInt32(), err.Error(), []interface{}{eh.URL()})
	}

	envelope, err := txn.CreateSeekEnvelope(eh.signer, eh.channelID, eh.nonceSize, eh.seekStart(), txn.SeekForever())
	if err != nil {
		return nil, nil, errors.WithMessage(err, "seek envelope creation failed")
	}

	// the stream outlives the caller's context
	streamCtx, cancel := context.WithCancel(eh.ctx)
	stream, err := pb.NewDeliverClient(conn).DeliverFiltered(streamCtx)
	if err != nil {
		cancel()
		return nil, nil, wrapRPCError(err, "DeliverFiltered failed")
	}
	if err := stream.Send(envelopeProto(envelope)); err != nil {
		cancel()
		return nil, nil, wrapRPCError(err, "sending seek request failed")
	}
	return stream, cancel, nil
}

// seekStart resumes after the last block seen, or starts at the newest block
func (eh *EventHub) seekStart() *ab.SeekPosition {
	if last, ok := eh.LastBlock(); ok {
		logger.Debugf("Seeking from block %d", last+1)
		return txn.SeekFrom(last + 1)
	}
	return txn.SeekNewest()
}

func (eh *EventHub) listen(stream pb.Deliver_DeliverFilteredClient, done chan struct{}) {
	defer close(done)

	for {
		resp, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				err = errors.New("event stream closed by peer")
			}
			go eh.streamFailed(wrapRPCError(err, "event stream failed"))
			return
		}

		switch t := resp.Type.(type) {
		case *pb.DeliverResponse_FilteredBlock:
			eh.handleBlock(t.FilteredBlock)
		case *pb.DeliverResponse_Status:
			logger.Debugf("Received deliver status %s from %s", t.Status, eh.URL())
			go eh.streamFailed(errors.Errorf("deliver stream ended with status %s", t.Status))
			return
		default:
			logger.Warnf("unsupported deliver response type %T", t)
		}
	}
}

func (eh *EventHub) handleBlock(block *pb.FilteredBlock) {
	if block == nil {
		return
	}
	logger.Debugf("Received filtered block #%d with %d transactions", block.Number, len(block.FilteredTransactions))

	for _, tx := range block.FilteredTransactions {
		eh.registry.Deliver(&fab.TxStatusEvent{
			TxID:             tx.Txid,
			ChannelID:        block.ChannelId,
			TxValidationCode: tx.TxValidationCode,
			BlockNumber:      block.Number,
			SourceURL:        eh.URL(),
		})
	}
	eh.lastBlock.Store(block.Number)
	eh.seenBlock.Store(true)
}

func (eh *EventHub) streamFailed(cause error) {
	if eh.stopped.Load() {
		return
	}
	if !eh.setState(Connected, Disconnected) {
		return
	}

	if !eh.reconnect {
		logger.Warnf("Event hub %s disconnected: %s", eh.URL(), cause)
		eh.shutdown(cause)
		return
	}
	logger.Warnf("Event hub %s disconnected: %s. Attempting to reconnect...", eh.URL(), cause)
	go eh.reconnectLoop()
}

func (eh *EventHub) reconnectLoop() {
	b := backoff.WithContext(eh.newBackoff(), eh.ctx)

	operation := func() error {
		if eh.stopped.Load() {
			return backoff.Permanent(errors.New("event hub is closed"))
		}
		if !eh.setState(Disconnected, Connecting) {
			return backoff.Permanent(errors.Errorf("unexpected state [%s] while reconnecting", eh.ConnectionState()))
		}
		if err := eh.connect(eh.ctx); err != nil {
			eh.setState(Connecting, Disconnected)
			return err
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warnf("... reconnect attempt failed: %s. Retrying in %s", err, wait)
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if eh.stopped.Load() {
			return
		}
		logger.Errorf("Could not reconnect event hub %s: %s. Closing.", eh.URL(), err)
		eh.shutdown(err)
		return
	}
	logger.Infof("Event hub reconnected to %s", eh.URL())
}

// Disconnect closes the stream and stops reconnecting. Pending registrations
// receive a disconnect error. It is safe to call more than once.
func (eh *EventHub) Disconnect() {
	eh.shutdown(nil)
}

func (eh *EventHub) shutdown(cause error) {
	if !eh.stopped.CompareAndSwap(false, true) {
		logger.Debugf("Event hub already stopped")
		return
	}
	logger.Debugf("Stopping event hub %s...", eh.URL())

	eh.stop()

	eh.mu.Lock()
	cancel, done := eh.cancel, eh.done
	eh.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	eh.state.Store(int32(Disconnected))

	eh.registry.Close(cause)

	if eh.ownConn {
		if err := eh.connector.Close(); err != nil {
			logger.Warnf("closing event hub connections failed: %s", err)
		}
	}
	logger.Debugf("... event hub %s is stopped", eh.URL())
}

// RegisterTxEvent registers callback for the commit status of txID
func (eh *EventHub) RegisterTxEvent(txID fab.TransactionID, callback fab.TxCallback) error {
	return eh.registry.RegisterTxEvent(txID, callback)
}

// UnregisterTxEvent removes the registration for txID
func (eh *EventHub) UnregisterTxEvent(txID fab.TransactionID) bool {
	return eh.registry.UnregisterTxEvent(txID)
}

// HealthCheck reports an error unless the event stream is connected
func (eh *EventHub) HealthCheck(context.Context) error {
	if state := eh.ConnectionState(); state != Connected {
		return errors.Errorf("event hub %s for channel [%s] is %s", eh.URL(), eh.channelID, state)
	}
	return nil
}

func wrapRPCError(err error, msg string) error {
	if rpcStatus, ok := grpcstatus.FromError(err); ok {
		err = status.NewFromGRPCStatus(rpcStatus)
	}
	return errors.WithMessage(err, msg)
}
