/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package orderer is the client side of an ordering service node.
package orderer

import (
	reqContext "context"
	"io"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	ab "github.com/hyperledger/fabric-protos-go-apiv2/orderer"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/multi"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/core/config/endpoint"
	"github.com/hyperledger/fabric-client-go/pkg/fab/comm"
)

var logger = logging.NewLogger("fab/orderer")

// Orderer allows a client to broadcast a transaction.
type Orderer struct {
	endpoint  *endpoint.Endpoint
	connector *comm.Connector
	ownConn   bool
	connOpts  []comm.Option
}

// Option describes a functional parameter for the New constructor
type Option func(*Orderer) error

// New returns an Orderer. An endpoint is required, through WithURL, WithEndpoint or FromNodeConfig.
func New(opts ...Option) (*Orderer, error) {
	o := &Orderer{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.endpoint == nil {
		return nil, sdkerr.Validation("orderer endpoint is required")
	}
	if o.connector == nil {
		o.connector = comm.NewConnector(o.connOpts...)
		o.ownConn = true
	}
	return o, nil
}

// WithURL resolves url into the orderer's endpoint
func WithURL(url string, opts ...endpoint.Option) Option {
	return func(o *Orderer) error {
		ep, err := endpoint.New(url, opts...)
		if err != nil {
			return err
		}
		o.endpoint = ep
		return nil
	}
}

// WithEndpoint sets an already resolved endpoint
func WithEndpoint(ep *endpoint.Endpoint) Option {
	return func(o *Orderer) error {
		o.endpoint = ep
		return nil
	}
}

// WithConnector shares a connection cache with other nodes
func WithConnector(cc *comm.Connector) Option {
	return func(o *Orderer) error {
		o.connector = cc
		return nil
	}
}

// WithConnectionOptions applies opts to an orderer owned connection
func WithConnectionOptions(opts ...comm.Option) Option {
	return func(o *Orderer) error {
		o.connOpts = append(o.connOpts, opts...)
		return nil
	}
}

// FromNodeConfig configures the orderer from its config entry
func FromNodeConfig(cfg config.NodeConfig) Option {
	return func(o *Orderer) error {
		ep, err := cfg.Endpoint()
		if err != nil {
			return errors.WithMessagef(err, "orderer [%s]", cfg.URL)
		}
		o.endpoint = ep
		return nil
	}
}

// URL gets the orderer url.
func (o *Orderer) URL() string {
	return o.endpoint.URL()
}

// Close releases a connection the orderer created itself
func (o *Orderer) Close() error {
	if o.ownConn {
		return o.connector.Close()
	}
	return nil
}

func (o *Orderer) conn() (*grpc.ClientConn, error) {
	conn, err := o.connector.Conn(o.endpoint)
	if err != nil {
		return nil, status.New(status.OrdererClientStatus, status.ConnectionFailed.ToInt32(), err.Error(), []interface{}{o.URL()})
	}
	return conn, nil
}

// SendBroadcast sends the envelope to the ordering service. A status other than
// SUCCESS is returned together with an OrdererServerStatus error; any other
// error is a transport failure.
func (o *Orderer) SendBroadcast(ctx reqContext.Context, envelope *fab.SignedEnvelope) (*common.Status, error) {
	if envelope == nil {
		return nil, errors.New("envelope is required")
	}
	conn, err := o.conn()
	if err != nil {
		return nil, err
	}

	broadcastClient, err := ab.NewAtomicBroadcastClient(conn).Broadcast(ctx)
	if err != nil {
		if rpcStatus, ok := grpcstatus.FromError(err); ok {
			err = status.NewFromGRPCStatus(rpcStatus)
		}
		return nil, errors.WithMessage(err, "NewAtomicBroadcastClient failed")
	}

	responses := make(chan common.Status)
	errs := make(chan error, 1)

	go broadcastStream(broadcastClient, responses, errs)

	err = broadcastClient.Send(&common.Envelope{
		Payload:   envelope.Payload,
		Signature: envelope.Signature,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to send envelope to orderer")
	}
	if err = broadcastClient.CloseSend(); err != nil {
		logger.Debugf("unable to close broadcast client [%s]", err)
	}

	return wrapStreamStatusRPC(responses, errs)
}

func wrapStreamStatusRPC(responses chan common.Status, errs chan error) (*common.Status, error) {
	var s common.Status
	var err multi.Errors

read:
	for {
		select {
		case r, ok := <-responses:
			if !ok {
				break read
			}
			s = r
		case e := <-errs:
			err = append(err, e)
		}
	}

	// drain remaining errors.
	for i := 0; i < len(errs); i++ {
		err = append(err, <-errs)
	}

	return &s, err.ToError()
}

func broadcastStream(broadcastClient ab.AtomicBroadcast_BroadcastClient, responses chan common.Status, errs chan error) {
	defer close(responses)
	for {
		broadcastResponse, err := broadcastClient.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			if rpcStatus, ok := grpcstatus.FromError(err); ok {
				err = status.NewFromGRPCStatus(rpcStatus)
			}
			errs <- errors.WithMessage(err, "broadcast recv failed")
			return
		}

		if broadcastResponse.Status != common.Status_SUCCESS {
			responses <- broadcastResponse.Status
			errs <- status.New(status.OrdererServerStatus, int32(broadcastResponse.Status), broadcastResponse.Info, nil)
			return
		}
		responses <- broadcastResponse.Status
	}
}

// SendDeliver sends a deliver request to the ordering service and returns the
// blocks requested. Both channels are closed or drained when the stream ends.
func (o *Orderer) SendDeliver(ctx reqContext.Context, envelope *fab.SignedEnvelope) (chan *common.Block, chan error) {
	responses := make(chan *common.Block)
	errs := make(chan error, 1)

	conn, err := o.conn()
	if err != nil {
		errs <- err
		close(responses)
		return responses, errs
	}

	deliverClient, err := ab.NewAtomicBroadcastClient(conn).Deliver(ctx)
	if err != nil {
		logger.Errorf("deliver failed [%s]", err)
		errs <- errors.Wrap(err, "deliver failed")
		close(responses)
		return responses, errs
	}

	go blockStream(deliverClient, responses, errs)

	logger.Debug("Requesting blocks from ordering service")
	err = deliverClient.Send(&common.Envelope{
		Payload:   envelope.Payload,
		Signature: envelope.Signature,
	})
	if err != nil {
		logger.Warnf("failed to send block request to orderer [%s]", err)
	}
	if err = deliverClient.CloseSend(); err != nil {
		logger.Debugf("unable to close deliver client [%s]", err)
	}

	return responses, errs
}

func blockStream(deliverClient ab.AtomicBroadcast_DeliverClient, responses chan *common.Block, errs chan error) {
	defer close(responses)
	for {
		response, err := deliverClient.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			errs <- errors.Wrap(err, "recv from ordering service failed")
			return
		}

		switch t := response.Type.(type) {
		case *ab.DeliverResponse_Status:
			logger.Debugf("Received deliver response status from ordering service: %s", t.Status)
			if t.Status != common.Status_SUCCESS {
				errs <- status.New(status.OrdererServerStatus, int32(t.Status), "error status from ordering service", nil)
			}
			return
		case *ab.DeliverResponse_Block:
			logger.Debug("Received block from ordering service")
			responses <- t.Block
		default:
			logger.Infof("unknown response type from ordering service %T", t)
		}
	}
}
