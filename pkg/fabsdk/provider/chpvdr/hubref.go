/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package chpvdr provides the per-channel services shared by channel clients.
package chpvdr

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
)

var logger = logging.NewLogger("fabsdk/chpvdr")

// HubProvider creates a new, unconnected event hub
type HubProvider func() (fab.EventHub, error)

// closable is implemented by hubs that tell a stopped stream apart from one
// that is reconnecting
type closable interface {
	IsClosed() bool
}

// HubRef holds a reference to an event hub and manages its lifecycle. The
// first Connect creates and connects a hub, the last Disconnect disconnects it
// and the next Connect starts over with a new one. A hub that stopped on its
// own is replaced by the next Connect even while references are held. HubRef
// implements fab.EventHub, so concurrent Execute calls may share it.
type HubRef struct {
	url      string
	provider HubProvider

	mu     sync.Mutex
	hub    fab.EventHub
	refs   int
	closed bool
}

// NewHubRef returns a HubRef creating hubs from provider. url names the event
// source before a hub exists.
func NewHubRef(url string, provider HubProvider) *HubRef {
	return &HubRef{url: url, provider: provider}
}

// Connect takes a reference, connecting a hub if none is connected
func (ref *HubRef) Connect(ctx context.Context) error {
	ref.mu.Lock()
	defer ref.mu.Unlock()

	if ref.closed {
		return errors.New("event hub reference is closed")
	}
	if ref.hub != nil && isDead(ref.hub) {
		logger.Warnf("Event hub %s stopped, replacing it", ref.url)
		ref.hub.Disconnect()
		ref.hub = nil
	}
	if ref.hub == nil {
		logger.Debugf("Creating event hub for %s...", ref.url)
		hub, err := ref.provider()
		if err != nil {
			return errors.WithMessage(err, "event hub creation failed")
		}
		if err := hub.Connect(ctx); err != nil {
			hub.Disconnect()
			return err
		}
		ref.hub = hub
	}
	ref.refs++
	return nil
}

// Disconnect releases a reference. The hub is disconnected with the last one.
func (ref *HubRef) Disconnect() {
	ref.mu.Lock()
	defer ref.mu.Unlock()

	if ref.refs == 0 {
		return
	}
	ref.refs--
	if ref.refs == 0 && ref.hub != nil {
		logger.Debugf("Last reference released, disconnecting event hub %s", ref.url)
		ref.hub.Disconnect()
		ref.hub = nil
	}
}

// Close disconnects the hub regardless of outstanding references. Later
// connects fail.
func (ref *HubRef) Close() {
	ref.mu.Lock()
	defer ref.mu.Unlock()

	ref.closed = true
	ref.refs = 0
	if ref.hub != nil {
		ref.hub.Disconnect()
		ref.hub = nil
	}
}

// IsConnected returns whether a hub is held and connected
func (ref *HubRef) IsConnected() bool {
	hub := ref.current()
	return hub != nil && hub.IsConnected()
}

// URL returns the event source URL
func (ref *HubRef) URL() string {
	return ref.url
}

// Refs returns the number of outstanding references
func (ref *HubRef) Refs() int {
	ref.mu.Lock()
	defer ref.mu.Unlock()
	return ref.refs
}

// RegisterTxEvent registers on the connected hub
func (ref *HubRef) RegisterTxEvent(txID fab.TransactionID, callback fab.TxCallback) error {
	hub := ref.current()
	if hub == nil {
		return status.New(status.ClientStatus, status.Disconnected.ToInt32(), "event hub is not connected", []interface{}{ref.url})
	}
	return hub.RegisterTxEvent(txID, callback)
}

// UnregisterTxEvent removes a registration from the connected hub
func (ref *HubRef) UnregisterTxEvent(txID fab.TransactionID) bool {
	hub := ref.current()
	if hub == nil {
		return false
	}
	return hub.UnregisterTxEvent(txID)
}

// HealthCheck fails when a referenced hub lost its connection. An idle
// reference is healthy.
func (ref *HubRef) HealthCheck(context.Context) error {
	ref.mu.Lock()
	defer ref.mu.Unlock()

	if ref.closed {
		return errors.New("event hub reference is closed")
	}
	if ref.refs > 0 && (ref.hub == nil || !ref.hub.IsConnected()) {
		return errors.Errorf("event hub %s is not connected", ref.url)
	}
	return nil
}

func isDead(hub fab.EventHub) bool {
	if c, ok := hub.(closable); ok {
		return c.IsClosed()
	}
	return !hub.IsConnected()
}

func (ref *HubRef) current() fab.EventHub {
	ref.mu.Lock()
	defer ref.mu.Unlock()
	return ref.hub
}
