/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package registry tracks transactions waiting for their commit status.
//
// A registration is a one-shot callback keyed by transaction id. Whoever
// removes the entry first, a delivered event, an unregister or a close owns
// it; everybody else finds nothing to do. Callbacks run outside the lock.
package registry

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
)

var logger = logging.NewLogger("fab/events/registry")

// DefaultRecentCacheSize is the number of recent commits remembered
const DefaultRecentCacheSize = 1000

// TxStatusReg contains the data for a transaction status registration
type TxStatusReg struct {
	TxID     fab.TransactionID
	Callback fab.TxCallback
}

// Stats is a snapshot of registry activity
type Stats struct {
	Pending   int
	Delivered uint64
	Unclaimed uint64
}

// Registry maps transaction ids to pending commit callbacks
type Registry struct {
	mu     sync.Mutex
	regs   map[fab.TransactionID]*TxStatusReg
	recent *recentCache
	closed error

	delivered atomic.Uint64
	unclaimed atomic.Uint64
}

// Option configures a Registry
type Option func(*Registry)

// WithRecentCacheSize sets how many committed statuses are remembered for
// registrations that arrive after their commit. Zero disables the cache.
func WithRecentCacheSize(size int) Option {
	return func(r *Registry) {
		r.recent = newRecentCache(size)
	}
}

// New returns an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		regs:   make(map[fab.TransactionID]*TxStatusReg),
		recent: newRecentCache(DefaultRecentCacheSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterTxEvent registers callback for txID. A pending registration for the
// same id is a ValidationError. If the commit was already seen the callback
// fires immediately.
func (r *Registry) RegisterTxEvent(txID fab.TransactionID, callback fab.TxCallback) error {
	if txID == fab.EmptyTransactionID {
		return sdkerr.Validation("transaction id is required")
	}
	if callback == nil {
		return sdkerr.Validation("callback is required")
	}

	r.mu.Lock()
	if r.closed != nil {
		err := r.closed
		r.mu.Unlock()
		return err
	}
	if _, exists := r.regs[txID]; exists {
		r.mu.Unlock()
		return sdkerr.Validation("registration already exists for TX ID [%s]", txID)
	}
	if event, ok := r.recent.get(txID); ok {
		r.mu.Unlock()
		logger.Debugf("TxID [%s] committed before registration, settling from recent cache", txID)
		r.delivered.Inc()
		callback(event, nil)
		return nil
	}
	r.regs[txID] = &TxStatusReg{TxID: txID, Callback: callback}
	r.mu.Unlock()

	logger.Debugf("Registered Tx Status event for TxID [%s]", txID)
	return nil
}

// UnregisterTxEvent removes the registration for txID. It returns false when
// no registration was pending.
func (r *Registry) UnregisterTxEvent(txID fab.TransactionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.regs[txID]; !ok {
		return false
	}
	logger.Debugf("Unregistering Tx Status event for TxID [%s]...", txID)
	delete(r.regs, txID)
	return true
}

// Deliver publishes a commit status. The matching registration, if any, is
// claimed and its callback invoked once.
func (r *Registry) Deliver(event *fab.TxStatusEvent) {
	txID := fab.TransactionID(event.TxID)

	r.mu.Lock()
	r.recent.add(txID, event)
	reg, ok := r.regs[txID]
	if ok {
		delete(r.regs, txID)
	}
	r.mu.Unlock()

	if !ok {
		r.unclaimed.Inc()
		return
	}
	logger.Debugf("Sending Tx Status event for TxID [%s] to registrant...", txID)
	r.delivered.Inc()
	reg.Callback(event, nil)
}

// Close invalidates every pending registration. Their callbacks receive a
// Disconnected status wrapping cause, and later registrations fail the same way.
func (r *Registry) Close(cause error) {
	msg := "event connection closed"
	if cause != nil {
		msg = cause.Error()
	}
	err := status.New(status.ClientStatus, status.Disconnected.ToInt32(), msg, nil)

	r.mu.Lock()
	if r.closed != nil {
		r.mu.Unlock()
		return
	}
	r.closed = err
	regs := r.regs
	r.regs = make(map[fab.TransactionID]*TxStatusReg)
	r.mu.Unlock()

	for _, reg := range regs {
		logger.Debugf("Invalidating Tx Status registration for TxID [%s]", reg.TxID)
		reg.Callback(nil, err)
	}
}

// IsClosed reports whether Close was called
func (r *Registry) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed != nil
}

// Stats returns registry counters
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	pending := len(r.regs)
	r.mu.Unlock()

	return Stats{
		Pending:   pending,
		Delivered: r.delivered.Load(),
		Unclaimed: r.unclaimed.Load(),
	}
}

// recentCache is a fixed size FIFO of committed statuses. Not safe for
// concurrent use; the registry lock guards it.
type recentCache struct {
	size   int
	ring   []fab.TransactionID
	next   int
	events map[fab.TransactionID]*fab.TxStatusEvent
}

func newRecentCache(size int) *recentCache {
	if size < 0 {
		size = 0
	}
	return &recentCache{
		size:   size,
		ring:   make([]fab.TransactionID, size),
		events: make(map[fab.TransactionID]*fab.TxStatusEvent, size),
	}
}

func (c *recentCache) add(txID fab.TransactionID, event *fab.TxStatusEvent) {
	if c.size == 0 {
		return
	}
	if _, ok := c.events[txID]; ok {
		c.events[txID] = event
		return
	}
	if evicted := c.ring[c.next]; evicted != fab.EmptyTransactionID {
		delete(c.events, evicted)
	}
	c.ring[c.next] = txID
	c.events[txID] = event
	c.next = (c.next + 1) % c.size
}

func (c *recentCache) get(txID fab.TransactionID) (*fab.TxStatusEvent, bool) {
	event, ok := c.events[txID]
	return event, ok
}

func (c *recentCache) len() int {
	return len(c.events)
}
