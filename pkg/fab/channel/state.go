/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
)

// State is a step of the submission protocol
type State int

const (
	// Built means the proposal and its transaction id exist
	Built State = iota
	// Endorsing means the signed proposal is out to the peers
	Endorsing
	// Aggregating means every endorsement call settled
	Aggregating
	// Submitted means the envelope was sent to an orderer
	Submitted
	// AwaitingCommit means the orderer accepted the envelope
	AwaitingCommit
	// Committed is terminal: the transaction is valid on the ledger
	Committed
	// TimedOut is terminal: no commit event arrived in time
	TimedOut
	// Rejected is terminal: endorsement, ordering or validation failed
	Rejected
)

var stateNames = map[State]string{
	Built:          "Built",
	Endorsing:      "Endorsing",
	Aggregating:    "Aggregating",
	Submitted:      "Submitted",
	AwaitingCommit: "AwaitingCommit",
	Committed:      "Committed",
	TimedOut:       "TimedOut",
	Rejected:       "Rejected",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// IsTerminal returns true for Committed, TimedOut and Rejected
func (s State) IsTerminal() bool {
	return s == Committed || s == TimedOut || s == Rejected
}

var transitions = map[State][]State{
	Built:          {Endorsing, Rejected},
	Endorsing:      {Aggregating, Rejected},
	Aggregating:    {Submitted, Rejected},
	Submitted:      {AwaitingCommit, Rejected},
	AwaitingCommit: {Committed, TimedOut, Rejected},
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// DefaultTrackerSize is the number of finished transactions a Tracker remembers
const DefaultTrackerSize = 1000

// Tracker records the state of every transaction going through a coordinator.
// Finished transactions are kept in a bounded FIFO so their outcome can still
// be looked up for a while.
type Tracker struct {
	mu       sync.Mutex
	states   map[fab.TransactionID]State
	finished []fab.TransactionID
	size     int
	counts   map[State]uint64
}

// NewTracker returns a tracker remembering up to size finished transactions
func NewTracker(size int) *Tracker {
	if size <= 0 {
		size = DefaultTrackerSize
	}
	return &Tracker{
		states: make(map[fab.TransactionID]State),
		size:   size,
		counts: make(map[State]uint64),
	}
}

func (t *Tracker) begin(txID fab.TransactionID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.states[txID]; ok {
		return errors.Errorf("transaction [%s] is already tracked", txID)
	}
	t.states[txID] = Built
	logger.Debugf("TxID [%s]: %s", txID, Built)
	return nil
}

// Transition moves txID to state next. Moving out of a terminal state, or
// along an edge the protocol does not have, is an error.
func (t *Tracker) Transition(txID fab.TransactionID, next State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.states[txID]
	if !ok {
		return errors.Errorf("transaction [%s] is not tracked", txID)
	}
	if !allowed(current, next) {
		return errors.Errorf("transaction [%s] cannot move from %s to %s", txID, current, next)
	}
	t.states[txID] = next
	logger.Debugf("TxID [%s]: %s -> %s", txID, current, next)

	if next.IsTerminal() {
		t.counts[next]++
		t.finished = append(t.finished, txID)
		if len(t.finished) > t.size {
			delete(t.states, t.finished[0])
			t.finished = t.finished[1:]
		}
	}
	return nil
}

// State returns the current state of txID
func (t *Tracker) State(txID fab.TransactionID) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[txID]
	return s, ok
}

// Forget drops a transaction that will never be submitted, such as a query
func (t *Tracker) Forget(txID fab.TransactionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.states[txID]; ok && !s.IsTerminal() {
		delete(t.states, txID)
	}
}

// Count returns how many transactions ended in the terminal state s
func (t *Tracker) Count(s State) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[s]
}

// InFlight returns the number of transactions not yet in a terminal state
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states) - len(t.finished)
}
