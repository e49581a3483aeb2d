/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"context"
	"time"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
)

type outcome struct {
	event *fab.TxStatusEvent
	err   error
}

// Wait registers txID with registrar and blocks until the commit status
// arrives, the timeout fires or ctx is done. The timer and the event race to
// claim the registration: when the timer wins the entry is removed and a
// TimeoutError returned, so a late delivery is dropped. A non-positive
// timeout waits on ctx alone.
func Wait(ctx context.Context, registrar fab.TxEventRegistrar, txID fab.TransactionID, timeout time.Duration) (*fab.TxStatusEvent, error) {
	done := make(chan outcome, 1)
	err := registrar.RegisterTxEvent(txID, func(event *fab.TxStatusEvent, err error) {
		done <- outcome{event: event, err: err}
	})
	if err != nil {
		return nil, err
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var cause error
	select {
	case o := <-done:
		return o.event, o.err
	case <-expired:
		cause = status.New(status.ClientStatus, status.Timeout.ToInt32(), "timed out waiting for commit", []interface{}{timeout.String()})
	case <-ctx.Done():
		cause = ctx.Err()
	}

	if !registrar.UnregisterTxEvent(txID) {
		// the event claimed the registration first
		o := <-done
		return o.event, o.err
	}
	logger.Debugf("Gave up waiting for TxID [%s]: %s", txID, cause)
	return nil, sdkerr.Timeout(string(txID), cause, "commit of transaction [%s] not observed", txID)
}

// WaitForTx waits on this registry for the commit status of txID
func (r *Registry) WaitForTx(ctx context.Context, txID fab.TransactionID, timeout time.Duration) (*fab.TxStatusEvent, error) {
	return Wait(ctx, r, txID, timeout)
}
