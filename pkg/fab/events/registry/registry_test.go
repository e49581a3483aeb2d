/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
)

func txEvent(txID string, code pb.TxValidationCode, block uint64) *fab.TxStatusEvent {
	return &fab.TxStatusEvent{TxID: txID, ChannelID: "mychannel", TxValidationCode: code, BlockNumber: block}
}

func TestRegisterDeliver(t *testing.T) {
	r := New()

	var fired atomic.Int32
	var got *fab.TxStatusEvent
	require.NoError(t, r.RegisterTxEvent("tx1", func(e *fab.TxStatusEvent, err error) {
		fired.Inc()
		got = e
		assert.NoError(t, err)
	}))
	assert.Equal(t, 1, r.Stats().Pending)

	r.Deliver(txEvent("tx1", pb.TxValidationCode_VALID, 5))
	r.Deliver(txEvent("tx1", pb.TxValidationCode_VALID, 5))

	assert.Equal(t, int32(1), fired.Load())
	require.NotNil(t, got)
	assert.Equal(t, uint64(5), got.BlockNumber)

	stats := r.Stats()
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, uint64(1), stats.Delivered)
	assert.Equal(t, uint64(1), stats.Unclaimed)
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	noop := func(*fab.TxStatusEvent, error) {}

	require.NoError(t, r.RegisterTxEvent("tx1", noop))
	err := r.RegisterTxEvent("tx1", noop)
	require.Error(t, err)
	assert.True(t, sdkerr.IsValidation(err))

	assert.True(t, sdkerr.IsValidation(r.RegisterTxEvent("", noop)))
	assert.True(t, sdkerr.IsValidation(r.RegisterTxEvent("tx2", nil)))
}

func TestUnregister(t *testing.T) {
	r := New()
	fired := false
	require.NoError(t, r.RegisterTxEvent("tx1", func(*fab.TxStatusEvent, error) { fired = true }))

	assert.True(t, r.UnregisterTxEvent("tx1"))
	assert.False(t, r.UnregisterTxEvent("tx1"))

	r.Deliver(txEvent("tx1", pb.TxValidationCode_VALID, 1))
	assert.False(t, fired)

	// a fresh registration is allowed once the old one is gone
	require.NoError(t, r.RegisterTxEvent("tx2", func(*fab.TxStatusEvent, error) {}))
}

func TestRecentCache(t *testing.T) {
	r := New(WithRecentCacheSize(2))

	r.Deliver(txEvent("early", pb.TxValidationCode_VALID, 3))

	var got *fab.TxStatusEvent
	require.NoError(t, r.RegisterTxEvent("early", func(e *fab.TxStatusEvent, err error) { got = e }))
	require.NotNil(t, got)
	assert.Equal(t, uint64(3), got.BlockNumber)
	assert.Equal(t, 0, r.Stats().Pending)

	// evict "early"
	r.Deliver(txEvent("b", pb.TxValidationCode_VALID, 4))
	r.Deliver(txEvent("c", pb.TxValidationCode_VALID, 5))
	assert.Equal(t, 2, r.recent.len())
	_, ok := r.recent.get("early")
	assert.False(t, ok)

	got = nil
	require.NoError(t, r.RegisterTxEvent("early", func(e *fab.TxStatusEvent, err error) { got = e }))
	assert.Nil(t, got)
	assert.Equal(t, 1, r.Stats().Pending)
}

func TestRecentCacheDisabled(t *testing.T) {
	r := New(WithRecentCacheSize(0))
	r.Deliver(txEvent("tx1", pb.TxValidationCode_VALID, 1))

	fired := false
	require.NoError(t, r.RegisterTxEvent("tx1", func(*fab.TxStatusEvent, error) { fired = true }))
	assert.False(t, fired)
}

func TestClose(t *testing.T) {
	r := New()

	errs := make(chan error, 2)
	for _, id := range []fab.TransactionID{"tx1", "tx2"} {
		require.NoError(t, r.RegisterTxEvent(id, func(e *fab.TxStatusEvent, err error) {
			assert.Nil(t, e)
			errs <- err
		}))
	}

	r.Close(errors.New("stream ended"))
	r.Close(nil)
	assert.True(t, r.IsClosed())

	for i := 0; i < 2; i++ {
		err := <-errs
		s, ok := status.FromError(err)
		require.True(t, ok)
		assert.Equal(t, status.Disconnected.ToInt32(), s.Code)
		assert.Contains(t, s.Message, "stream ended")
	}

	err := r.RegisterTxEvent("tx3", func(*fab.TxStatusEvent, error) {})
	require.Error(t, err)
	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.Disconnected.ToInt32(), s.Code)
}

func TestWaitCommitted(t *testing.T) {
	r := New()

	go func() {
		for r.Stats().Pending == 0 {
			time.Sleep(time.Millisecond)
		}
		r.Deliver(txEvent("tx1", pb.TxValidationCode_VALID, 9))
	}()

	event, err := r.WaitForTx(context.Background(), "tx1", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, pb.TxValidationCode_VALID, event.TxValidationCode)
	assert.Equal(t, uint64(9), event.BlockNumber)
}

func TestWaitTimeoutIgnoresLateDelivery(t *testing.T) {
	r := New(WithRecentCacheSize(0))

	_, err := r.WaitForTx(context.Background(), "tx1", 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, sdkerr.IsTimeout(err))

	var e *sdkerr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "tx1", e.TxID)

	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.Timeout.ToInt32(), s.Code)

	assert.Equal(t, 0, r.Stats().Pending)
	r.Deliver(txEvent("tx1", pb.TxValidationCode_VALID, 1))
	assert.Equal(t, uint64(0), r.Stats().Delivered)
}

func TestWaitContextCancelled(t *testing.T) {
	r := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.WaitForTx(ctx, "tx1", 0)
	require.Error(t, err)
	assert.True(t, sdkerr.IsTimeout(err))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, r.Stats().Pending)
}

func TestWaitDisconnected(t *testing.T) {
	r := New()

	go func() {
		for r.Stats().Pending == 0 {
			time.Sleep(time.Millisecond)
		}
		r.Close(nil)
	}()

	_, err := r.WaitForTx(context.Background(), "tx1", 5*time.Second)
	require.Error(t, err)
	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.Disconnected.ToInt32(), s.Code)
}

// Delivery and timeout race on the same registration; every round must end in
// exactly one outcome.
func TestDeliverTimeoutRace(t *testing.T) {
	const rounds = 500
	r := New(WithRecentCacheSize(0))

	var committed, timedOut atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		txID := fab.TransactionID(fmt.Sprintf("tx%d", i))
		registered := make(chan struct{})
		var fired atomic.Int32

		require.NoError(t, r.RegisterTxEvent(txID, func(*fab.TxStatusEvent, error) { fired.Inc() }))
		close(registered)

		var unregistered atomic.Bool
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-registered
			r.Deliver(txEvent(string(txID), pb.TxValidationCode_VALID, uint64(i)))
		}()
		go func() {
			defer wg.Done()
			<-registered
			unregistered.Store(r.UnregisterTxEvent(txID))
		}()
		wg.Wait()

		if unregistered.Load() {
			timedOut.Inc()
			assert.Equal(t, int32(0), fired.Load(), "round %d", i)
		} else {
			committed.Inc()
			assert.Equal(t, int32(1), fired.Load(), "round %d", i)
		}
	}
	assert.Equal(t, int32(rounds), committed.Load()+timedOut.Load())
	assert.Equal(t, 0, r.Stats().Pending)
}

func TestWaitRace(t *testing.T) {
	const rounds = 200
	r := New(WithRecentCacheSize(0))

	for i := 0; i < rounds; i++ {
		txID := fab.TransactionID(fmt.Sprintf("tx%d", i))
		delay := time.Duration(i%4) * 400 * time.Microsecond
		go func() {
			time.Sleep(delay)
			r.Deliver(txEvent(string(txID), pb.TxValidationCode_VALID, 1))
		}()

		event, err := r.WaitForTx(context.Background(), txID, time.Millisecond)
		if err != nil {
			assert.True(t, sdkerr.IsTimeout(err))
			assert.Nil(t, event)
		} else {
			assert.Equal(t, string(txID), event.TxID)
		}

		// every delivery is either claimed or unclaimed, never both
		for {
			stats := r.Stats()
			if stats.Delivered+stats.Unclaimed == uint64(i+1) {
				break
			}
			time.Sleep(50 * time.Microsecond)
		}
		assert.Equal(t, 0, r.Stats().Pending)
	}
}
