/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdkerr

import (
	"fmt"
	"testing"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
		is   func(error) bool
		name string
	}{
		{Configuration("missing %s", "cert"), KindConfiguration, IsConfiguration, "ConfigurationError"},
		{Validation("bad"), KindValidation, IsValidation, "ValidationError"},
		{InvalidProtocol("ftp"), KindInvalidProtocol, IsInvalidProtocol, "InvalidProtocolError"},
		{Endorsement(nil, nil, "low"), KindEndorsement, IsEndorsement, "EndorsementError"},
		{Submission("tx", common.Status_BAD_REQUEST, nil, "refused"), KindSubmission, IsSubmission, "SubmissionError"},
		{Timeout("tx", nil, "late"), KindTimeout, IsTimeout, "TimeoutError"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, KindOf(tc.err))
			assert.True(t, tc.is(tc.err))
			assert.True(t, tc.is(errors.Wrap(tc.err, "outer")))
			assert.True(t, tc.is(fmt.Errorf("outer: %w", tc.err)))
			assert.Contains(t, tc.err.Error(), tc.name)
		})
	}

	assert.Equal(t, KindUnknown, KindOf(fmt.Errorf("plain")))
	assert.False(t, IsTimeout(nil))
}

func TestEndorsementDetail(t *testing.T) {
	err := Endorsement(status.New(status.EndorserClientStatus, status.EndorsementMismatch.ToInt32(), "mismatch", nil),
		[]PeerFailure{
			{Endpoint: "peer1:7051", Divergent: true},
			{Endpoint: "peer2:7051", Status: 500},
			{Endpoint: "peer3:7051", Err: fmt.Errorf("unreachable")},
		}, "got %d of %d", 1, 2)

	msg := err.Error()
	assert.Contains(t, msg, "peer1:7051: divergent payload")
	assert.Contains(t, msg, "peer2:7051: status 500")
	assert.Contains(t, msg, "peer3:7051: unreachable")

	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.EqualValues(t, status.EndorsementMismatch, s.Code)
}

func TestSubmissionAndTimeoutFields(t *testing.T) {
	var e *Error
	require.True(t, errors.As(fmt.Errorf("x: %w", Submission("tx1", common.Status_SERVICE_UNAVAILABLE, nil, "refused")), &e))
	assert.Equal(t, common.Status_SERVICE_UNAVAILABLE, e.OrdererStatus)
	assert.Equal(t, "tx1", e.TxID)

	require.True(t, errors.As(Timeout("tx2", nil, "late"), &e))
	assert.Equal(t, "tx2", e.TxID)
	assert.True(t, errors.Is(e, &Error{Kind: KindTimeout}))
	assert.False(t, errors.Is(e, &Error{Kind: KindSubmission}))
}
