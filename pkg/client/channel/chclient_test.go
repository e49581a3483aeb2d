/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"
	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	fabmocks "github.com/hyperledger/fabric-client-go/pkg/common/providers/fab/mocks"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/fab/channel"
	"github.com/hyperledger/fabric-client-go/pkg/fab/events/eventhub"
	"github.com/hyperledger/fabric-client-go/pkg/fab/mocks"
	"github.com/hyperledger/fabric-client-go/pkg/fab/orderer"
	"github.com/hyperledger/fabric-client-go/pkg/fab/peer"
	"github.com/hyperledger/fabric-client-go/pkg/fabsdk/metrics"
)

const (
	testAddress = "127.0.0.1:0"
	testChannel = "orders"
)

var testRequest = Request{ChaincodeID: "asset", Fcn: "transfer", Args: [][]byte{[]byte("a"), []byte("b")}}

type testSigner struct{}

func (testSigner) Serialize() ([]byte, error) { return []byte("creator"), nil }

func (testSigner) Sign(msg []byte) ([]byte, error) { return []byte("signature"), nil }

type network struct {
	endorsers []*mocks.MockEndorserServer
	orderer   *mocks.MockBroadcastServer
	events    *mocks.MockDeliverServer
	eventsURL string

	coordinator *channel.Coordinator
}

// newNetwork starts one endorser per result, an orderer and an event source
// that commits every accepted transaction. setup adjusts the orderer before it starts.
func newNetwork(t *testing.T, setup func(*mocks.MockBroadcastServer), results ...string) *network {
	n := &network{events: &mocks.MockDeliverServer{}}
	n.eventsURL = "grpc://" + n.events.Start(testAddress)
	t.Cleanup(n.events.Stop)

	n.orderer = &mocks.MockBroadcastServer{Events: n.events}
	if setup != nil {
		setup(n.orderer)
	}
	ordererURL := "grpc://" + n.orderer.Start(testAddress)
	t.Cleanup(n.orderer.Stop)

	o, err := orderer.New(orderer.WithURL(ordererURL))
	require.NoError(t, err)

	var peers []fab.Peer
	for _, result := range results {
		srv := &mocks.MockEndorserServer{Result: []byte(result)}
		addr := srv.Start(testAddress)
		t.Cleanup(srv.Stop)
		n.endorsers = append(n.endorsers, srv)

		p, err := peer.New(peer.WithURL("grpc://" + addr))
		require.NoError(t, err)
		peers = append(peers, p)
	}

	n.coordinator, err = channel.New(testChannel, channel.WithPeers(peers...), channel.WithOrderers(o), channel.WithThreshold(2))
	require.NoError(t, err)
	t.Cleanup(func() { n.coordinator.Close() })
	return n
}

func (n *network) hub(t *testing.T) *eventhub.EventHub {
	hub, err := eventhub.New(testChannel, testSigner{}, eventhub.WithURL(n.eventsURL), eventhub.WithReconnect(false))
	require.NoError(t, err)
	return hub
}

func TestNew(t *testing.T) {
	c, err := channel.New(testChannel)
	require.NoError(t, err)

	_, err = New(nil, testSigner{})
	assert.True(t, sdkerr.IsValidation(err))
	_, err = New(c, nil)
	assert.True(t, sdkerr.IsValidation(err))
	_, err = New(c, testSigner{}, WithMetrics(nil))
	assert.True(t, sdkerr.IsValidation(err))

	client, err := New(c, testSigner{})
	require.NoError(t, err)
	assert.Equal(t, testChannel, client.ChannelID())

	_, err = client.Execute(context.Background(), testRequest)
	assert.True(t, sdkerr.IsConfiguration(err), "execute needs an event hub")
}

func TestExecute(t *testing.T) {
	n := newNetwork(t, nil, "ok", "ok", "other")
	hub := n.hub(t)

	registry := prom.NewRegistry()
	m, err := metrics.NewClientMetrics(registry)
	require.NoError(t, err)

	client, err := New(n.coordinator, testSigner{}, WithEventHub(hub), WithMetrics(m))
	require.NoError(t, err)

	resp, err := client.Execute(context.Background(), testRequest, WithTimeout(Commit, 5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, pb.TxValidationCode_VALID, resp.TxValidationCode)
	assert.Equal(t, uint64(1), resp.BlockNumber)
	assert.Equal(t, []byte("ok"), resp.Payload)
	assert.Len(t, resp.Responses, 2)
	assert.NotEmpty(t, resp.TxID)

	state, ok := n.coordinator.Tracker().State(resp.TxID)
	require.True(t, ok)
	assert.Equal(t, channel.Committed, state)

	// the same signed proposal went to every endorser
	first := n.endorsers[0].Received()
	require.Len(t, first, 1)
	for _, srv := range n.endorsers[1:] {
		received := srv.Received()
		require.Len(t, received, 1)
		assert.Equal(t, first[0].ProposalBytes, received[0].ProposalBytes)
		assert.Equal(t, first[0].Signature, received[0].Signature)
	}

	// the executor disconnects the hub it connected
	assert.False(t, hub.IsConnected())
	require.Eventually(t, func() bool { return n.events.Streams() == 0 }, 5*time.Second, 5*time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)
	seen := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if metric.GetCounter() != nil {
				seen[mf.GetName()] += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), seen["fabric_client_submissions_received"])
	assert.Equal(t, float64(1), seen["fabric_client_endorsements_divergent"])
	assert.Zero(t, seen["fabric_client_submissions_failed"])
}

func TestExecuteInvalidated(t *testing.T) {
	n := newNetwork(t, func(o *mocks.MockBroadcastServer) {
		o.ValidationCode = pb.TxValidationCode_MVCC_READ_CONFLICT
	}, "ok", "ok")

	client, err := New(n.coordinator, testSigner{}, WithEventHub(n.hub(t)))
	require.NoError(t, err)

	resp, err := client.Execute(context.Background(), testRequest)
	require.Error(t, err)
	assert.True(t, sdkerr.IsSubmission(err))
	assert.Equal(t, pb.TxValidationCode_MVCC_READ_CONFLICT, resp.TxValidationCode)

	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.EventServerStatus, s.Group)
	assert.Equal(t, int32(pb.TxValidationCode_MVCC_READ_CONFLICT), s.Code)

	state, _ := n.coordinator.Tracker().State(resp.TxID)
	assert.Equal(t, channel.Rejected, state)
}

func TestExecuteRejectedByOrderer(t *testing.T) {
	n := newNetwork(t, func(o *mocks.MockBroadcastServer) {
		o.BroadcastStatus = common.Status_FORBIDDEN
	}, "ok", "ok")

	hub := n.hub(t)
	client, err := New(n.coordinator, testSigner{}, WithEventHub(hub))
	require.NoError(t, err)

	resp, err := client.Execute(context.Background(), testRequest)
	require.Error(t, err)
	assert.True(t, sdkerr.IsSubmission(err))

	var sdkErr *sdkerr.Error
	require.True(t, errors.As(err, &sdkErr))
	assert.Equal(t, common.Status_FORBIDDEN, sdkErr.OrdererStatus)

	// no registration was attempted
	assert.Equal(t, 0, hub.Registry().Stats().Pending)
	state, _ := n.coordinator.Tracker().State(resp.TxID)
	assert.Equal(t, channel.Rejected, state)
	assert.False(t, hub.IsConnected())
}

func TestExecuteCommitTimeout(t *testing.T) {
	n := newNetwork(t, func(o *mocks.MockBroadcastServer) { o.Events = nil }, "ok", "ok")

	client, err := New(n.coordinator, testSigner{}, WithEventHub(n.hub(t)))
	require.NoError(t, err)

	resp, err := client.Execute(context.Background(), testRequest, WithTimeout(Commit, 100*time.Millisecond))
	require.Error(t, err)
	assert.True(t, sdkerr.IsTimeout(err))

	state, _ := n.coordinator.Tracker().State(resp.TxID)
	assert.Equal(t, channel.TimedOut, state)
}

func TestExecuteEndorsementFailure(t *testing.T) {
	n := newNetwork(t, nil, "ok", "other")

	client, err := New(n.coordinator, testSigner{}, WithEventHub(n.hub(t)))
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), testRequest)
	require.Error(t, err)
	assert.True(t, sdkerr.IsEndorsement(err))
	assert.Empty(t, n.orderer.Received(), "nothing is ordered without enough endorsements")
}

func TestExecuteHubUnreachable(t *testing.T) {
	n := newNetwork(t, nil, "ok", "ok")
	hub, err := eventhub.New(testChannel, testSigner{}, eventhub.WithURL("grpc://127.0.0.1:1"), eventhub.WithReconnect(false))
	require.NoError(t, err)

	client, err := New(n.coordinator, testSigner{}, WithEventHub(hub),
		WithDefaultTimeouts(config.TimeoutsConfig{Connection: 200 * time.Millisecond, Commit: time.Second}))
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), testRequest)
	require.Error(t, err)
	for _, srv := range n.endorsers {
		assert.Empty(t, srv.Received(), "nothing is endorsed without an event hub")
	}
}

func TestQuery(t *testing.T) {
	n := newNetwork(t, nil, "ok", "ok")

	client, err := New(n.coordinator, testSigner{})
	require.NoError(t, err)

	resp, err := client.Query(context.Background(), testRequest, WithNonceSize(32))
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), resp.Payload)
	assert.Empty(t, n.orderer.Received())
	_, tracked := n.coordinator.Tracker().State(resp.TxID)
	assert.False(t, tracked)

	_, err = client.Query(context.Background(), testRequest, WithNonceSize(0))
	assert.True(t, sdkerr.IsValidation(err))
	_, err = client.Query(context.Background(), testRequest, WithTimeout(Endorsement, -time.Second))
	assert.True(t, sdkerr.IsValidation(err))
}

type membership struct {
	invalid map[string]bool
}

func (m *membership) Validate(serializedID []byte) error {
	if m.invalid[string(serializedID)] {
		return errors.New("unknown issuer")
	}
	return nil
}

func (m *membership) Verify(serializedID []byte, msg []byte, sig []byte) error {
	return nil
}

func TestSignatureValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	n := newNetwork(t, nil, "ok", "ok")
	hub := fabmocks.NewMockEventHub(ctrl)
	hub.EXPECT().Connect(gomock.Any()).Return(nil)
	hub.EXPECT().Disconnect()

	// the mock endorser identifies itself by its listen address
	endorser := "endorser-" + n.coordinator.Peers()[1].URL()[len("grpc://"):]
	client, err := New(n.coordinator, testSigner{}, WithEventHub(hub),
		WithMembership(&membership{invalid: map[string]bool{endorser: true}}))
	require.NoError(t, err)

	resp, err := client.Execute(context.Background(), testRequest)
	require.Error(t, err)
	assert.True(t, sdkerr.IsEndorsement(err))

	var sdkErr *sdkerr.Error
	require.True(t, errors.As(err, &sdkErr))
	require.Len(t, sdkErr.Failures, 1)
	assert.Equal(t, n.coordinator.Peers()[1].URL(), sdkErr.Failures[0].Endpoint)

	state, _ := n.coordinator.Tracker().State(resp.TxID)
	assert.Equal(t, channel.Rejected, state)
	assert.Empty(t, n.orderer.Received())
}
