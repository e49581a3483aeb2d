/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fabsdk

import (
	"github.com/pkg/errors"

	chclient "github.com/hyperledger/fabric-client-go/pkg/client/channel"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	mspapi "github.com/hyperledger/fabric-client-go/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/fab/channel"
	"github.com/hyperledger/fabric-client-go/pkg/fab/events/eventhub"
	"github.com/hyperledger/fabric-client-go/pkg/fabsdk/operations"
	"github.com/hyperledger/fabric-client-go/pkg/fabsdk/provider/chpvdr"
)

// channelContext holds what the clients of one channel share. Event hubs are
// shared per identity because the seek request is signed by the client.
type channelContext struct {
	channelID   string
	config      config.ChannelConfig
	coordinator *channel.Coordinator

	hubs map[string]*chpvdr.HubRef
}

func (ch *channelContext) close(ops *operations.System) error {
	for key, ref := range ch.hubs {
		ref.Close()
		if ops != nil {
			ops.DeregisterChecker(key)
		}
	}
	return ch.coordinator.Close()
}

func hubKey(channelID string, id *mspapi.IdentityIdentifier) string {
	return "eventhub." + channelID + "." + id.MSPID + "." + id.ID
}

// ChannelClient returns a client of channelID acting as identity. Clients of
// the same identity share one event hub connection.
func (sdk *FabricSDK) ChannelClient(channelID string, identity mspapi.SigningIdentity, opts ...chclient.ClientOption) (*chclient.Client, error) {
	if identity == nil {
		return nil, sdkerr.Validation("signing identity is required")
	}

	sdk.mu.Lock()
	defer sdk.mu.Unlock()

	if sdk.closed {
		return nil, errors.New("SDK is closed")
	}
	ch, ok := sdk.channels[channelID]
	if !ok {
		return nil, sdkerr.Configuration("channel [%s] is not configured", channelID)
	}

	clientOpts := []chclient.ClientOption{
		chclient.WithMetrics(sdk.metrics),
		chclient.WithDefaultTimeouts(sdk.config.Client().Timeouts),
	}
	if hub, err := sdk.hubFor(ch, identity); err != nil {
		return nil, err
	} else if hub != nil {
		clientOpts = append(clientOpts, chclient.WithEventHub(hub))
	}
	if v, err := sdk.membership.Get(channelID); err == nil {
		clientOpts = append(clientOpts, chclient.WithMembership(v))
	}

	return chclient.New(ch.coordinator, identity, append(clientOpts, opts...)...)
}

// hubFor returns the shared hub of identity on ch, or nil when the channel
// has no event source.
func (sdk *FabricSDK) hubFor(ch *channelContext, identity mspapi.SigningIdentity) (*chpvdr.HubRef, error) {
	if ch.config.EventHub.URL == "" {
		sdk.logger.Warnf("No event hub configured for channel [%s]", ch.channelID)
		return nil, nil
	}

	key := hubKey(ch.channelID, identity.Identifier())
	if ref, ok := ch.hubs[key]; ok {
		return ref, nil
	}

	nodeCfg := ch.config.EventHub
	ref := chpvdr.NewHubRef(nodeCfg.URL, func() (fab.EventHub, error) {
		hub, err := eventhub.New(ch.channelID, identity,
			eventhub.FromNodeConfig(nodeCfg),
			eventhub.FromConfig(sdk.config),
			eventhub.WithConnector(sdk.connector))
		if err != nil {
			return nil, err
		}
		return hub, nil
	})
	if err := sdk.operations.RegisterChecker(key, ref); err != nil {
		return nil, errors.WithMessagef(err, "registering health check of %s failed", key)
	}
	ch.hubs[key] = ref
	return ref, nil
}

func (sdk *FabricSDK) channel(channelID string) (*channelContext, error) {
	sdk.mu.Lock()
	defer sdk.mu.Unlock()
	ch, ok := sdk.channels[channelID]
	if !ok {
		return nil, sdkerr.Configuration("channel [%s] is not configured", channelID)
	}
	return ch, nil
}
