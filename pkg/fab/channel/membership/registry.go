/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package membership

import (
	"sync"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
)

// Registry maps channel ids to their membership validator. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]fab.ChannelMembership
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]fab.ChannelMembership)}
}

// Register sets the validator for channelID, replacing any earlier one
func (r *Registry) Register(channelID string, v fab.ChannelMembership) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[channelID] = v
}

// Remove drops channelID. Removing an unknown channel is a no-op.
func (r *Registry) Remove(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.validators, channelID)
}

// Get returns the validator for channelID
func (r *Registry) Get(channelID string) (fab.ChannelMembership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[channelID]
	if !ok {
		return nil, sdkerr.Configuration("can not find a membership validator for channel %q", channelID)
	}
	return v, nil
}
