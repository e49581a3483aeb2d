/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keyvaluestore

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
)

// MemoryKeyValueStore keeps values in process memory. Nothing survives a restart.
type MemoryKeyValueStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{values: make(map[string][]byte)}
}

// Load returns a copy of the value for key
func (m *MemoryKeyValueStore) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, core.ErrKeyValueNotFound
	}
	return append([]byte(nil), v...), nil
}

// Store sets the value for key
func (m *MemoryKeyValueStore) Store(key string, value []byte) error {
	if key == "" {
		return errors.New("key is empty")
	}
	if value == nil {
		return errors.New("value is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key
func (m *MemoryKeyValueStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
