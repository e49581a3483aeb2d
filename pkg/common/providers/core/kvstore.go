/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package core

import "github.com/pkg/errors"

var (
	// ErrKeyValueNotFound indicates that a value for the key does not exist
	ErrKeyValueNotFound = errors.New("value for key not found")
)

// KVStore persists enrollment material. Backends are interchangeable.
type KVStore interface {

	// Store sets the value for the key.
	Store(key string, value []byte) error

	// Load returns the value stored for key.
	// If a value for the key was not found, returns (nil, ErrKeyValueNotFound)
	Load(key string) ([]byte, error)

	// Delete deletes the value for a key. Deleting a missing key is not an error.
	Delete(key string) error
}
