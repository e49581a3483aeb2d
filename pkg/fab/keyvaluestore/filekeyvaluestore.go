/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keyvaluestore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
)

const (
	newDirMode  = 0700
	newFileMode = 0600
)

// KeySerializer maps a key to a file path
type KeySerializer func(key string) (string, error)

// FileKeyValueStore stores each value into a separate file under path.
type FileKeyValueStore struct {
	path          string
	keySerializer KeySerializer
}

// FileKeyValueStoreOptions allow overriding store defaults
type FileKeyValueStoreOptions struct {
	// Store path, mandatory
	Path string
	// Optional. If not provided, the key is joined to Path.
	KeySerializer KeySerializer
}

// NewFileStore creates a FileKeyValueStore using provided options
func NewFileStore(opts *FileKeyValueStoreOptions) (*FileKeyValueStore, error) {
	if opts == nil {
		return nil, errors.New("FileKeyValueStoreOptions is nil")
	}
	if opts.Path == "" {
		return nil, errors.New("FileKeyValueStore path is empty")
	}
	root := filepath.Clean(opts.Path)
	serializer := opts.KeySerializer
	if serializer == nil {
		serializer = func(key string) (string, error) {
			file := filepath.Join(root, key)
			if !strings.HasPrefix(file, root+string(filepath.Separator)) {
				return "", errors.Errorf("key %q escapes the store path", key)
			}
			return file, nil
		}
	}
	return &FileKeyValueStore{path: root, keySerializer: serializer}, nil
}

// GetPath returns the store path
func (fkvs *FileKeyValueStore) GetPath() string {
	return fkvs.path
}

// Load returns the value stored in the store for a key.
// If a value for the key was not found, returns (nil, ErrKeyValueNotFound)
func (fkvs *FileKeyValueStore) Load(key string) ([]byte, error) {
	file, err := fkvs.keySerializer(key)
	if err != nil {
		return nil, err
	}
	bytes, err := os.ReadFile(file) // nolint: gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrKeyValueNotFound
		}
		return nil, errors.Wrapf(err, "reading %s failed", file)
	}
	if len(bytes) == 0 {
		return nil, core.ErrKeyValueNotFound
	}
	return bytes, nil
}

// Store sets the value for the key.
func (fkvs *FileKeyValueStore) Store(key string, value []byte) error {
	if key == "" {
		return errors.New("key is empty")
	}
	if value == nil {
		return errors.New("value is nil")
	}
	file, err := fkvs.keySerializer(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), newDirMode); err != nil {
		return err
	}
	return os.WriteFile(file, value, newFileMode)
}

// Delete deletes the value for a key.
func (fkvs *FileKeyValueStore) Delete(key string) error {
	if key == "" {
		return errors.New("key is empty")
	}
	file, err := fkvs.keySerializer(key)
	if err != nil {
		return err
	}
	err = os.Remove(file)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %s failed", file)
	}
	return nil
}
