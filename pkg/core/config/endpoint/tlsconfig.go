/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package endpoint

import (
	"os"

	"github.com/pkg/errors"
)

// TLSConfig TLS certificate material as found in configuration.
// If both Path and Pem are set, Pem takes precedence.
type TLSConfig struct {
	// Path of a PEM file
	Path string `mapstructure:"path"`
	// Pem inline PEM content
	Pem string `mapstructure:"pem"`
}

// Bytes returns the PEM bytes from Pem or Path. It returns nil when neither is set.
func (cfg TLSConfig) Bytes() ([]byte, error) {
	if cfg.Pem != "" {
		return []byte(cfg.Pem), nil
	}
	if cfg.Path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load pem bytes from path %s", cfg.Path)
	}
	return b, nil
}

// IsEmpty reports whether no certificate was configured
func (cfg TLSConfig) IsEmpty() bool {
	return cfg.Pem == "" && cfg.Path == ""
}
