/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cryptosuite selects a crypto suite implementation from configuration.
//
// Implementations register a constructor for a (provider, algorithm) pair with
// a Registry at start-up; New resolves the pair at call time. Nothing in this
// package is process global: callers own the Registry they build.
package cryptosuite

import (
	"sort"
	"strings"
	"sync"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
)

// Providers
const (
	ProviderSW     = "SW"
	ProviderPKCS11 = "PKCS11"
)

// AlgorithmEC selects elliptic curve digital signatures
const AlgorithmEC = "EC"

// Config parameterises a crypto suite
type Config struct {
	Provider   string
	Algorithm  string
	KeySize    int
	HashFamily string
	Ephemeral  bool

	// PKCS11 only
	Library    string
	Pin        string
	Label      string
	SoftVerify bool
}

// Constructor builds a suite for a configuration
type Constructor func(cfg Config) (core.CryptoSuite, error)

type registryKey struct {
	provider  string
	algorithm string
}

// Registry maps provider and algorithm names to suite constructors
type Registry struct {
	mu    sync.RWMutex
	ctors map[registryKey]Constructor
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[registryKey]Constructor)}
}

// Register adds or replaces the constructor for provider and algorithm
func (r *Registry) Register(provider, algorithm string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[key(provider, algorithm)] = ctor
}

// New builds the suite selected by cfg. A pair with no registered constructor
// is a ConfigurationError.
func (r *Registry) New(cfg Config) (core.CryptoSuite, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderSW
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmEC
	}

	r.mu.RLock()
	ctor, ok := r.ctors[key(cfg.Provider, cfg.Algorithm)]
	r.mu.RUnlock()
	if !ok {
		return nil, sdkerr.Configuration("desired CryptoSuite module not found supporting algorithm %q for provider %q", cfg.Algorithm, cfg.Provider)
	}

	suite, err := ctor(cfg)
	if err != nil {
		if sdkerr.KindOf(err) != sdkerr.KindUnknown {
			return nil, err
		}
		return nil, sdkerr.WrapConfiguration(err, "creating %s/%s crypto suite failed", cfg.Provider, cfg.Algorithm)
	}
	logger.Debugf("crypto suite %s/%s created", cfg.Provider, cfg.Algorithm)
	return suite, nil
}

// Supported lists the registered provider/algorithm pairs
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s []string
	for k := range r.ctors {
		s = append(s, k.provider+"/"+k.algorithm)
	}
	sort.Strings(s)
	return s
}

func key(provider, algorithm string) registryKey {
	return registryKey{provider: strings.ToUpper(provider), algorithm: strings.ToUpper(algorithm)}
}
