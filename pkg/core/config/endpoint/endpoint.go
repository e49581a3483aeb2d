/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package endpoint resolves node URLs into immutable endpoints carrying the
// transport credentials used to reach them.
//
// Recognised schemes are plain:// (no transport security) and secure://
// (TLS, trust certificate required). grpc:// and grpcs:// are accepted as
// aliases of plain:// and secure:// respectively.
package endpoint

import (
	"crypto/x509"
	"net"
	"strings"

	"github.com/cloudflare/cfssl/helpers"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
)

// Schemes
const (
	SchemePlain  = "plain"
	SchemeSecure = "secure"

	schemeGRPC  = "grpc"
	schemeGRPCS = "grpcs"
)

// Endpoint is a single remote target
type Endpoint struct {
	url                string
	address            string
	secure             bool
	certPEM            []byte
	cert               *x509.Certificate
	serverHostOverride string
}

type options struct {
	certPEM            []byte
	serverHostOverride string
}

// Option configures New
type Option func(*options)

// WithTLSCert sets the PEM encoded trust certificate used by secure endpoints
func WithTLSCert(pem []byte) Option {
	return func(o *options) {
		o.certPEM = pem
	}
}

// WithServerHostOverride sets the server name checked against the TLS certificate
func WithServerHostOverride(name string) Option {
	return func(o *options) {
		o.serverHostOverride = name
	}
}

// New parses url and returns an Endpoint.
//
// It fails with an InvalidProtocolError for an unknown scheme, a ValidationError
// when the address is not host:port and a ConfigurationError when a secure
// endpoint has no usable trust certificate.
func New(url string, opts ...Option) (*Endpoint, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	scheme, address, err := split(url)
	if err != nil {
		return nil, err
	}

	ep := &Endpoint{
		url:                url,
		address:            address,
		serverHostOverride: o.serverHostOverride,
	}

	switch scheme {
	case SchemePlain, schemeGRPC:
		return ep, nil
	case SchemeSecure, schemeGRPCS:
	default:
		return nil, sdkerr.InvalidProtocol("Invalid protocol: %s. URLs must begin with %s:// or %s://", scheme, SchemePlain, SchemeSecure)
	}

	if len(o.certPEM) == 0 {
		return nil, sdkerr.Configuration("PEM encoded certificate is required for [%s]", url)
	}
	cert, err := helpers.ParseCertificatePEM(o.certPEM)
	if err != nil {
		return nil, sdkerr.WrapConfiguration(err, "invalid trust certificate for [%s]", url)
	}

	ep.secure = true
	ep.certPEM = o.certPEM
	ep.cert = cert
	return ep, nil
}

func split(url string) (scheme, address string, err error) {
	idx := strings.Index(url, "://")
	if idx <= 0 {
		return "", "", sdkerr.InvalidProtocol("Invalid protocol in [%s]. URLs must begin with %s:// or %s://", url, SchemePlain, SchemeSecure)
	}

	scheme = strings.ToLower(url[:idx])
	address = strings.TrimSuffix(url[idx+3:], "/")

	switch scheme {
	case SchemePlain, SchemeSecure, schemeGRPC, schemeGRPCS:
	default:
		return scheme, "", nil
	}

	host, port, e := net.SplitHostPort(address)
	if e != nil || host == "" || port == "" {
		return "", "", sdkerr.Validation("address [%s] must be of the form host:port", address)
	}
	return scheme, address, nil
}

// URL returns the URL the endpoint was created from
func (e *Endpoint) URL() string {
	return e.url
}

// Address returns host:port
func (e *Endpoint) Address() string {
	return e.address
}

// IsSecure reports whether the endpoint uses TLS
func (e *Endpoint) IsSecure() bool {
	return e.secure
}

// Certificate returns the trust certificate, nil for plain endpoints
func (e *Endpoint) Certificate() *x509.Certificate {
	return e.cert
}

// CertificatePEM returns the trust certificate in PEM form
func (e *Endpoint) CertificatePEM() []byte {
	return e.certPEM
}

// ServerHostOverride returns the TLS server name override
func (e *Endpoint) ServerHostOverride() string {
	return e.serverHostOverride
}

// TransportCredentials returns the gRPC credentials for the endpoint
func (e *Endpoint) TransportCredentials() credentials.TransportCredentials {
	if !e.secure {
		return insecure.NewCredentials()
	}
	pool := x509.NewCertPool()
	pool.AddCert(e.cert)
	return credentials.NewClientTLSFromCert(pool, e.serverHostOverride)
}

// DialOption returns the transport credentials as a dial option
func (e *Endpoint) DialOption() grpc.DialOption {
	return grpc.WithTransportCredentials(e.TransportCredentials())
}
