/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operations

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperledger/fabric-lib-go/healthz"
	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
)

type checker struct {
	err error
}

func (c *checker) HealthCheck(context.Context) error {
	return c.err
}

func newSystem(t *testing.T) (*System, *logging.Provider) {
	registry := prom.NewRegistry()
	counter := prom.NewCounter(prom.CounterOpts{Name: "test_requests_total", Help: "test"})
	require.NoError(t, registry.Register(counter))
	counter.Add(3)

	provider, err := logging.NewProvider(logging.Options{Console: io.Discard, Modules: map[string]string{"fab/channel": "debug"}})
	require.NoError(t, err)
	t.Cleanup(func() { provider.Close() })

	return NewSystem(Options{ListenAddress: "127.0.0.1:0", Gatherer: registry, Logging: provider}), provider
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newSystem(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_requests_total 3")
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newSystem(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	hub := &checker{}
	require.NoError(t, s.RegisterChecker("eventhub.orders", hub))
	assert.Error(t, s.RegisterChecker("eventhub.orders", hub), "duplicate component")

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	hub.err = errors.New("event hub is disconnected")
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	var status healthz.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Len(t, status.FailedChecks, 1)
	assert.Equal(t, "eventhub.orders", status.FailedChecks[0].Component)

	s.DeregisterChecker("eventhub.orders")
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogSpecEndpoint(t *testing.T) {
	s, provider := newSystem(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/logspec")
	require.NoError(t, err)
	var spec LogSpec
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&spec))
	resp.Body.Close()
	assert.Equal(t, "debug", spec.Modules["fab/channel"])

	put := func(body string) int {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/logspec", strings.NewReader(body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusNoContent, put(`{"modules":{"fab/channel":"error","fab/peer":"warn"}}`))
	assert.Equal(t, logging.ERROR, provider.GetLevel("fab/channel"))
	assert.Equal(t, logging.WARNING, provider.GetLevel("fab/peer"))

	assert.Equal(t, http.StatusBadRequest, put(`{"modules":{"fab/channel":"debug","fab/peer":"loud"}}`))
	assert.Equal(t, logging.ERROR, provider.GetLevel("fab/channel"), "a rejected spec changes nothing")

	assert.Equal(t, http.StatusBadRequest, put(`not json`))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/logspec", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStartStop(t *testing.T) {
	s, _ := newSystem(t)
	require.NoError(t, s.Stop(), "stopping an idle system is a no-op")

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	addr := s.Addr()
	assert.NotEqual(t, "127.0.0.1:0", addr)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop())
	_, err = http.Get("http://" + addr + "/healthz")
	assert.Error(t, err)
}

func TestDisabledEndpoints(t *testing.T) {
	s := NewSystem(Options{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	for _, path := range []string{"/metrics", "/logspec"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}
