/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	kitmetrics "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/pkg/errors"
)

// Namespace prefixes every metric name
const Namespace = "fabric_client"

// Label names
const (
	LabelChannel   = "channel"
	LabelChaincode = "chaincode"
	LabelReason    = "reason"
)

var (
	submissionsReceived = prom.CounterOpts{
		Namespace: Namespace,
		Name:      "submissions_received",
		Help:      "The number of transactions handed to the channel client.",
	}
	submissionsFailed = prom.CounterOpts{
		Namespace: Namespace,
		Name:      "submissions_failed",
		Help:      "The number of transactions that failed (timeouts excluded).",
	}
	submissionsTimeout = prom.CounterOpts{
		Namespace: Namespace,
		Name:      "submissions_timeout",
		Help:      "The number of transactions whose commit was not seen in time.",
	}
	endorsementsDivergent = prom.CounterOpts{
		Namespace: Namespace,
		Name:      "endorsements_divergent",
		Help:      "The number of endorsements left out because their payload differed from the majority.",
	}
	submissionDuration = prom.HistogramOpts{
		Namespace: Namespace,
		Name:      "submission_duration_seconds",
		Help:      "The time from proposal to commit.",
		Buckets:   prom.DefBuckets,
	}
)

// ClientMetrics contains the metrics used by the channel client
type ClientMetrics struct {
	SubmissionsReceived   kitmetrics.Counter
	SubmissionsFailed     kitmetrics.Counter
	SubmissionsTimeout    kitmetrics.Counter
	EndorsementsDivergent kitmetrics.Counter
	SubmissionDuration    kitmetrics.Histogram
}

// NewClientMetrics creates the client metrics and registers them on registerer
func NewClientMetrics(registerer prom.Registerer) (*ClientMetrics, error) {
	labels := []string{LabelChannel, LabelChaincode}

	received := prom.NewCounterVec(submissionsReceived, labels)
	failed := prom.NewCounterVec(submissionsFailed, append(labels, LabelReason))
	timeout := prom.NewCounterVec(submissionsTimeout, labels)
	divergent := prom.NewCounterVec(endorsementsDivergent, labels)
	duration := prom.NewHistogramVec(submissionDuration, labels)

	for _, c := range []prom.Collector{received, failed, timeout, divergent, duration} {
		if err := registerer.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering client metrics failed")
		}
	}

	return &ClientMetrics{
		SubmissionsReceived:   kitprometheus.NewCounter(received),
		SubmissionsFailed:     kitprometheus.NewCounter(failed),
		SubmissionsTimeout:    kitprometheus.NewCounter(timeout),
		EndorsementsDivergent: kitprometheus.NewCounter(divergent),
		SubmissionDuration:    kitprometheus.NewHistogram(duration),
	}, nil
}

// NewNop returns client metrics that record nothing
func NewNop() *ClientMetrics {
	return &ClientMetrics{
		SubmissionsReceived:   discard.NewCounter(),
		SubmissionsFailed:     discard.NewCounter(),
		SubmissionsTimeout:    discard.NewCounter(),
		EndorsementsDivergent: discard.NewCounter(),
		SubmissionDuration:    discard.NewHistogram(),
	}
}
