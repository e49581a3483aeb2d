/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	"fmt"

	"github.com/Knetic/govaluate"

	"github.com/hyperledger/fabric-protos-go-apiv2/common"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-client-go/pkg/fab/txn"
)

// Policy variables
const (
	varMatching  = "matching"
	varTotal     = "total"
	varFailed    = "failed"
	varDivergent = "divergent"
)

// Policy is a compiled endorsement policy expression, e.g.
// "matching >= 2 && divergent == 0".
type Policy struct {
	expr *govaluate.EvaluableExpression
}

// NewPolicy compiles expression. The expression may refer to the variables
// matching, total, failed and divergent.
func NewPolicy(expression string) (*Policy, error) {
	expr, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return nil, sdkerr.WrapConfiguration(err, "invalid endorsement policy [%s]", expression)
	}
	for _, v := range expr.Vars() {
		switch v {
		case varMatching, varTotal, varFailed, varDivergent:
		default:
			return nil, sdkerr.Configuration("unknown variable [%s] in endorsement policy [%s]", v, expression)
		}
	}
	return &Policy{expr: expr}, nil
}

func (p *Policy) String() string {
	return p.expr.String()
}

// Evaluate returns whether the tally satisfies the policy
func (p *Policy) Evaluate(t Tally) (bool, error) {
	result, err := p.expr.Evaluate(map[string]interface{}{
		varMatching:  float64(t.Matching),
		varTotal:     float64(t.Total),
		varFailed:    float64(t.Failed),
		varDivergent: float64(t.Divergent),
	})
	if err != nil {
		return false, sdkerr.WrapConfiguration(err, "evaluating endorsement policy [%s] failed", p)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, sdkerr.Configuration("endorsement policy [%s] is not a boolean expression", p)
	}
	return ok, nil
}

// Tally counts the settled endorsement calls of one proposal
type Tally struct {
	Matching  int
	Total     int
	Failed    int
	Divergent int
}

// aggregation is the partition of proposal results
type aggregation struct {
	matching []*fab.TransactionProposalResponse
	failures []sdkerr.PeerFailure
	tally    Tally
}

// aggregate partitions results into failures and groups of byte-equal
// payloads. The largest group wins, ties going to the group seen first; the
// other groups are divergent.
func aggregate(results []*txn.ProposalResult) *aggregation {
	agg := &aggregation{tally: Tally{Total: len(results)}}

	var order []string
	groups := make(map[string][]*fab.TransactionProposalResponse)
	for _, r := range results {
		if err := endorsementError(r); err != nil {
			f := sdkerr.PeerFailure{Endpoint: r.Endorser, Err: err}
			if r.Response != nil {
				f.Status = r.Response.Status
			}
			agg.failures = append(agg.failures, f)
			agg.tally.Failed++
			continue
		}
		key := string(r.Response.ProposalResponse.Payload)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r.Response)
	}

	winner := -1
	for i, key := range order {
		if winner < 0 || len(groups[key]) > len(groups[order[winner]]) {
			winner = i
		}
	}
	if winner >= 0 {
		agg.matching = groups[order[winner]]
	}
	agg.tally.Matching = len(agg.matching)

	for i, key := range order {
		if i == winner {
			continue
		}
		for _, resp := range groups[key] {
			logger.Warnf("Endorser [%s] returned a divergent payload, excluding it", resp.Endorser)
			agg.failures = append(agg.failures, sdkerr.PeerFailure{
				Endpoint:  resp.Endorser,
				Status:    resp.Status,
				Divergent: true,
				Err:       status.New(status.EndorserClientStatus, status.EndorsementMismatch.ToInt32(), "payload differs from the majority", []interface{}{resp.Endorser}),
			})
			agg.tally.Divergent++
		}
	}
	return agg
}

// responseError returns why a settled call did not succeed
func responseError(r *txn.ProposalResult) error {
	if r.Err != nil {
		return r.Err
	}
	if r.Response == nil || r.Response.ProposalResponse == nil {
		return status.New(status.EndorserClientStatus, status.MissingEndorsement.ToInt32(), "no proposal response", []interface{}{r.Endorser})
	}
	if r.Response.Status != int32(common.Status_SUCCESS) {
		return status.NewFromProposalResponse(r.Response.ProposalResponse, r.Endorser)
	}
	return nil
}

func endorsementError(r *txn.ProposalResult) error {
	if err := responseError(r); err != nil {
		return err
	}
	if r.Response.Endorsement == nil {
		return status.New(status.EndorserClientStatus, status.MissingEndorsement.ToInt32(), "proposal response has no endorsement", []interface{}{r.Endorser})
	}
	return nil
}

// check applies the threshold and the optional policy
func (agg *aggregation) check(txID fab.TransactionID, threshold int, policy *Policy) error {
	if agg.tally.Matching < threshold {
		code := status.MultipleErrors
		if agg.tally.Divergent > 0 {
			code = status.EndorsementMismatch
		}
		cause := status.New(status.EndorserClientStatus, code.ToInt32(),
			fmt.Sprintf("%d matching endorsements, %d required", agg.tally.Matching, threshold), nil)
		return sdkerr.Endorsement(cause, agg.failures, "endorsement of transaction [%s] failed", txID)
	}

	if policy == nil {
		return nil
	}
	ok, err := policy.Evaluate(agg.tally)
	if err != nil {
		return err
	}
	if !ok {
		cause := status.New(status.EndorserClientStatus, status.PolicyNotSatisfied.ToInt32(),
			"endorsement policy ["+policy.String()+"] not satisfied", []interface{}{agg.tally})
		return sdkerr.Endorsement(cause, agg.failures, "endorsement of transaction [%s] failed", txID)
	}
	return nil
}
