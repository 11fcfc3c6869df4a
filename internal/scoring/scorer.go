package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// materialityThreshold is the cutoff below which a feature's contribution is
// dropped from the explanation output.
const materialityThreshold = 0.001

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// Scorer computes close probabilities with a weighted logistic model. The
// weight table and bias are fixed at construction, so a single Scorer is safe
// to share across goroutines.
type Scorer struct {
	weights Weights
	bias    float64
}

// NewScorer creates a scorer from an in-memory weight table and bias. The
// table is copied, so later changes by the caller do not affect the scorer.
func NewScorer(weights Weights, bias float64) *Scorer {
	copied := make(Weights, len(weights))
	for name, weight := range weights {
		copied[name] = weight
	}
	return &Scorer{weights: copied, bias: bias}
}

type scorerDocument struct {
	Weights map[string]float64 `json:"weights"`
	Bias    *float64           `json:"bias"`
}

// ScorerFromJSON builds a scorer from a serialized document with a "weights"
// object and an optional "bias" field. Bias defaults to -1 when unspecified.
func ScorerFromJSON(payload []byte) (*Scorer, error) {
	var doc scorerDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scorer document: %w", err)
	}
	if doc.Weights == nil {
		return nil, errors.New("scorer document missing weights")
	}

	bias := -1.0
	if doc.Bias != nil {
		bias = *doc.Bias
	}
	return NewScorer(doc.Weights, bias), nil
}

// DefaultWeights returns the shipped weight table tuned for the standard
// HubSpot sales pipeline stages.
func DefaultWeights() Weights {
	return Weights{
		"email_engagement_rate":            1.2,
		"meetings_completed":               0.8,
		"industry_fit":                     1.5,
		"annual_revenue":                   0.000001,
		"intent_score":                     1.0,
		"deal_stage::appointmentscheduled": 0.6,
		"deal_stage::presentationscheduled": 0.9,
		"deal_stage::decisionmakerboughtin": 1.2,
		"deal_stage::contractsent":          1.4,
		"deal_stage::closedwon":             2.0,
		"custom::inbound_velocity":          0.7,
		"custom::product_interest":          0.5,
	}
}

// DefaultScorer returns a scorer with the shipped weight table and a bias of
// -2. Callers that want different behavior construct their own.
func DefaultScorer() *Scorer {
	return NewScorer(DefaultWeights(), -2.0)
}

// Score produces the close probability and contribution breakdown for one
// lead. It never fails: unknown stages and attributes contribute nothing, and
// non-finite inputs propagate through the arithmetic untouched.
func (s *Scorer) Score(leadID string, features LeadFeatures) LeadScoreResult {
	linearSum := s.bias
	contributions := make(map[string]float64)
	for _, entry := range features.vectorEntries(s.weights) {
		contribution := s.weights[entry.name] * entry.value
		if entry.name == "deal_stage" {
			// the stage slot already carries its resolved table weight
			contribution = entry.value
		}
		linearSum += contribution
		if math.Abs(contribution) > materialityThreshold {
			contributions[entry.name] = contribution
		}
	}

	return LeadScoreResult{
		LeadID:              leadID,
		ProbabilityToClose:  sigmoid(linearSum),
		ContributingFactors: contributions,
	}
}
