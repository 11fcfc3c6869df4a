package scoring

import "sort"

// LeadFeatures holds the normalized signal set for a single lead. Values are
// copied on construction and never mutated by the scorer.
type LeadFeatures struct {
	EmailEngagementRate float64
	MeetingsCompleted   int
	DealStage           string
	IndustryFit         float64
	AnnualRevenue       float64
	IntentScore         float64
	CustomAttributes    map[string]float64
}

// Weights maps a feature name to its scalar multiplier in the linear scoring
// sum. Keys are the fixed feature names, deal_stage::<stage> entries for
// categorical stages, and custom::<name> entries for custom attributes.
// A missing key always resolves to weight 0.
type Weights map[string]float64

// LeadScoreResult pairs a close probability with the features that materially
// drove it.
type LeadScoreResult struct {
	LeadID              string             `json:"lead_id"`
	ProbabilityToClose  float64            `json:"probability_to_close"`
	ContributingFactors map[string]float64 `json:"contributing_factors"`
}

type vectorEntry struct {
	name  string
	value float64
}

// vectorEntries flattens the features into named numeric slots in a fixed
// order: the five core signals, the resolved deal stage, then custom
// attributes sorted by name. The weight table is consulted only to resolve
// the categorical stage into its numeric slot value.
func (f LeadFeatures) vectorEntries(weights Weights) []vectorEntry {
	entries := make([]vectorEntry, 0, 6+len(f.CustomAttributes))
	entries = append(entries,
		vectorEntry{"email_engagement_rate", f.EmailEngagementRate},
		vectorEntry{"meetings_completed", float64(f.MeetingsCompleted)},
		vectorEntry{"industry_fit", f.IndustryFit},
		vectorEntry{"annual_revenue", f.AnnualRevenue},
		vectorEntry{"intent_score", f.IntentScore},
		vectorEntry{"deal_stage", weights["deal_stage::"+f.DealStage]},
	)

	customKeys := make([]string, 0, len(f.CustomAttributes))
	for key := range f.CustomAttributes {
		customKeys = append(customKeys, key)
	}
	sort.Strings(customKeys)
	for _, key := range customKeys {
		entries = append(entries, vectorEntry{"custom::" + key, f.CustomAttributes[key]})
	}

	return entries
}

// Vector returns the flat feature mapping used for weighted summation.
func (f LeadFeatures) Vector(weights Weights) map[string]float64 {
	entries := f.vectorEntries(weights)
	vector := make(map[string]float64, len(entries))
	for _, entry := range entries {
		vector[entry.name] = entry.value
	}
	return vector
}
