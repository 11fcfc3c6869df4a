package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is a loosely-typed lead record as it arrives from upstream sources
// (CSV imports, webhook payloads, Airtable rows). Fields are optional and may
// carry heterogeneous numeric types.
type Record map[string]any

// CoercionError reports a field that could not be converted to its expected
// type during batch normalization.
type CoercionError struct {
	Index int
	Field string
	Value any
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("record %d: cannot coerce field %q from %v (%T)", e.Index, e.Field, e.Value, e.Value)
}

// BatchScore normalizes and scores a slice of loosely-typed records, returning
// one result per record in input order. A coercion failure on any field aborts
// the whole batch; there is no per-record isolation.
func (s *Scorer) BatchScore(records []Record) ([]LeadScoreResult, error) {
	results := make([]LeadScoreResult, 0, len(records))
	for i, record := range records {
		leadID, features, err := normalizeRecord(i, record)
		if err != nil {
			return nil, err
		}
		results = append(results, s.Score(leadID, features))
	}
	return results, nil
}

func normalizeRecord(index int, record Record) (string, LeadFeatures, error) {
	features := LeadFeatures{}

	var err error
	if features.EmailEngagementRate, err = floatField(index, record, "email_engagement_rate"); err != nil {
		return "", LeadFeatures{}, err
	}
	if features.MeetingsCompleted, err = intField(index, record, "meetings_completed"); err != nil {
		return "", LeadFeatures{}, err
	}
	features.DealStage = stringField(record, "deal_stage", "lead")
	if features.IndustryFit, err = floatField(index, record, "industry_fit"); err != nil {
		return "", LeadFeatures{}, err
	}
	if features.AnnualRevenue, err = floatField(index, record, "annual_revenue"); err != nil {
		return "", LeadFeatures{}, err
	}
	if features.IntentScore, err = floatField(index, record, "intent_score"); err != nil {
		return "", LeadFeatures{}, err
	}
	if features.CustomAttributes, err = customField(index, record); err != nil {
		return "", LeadFeatures{}, err
	}

	return stringField(record, "lead_id", "unknown"), features, nil
}

func floatField(index int, record Record, field string) (float64, error) {
	raw, ok := record[field]
	if !ok || raw == nil {
		return 0, nil
	}
	value, ok := toFloat(raw)
	if !ok {
		return 0, &CoercionError{Index: index, Field: field, Value: raw}
	}
	return value, nil
}

func intField(index int, record Record, field string) (int, error) {
	raw, ok := record[field]
	if !ok || raw == nil {
		return 0, nil
	}
	value, ok := toInt(raw)
	if !ok {
		return 0, &CoercionError{Index: index, Field: field, Value: raw}
	}
	return value, nil
}

func stringField(record Record, field, fallback string) string {
	raw, ok := record[field]
	if !ok || raw == nil {
		return fallback
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

func customField(index int, record Record) (map[string]float64, error) {
	raw, ok := record["custom_attributes"]
	if !ok || raw == nil {
		return map[string]float64{}, nil
	}

	attrs := make(map[string]float64)
	switch typed := raw.(type) {
	case map[string]float64:
		for key, value := range typed {
			attrs[key] = value
		}
	case map[string]any:
		for key, value := range typed {
			converted, ok := toFloat(value)
			if !ok {
				return nil, &CoercionError{Index: index, Field: "custom_attributes." + key, Value: value}
			}
			attrs[key] = converted
		}
	default:
		return nil, &CoercionError{Index: index, Field: "custom_attributes", Value: raw}
	}
	return attrs, nil
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case json.Number:
		parsed, err := typed.Float64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func toInt(value any) (int, bool) {
	switch typed := value.(type) {
	case int:
		return typed, true
	case int32:
		return int(typed), true
	case int64:
		return int(typed), true
	case uint:
		return int(typed), true
	case uint64:
		return int(typed), true
	case float64:
		// truncation toward zero, matching integer coercion of fractional input
		return int(typed), true
	case float32:
		return int(typed), true
	case json.Number:
		parsed, err := typed.Int64()
		if err != nil {
			return 0, false
		}
		return int(parsed), true
	case string:
		parsed, err := strconv.Atoi(typed)
		return parsed, err == nil
	default:
		return 0, false
	}
}
