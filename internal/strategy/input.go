package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// thresholdLimit is the first value that does not fit numeric(6,2).
var thresholdLimit = decimal.NewFromInt(10000)

type ConditionData struct {
	Indicator string
	Threshold decimal.Decimal
	Type      string
}

// Input is the body of a create request.
type Input struct {
	Name        string
	Description *string
	AssetType   string
	Status      string
	Conditions  []ConditionData
}

// Patch lists the fields a caller explicitly set. A nil member is left untouched.
type Patch struct {
	Name        *string
	Description *string
	AssetType   *string
	Status      *string
	Conditions  *[]ConditionData
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.AssetType == nil && p.Status == nil && p.Conditions == nil
}

type rawCondition struct {
	Indicator *string          `json:"indicator"`
	Threshold *decimal.Decimal `json:"threshold"`
	Type      *string          `json:"type"`
}

// ParseCondition decodes a single raw condition. Every key is required.
func ParseCondition(raw json.RawMessage) (ConditionData, error) {
	var rc rawCondition
	if err := json.Unmarshal(raw, &rc); err != nil {
		return ConditionData{}, fmt.Errorf("%w: %v", ErrInvalidConditionData, err)
	}
	if rc.Indicator == nil || rc.Threshold == nil || rc.Type == nil {
		return ConditionData{}, ErrInvalidConditionData
	}
	indicator := strings.TrimSpace(*rc.Indicator)
	if indicator == "" {
		return ConditionData{}, fmt.Errorf("%w: indicator is empty", ErrInvalidConditionData)
	}
	threshold := rc.Threshold.Round(2)
	if threshold.Abs().GreaterThanOrEqual(thresholdLimit) {
		return ConditionData{}, fmt.Errorf("%w: threshold %s out of range", ErrInvalidConditionData, threshold.String())
	}
	return ConditionData{
		Indicator: indicator,
		Threshold: threshold,
		Type:      strings.TrimSpace(*rc.Type),
	}, nil
}

func ParseConditions(items []json.RawMessage) ([]ConditionData, error) {
	out := make([]ConditionData, 0, len(items))
	for _, raw := range items {
		cd, err := ParseCondition(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, cd)
	}
	return out, nil
}

type rawInput struct {
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	AssetType   string            `json:"asset_type"`
	Status      string            `json:"status"`
	Conditions  []json.RawMessage `json:"conditions"`
}

// ParseInput decodes a create request body. Unknown keys are rejected.
func ParseInput(raw []byte) (Input, error) {
	if err := checkFields(raw); err != nil {
		return Input{}, err
	}
	var ri rawInput
	if err := json.Unmarshal(raw, &ri); err != nil {
		return Input{}, err
	}
	conds, err := ParseConditions(ri.Conditions)
	if err != nil {
		return Input{}, err
	}
	return Input{
		Name:        strings.TrimSpace(ri.Name),
		Description: ri.Description,
		AssetType:   strings.TrimSpace(ri.AssetType),
		Status:      strings.TrimSpace(ri.Status),
		Conditions:  conds,
	}, nil
}

// ParsePatch decodes a partial update body. Only keys present in the object are
// set on the returned Patch; a key the strategy does not have fails with
// InvalidStrategyFieldError.
func ParsePatch(raw []byte) (Patch, error) {
	if err := checkFields(raw); err != nil {
		return Patch{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Patch{}, err
	}

	var p Patch
	for key, value := range fields {
		if isNull(value) {
			// An explicit null is a set field with an empty value. Description
			// is cleared; every other column rejects it during validation.
			empty := ""
			switch key {
			case "name":
				p.Name = &empty
			case "description":
				p.Description = &empty
			case "asset_type":
				p.AssetType = &empty
			case "status":
				p.Status = &empty
			case "conditions":
				return Patch{}, fmt.Errorf("%w: conditions is null", ErrInvalidConditionData)
			}
			continue
		}
		switch key {
		case "name":
			s, err := decodeString(key, value)
			if err != nil {
				return Patch{}, err
			}
			p.Name = &s
		case "description":
			s, err := decodeString(key, value)
			if err != nil {
				return Patch{}, err
			}
			p.Description = &s
		case "asset_type":
			s, err := decodeString(key, value)
			if err != nil {
				return Patch{}, err
			}
			p.AssetType = &s
		case "status":
			s, err := decodeString(key, value)
			if err != nil {
				return Patch{}, err
			}
			p.Status = &s
		case "conditions":
			var items []json.RawMessage
			if err := json.Unmarshal(value, &items); err != nil {
				return Patch{}, fmt.Errorf("%w: %v", ErrInvalidConditionData, err)
			}
			conds, err := ParseConditions(items)
			if err != nil {
				return Patch{}, err
			}
			p.Conditions = &conds
		}
	}
	return p, nil
}

var knownFields = map[string]struct{}{
	"name":        {},
	"description": {},
	"asset_type":  {},
	"status":      {},
	"conditions":  {},
}

func checkFields(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for key := range fields {
		if _, ok := knownFields[key]; !ok {
			return &InvalidStrategyFieldError{Field: key}
		}
	}
	return nil
}

func decodeString(key string, raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %s: %w", key, err)
	}
	return strings.TrimSpace(s), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
