package strategy

import (
	"fmt"

	"strategyhub/internal/models"
)

func ValidStatus(status string) bool {
	switch status {
	case models.StrategyStatusActive, models.StrategyStatusClosed, models.StrategyStatusPaused:
		return true
	}
	return false
}

func ValidConditionType(t string) bool {
	return t == models.ConditionTypeBuy || t == models.ConditionTypeSell
}

// ValidateInput checks a create request before anything is built from it.
func ValidateInput(in Input) error {
	if in.Name == "" {
		return fmt.Errorf("%w: name", ErrRequiredField)
	}
	if in.AssetType == "" {
		return fmt.Errorf("%w: asset_type", ErrRequiredField)
	}
	if in.Status != "" && !ValidStatus(in.Status) {
		return ErrIncorrectStatusType
	}
	return validateConditions(in.Conditions)
}

// CreateStrategy builds an unsaved strategy owned by ownerUserID. Conditions are
// attached separately with AttachConditions.
func CreateStrategy(in Input, ownerUserID uint64) *models.Strategy {
	status := models.StrategyStatusActive
	if in.Status != "" && ValidStatus(in.Status) {
		status = in.Status
	}
	return &models.Strategy{
		Name:        in.Name,
		Description: normalizeDescription(in.Description),
		AssetType:   in.AssetType,
		Status:      status,
		UserID:      ownerUserID,
	}
}

// AttachConditions replaces the strategy's conditions with freshly built ones.
// A single entry with an unknown type fails the whole call and leaves the
// strategy untouched. Dropping the previous rows is the caller's job.
func AttachConditions(s *models.Strategy, items []ConditionData) error {
	if s == nil {
		return ErrStrategyNotFound
	}
	if err := validateConditions(items); err != nil {
		return err
	}
	s.Conditions = buildConditions(s.ID, items)
	return nil
}

// Changes reports what ApplyPartialUpdate did beyond plain field writes.
type Changes struct {
	ConditionsReplaced bool
	// Removed holds the conditions that were attached before a replace.
	Removed []models.Condition
	Fields  []string
}

// ApplyPartialUpdate mutates only the fields set on p. Every field is
// validated before the first write, so a failed call leaves s as it was.
func ApplyPartialUpdate(s *models.Strategy, p Patch) (Changes, error) {
	if s == nil {
		return Changes{}, ErrStrategyNotFound
	}
	if p.Name != nil && *p.Name == "" {
		return Changes{}, fmt.Errorf("%w: name", ErrRequiredField)
	}
	if p.AssetType != nil && *p.AssetType == "" {
		return Changes{}, fmt.Errorf("%w: asset_type", ErrRequiredField)
	}
	if p.Status != nil && !ValidStatus(*p.Status) {
		return Changes{}, ErrIncorrectStatusType
	}
	if p.Conditions != nil {
		if err := validateConditions(*p.Conditions); err != nil {
			return Changes{}, err
		}
	}

	var ch Changes
	if p.Conditions != nil {
		ch.ConditionsReplaced = true
		ch.Removed = s.Conditions
		s.Conditions = buildConditions(s.ID, *p.Conditions)
		ch.Fields = append(ch.Fields, "conditions")
	}
	if p.Name != nil {
		s.Name = *p.Name
		ch.Fields = append(ch.Fields, "name")
	}
	if p.Description != nil {
		s.Description = normalizeDescription(p.Description)
		ch.Fields = append(ch.Fields, "description")
	}
	if p.AssetType != nil {
		s.AssetType = *p.AssetType
		ch.Fields = append(ch.Fields, "asset_type")
	}
	if p.Status != nil {
		s.Status = *p.Status
		ch.Fields = append(ch.Fields, "status")
	}
	return ch, nil
}

// ActiveOnly drops closed strategies.
func ActiveOnly(items []models.Strategy) []models.Strategy {
	out := make([]models.Strategy, 0, len(items))
	for _, item := range items {
		if item.Status == models.StrategyStatusClosed {
			continue
		}
		out = append(out, item)
	}
	return out
}

// OwnedBy reports whether s exists and belongs to ownerUserID.
func OwnedBy(s *models.Strategy, ownerUserID uint64) bool {
	return s != nil && s.UserID == ownerUserID
}

func validateConditions(items []ConditionData) error {
	for _, item := range items {
		if !ValidConditionType(item.Type) {
			return ErrIncorrectConditionType
		}
	}
	return nil
}

func buildConditions(strategyID uint64, items []ConditionData) []models.Condition {
	out := make([]models.Condition, 0, len(items))
	for _, item := range items {
		out = append(out, models.Condition{
			Indicator:  item.Indicator,
			Threshold:  item.Threshold,
			Type:       item.Type,
			StrategyID: strategyID,
		})
	}
	return out
}

func normalizeDescription(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	d := *v
	return &d
}
