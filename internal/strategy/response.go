package strategy

import "strategyhub/internal/models"

type ConditionResponse struct {
	Indicator string  `json:"indicator"`
	Threshold float64 `json:"threshold"`
}

type Response struct {
	ID             uint64              `json:"id"`
	Name           string              `json:"name"`
	Description    *string             `json:"description"`
	AssetType      string              `json:"asset_type"`
	Status         string              `json:"status"`
	BuyConditions  []ConditionResponse `json:"buy_conditions"`
	SellConditions []ConditionResponse `json:"sell_conditions"`
}

// FormatResponse partitions the strategy's conditions by side. Both lists are
// non-nil so they encode as [] when empty.
func FormatResponse(s *models.Strategy) Response {
	resp := Response{
		BuyConditions:  []ConditionResponse{},
		SellConditions: []ConditionResponse{},
	}
	if s == nil {
		return resp
	}
	resp.ID = s.ID
	resp.Name = s.Name
	resp.Description = s.Description
	resp.AssetType = s.AssetType
	resp.Status = s.Status
	for _, c := range s.Conditions {
		item := ConditionResponse{Indicator: c.Indicator, Threshold: c.Threshold.InexactFloat64()}
		switch c.Type {
		case models.ConditionTypeBuy:
			resp.BuyConditions = append(resp.BuyConditions, item)
		case models.ConditionTypeSell:
			resp.SellConditions = append(resp.SellConditions, item)
		}
	}
	return resp
}

func FormatResponses(items []models.Strategy) []Response {
	out := make([]Response, 0, len(items))
	for i := range items {
		out = append(out, FormatResponse(&items[i]))
	}
	return out
}
