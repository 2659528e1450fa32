package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Tier struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PriceIDR      int64  `json:"priceIdr"`
	StripePriceID string `json:"stripePriceId"`
}

// DefaultTiers returns the built-in subscription tiers. A tiers.json in the
// config dir overrides these.
func DefaultTiers() []Tier {
	return []Tier{
		{ID: 1, Name: "Chatbot Assistant", Description: "Omnichannel inbox with AI responder", PriceIDR: 99000},
		{ID: 2, Name: "AI Sales Agent", Description: "Inbox, responder, catalog and order tools", PriceIDR: 199000},
	}
}

func LoadTiers(cfgDir string) ([]Tier, error) {
	path := filepath.Join(cfgDir, "tiers.json")
	if _, err := os.Stat(path); err != nil {
		return DefaultTiers(), nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tiers.json: %w", err)
	}

	var tiers []Tier
	if err := json.Unmarshal(buf, &tiers); err != nil {
		return nil, fmt.Errorf("failed to parse tiers.json: %w", err)
	}

	return tiers, nil
}

func GetTier(tiers []Tier, tierID int) *Tier {
	for _, tier := range tiers {
		if tier.ID == tierID {
			return &tier
		}
	}
	return nil
}
