package event

import "github.com/shopspring/decimal"

// SampleClientRequest returns a representative IPO mandate from a corporate
// client. Used by the built-in demo scenario and tests.
func SampleClientRequest() *Event {
	ev := New(TypeClientRequest, "We are considering an IPO and would like to discuss underwriting options.")
	ev.Description = "TechVision Inc. IPO mandate"
	ev.Sender = &Sender{
		Name: "TechVision Inc.",
		Type: "corporate_client",
		Attributes: map[string]string{
			"industry": "technology",
			"revenue":  "850M",
		},
	}
	ev.Sequence = 1
	ev.ClientRequest = &ClientRequestData{
		RequestType: "investment_banking",
		Details: map[string]string{
			"service":        "ipo_underwriting",
			"target_raise":   "200M",
			"timeline":       "6_months",
			"prior_advisors": "none",
		},
	}
	return ev
}

// SampleMarketUpdate returns a representative tech sector selloff snapshot.
func SampleMarketUpdate() *Event {
	ev := New(TypeMarketUpdate, "Technology sector down sharply on rate concerns.")
	ev.Description = "Tech sector selloff"
	ev.Sequence = 2
	ev.MarketUpdate = &MarketUpdateData{
		Securities: []Security{
			{Symbol: "TECH", Price: decimal.NewFromFloat(142.30), Change: decimal.NewFromFloat(-8.45)},
			{Symbol: "SOFT", Price: decimal.NewFromFloat(87.10), Change: decimal.NewFromFloat(-5.20)},
		},
		MarketSentiment: decimal.NewFromFloat(-0.6),
		SectorPerformance: map[string]decimal.Decimal{
			"technology": decimal.NewFromFloat(-0.055),
			"financials": decimal.NewFromFloat(-0.012),
			"energy":     decimal.NewFromFloat(0.008),
		},
	}
	return ev
}
